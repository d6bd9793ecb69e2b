package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/store"
)

const templateColumns = `id, name, cover_image, config, is_active, created_at`

// PostgresTemplateStore implements the store.TemplateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTemplateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTemplateStore creates a new PostgreSQL implementation of the TemplateStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTemplateStore(db store.DBTX, logger *slog.Logger) *PostgresTemplateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTemplateStore{
		db:     db,
		logger: logger.With(slog.String("component", "template_store")),
	}
}

// Ensure PostgresTemplateStore implements store.TemplateStore interface
var _ store.TemplateStore = (*PostgresTemplateStore)(nil)

// Create implements store.TemplateStore.Create.
func (s *PostgresTemplateStore) Create(ctx context.Context, template *domain.Template) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := template.Validate(); err != nil {
		return err
	}
	config, err := json.Marshal(template.Config)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO detail_templates (name, cover_image, config, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, template.Name, template.CoverImage, string(config), template.IsActive, template.CreatedAt,
	).Scan(&template.ID)
	if err != nil {
		log.Error("failed to create template",
			slog.String("error", err.Error()),
			slog.String("name", template.Name))
		return MapError(err)
	}

	log.Info("template created",
		slog.Int64("template_id", template.ID),
		slog.String("name", template.Name))
	return nil
}

// GetByID implements store.TemplateStore.GetByID.
func (s *PostgresTemplateStore) GetByID(ctx context.Context, id int64) (*domain.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM detail_templates WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", MapError(err))
	}
	templates, err := scanTemplates(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if len(templates) == 0 {
		return nil, store.ErrTemplateNotFound
	}
	return templates[0], nil
}

// List implements store.TemplateStore.List.
func (s *PostgresTemplateStore) List(ctx context.Context, activeOnly bool) ([]*domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM detail_templates`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", MapError(err))
	}
	templates, err := scanTemplates(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if templates == nil {
		templates = []*domain.Template{}
	}
	return templates, nil
}

// Update implements store.TemplateStore.Update.
func (s *PostgresTemplateStore) Update(ctx context.Context, template *domain.Template) error {
	if err := template.Validate(); err != nil {
		return err
	}
	config, err := json.Marshal(template.Config)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE detail_templates
		SET name = $2, cover_image = $3, config = $4, is_active = $5
		WHERE id = $1
	`, template.ID, template.Name, template.CoverImage, string(config), template.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTemplateNotFound)
}

// Delete implements store.TemplateStore.Delete.
// The template_id foreign key on generation_tasks is ON DELETE SET NULL.
func (s *PostgresTemplateStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM detail_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrTemplateNotFound); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("template deleted", slog.Int64("template_id", id))
	return nil
}

// WithTx implements store.TemplateStore.WithTx.
func (s *PostgresTemplateStore) WithTx(tx *sql.Tx) store.TemplateStore {
	return &PostgresTemplateStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanTemplates(rows *sql.Rows) ([]*domain.Template, error) {
	defer func() { _ = rows.Close() }()

	var templates []*domain.Template
	for rows.Next() {
		var (
			t      domain.Template
			config []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.CoverImage, &config, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		if len(config) > 0 {
			if err := json.Unmarshal(config, &t.Config); err != nil {
				return nil, fmt.Errorf("template %d: invalid config: %w", t.ID, err)
			}
		}
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return templates, nil
}
