package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/store"
)

// TemplateInput carries the editable fields of a template.
// A nil IsActive keeps the current flag on update and means active on create.
type TemplateInput struct {
	Name       string
	CoverImage string
	Config     domain.TemplateConfig
	IsActive   *bool
}

// TemplateService provides detail template management
type TemplateService interface {
	ListTemplates(ctx context.Context, activeOnly bool) ([]*domain.Template, error)
	GetTemplate(ctx context.Context, id int64) (*domain.Template, error)
	CreateTemplate(ctx context.Context, input TemplateInput) (*domain.Template, error)

	// UpdateTemplate replaces a template's fields inside a transaction.
	UpdateTemplate(ctx context.Context, id int64, input TemplateInput) (*domain.Template, error)

	// DeleteTemplate removes a template. Tasks referencing it lose the
	// reference but keep any prompt already stored on them.
	DeleteTemplate(ctx context.Context, id int64) error
}

type templateServiceImpl struct {
	db        *sql.DB
	templates store.TemplateStore
	logger    *slog.Logger
}

var _ TemplateService = (*templateServiceImpl)(nil)

// NewTemplateService creates a new TemplateService.
func NewTemplateService(db *sql.DB, templates store.TemplateStore, logger *slog.Logger) (TemplateService, error) {
	if db == nil {
		return nil, missing("db")
	}
	if templates == nil {
		return nil, missing("templates")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &templateServiceImpl{
		db:        db,
		templates: templates,
		logger:    logger.With("component", "template_service"),
	}, nil
}

func (s *templateServiceImpl) ListTemplates(ctx context.Context, activeOnly bool) ([]*domain.Template, error) {
	templates, err := s.templates.List(ctx, activeOnly)
	if err != nil {
		return nil, wrapError("template", "list_templates", "failed to list templates", err)
	}
	return templates, nil
}

func (s *templateServiceImpl) GetTemplate(ctx context.Context, id int64) (*domain.Template, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError("template", "get_template", "failed to retrieve template", err)
	}
	return template, nil
}

func (s *templateServiceImpl) CreateTemplate(ctx context.Context, input TemplateInput) (*domain.Template, error) {
	template, err := domain.NewTemplate(input.Name, input.CoverImage, input.Config)
	if err != nil {
		return nil, err
	}
	if input.IsActive != nil {
		template.IsActive = *input.IsActive
	}

	if err := s.templates.Create(ctx, template); err != nil {
		return nil, wrapError("template", "create_template", "failed to save template", err)
	}
	return template, nil
}

func (s *templateServiceImpl) UpdateTemplate(
	ctx context.Context,
	id int64,
	input TemplateInput,
) (*domain.Template, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Template
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.templates.WithTx(tx)

		template, err := txStore.GetByID(ctx, id)
		if err != nil {
			return wrapError("template", "update_template", "failed to retrieve template", err)
		}

		template.Name = strings.TrimSpace(input.Name)
		template.CoverImage = input.CoverImage
		template.Config = input.Config
		if input.IsActive != nil {
			template.IsActive = *input.IsActive
		}
		if err := template.Validate(); err != nil {
			return err
		}

		if err := txStore.Update(ctx, template); err != nil {
			return wrapError("template", "update_template", "failed to save template", err)
		}
		updated = template
		return nil
	})
	if err != nil {
		log.Debug("template update failed", "error", err, "template_id", id)
		return nil, err
	}

	log.Info("template updated", "template_id", id)
	return updated, nil
}

func (s *templateServiceImpl) DeleteTemplate(ctx context.Context, id int64) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		return wrapError("template", "delete_template", "failed to delete template", err)
	}
	return nil
}
