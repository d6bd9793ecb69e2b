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

const (
	groupColumns = `id, group_key, group_name, description, input_type, is_multiple, is_required,
			placeholder, default_option_key, sort_order, is_active, is_system`
	optionColumns = `id, group_id, option_key, option_label, prompt_text, negative_prompt,
			prompt_order, image_url, description, sort_order, is_active, is_default`
)

// PostgresPromptConfigStore implements the store.PromptConfigStore and
// store.PromptConfigAdminStore interfaces using a PostgreSQL database as the
// storage backend.
type PostgresPromptConfigStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPromptConfigStore creates a new PostgreSQL implementation of the PromptConfigStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresPromptConfigStore(db store.DBTX, logger *slog.Logger) *PostgresPromptConfigStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPromptConfigStore{
		db:     db,
		logger: logger.With(slog.String("component", "prompt_config_store")),
	}
}

// Ensure PostgresPromptConfigStore implements both prompt config interfaces
var (
	_ store.PromptConfigStore      = (*PostgresPromptConfigStore)(nil)
	_ store.PromptConfigAdminStore = (*PostgresPromptConfigStore)(nil)
)

// ActiveSettings implements store.PromptConfigStore.ActiveSettings.
func (s *PostgresPromptConfigStore) ActiveSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM prompt_config_settings WHERE is_active ORDER BY sort_order, key`)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt settings: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan prompt setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return settings, nil
}

// ActiveGroups implements store.PromptConfigStore.ActiveGroups.
func (s *PostgresPromptConfigStore) ActiveGroups(ctx context.Context, keys []string) ([]domain.PromptConfigGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM prompt_config_groups WHERE is_active`
	args := stringArgs(keys)
	if len(args) > 0 {
		query += ` AND group_key IN (` + placeholders(1, len(args)) + `)`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt groups: %w", MapError(err))
	}
	return scanGroups(rows)
}

// ActiveOptions implements store.PromptConfigStore.ActiveOptions.
func (s *PostgresPromptConfigStore) ActiveOptions(
	ctx context.Context,
	groupID int64,
	keys []string,
) ([]domain.PromptConfigOption, error) {
	query := `SELECT ` + optionColumns + ` FROM prompt_config_options WHERE is_active AND group_id = $1`
	args := append([]any{groupID}, stringArgs(keys)...)
	if len(keys) > 0 {
		query += ` AND option_key IN (` + placeholders(2, len(keys)) + `)`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt options: %w", MapError(err))
	}
	return scanOptions(rows)
}

// ActiveRules implements store.PromptConfigStore.ActiveRules.
func (s *PostgresPromptConfigStore) ActiveRules(ctx context.Context) ([]domain.PromptCombinationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, condition, action_type, target, action_prompt, priority, is_active
		FROM prompt_combination_rules
		WHERE is_active
		ORDER BY priority DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt rules: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	rules := []domain.PromptCombinationRule{}
	for rows.Next() {
		r, err := scanRule(rows, s.logger)
		if err != nil {
			return nil, err
		}
		if r != nil {
			rules = append(rules, *r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return rules, nil
}

// GetGroup implements store.PromptConfigAdminStore.GetGroup.
func (s *PostgresPromptConfigStore) GetGroup(ctx context.Context, id int64) (*domain.PromptConfigGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM prompt_config_groups WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt group: %w", MapError(err))
	}
	groups, err := scanGroups(rows)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, store.ErrPromptGroupNotFound
	}
	return &groups[0], nil
}

// CreateGroup implements store.PromptConfigAdminStore.CreateGroup.
func (s *PostgresPromptConfigStore) CreateGroup(ctx context.Context, group *domain.PromptConfigGroup) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := group.Validate(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO prompt_config_groups (group_key, group_name, description, input_type, is_multiple,
			is_required, placeholder, default_option_key, sort_order, is_active, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, group.GroupKey, group.GroupName, group.Description, group.InputType, group.IsMultiple,
		group.IsRequired, group.Placeholder, group.DefaultOptionKey, group.SortOrder, group.IsActive, group.IsSystem,
	).Scan(&group.ID)
	if err != nil {
		log.Error("failed to create prompt group",
			slog.String("error", err.Error()),
			slog.String("group_key", group.GroupKey))
		return MapError(err)
	}

	log.Info("prompt group created",
		slog.Int64("group_id", group.ID),
		slog.String("group_key", group.GroupKey))
	return nil
}

// UpdateGroup implements store.PromptConfigAdminStore.UpdateGroup.
// The group key is immutable.
func (s *PostgresPromptConfigStore) UpdateGroup(ctx context.Context, group *domain.PromptConfigGroup) error {
	if err := group.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE prompt_config_groups
		SET group_name = $2, description = $3, input_type = $4, is_multiple = $5, is_required = $6,
			placeholder = $7, default_option_key = $8, sort_order = $9, is_active = $10
		WHERE id = $1
	`, group.ID, group.GroupName, group.Description, group.InputType, group.IsMultiple, group.IsRequired,
		group.Placeholder, group.DefaultOptionKey, group.SortOrder, group.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update prompt group: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrPromptGroupNotFound)
}

// GetOption implements store.PromptConfigAdminStore.GetOption.
func (s *PostgresPromptConfigStore) GetOption(ctx context.Context, id int64) (*domain.PromptConfigOption, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+optionColumns+` FROM prompt_config_options WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt option: %w", MapError(err))
	}
	options, err := scanOptions(rows)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, store.ErrPromptOptionNotFound
	}
	return &options[0], nil
}

// ListOptions implements store.PromptConfigAdminStore.ListOptions.
func (s *PostgresPromptConfigStore) ListOptions(
	ctx context.Context,
	groupID int64,
	activeOnly bool,
) ([]domain.PromptConfigOption, error) {
	query := `SELECT ` + optionColumns + ` FROM prompt_config_options WHERE group_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt options: %w", MapError(err))
	}
	return scanOptions(rows)
}

// CreateOption implements store.PromptConfigAdminStore.CreateOption.
func (s *PostgresPromptConfigStore) CreateOption(ctx context.Context, option *domain.PromptConfigOption) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := option.Validate(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO prompt_config_options (group_id, option_key, option_label, prompt_text, negative_prompt,
			prompt_order, image_url, description, sort_order, is_active, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, option.GroupID, option.OptionKey, option.OptionLabel, option.PromptText, option.NegativePrompt,
		int(option.PromptOrder), option.ImageURL, option.Description, option.SortOrder, option.IsActive, option.IsDefault,
	).Scan(&option.ID)
	if err != nil {
		log.Error("failed to create prompt option",
			slog.String("error", err.Error()),
			slog.Int64("group_id", option.GroupID),
			slog.String("option_key", option.OptionKey))
		return MapError(err)
	}

	log.Info("prompt option created",
		slog.Int64("option_id", option.ID),
		slog.Int64("group_id", option.GroupID),
		slog.String("option_key", option.OptionKey))
	return nil
}

// UpdateOption implements store.PromptConfigAdminStore.UpdateOption.
// The owning group and option key are immutable.
func (s *PostgresPromptConfigStore) UpdateOption(ctx context.Context, option *domain.PromptConfigOption) error {
	if err := option.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE prompt_config_options
		SET option_label = $2, prompt_text = $3, negative_prompt = $4, prompt_order = $5,
			image_url = $6, description = $7, sort_order = $8, is_active = $9, is_default = $10
		WHERE id = $1
	`, option.ID, option.OptionLabel, option.PromptText, option.NegativePrompt, int(option.PromptOrder),
		option.ImageURL, option.Description, option.SortOrder, option.IsActive, option.IsDefault)
	if err != nil {
		return fmt.Errorf("failed to update prompt option: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrPromptOptionNotFound)
}

// WithTx implements store.PromptConfigAdminStore.WithTx.
func (s *PostgresPromptConfigStore) WithTx(tx *sql.Tx) store.PromptConfigAdminStore {
	return &PostgresPromptConfigStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanGroups(rows *sql.Rows) ([]domain.PromptConfigGroup, error) {
	defer func() { _ = rows.Close() }()

	groups := []domain.PromptConfigGroup{}
	for rows.Next() {
		var g domain.PromptConfigGroup
		if err := rows.Scan(
			&g.ID,
			&g.GroupKey,
			&g.GroupName,
			&g.Description,
			&g.InputType,
			&g.IsMultiple,
			&g.IsRequired,
			&g.Placeholder,
			&g.DefaultOptionKey,
			&g.SortOrder,
			&g.IsActive,
			&g.IsSystem,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prompt group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return groups, nil
}

func scanOptions(rows *sql.Rows) ([]domain.PromptConfigOption, error) {
	defer func() { _ = rows.Close() }()

	options := []domain.PromptConfigOption{}
	for rows.Next() {
		var (
			o     domain.PromptConfigOption
			order int
		)
		if err := rows.Scan(
			&o.ID,
			&o.GroupID,
			&o.OptionKey,
			&o.OptionLabel,
			&o.PromptText,
			&o.NegativePrompt,
			&order,
			&o.ImageURL,
			&o.Description,
			&o.SortOrder,
			&o.IsActive,
			&o.IsDefault,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prompt option: %w", err)
		}
		o.PromptOrder = domain.PromptOrder(order)
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return options, nil
}

// scanRule reads one rule. A rule whose condition is not valid JSON is
// skipped with a warning so one bad row cannot disable prompt assembly.
func scanRule(rows *sql.Rows, log *slog.Logger) (*domain.PromptCombinationRule, error) {
	var (
		r         domain.PromptCombinationRule
		condition []byte
		action    string
		target    string
	)
	if err := rows.Scan(
		&r.ID,
		&r.Name,
		&r.Description,
		&condition,
		&action,
		&target,
		&r.ActionPrompt,
		&r.Priority,
		&r.IsActive,
	); err != nil {
		return nil, fmt.Errorf("failed to scan prompt rule: %w", err)
	}
	r.ActionType = domain.RuleAction(action)
	r.Target = domain.RuleTarget(target)

	if len(condition) > 0 {
		if err := json.Unmarshal(condition, &r.Condition); err != nil {
			log.Warn("skipping prompt rule with invalid condition",
				slog.Int64("rule_id", r.ID),
				slog.String("error", err.Error()))
			return nil, nil
		}
	}
	return &r, nil
}

func stringArgs(values []string) []any {
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return args
}
