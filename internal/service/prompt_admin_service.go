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

// PromptGroupInput carries the editable fields of a config group. Nil fields
// keep their current value on update and take the column default on create.
// GroupKey is only read on create.
type PromptGroupInput struct {
	GroupKey         string
	GroupName        *string
	Description      *string
	InputType        *string
	IsMultiple       *bool
	IsRequired       *bool
	Placeholder      *string
	DefaultOptionKey *string
	SortOrder        *int
	IsActive         *bool
}

func (in PromptGroupInput) apply(g *domain.PromptConfigGroup) {
	setString(&g.GroupName, in.GroupName)
	setString(&g.Description, in.Description)
	setString(&g.InputType, in.InputType)
	setString(&g.Placeholder, in.Placeholder)
	setString(&g.DefaultOptionKey, in.DefaultOptionKey)
	setValue(&g.IsMultiple, in.IsMultiple)
	setValue(&g.IsRequired, in.IsRequired)
	setValue(&g.SortOrder, in.SortOrder)
	setValue(&g.IsActive, in.IsActive)
}

// PromptOptionInput carries the editable fields of a config option, with
// the same nil semantics as PromptGroupInput. GroupID and OptionKey are only
// read on create.
type PromptOptionInput struct {
	GroupID        int64
	OptionKey      string
	OptionLabel    *string
	PromptText     *string
	NegativePrompt *string
	PromptOrder    *int
	ImageURL       *string
	Description    *string
	SortOrder      *int
	IsActive       *bool
	IsDefault      *bool
}

func (in PromptOptionInput) apply(o *domain.PromptConfigOption) {
	setString(&o.OptionLabel, in.OptionLabel)
	setString(&o.PromptText, in.PromptText)
	setString(&o.NegativePrompt, in.NegativePrompt)
	setString(&o.ImageURL, in.ImageURL)
	setString(&o.Description, in.Description)
	if in.PromptOrder != nil {
		o.PromptOrder = domain.PromptOrder(*in.PromptOrder)
	}
	setValue(&o.SortOrder, in.SortOrder)
	setValue(&o.IsActive, in.IsActive)
	setValue(&o.IsDefault, in.IsDefault)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// PromptAdminService manages prompt config groups and options. Changes are
// visible to the next prompt assembly.
type PromptAdminService interface {
	// ListGroupOptions returns a group's options; activeOnly hides inactive ones.
	ListGroupOptions(ctx context.Context, groupID int64, activeOnly bool) ([]domain.PromptConfigOption, error)

	CreateGroup(ctx context.Context, input PromptGroupInput) (*domain.PromptConfigGroup, error)

	// UpdateGroup patches a group inside a transaction.
	UpdateGroup(ctx context.Context, id int64, input PromptGroupInput) (*domain.PromptConfigGroup, error)

	CreateOption(ctx context.Context, input PromptOptionInput) (*domain.PromptConfigOption, error)

	// UpdateOption patches an option inside a transaction.
	UpdateOption(ctx context.Context, id int64, input PromptOptionInput) (*domain.PromptConfigOption, error)
}

type promptAdminServiceImpl struct {
	db     *sql.DB
	config store.PromptConfigAdminStore
	logger *slog.Logger
}

var _ PromptAdminService = (*promptAdminServiceImpl)(nil)

// NewPromptAdminService creates a new PromptAdminService.
func NewPromptAdminService(
	db *sql.DB,
	config store.PromptConfigAdminStore,
	logger *slog.Logger,
) (PromptAdminService, error) {
	if db == nil {
		return nil, missing("db")
	}
	if config == nil {
		return nil, missing("config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &promptAdminServiceImpl{
		db:     db,
		config: config,
		logger: logger.With("component", "prompt_admin_service"),
	}, nil
}

func (s *promptAdminServiceImpl) ListGroupOptions(
	ctx context.Context,
	groupID int64,
	activeOnly bool,
) ([]domain.PromptConfigOption, error) {
	if _, err := s.config.GetGroup(ctx, groupID); err != nil {
		return nil, wrapError("prompt", "list_options", "failed to retrieve group", err)
	}
	options, err := s.config.ListOptions(ctx, groupID, activeOnly)
	if err != nil {
		return nil, wrapError("prompt", "list_options", "failed to list options", err)
	}
	return options, nil
}

func (s *promptAdminServiceImpl) CreateGroup(
	ctx context.Context,
	input PromptGroupInput,
) (*domain.PromptConfigGroup, error) {
	group := &domain.PromptConfigGroup{
		GroupKey:  strings.TrimSpace(input.GroupKey),
		InputType: domain.InputTypeSingle,
		IsActive:  true,
	}
	input.apply(group)
	if err := group.Validate(); err != nil {
		return nil, err
	}

	if err := s.config.CreateGroup(ctx, group); err != nil {
		return nil, wrapError("prompt", "create_group", "failed to save group", err)
	}
	return group, nil
}

func (s *promptAdminServiceImpl) UpdateGroup(
	ctx context.Context,
	id int64,
	input PromptGroupInput,
) (*domain.PromptConfigGroup, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.PromptConfigGroup
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.config.WithTx(tx)

		group, err := txStore.GetGroup(ctx, id)
		if err != nil {
			return wrapError("prompt", "update_group", "failed to retrieve group", err)
		}
		input.apply(group)
		if err := group.Validate(); err != nil {
			return err
		}

		if err := txStore.UpdateGroup(ctx, group); err != nil {
			return wrapError("prompt", "update_group", "failed to save group", err)
		}
		updated = group
		return nil
	})
	if err != nil {
		log.Debug("prompt group update failed", "error", err, "group_id", id)
		return nil, err
	}

	log.Info("prompt group updated", "group_id", id)
	return updated, nil
}

func (s *promptAdminServiceImpl) CreateOption(
	ctx context.Context,
	input PromptOptionInput,
) (*domain.PromptConfigOption, error) {
	option := &domain.PromptConfigOption{
		GroupID:     input.GroupID,
		OptionKey:   strings.TrimSpace(input.OptionKey),
		PromptOrder: domain.PromptOrderMiddle,
		IsActive:    true,
	}
	input.apply(option)
	if err := option.Validate(); err != nil {
		return nil, err
	}

	if err := s.config.CreateOption(ctx, option); err != nil {
		return nil, wrapError("prompt", "create_option", "failed to save option", err)
	}
	return option, nil
}

func (s *promptAdminServiceImpl) UpdateOption(
	ctx context.Context,
	id int64,
	input PromptOptionInput,
) (*domain.PromptConfigOption, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.PromptConfigOption
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.config.WithTx(tx)

		option, err := txStore.GetOption(ctx, id)
		if err != nil {
			return wrapError("prompt", "update_option", "failed to retrieve option", err)
		}
		input.apply(option)
		if err := option.Validate(); err != nil {
			return err
		}

		if err := txStore.UpdateOption(ctx, option); err != nil {
			return wrapError("prompt", "update_option", "failed to save option", err)
		}
		updated = option
		return nil
	})
	if err != nil {
		log.Debug("prompt option update failed", "error", err, "option_id", id)
		return nil, err
	}

	log.Info("prompt option updated", "option_id", id)
	return updated, nil
}
