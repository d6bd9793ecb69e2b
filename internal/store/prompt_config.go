package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/atelier-api/internal/domain"
)

// PromptConfigStore provides read access to prompt assembly configuration.
// Only active rows are returned by every method.
// Version: 1.0
type PromptConfigStore interface {
	// ActiveSettings returns all settings keyed by setting key.
	ActiveSettings(ctx context.Context) (map[string]string, error)

	// ActiveGroups returns active groups ordered by sort order.
	// When keys is non-empty only groups with those keys are returned.
	ActiveGroups(ctx context.Context, keys []string) ([]domain.PromptConfigGroup, error)

	// ActiveOptions returns a group's active options ordered by sort order.
	// When keys is non-empty only options with those keys are returned.
	ActiveOptions(ctx context.Context, groupID int64, keys []string) ([]domain.PromptConfigOption, error)

	// ActiveRules returns active combination rules, highest priority first.
	ActiveRules(ctx context.Context) ([]domain.PromptCombinationRule, error)
}

// PromptConfigAdminStore manages prompt groups and options, including
// inactive ones.
// Version: 1.0
type PromptConfigAdminStore interface {
	// GetGroup returns ErrPromptGroupNotFound if the group does not exist.
	GetGroup(ctx context.Context, id int64) (*domain.PromptConfigGroup, error)

	// CreateGroup saves a new group and sets its ID.
	// Returns ErrDuplicate if the group key is taken.
	CreateGroup(ctx context.Context, group *domain.PromptConfigGroup) error

	// UpdateGroup returns ErrPromptGroupNotFound if the group does not exist.
	UpdateGroup(ctx context.Context, group *domain.PromptConfigGroup) error

	// GetOption returns ErrPromptOptionNotFound if the option does not exist.
	GetOption(ctx context.Context, id int64) (*domain.PromptConfigOption, error)

	// ListOptions returns a group's options ordered by sort order;
	// activeOnly hides inactive ones.
	ListOptions(ctx context.Context, groupID int64, activeOnly bool) ([]domain.PromptConfigOption, error)

	// CreateOption saves a new option and sets its ID.
	// Returns ErrPromptGroupNotFound if its group does not exist and
	// ErrDuplicate if the key is taken within the group.
	CreateOption(ctx context.Context, option *domain.PromptConfigOption) error

	// UpdateOption returns ErrPromptOptionNotFound if the option does not exist.
	UpdateOption(ctx context.Context, option *domain.PromptConfigOption) error

	// WithTx returns a new PromptConfigAdminStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PromptConfigAdminStore
}
