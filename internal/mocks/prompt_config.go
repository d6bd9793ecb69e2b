package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/store"
)

// MockPromptConfigStore implements store.PromptConfigStore and
// store.PromptConfigAdminStore in memory. The Active methods treat every row
// as active; ListOptions honours IsActive.
type MockPromptConfigStore struct {
	mu     sync.Mutex
	nextID int64

	Settings map[string]string
	Groups   []domain.PromptConfigGroup
	Options  map[int64][]domain.PromptConfigOption
	Rules    []domain.PromptCombinationRule

	// Err, when set, is returned by every method
	Err error
}

var (
	_ store.PromptConfigStore      = (*MockPromptConfigStore)(nil)
	_ store.PromptConfigAdminStore = (*MockPromptConfigStore)(nil)
)

// NewMockPromptConfigStore creates an empty configuration.
func NewMockPromptConfigStore() *MockPromptConfigStore {
	return &MockPromptConfigStore{
		Settings: map[string]string{},
		Options:  map[int64][]domain.PromptConfigOption{},
	}
}

// ActiveSettings implements store.PromptConfigStore.
func (m *MockPromptConfigStore) ActiveSettings(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]string, len(m.Settings))
	for k, v := range m.Settings {
		out[k] = v
	}
	return out, nil
}

// ActiveGroups implements store.PromptConfigStore.
func (m *MockPromptConfigStore) ActiveGroups(ctx context.Context, keys []string) ([]domain.PromptConfigGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.PromptConfigGroup, 0, len(m.Groups))
	for _, g := range m.Groups {
		if len(keys) == 0 || contains(keys, g.GroupKey) {
			out = append(out, g)
		}
	}
	return out, nil
}

// ActiveOptions implements store.PromptConfigStore.
func (m *MockPromptConfigStore) ActiveOptions(
	ctx context.Context,
	groupID int64,
	keys []string,
) ([]domain.PromptConfigOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.PromptConfigOption, 0)
	for _, o := range m.Options[groupID] {
		if len(keys) == 0 || contains(keys, o.OptionKey) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ActiveRules implements store.PromptConfigStore.
func (m *MockPromptConfigStore) ActiveRules(ctx context.Context) ([]domain.PromptCombinationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.PromptCombinationRule(nil), m.Rules...), nil
}

// GetGroup implements store.PromptConfigAdminStore.
func (m *MockPromptConfigStore) GetGroup(ctx context.Context, id int64) (*domain.PromptConfigGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, g := range m.Groups {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, store.ErrPromptGroupNotFound
}

// CreateGroup implements store.PromptConfigAdminStore.
func (m *MockPromptConfigStore) CreateGroup(ctx context.Context, group *domain.PromptConfigGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if err := group.Validate(); err != nil {
		return err
	}
	for _, g := range m.Groups {
		if g.GroupKey == group.GroupKey {
			return store.ErrDuplicate
		}
	}
	group.ID = m.newID()
	m.Groups = append(m.Groups, *group)
	return nil
}

// UpdateGroup implements store.PromptConfigAdminStore.
func (m *MockPromptConfigStore) UpdateGroup(ctx context.Context, group *domain.PromptConfigGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if err := group.Validate(); err != nil {
		return err
	}
	for i, g := range m.Groups {
		if g.ID == group.ID {
			updated := *group
			updated.GroupKey = g.GroupKey
			updated.IsSystem = g.IsSystem
			m.Groups[i] = updated
			return nil
		}
	}
	return store.ErrPromptGroupNotFound
}

// GetOption implements store.PromptConfigAdminStore.
func (m *MockPromptConfigStore) GetOption(ctx context.Context, id int64) (*domain.PromptConfigOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, options := range m.Options {
		for _, o := range options {
			if o.ID == id {
				return &o, nil
			}
		}
	}
	return nil, store.ErrPromptOptionNotFound
}

// ListOptions implements store.PromptConfigAdminStore.
func (m *MockPromptConfigStore) ListOptions(
	ctx context.Context,
	groupID int64,
	activeOnly bool,
) ([]domain.PromptConfigOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.PromptConfigOption, 0)
	for _, o := range m.Options[groupID] {
		if !activeOnly || o.IsActive {
			out = append(out, o)
		}
	}
	return out, nil
}

// CreateOption implements store.PromptConfigAdminStore.
func (m *MockPromptConfigStore) CreateOption(ctx context.Context, option *domain.PromptConfigOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if err := option.Validate(); err != nil {
		return err
	}
	found := false
	for _, g := range m.Groups {
		found = found || g.ID == option.GroupID
	}
	if !found {
		return store.ErrPromptGroupNotFound
	}
	for _, o := range m.Options[option.GroupID] {
		if o.OptionKey == option.OptionKey {
			return store.ErrDuplicate
		}
	}
	option.ID = m.newID()
	if m.Options == nil {
		m.Options = map[int64][]domain.PromptConfigOption{}
	}
	m.Options[option.GroupID] = append(m.Options[option.GroupID], *option)
	return nil
}

// UpdateOption implements store.PromptConfigAdminStore.
func (m *MockPromptConfigStore) UpdateOption(ctx context.Context, option *domain.PromptConfigOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if err := option.Validate(); err != nil {
		return err
	}
	for groupID, options := range m.Options {
		for i, o := range options {
			if o.ID == option.ID {
				updated := *option
				updated.GroupID = groupID
				updated.OptionKey = o.OptionKey
				options[i] = updated
				return nil
			}
		}
	}
	return store.ErrPromptOptionNotFound
}

// WithTx implements store.PromptConfigAdminStore. The mock has no
// transactions, so it returns itself.
func (m *MockPromptConfigStore) WithTx(tx *sql.Tx) store.PromptConfigAdminStore {
	return m
}

// newID returns an ID above every ID already held. Callers hold mu.
func (m *MockPromptConfigStore) newID() int64 {
	for _, g := range m.Groups {
		m.nextID = max(m.nextID, g.ID)
	}
	for _, options := range m.Options {
		for _, o := range options {
			m.nextID = max(m.nextID, o.ID)
		}
	}
	m.nextID++
	return m.nextID
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
