package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/store"
)

// MockTemplateStore implements store.TemplateStore with an in-memory map.
type MockTemplateStore struct {
	mu        sync.Mutex
	templates map[int64]*domain.Template
	nextID    int64

	// GetByIDFn overrides GetByID when set
	GetByIDFn func(ctx context.Context, id int64) (*domain.Template, error)

	// Err is returned by every method when set
	Err error
}

var _ store.TemplateStore = (*MockTemplateStore)(nil)

// NewMockTemplateStore creates a store seeded with templates.
func NewMockTemplateStore(templates ...*domain.Template) *MockTemplateStore {
	m := &MockTemplateStore{templates: make(map[int64]*domain.Template)}
	for _, t := range templates {
		if t.ID > m.nextID {
			m.nextID = t.ID
		}
		c := *t
		m.templates[t.ID] = &c
	}
	return m
}

// Create implements store.TemplateStore.
func (m *MockTemplateStore) Create(ctx context.Context, template *domain.Template) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	template.ID = m.nextID
	c := *template
	m.templates[template.ID] = &c
	return nil
}

// GetByID implements store.TemplateStore.
func (m *MockTemplateStore) GetByID(ctx context.Context, id int64) (*domain.Template, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, store.ErrTemplateNotFound
	}
	c := *t
	return &c, nil
}

// List implements store.TemplateStore.
func (m *MockTemplateStore) List(ctx context.Context, activeOnly bool) ([]*domain.Template, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Template, 0, len(m.templates))
	for _, t := range m.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update implements store.TemplateStore.
func (m *MockTemplateStore) Update(ctx context.Context, template *domain.Template) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[template.ID]; !ok {
		return store.ErrTemplateNotFound
	}
	c := *template
	m.templates[template.ID] = &c
	return nil
}

// Delete implements store.TemplateStore.
func (m *MockTemplateStore) Delete(ctx context.Context, id int64) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return store.ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

// WithTx implements store.TemplateStore.
func (m *MockTemplateStore) WithTx(tx *sql.Tx) store.TemplateStore {
	return m
}
