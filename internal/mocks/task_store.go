package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing.
// Without function overrides it behaves like the postgres store: claims are
// FIFO by creation time and mark operations enforce the state machine.
// Returned tasks are copies.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.GenerationTask

	// Function fields for customizable behavior
	EnqueueFn        func(ctx context.Context, task *domain.GenerationTask) error
	ClaimFn          func(ctx context.Context, batchSize int) ([]*domain.GenerationTask, error)
	MarkSucceededFn  func(ctx context.Context, id uuid.UUID, result domain.TaskResult, finishedAt time.Time) error
	MarkFailedFn     func(ctx context.Context, id uuid.UUID, taskErr domain.TaskError, finishedAt time.Time) error
	MarkStartedFn    func(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	RequeueStaleFn   func(ctx context.Context, olderThan time.Duration, exclude []uuid.UUID) (int64, error)
	GetFn            func(ctx context.Context, id, owner uuid.UUID) (*domain.GenerationTask, error)
	ListFn           func(ctx context.Context, owner uuid.UUID, filter store.TaskFilter, page store.Page) (*store.TaskPage, error)
	SoftDeleteFn     func(ctx context.Context, id, owner uuid.UUID) error
	EnqueueCallCount int
	ReleasedIDs      []uuid.UUID
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]*domain.GenerationTask)}
}

func clone(t *domain.GenerationTask) *domain.GenerationTask {
	c := *t
	return &c
}

// Put stores a task as-is, bypassing Enqueue.
func (m *MockTaskStore) Put(task *domain.GenerationTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = clone(task)
}

// Task returns a copy of the stored task, or nil.
func (m *MockTaskStore) Task(id uuid.UUID) *domain.GenerationTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	return clone(t)
}

// Len returns the number of stored tasks.
func (m *MockTaskStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Enqueue implements store.TaskStore.
func (m *MockTaskStore) Enqueue(ctx context.Context, task *domain.GenerationTask) error {
	m.mu.Lock()
	m.EnqueueCallCount++
	m.mu.Unlock()

	if m.EnqueueFn != nil {
		return m.EnqueueFn(ctx, task)
	}
	if task.Status != domain.TaskStatusQueued {
		return store.ErrInvalidEntity
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	m.tasks[task.ID] = clone(task)
	return nil
}

// Claim implements store.TaskStore.
func (m *MockTaskStore) Claim(ctx context.Context, batchSize int) ([]*domain.GenerationTask, error) {
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, batchSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var queued []*domain.GenerationTask
	for _, t := range m.tasks {
		if t.Status == domain.TaskStatusQueued && !t.IsDeleted {
			queued = append(queued, t)
		}
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].CreatedAt.Before(queued[j].CreatedAt) })
	if len(queued) > batchSize {
		queued = queued[:batchSize]
	}

	now := time.Now().UTC()
	claimed := make([]*domain.GenerationTask, 0, len(queued))
	for _, t := range queued {
		_ = t.MarkProcessing(now)
		claimed = append(claimed, clone(t))
	}
	return claimed, nil
}

// MarkProcessing implements store.TaskStore.
func (m *MockTaskStore) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if err := t.MarkProcessing(startedAt); err != nil {
		return store.ErrInvalidTransition
	}
	return nil
}

// MarkStarted implements store.TaskStore.
func (m *MockTaskStore) MarkStarted(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	if m.MarkStartedFn != nil {
		return m.MarkStartedFn(ctx, id, startedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.Status != domain.TaskStatusProcessing {
		return store.ErrInvalidTransition
	}
	t.StartedAt = &startedAt
	return nil
}

// MarkSucceeded implements store.TaskStore.
func (m *MockTaskStore) MarkSucceeded(ctx context.Context, id uuid.UUID, result domain.TaskResult, finishedAt time.Time) error {
	if m.MarkSucceededFn != nil {
		return m.MarkSucceededFn(ctx, id, result, finishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if err := t.MarkSucceeded(result, finishedAt); err != nil {
		return store.ErrInvalidTransition
	}
	return nil
}

// MarkFailed implements store.TaskStore.
func (m *MockTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, taskErr domain.TaskError, finishedAt time.Time) error {
	if m.MarkFailedFn != nil {
		return m.MarkFailedFn(ctx, id, taskErr, finishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if err := t.MarkFailed(taskErr, finishedAt); err != nil {
		return store.ErrInvalidTransition
	}
	return nil
}

// Release implements store.TaskStore.
func (m *MockTaskStore) Release(ctx context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.ReleasedIDs = append(m.ReleasedIDs, id)
		if t, ok := m.tasks[id]; ok && t.Status == domain.TaskStatusProcessing {
			t.Status = domain.TaskStatusQueued
			t.StartedAt = nil
		}
	}
	return nil
}

// RequeueStale implements store.TaskStore.
func (m *MockTaskStore) RequeueStale(ctx context.Context, olderThan time.Duration, exclude []uuid.UUID) (int64, error) {
	if m.RequeueStaleFn != nil {
		return m.RequeueStaleFn(ctx, olderThan, exclude)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	skip := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	cutoff := time.Now().Add(-olderThan)
	var n int64
	for _, t := range m.tasks {
		if skip[t.ID] {
			continue
		}
		if t.Status == domain.TaskStatusProcessing && t.StartedAt != nil && !t.StartedAt.After(cutoff) {
			t.Status = domain.TaskStatusQueued
			t.StartedAt = nil
			n++
		}
	}
	return n, nil
}

// Get implements store.TaskStore.
func (m *MockTaskStore) Get(ctx context.Context, id, owner uuid.UUID) (*domain.GenerationTask, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id, owner)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != owner || t.IsDeleted {
		return nil, store.ErrTaskNotFound
	}
	return clone(t), nil
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return clone(t), nil
}

// List implements store.TaskStore.
func (m *MockTaskStore) List(
	ctx context.Context,
	owner uuid.UUID,
	filter store.TaskFilter,
	page store.Page,
) (*store.TaskPage, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, owner, filter, page)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*domain.GenerationTask
	for _, t := range m.tasks {
		if t.UserID != owner || t.IsDeleted {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		matched = append(matched, clone(t))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page = page.Normalize()
	total := len(matched)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}

	return &store.TaskPage{
		Tasks:    matched[start:end],
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// SoftDelete implements store.TaskStore.
func (m *MockTaskStore) SoftDelete(ctx context.Context, id, owner uuid.UUID) error {
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(ctx, id, owner)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != owner || t.IsDeleted {
		return store.ErrTaskNotFound
	}
	t.IsDeleted = true
	return nil
}

// WithTx implements store.TaskStore.
// In the mock implementation, we just return the same store instance.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
