package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// Paging limits for task listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TaskFilter narrows a task listing. Zero values mean "any".
type TaskFilter struct {
	Type   domain.TaskType
	Status domain.TaskStatus
}

// Page selects a 1-based page of results.
type Page struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks    []*domain.GenerationTask
	Total    int
	Page     int
	PageSize int
}

// TaskStore defines the persistence contract of generation tasks.
// Version: 1.0
type TaskStore interface {
	// Enqueue persists a new task in the queued state.
	Enqueue(ctx context.Context, task *domain.GenerationTask) error

	// Claim atomically moves up to batchSize queued tasks to processing and
	// returns them oldest first. The start time set here is a claim lease;
	// MarkStarted replaces it when the worker begins each task.
	// A task is returned by at most one Claim call.
	Claim(ctx context.Context, batchSize int) ([]*domain.GenerationTask, error)

	// MarkProcessing moves a single queued task to processing.
	// Returns ErrInvalidTransition if the task is not queued.
	MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error

	// MarkStarted records when work on a claimed task begins.
	// Returns ErrInvalidTransition if the task is no longer processing.
	MarkStarted(ctx context.Context, id uuid.UUID, startedAt time.Time) error

	// MarkSucceeded records the result of a processing task.
	// Returns ErrInvalidTransition if the task is not processing.
	MarkSucceeded(ctx context.Context, id uuid.UUID, result domain.TaskResult, finishedAt time.Time) error

	// MarkFailed records the error of a processing task.
	// Returns ErrInvalidTransition if the task is not processing.
	MarkFailed(ctx context.Context, id uuid.UUID, taskErr domain.TaskError, finishedAt time.Time) error

	// Release returns claimed tasks that were never started back to the queue.
	Release(ctx context.Context, ids []uuid.UUID) error

	// RequeueStale moves processing tasks started before now-olderThan back
	// to queued and returns how many were moved. Tasks listed in exclude are
	// left alone.
	RequeueStale(ctx context.Context, olderThan time.Duration, exclude []uuid.UUID) (int64, error)

	// Get returns a task owned by owner. Returns ErrTaskNotFound for
	// missing, deleted or foreign tasks.
	Get(ctx context.Context, id uuid.UUID, owner uuid.UUID) (*domain.GenerationTask, error)

	// GetByID returns a task regardless of owner.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)

	// List returns the owner's non-deleted tasks, newest first.
	List(ctx context.Context, owner uuid.UUID, filter TaskFilter, page Page) (*TaskPage, error)

	// SoftDelete hides a task from listings.
	SoftDelete(ctx context.Context, id uuid.UUID, owner uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
