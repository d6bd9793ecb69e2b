package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/store"
)

// taskColumns lists generation_tasks columns in scanTask order.
const taskColumns = `id, user_id, task_type, payload, template_id, user_prompt, selections,
	prompt, negative_prompt, prompt_assembled, aspect_ratio, quality, platform,
	status, result, error, created_at, started_at, finished_at, is_deleted`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Enqueue implements store.TaskStore.Enqueue.
// The task must validate and be queued. A detail task's template reference is
// also stored in template_id so deleting the template clears it.
func (s *PostgresTaskStore) Enqueue(ctx context.Context, task *domain.GenerationTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during enqueue",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if task.Status != domain.TaskStatusQueued {
		return fmt.Errorf("%w: new tasks must be queued, got %s", store.ErrInvalidEntity, task.Status)
	}

	payload, err := domain.MarshalPayload(task.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	selections, err := marshalSelections(task.Selections)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO generation_tasks (
			id, user_id, task_type, payload, template_id, user_prompt, selections,
			prompt, negative_prompt, prompt_assembled, aspect_ratio, quality, platform,
			status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		string(task.Type),
		string(payload),
		templateIDOf(task.Payload),
		task.UserPrompt,
		selections,
		task.Prompt,
		task.NegativePrompt,
		task.PromptAssembled,
		string(task.AspectRatio),
		string(task.Quality),
		task.Platform,
		string(task.Status),
		task.CreatedAt,
	)
	if err != nil {
		log.Error("failed to enqueue task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("task_type", string(task.Type)))
		return MapError(err)
	}

	log.Info("task enqueued",
		slog.String("task_id", task.ID.String()),
		slog.String("task_type", string(task.Type)),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// Claim implements store.TaskStore.Claim.
// Rows are locked with SKIP LOCKED, so concurrent claimers never receive the
// same task.
func (s *PostgresTaskStore) Claim(ctx context.Context, batchSize int) ([]*domain.GenerationTask, error) {
	if batchSize <= 0 {
		return nil, nil
	}

	query := `
		WITH next AS (
			SELECT id
			FROM generation_tasks
			WHERE status = 'queued' AND NOT is_deleted
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE generation_tasks t
		SET status = 'processing', started_at = $2
		FROM next
		WHERE t.id = next.id
		RETURNING ` + qualified("t", taskColumns)

	rows, err := s.db.QueryContext(ctx, query, batchSize, time.Now().UTC())
	if err != nil {
		return nil, store.NewStoreError("task", "claim", "failed to claim tasks", MapError(err))
	}
	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to claim tasks: %w", err)
	}

	// RETURNING does not preserve the subquery order.
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// MarkProcessing implements store.TaskStore.MarkProcessing.
func (s *PostgresTaskStore) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET status = 'processing', started_at = $2
		WHERE id = $1 AND status = 'queued'
	`, id, startedAt)
	if err != nil {
		return store.NewStoreError("task", "mark_processing", "failed to mark task processing", MapError(err))
	}
	return s.checkTransition(ctx, result, id)
}

// MarkStarted implements store.TaskStore.MarkStarted.
func (s *PostgresTaskStore) MarkStarted(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET started_at = $2
		WHERE id = $1 AND status = 'processing'
	`, id, startedAt)
	if err != nil {
		return store.NewStoreError("task", "mark_started", "failed to record task start", MapError(err))
	}
	return s.checkTransition(ctx, result, id)
}

// MarkSucceeded implements store.TaskStore.MarkSucceeded.
func (s *PostgresTaskStore) MarkSucceeded(
	ctx context.Context,
	id uuid.UUID,
	taskResult domain.TaskResult,
	finishedAt time.Time,
) error {
	if taskResult.Images == nil {
		taskResult.Images = []string{}
	}
	encoded, err := json.Marshal(taskResult)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET status = 'succeeded', result = $2, finished_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, string(encoded), finishedAt)
	if err != nil {
		return store.NewStoreError("task", "mark_succeeded", "failed to mark task succeeded", MapError(err))
	}
	return s.checkTransition(ctx, result, id)
}

// MarkFailed implements store.TaskStore.MarkFailed.
func (s *PostgresTaskStore) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	taskErr domain.TaskError,
	finishedAt time.Time,
) error {
	encoded, err := json.Marshal(taskErr)
	if err != nil {
		return fmt.Errorf("failed to encode task error: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET status = 'failed', error = $2, finished_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, string(encoded), finishedAt)
	if err != nil {
		return store.NewStoreError("task", "mark_failed", "failed to mark task failed", MapError(err))
	}
	return s.checkTransition(ctx, result, id)
}

// checkTransition turns a conditional update that matched nothing into
// ErrTaskNotFound or ErrInvalidTransition.
func (s *PostgresTaskStore) checkTransition(ctx context.Context, result sql.Result, id uuid.UUID) error {
	err := CheckRowsAffected(result, store.ErrInvalidTransition)
	if !errors.Is(err, store.ErrInvalidTransition) {
		return err
	}

	var exists bool
	if qErr := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM generation_tasks WHERE id = $1)`, id,
	).Scan(&exists); qErr != nil {
		return fmt.Errorf("failed to check task existence: %w", MapError(qErr))
	}
	if !exists {
		return store.ErrTaskNotFound
	}

	logger.FromContextOrDefault(ctx, s.logger).Warn("task not in expected state for transition",
		slog.String("task_id", id.String()))
	return store.ErrInvalidTransition
}

// Release implements store.TaskStore.Release.
func (s *PostgresTaskStore) Release(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `
		UPDATE generation_tasks
		SET status = 'queued', started_at = NULL
		WHERE status = 'processing' AND id IN (` + placeholders(1, len(ids)) + `)`

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.NewStoreError("task", "release", "failed to release tasks", MapError(err))
	}
	return nil
}

// RequeueStale implements store.TaskStore.RequeueStale.
func (s *PostgresTaskStore) RequeueStale(
	ctx context.Context,
	olderThan time.Duration,
	exclude []uuid.UUID,
) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	args := make([]any, 0, len(exclude)+1)
	args = append(args, cutoff)
	query := `
		UPDATE generation_tasks
		SET status = 'queued', started_at = NULL
		WHERE status = 'processing' AND started_at <= $1`
	if len(exclude) > 0 {
		query += ` AND id NOT IN (` + placeholders(2, len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, store.NewStoreError("task", "requeue_stale", "failed to requeue stale tasks", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Get implements store.TaskStore.Get.
func (s *PostgresTaskStore) Get(ctx context.Context, id, owner uuid.UUID) (*domain.GenerationTask, error) {
	query := `SELECT ` + taskColumns + `
		FROM generation_tasks
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted`

	return s.getOne(ctx, query, id, owner)
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	query := `SELECT ` + taskColumns + `
		FROM generation_tasks
		WHERE id = $1`

	return s.getOne(ctx, query, id)
}

func (s *PostgresTaskStore) getOne(ctx context.Context, query string, args ...any) (*domain.GenerationTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if len(tasks) == 0 {
		return nil, store.ErrTaskNotFound
	}
	return tasks[0], nil
}

// List implements store.TaskStore.List.
func (s *PostgresTaskStore) List(
	ctx context.Context,
	owner uuid.UUID,
	filter store.TaskFilter,
	page store.Page,
) (*store.TaskPage, error) {
	page = page.Normalize()

	where := []string{"user_id = $1", "NOT is_deleted"}
	args := []any{owner}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, "task_type = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generation_tasks WHERE `+clause, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}

	limitArg := len(args) + 1
	query := `SELECT ` + taskColumns + `
		FROM generation_tasks
		WHERE ` + clause + `
		ORDER BY created_at DESC, id
		LIMIT $` + strconv.Itoa(limitArg) + ` OFFSET $` + strconv.Itoa(limitArg+1)

	rows, err := s.db.QueryContext(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", MapError(err))
	}
	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &store.TaskPage{
		Tasks:    tasks,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// SoftDelete implements store.TaskStore.SoftDelete.
func (s *PostgresTaskStore) SoftDelete(ctx context.Context, id, owner uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET is_deleted = TRUE
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted
	`, id, owner)
	if err != nil {
		return store.NewStoreError("task", "soft_delete", "failed to delete task", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted",
		slog.String("task_id", id.String()),
		slog.String("user_id", owner.String()))
	return nil
}

// WithTx implements store.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanTasks reads every row and closes rows.
func scanTasks(rows *sql.Rows) ([]*domain.GenerationTask, error) {
	defer func() { _ = rows.Close() }()

	var tasks []*domain.GenerationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tasks, nil
}

func scanTask(rows *sql.Rows) (*domain.GenerationTask, error) {
	var (
		t          domain.GenerationTask
		taskType   string
		payload    []byte
		templateID sql.NullInt64
		selections []byte
		aspect     string
		quality    string
		status     string
		result     []byte
		taskErr    []byte
		startedAt  sql.NullTime
		finishedAt sql.NullTime
	)

	if err := rows.Scan(
		&t.ID,
		&t.UserID,
		&taskType,
		&payload,
		&templateID,
		&t.UserPrompt,
		&selections,
		&t.Prompt,
		&t.NegativePrompt,
		&t.PromptAssembled,
		&aspect,
		&quality,
		&t.Platform,
		&status,
		&result,
		&taskErr,
		&t.CreatedAt,
		&startedAt,
		&finishedAt,
		&t.IsDeleted,
	); err != nil {
		return nil, fmt.Errorf("failed to scan task row: %w", err)
	}

	t.Type = domain.TaskType(taskType)
	t.AspectRatio = domain.AspectRatio(aspect)
	t.Quality = domain.Quality(quality)
	t.Status = domain.TaskStatus(status)

	p, err := domain.UnmarshalPayload(t.Type, payload)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	// The column is authoritative: it is cleared when the template is deleted.
	if detail, ok := p.(domain.DetailPayload); ok {
		detail.TemplateID = nil
		if templateID.Valid {
			id := templateID.Int64
			detail.TemplateID = &id
		}
		p = detail
	}
	t.Payload = p

	if len(selections) > 0 {
		if err := json.Unmarshal(selections, &t.Selections); err != nil {
			return nil, fmt.Errorf("task %s: invalid selections: %w", t.ID, err)
		}
	}
	if len(result) > 0 {
		t.Result = &domain.TaskResult{}
		if err := json.Unmarshal(result, t.Result); err != nil {
			return nil, fmt.Errorf("task %s: invalid result: %w", t.ID, err)
		}
	}
	if len(taskErr) > 0 {
		t.Error = &domain.TaskError{}
		if err := json.Unmarshal(taskErr, t.Error); err != nil {
			return nil, fmt.Errorf("task %s: invalid error: %w", t.ID, err)
		}
	}
	if startedAt.Valid {
		v := startedAt.Time
		t.StartedAt = &v
	}
	if finishedAt.Valid {
		v := finishedAt.Time
		t.FinishedAt = &v
	}

	return &t, nil
}

func marshalSelections(selections map[string][]string) (string, error) {
	if selections == nil {
		return "{}", nil
	}
	b, err := json.Marshal(selections)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func templateIDOf(p domain.TaskPayload) any {
	if detail, ok := p.(domain.DetailPayload); ok && detail.TemplateID != nil {
		return *detail.TemplateID
	}
	return nil
}

// placeholders renders "$start, $start+1, ..." for n arguments.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(start+i)
	}
	return strings.Join(parts, ", ")
}

// qualified prefixes each column in a comma-separated list with alias.
func qualified(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}
