package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/events"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/prompt"
	"github.com/phrazzld/atelier-api/internal/store"
)

// PromptAssembler builds prompts eagerly when a task is created with selections.
// Version: 1.0
type PromptAssembler interface {
	Assemble(
		ctx context.Context,
		taskType domain.TaskType,
		selections map[string][]string,
		userPrompt string,
	) (prompt.Result, error)
}

// SettingsSource provides the prompt settings that hold creation defaults.
// Version: 1.0
type SettingsSource interface {
	ActiveSettings(ctx context.Context) (map[string]string, error)
}

// TemplateReader looks up detail templates.
// Version: 1.0
type TemplateReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Template, error)
}

// CreateTaskInput is a validated request to generate images.
// Empty AspectRatio and Quality fall back to the configured defaults.
type CreateTaskInput struct {
	UserID      uuid.UUID
	Payload     domain.TaskPayload
	UserPrompt  string
	Selections  map[string][]string
	AspectRatio domain.AspectRatio
	Quality     domain.Quality
	Platform    string
}

// TaskService provides generation task operations
type TaskService interface {
	// CreateTask persists a queued task and wakes the worker.
	// Invalid input is rejected with a domain.ErrValidation error before
	// anything is stored.
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.GenerationTask, error)

	// GetTask returns one of the user's tasks.
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.GenerationTask, error)

	// ListTasks returns a page of the user's tasks, newest first.
	ListTasks(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, page store.Page) (*store.TaskPage, error)

	// DeleteTask soft-deletes one of the user's tasks.
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks     store.TaskStore
	templates TemplateReader
	settings  SettingsSource
	assembler PromptAssembler
	emitter   events.EventEmitter
	logger    *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	templates TemplateReader,
	settings SettingsSource,
	assembler PromptAssembler,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	switch {
	case tasks == nil:
		return nil, missing("tasks")
	case templates == nil:
		return nil, missing("templates")
	case settings == nil:
		return nil, missing("settings")
	case assembler == nil:
		return nil, missing("assembler")
	case emitter == nil:
		return nil, missing("emitter")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:     tasks,
		templates: templates,
		settings:  settings,
		assembler: assembler,
		emitter:   emitter,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// CreateTask validates input, applies defaults, resolves the prompt when it
// can, persists the task as queued and emits a TaskEnqueued event.
// Selections are assembled eagerly; a prompt without selections is stored
// verbatim. A task with neither and no reference images is rejected.
func (s *taskServiceImpl) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.GenerationTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if input.AspectRatio == "" || input.Quality == "" {
		input.AspectRatio, input.Quality = s.defaults(ctx, input.AspectRatio, input.Quality)
	}

	task, err := domain.NewGenerationTask(domain.NewTaskParams{
		UserID:      input.UserID,
		Payload:     input.Payload,
		UserPrompt:  input.UserPrompt,
		Selections:  input.Selections,
		AspectRatio: input.AspectRatio,
		Quality:     input.Quality,
		Platform:    input.Platform,
	})
	if err != nil {
		log.Debug("rejected task input", "error", err, "user_id", input.UserID)
		return nil, err
	}

	rawPrompt := strings.TrimSpace(task.UserPrompt)
	if len(task.Selections) == 0 && rawPrompt == "" && len(task.ReferenceImages()) == 0 {
		err := domain.NewValidationError("prompt", "is required when no selections are given", domain.ErrValidation)
		log.Debug("rejected task input", "error", err, "user_id", input.UserID)
		return nil, err
	}

	if detail, ok := task.Payload.(domain.DetailPayload); ok && detail.TemplateID != nil {
		if _, err := s.templates.GetByID(ctx, *detail.TemplateID); err != nil {
			return nil, wrapError("task", "create_task", "failed to look up template", err)
		}
	}

	switch {
	case len(task.Selections) > 0:
		result, err := s.assembler.Assemble(ctx, task.Type, task.Selections, task.UserPrompt)
		if err != nil {
			log.Warn("eager prompt assembly failed, worker will assemble",
				"error", err,
				"task_id", task.ID)
		} else {
			task.SetPrompt(result.Positive, result.Negative)
		}
	case rawPrompt != "":
		// A prompt sent without selections is final as given.
		task.SetPrompt(rawPrompt, "")
	}

	if err := s.tasks.Enqueue(ctx, task); err != nil {
		log.Error("failed to enqueue task",
			"error", err,
			"task_id", task.ID,
			"user_id", task.UserID)
		return nil, wrapError("task", "create_task", "failed to save task", err)
	}

	log.Info("task enqueued",
		"task_id", task.ID,
		"user_id", task.UserID,
		"task_type", task.Type,
		"prompt_assembled", task.PromptAssembled)

	s.emit(ctx, events.TaskEnqueued, task.ID)
	return task, nil
}

// defaults fills an empty aspect ratio or quality from the prompt settings,
// falling back to 1:1 and the domain default quality.
func (s *taskServiceImpl) defaults(
	ctx context.Context,
	ratio domain.AspectRatio,
	quality domain.Quality,
) (domain.AspectRatio, domain.Quality) {
	settings, err := s.settings.ActiveSettings(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to load creation defaults",
			"error", err)
		settings = nil
	}

	if ratio == "" {
		ratio = domain.AspectRatio(settings[domain.SettingDefaultAspectRatio])
		if !ratio.Valid() {
			ratio = domain.AspectRatio1x1
		}
	}
	if quality == "" {
		quality = domain.Quality(settings[domain.SettingDefaultResolution])
		if !quality.Valid() {
			quality = domain.DefaultQuality
		}
	}
	return ratio, quality
}

// emit publishes a task event. Failures are logged only: the task is already
// stored and the worker's poll picks it up regardless.
func (s *taskServiceImpl) emit(ctx context.Context, eventType string, taskID uuid.UUID) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskEvent(eventType, taskID, nil)
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Warn("failed to emit task event",
			"error", err,
			"event_type", eventType,
			"task_id", taskID)
	}
}

// GetTask retrieves a task owned by userID.
func (s *taskServiceImpl) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.GenerationTask, error) {
	task, err := s.tasks.Get(ctx, taskID, userID)
	if err != nil {
		return nil, wrapError("task", "get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// ListTasks returns a page of tasks owned by userID.
func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	userID uuid.UUID,
	filter store.TaskFilter,
	page store.Page,
) (*store.TaskPage, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.NewValidationError("task_type", "is not supported", domain.ErrInvalidTaskType)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "is not valid", domain.ErrInvalidTaskStatus)
	}

	result, err := s.tasks.List(ctx, userID, filter, page.Normalize())
	if err != nil {
		return nil, wrapError("task", "list_tasks", "failed to list tasks", err)
	}
	return result, nil
}

// DeleteTask soft-deletes a task owned by userID and emits TaskDeleted.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.tasks.SoftDelete(ctx, taskID, userID); err != nil {
		return wrapError("task", "delete_task", "failed to delete task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted",
		"task_id", taskID,
		"user_id", userID)
	s.emit(ctx, events.TaskDeleted, taskID)
	return nil
}
