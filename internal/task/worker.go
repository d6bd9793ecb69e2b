package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/blob"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/events"
	"github.com/phrazzld/atelier-api/internal/generation"
	"github.com/phrazzld/atelier-api/internal/hub"
	"github.com/phrazzld/atelier-api/internal/redact"
	"github.com/phrazzld/atelier-api/internal/store"
)

// maxRetriesMessage is recorded when the provider failed without a usable error.
const maxRetriesMessage = "Max retries exceeded"

// Dependencies groups the collaborators a Worker drives.
type Dependencies struct {
	Tasks     store.TaskStore
	Assembler PromptAssembler
	Templates TemplateLookup
	Provider  generation.Provider
	Blobs     blob.Store
	Notifier  Notifier
}

func (d Dependencies) validate() error {
	switch {
	case d.Tasks == nil:
		return errors.New("task store cannot be nil")
	case d.Assembler == nil:
		return errors.New("prompt assembler cannot be nil")
	case d.Templates == nil:
		return errors.New("template lookup cannot be nil")
	case d.Provider == nil:
		return errors.New("generation provider cannot be nil")
	case d.Blobs == nil:
		return errors.New("blob store cannot be nil")
	case d.Notifier == nil:
		return errors.New("notifier cannot be nil")
	}
	return nil
}

// Worker claims queued generation tasks and runs them to a terminal state.
type Worker struct {
	deps       Dependencies
	config     WorkerConfig
	logger     *slog.Logger
	wake       chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
	now        func() time.Time

	// held tracks claimed tasks this worker has not finished yet.
	heldMu sync.Mutex
	held   map[uuid.UUID]struct{}
}

var _ events.EventHandler = (*Worker)(nil)

// NewWorker creates a Worker. Call Start to begin processing.
//
// Parameters:
//   - deps: The stores and services the worker uses; all are required
//   - config: Worker settings; invalid values fall back to defaults
//   - logger: Logger for worker events
//
// Returns:
//   - A new Worker, or an error if a dependency is missing
func NewWorker(deps Dependencies, config WorkerConfig, logger *slog.Logger) (*Worker, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		deps:       deps,
		config:     config.withDefaults(),
		logger:     logger.With("component", "generation_worker"),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancelFunc: cancel,
		now:        func() time.Time { return time.Now().UTC() },
		held:       make(map[uuid.UUID]struct{}),
	}, nil
}

// Start recovers interrupted tasks and launches the processing loop and the
// staleness sweep. Calling Start more than once has no further effect.
func (w *Worker) Start() error {
	var err error
	w.startOnce.Do(func() {
		if err = w.Recover(); err != nil {
			err = fmt.Errorf("failed to recover tasks: %w", err)
			return
		}

		w.wg.Add(2)
		go w.loop()
		go w.staleTaskSweeper()

		w.logger.Info("generation worker started",
			"poll_interval", w.config.PollInterval,
			"batch_size", w.config.BatchSize,
			"retry_attempts", w.config.RetryAttempts)
	})
	return err
}

// Stop cancels the worker and waits for its goroutines to exit.
// A task in the middle of a provider call stays processing and is picked up
// by the sweep after restart.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.cancelFunc()
		w.wg.Wait()
		w.logger.Info("generation worker stopped")
	})
}

// Wake asks the worker to claim immediately instead of waiting for the next poll.
// It never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// HandleEvent implements events.EventHandler. Enqueued tasks wake the worker.
func (w *Worker) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	if event == nil {
		return events.ErrNilEvent
	}
	if event.Type == events.TaskEnqueued {
		w.Wake()
	}
	return nil
}

// Recover returns every processing task to the queue.
// Only one worker runs per deployment, so anything still processing at
// startup was abandoned by a previous process.
func (w *Worker) Recover() error {
	n, err := w.deps.Tasks.RequeueStale(w.ctx, 0, nil)
	if err != nil {
		return err
	}
	if n > 0 {
		w.logger.Info("requeued interrupted tasks", "count", n)
	}
	return nil
}

func (w *Worker) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-timer.C:
		case <-w.wake:
		}

		// Keep draining while claims come back non-empty.
		for w.ctx.Err() == nil && w.runOnce(w.ctx) > 0 {
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.config.PollInterval)
	}
}

// runOnce claims one batch and processes it. It returns the number of
// tasks claimed.
func (w *Worker) runOnce(ctx context.Context) int {
	tasks, err := w.deps.Tasks.Claim(ctx, w.config.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to claim tasks", "error", redact.Error(err))
		}
		return 0
	}
	if len(tasks) == 0 {
		return 0
	}

	w.logger.Debug("claimed tasks", "count", len(tasks))
	w.hold(tasks)

	for i, t := range tasks {
		if ctx.Err() != nil {
			w.release(tasks[i:])
			break
		}
		w.processTask(ctx, t)
		w.unhold(t.ID)
	}
	return len(tasks)
}

func (w *Worker) hold(tasks []*domain.GenerationTask) {
	w.heldMu.Lock()
	defer w.heldMu.Unlock()
	for _, t := range tasks {
		w.held[t.ID] = struct{}{}
	}
}

func (w *Worker) unhold(ids ...uuid.UUID) {
	w.heldMu.Lock()
	defer w.heldMu.Unlock()
	for _, id := range ids {
		delete(w.held, id)
	}
}

// heldIDs returns the tasks the sweep must not requeue.
func (w *Worker) heldIDs() []uuid.UUID {
	w.heldMu.Lock()
	defer w.heldMu.Unlock()
	ids := make([]uuid.UUID, 0, len(w.held))
	for id := range w.held {
		ids = append(ids, id)
	}
	return ids
}

// release hands claimed but unstarted tasks back to the queue.
func (w *Worker) release(tasks []*domain.GenerationTask) {
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	defer w.unhold(ids...)
	if err := w.deps.Tasks.Release(context.Background(), ids); err != nil {
		w.logger.Error("failed to release claimed tasks",
			"count", len(ids),
			"error", redact.Error(err))
		return
	}
	w.logger.Info("released claimed tasks", "count", len(ids))
}

// processTask runs one claimed task. No error escapes it.
func (w *Worker) processTask(ctx context.Context, t *domain.GenerationTask) {
	logger := w.logger.With(
		"task_id", t.ID,
		"task_type", t.Type,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while processing task", "panic", r)
			w.fail(context.WithoutCancel(ctx), logger, t, fmt.Errorf("internal error: %v", r))
		}
	}()

	if !w.start(ctx, logger, t) {
		return
	}

	w.deps.Notifier.Push(ctx, hub.NewTaskUpdate(t))
	logger.Info("processing task")

	positive, negative, err := w.resolvePrompt(ctx, logger, t)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("worker stopped while resolving prompt")
			return
		}
		w.fail(ctx, logger, t, err)
		return
	}

	req := generation.Request{
		Prompt:          positive,
		NegativePrompt:  negative,
		ReferenceImages: t.ReferenceImages(),
		AspectRatio:     string(t.AspectRatio),
		Resolution:      string(t.Quality),
	}

	resp, err := w.generate(ctx, logger, req)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("worker stopped during generation, task left processing")
			return
		}
		w.fail(ctx, logger, t, err)
		return
	}

	// The provider call has been paid for; finish recording it even if the
	// worker is stopping.
	finishCtx := context.WithoutCancel(ctx)
	urls := w.upload(finishCtx, logger, resp.Images)
	w.succeed(finishCtx, logger, t, urls)
}

// start stamps the task's real start time. It reports false when the task
// was taken from this worker since the claim.
func (w *Worker) start(ctx context.Context, logger *slog.Logger, t *domain.GenerationTask) bool {
	now := w.now()
	err := w.deps.Tasks.MarkStarted(ctx, t.ID, now)
	switch {
	case err == nil:
		t.StartedAt = &now
		return true
	case ctx.Err() != nil:
		return false
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrTaskNotFound):
		logger.Warn("claimed task is no longer processing, skipping", "error", redact.Error(err))
		return false
	default:
		// The claim lease still holds; keep going.
		logger.Warn("failed to record task start", "error", redact.Error(err))
		return true
	}
}

// resolvePrompt returns the prompt pair the provider should receive.
func (w *Worker) resolvePrompt(
	ctx context.Context,
	logger *slog.Logger,
	t *domain.GenerationTask,
) (string, string, error) {
	positive, negative := t.Prompt, t.NegativePrompt
	if !t.PromptAssembled {
		result, err := w.deps.Assembler.Assemble(ctx, t.Type, t.Selections, t.UserPrompt)
		if err != nil {
			return "", "", fmt.Errorf("failed to assemble prompt: %w", err)
		}
		positive, negative = result.Positive, result.Negative
	}

	if p, ok := t.Payload.(domain.DetailPayload); ok && p.TemplateID != nil {
		tmpl, err := w.deps.Templates.GetByID(ctx, *p.TemplateID)
		switch {
		case err != nil:
			logger.Warn("failed to load detail template, using resolved prompt",
				"template_id", *p.TemplateID,
				"error", redact.Error(err))
		default:
			if override, ok := tmpl.PromptOverride(); ok {
				logger.Debug("template prompt overrides resolved prompt", "template_id", *p.TemplateID)
				positive = override
			}
		}
	}

	return positive, negative, nil
}

// generate calls the provider up to RetryAttempts times with a fixed delay
// between calls. Every failure is retried.
func (w *Worker) generate(
	ctx context.Context,
	logger *slog.Logger,
	req generation.Request,
) (*generation.Response, error) {
	var resp *generation.Response

	err := retry.Do(
		func() error {
			attemptCtx := ctx
			if w.config.ProviderTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, w.config.ProviderTimeout)
				defer cancel()
			}

			r, err := w.deps.Provider.Generate(attemptCtx, req)
			if err != nil {
				return err
			}
			if err := r.Err(); err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Attempts(uint(w.config.RetryAttempts)),
		retry.Delay(w.config.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			// The last failure is reported by fail.
			if int(n)+1 >= w.config.RetryAttempts {
				return
			}
			logger.Warn("generation attempt failed",
				"attempt", n+1,
				"max_attempts", w.config.RetryAttempts,
				"error", redact.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// upload stores each image and returns the URLs of those that succeeded, in order.
func (w *Worker) upload(ctx context.Context, logger *slog.Logger, images []generation.Image) []string {
	urls := make([]string, 0, len(images))
	for i, img := range images {
		name := blob.ObjectName(w.config.ObjectFolder, w.now(), blob.ExtensionFor(img.MIMEType))
		url, err := w.deps.Blobs.Upload(ctx, img.Data, name, img.MIMEType)
		if err != nil {
			logger.Warn("failed to upload generated image, skipping",
				"index", i,
				"object_name", name,
				"error", redact.Error(err))
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

func (w *Worker) succeed(ctx context.Context, logger *slog.Logger, t *domain.GenerationTask, urls []string) {
	result := domain.TaskResult{Images: urls}
	now := w.now()

	if err := w.deps.Tasks.MarkSucceeded(ctx, t.ID, result, now); err != nil {
		logger.Error("failed to mark task succeeded", "error", redact.Error(err))
		return
	}
	if err := t.MarkSucceeded(result, now); err != nil {
		logger.Error("task state diverged from store", "error", err)
		return
	}

	w.deps.Notifier.Push(ctx, hub.NewTaskUpdate(t))
	logger.Info("task succeeded", "image_count", len(urls))
}

func (w *Worker) fail(ctx context.Context, logger *slog.Logger, t *domain.GenerationTask, cause error) {
	msg := maxRetriesMessage
	if cause != nil {
		if s := redact.Error(cause); s != "" {
			msg = s
		}
	}
	taskErr := domain.TaskError{Code: domain.GenerationFailedCode, Message: msg}
	now := w.now()

	if err := w.deps.Tasks.MarkFailed(ctx, t.ID, taskErr, now); err != nil {
		logger.Error("failed to mark task failed", "error", redact.Error(err))
		return
	}
	if err := t.MarkFailed(taskErr, now); err != nil {
		logger.Error("task state diverged from store", "error", err)
		return
	}

	w.deps.Notifier.Push(ctx, hub.NewTaskUpdate(t))
	logger.Error("task failed", "error", msg)
}

// staleTaskSweeper periodically requeues tasks that have been processing
// for longer than StaleAfter. Tasks this worker still holds are skipped.
func (w *Worker) staleTaskSweeper() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.sweep(w.ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	n, err := w.deps.Tasks.RequeueStale(ctx, w.config.StaleAfter, w.heldIDs())
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to requeue stale tasks", "error", redact.Error(err))
		}
		return
	}
	if n > 0 {
		w.logger.Info("requeued stale tasks", "count", n, "stale_after", w.config.StaleAfter)
		w.Wake()
	}
}
