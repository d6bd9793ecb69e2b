package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/atelier-api/internal/api"
	"github.com/phrazzld/atelier-api/internal/blob"
	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/events"
	"github.com/phrazzld/atelier-api/internal/generation"
	"github.com/phrazzld/atelier-api/internal/hub"
	"github.com/phrazzld/atelier-api/internal/platform/gemini"
	"github.com/phrazzld/atelier-api/internal/platform/minio"
	"github.com/phrazzld/atelier-api/internal/platform/postgres"
	"github.com/phrazzld/atelier-api/internal/prompt"
	"github.com/phrazzld/atelier-api/internal/service"
	"github.com/phrazzld/atelier-api/internal/service/auth"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/phrazzld/atelier-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	taskStore         store.TaskStore
	templateStore     store.TemplateStore
	promptConfigStore store.PromptConfigStore
	promptAdminStore  store.PromptConfigAdminStore

	// External adapters
	provider generation.Provider
	blobs    blob.Store

	// Services
	jwtService      auth.JWTService
	assembler       *prompt.Assembler
	taskService     service.TaskService
	templateService service.TemplateService
	promptService   service.PromptService

	promptAdminService service.PromptAdminService

	// Background processing and push
	eventEmitter *events.InMemoryEventEmitter
	hub          *hub.Hub
	worker       *task.Worker
}

// newApplication creates a new application instance with all dependencies initialized.
// The database connection must already be established.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.templateStore = postgres.NewPostgresTemplateStore(db, logger)
	promptConfig := postgres.NewPostgresPromptConfigStore(db, logger)
	app.promptConfigStore = promptConfig
	app.promptAdminStore = promptConfig

	app.provider, err = gemini.NewProvider(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image provider: %w", err)
	}
	logger.Info("Image provider initialized", "model", cfg.LLM.ModelName)

	app.blobs, err = minio.NewStore(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	if err := app.wire(); err != nil {
		return nil, err
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// wire builds the services, hub and worker on top of the stores and adapters.
func (app *application) wire() error {
	var err error
	logger := app.logger

	app.assembler, err = prompt.NewAssembler(app.promptConfigStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create prompt assembler: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.hub = hub.New(logger, hub.WithAuthorizer(api.OwnerAuthorizer(app.taskStore)))

	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.templateStore,
		app.promptConfigStore,
		app.assembler,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}

	app.templateService, err = service.NewTemplateService(app.db, app.templateStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create template service: %w", err)
	}

	app.promptService, err = service.NewPromptService(app.promptConfigStore, app.assembler, logger)
	if err != nil {
		return fmt.Errorf("failed to create prompt service: %w", err)
	}

	app.promptAdminService, err = service.NewPromptAdminService(app.db, app.promptAdminStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create prompt admin service: %w", err)
	}

	app.worker, err = task.NewWorker(task.Dependencies{
		Tasks:     app.taskStore,
		Assembler: app.assembler,
		Templates: app.templateStore,
		Provider:  app.provider,
		Blobs:     app.blobs,
		Notifier:  app.hub,
	}, task.WorkerConfigFrom(app.config.Worker), logger)
	if err != nil {
		return fmt.Errorf("failed to create generation worker: %w", err)
	}

	// Newly enqueued tasks wake the worker instead of waiting for its poll.
	app.eventEmitter.RegisterHandler(events.TaskEnqueued, app.worker)
	return nil
}

// Run starts the worker and the HTTP server and blocks until ctx is
// canceled or the server fails.
func (app *application) Run(ctx context.Context) error {
	if err := app.worker.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start generation worker: %w", err)
	}

	go app.hub.RunHeartbeat(ctx, app.config.Hub.HeartbeatInterval)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.worker != nil {
		app.worker.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
