package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/atelier-api/internal/api"
	apiMiddleware "github.com/phrazzld/atelier-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	templateHandler := api.NewTemplateHandler(app.templateService, app.logger)
	promptHandler := api.NewPromptHandler(app.promptService, app.logger)
	promptAdminHandler := api.NewPromptAdminHandler(app.promptAdminService, app.logger)
	uploadHandler := api.NewUploadHandler(app.blobs, app.config.Storage.SignTTL, app.logger)
	socketHandler := api.NewTaskSocketHandler(app.hub, app.jwtService, app.config.Hub.WriteTimeout, app.logger)

	r.Route("/api", func(r chi.Router) {
		// The socket authenticates with its token query parameter.
		r.Get("/ws/tasks", socketHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks", taskHandler.ListTasks)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Delete("/tasks/{id}", taskHandler.DeleteTask)

			r.Get("/templates", templateHandler.ListTemplates)
			r.Post("/templates", templateHandler.CreateTemplate)
			r.Get("/templates/{id}", templateHandler.GetTemplate)
			r.Put("/templates/{id}", templateHandler.UpdateTemplate)
			r.Delete("/templates/{id}", templateHandler.DeleteTemplate)

			r.Get("/prompts/groups", promptHandler.ListGroups)
			r.Post("/prompts/groups", promptAdminHandler.CreateGroup)
			r.Put("/prompts/groups/{id}", promptAdminHandler.UpdateGroup)
			r.Get("/prompts/groups/{id}/options", promptAdminHandler.ListOptions)
			r.Post("/prompts/options", promptAdminHandler.CreateOption)
			r.Put("/prompts/options/{id}", promptAdminHandler.UpdateOption)
			r.Post("/prompts/assemble", promptHandler.Assemble)

			r.Post("/uploads", uploadHandler.Upload)
			r.Post("/uploads/multiple", uploadHandler.UploadMultiple)
			r.Post("/uploads/base64", uploadHandler.UploadBase64)
			r.Delete("/uploads", uploadHandler.Delete)
			r.Post("/uploads/sign", uploadHandler.Sign)
		})
	})

	r.Get("/health", api.HealthHandler(app.db))

	return r
}
