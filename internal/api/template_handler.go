package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/service"
)

// TemplateHandler handles detail template HTTP requests
type TemplateHandler struct {
	templateService service.TemplateService
	logger          *slog.Logger
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(templateService service.TemplateService, logger *slog.Logger) *TemplateHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TemplateHandler")
	}

	return &TemplateHandler{
		templateService: templateService,
		logger:          logger.With(slog.String("component", "template_handler")),
	}
}

// ListTemplates handles GET /templates requests.
// Only active templates are returned unless ?all=true is given.
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	activeOnly, ok := activeOnlyFilter(w, r)
	if !ok {
		return
	}

	templates, err := h.templateService.ListTemplates(r.Context(), activeOnly)
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to list templates"))
		return
	}

	response := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		response = append(response, templateToResponse(t))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// GetTemplate handles GET /templates/{id} requests
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tmpl, err := h.templateService.GetTemplate(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to retrieve template"))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, templateToResponse(tmpl))
}

// CreateTemplate handles POST /templates requests
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req TemplateRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	tmpl, err := h.templateService.CreateTemplate(r.Context(), req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to create template"))
		return
	}

	log.Info("template created", slog.Int64("template_id", tmpl.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, templateToResponse(tmpl))
}

// UpdateTemplate handles PUT /templates/{id} requests
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req TemplateRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	tmpl, err := h.templateService.UpdateTemplate(r.Context(), id, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to update template"))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, templateToResponse(tmpl))
}

// DeleteTemplate handles DELETE /templates/{id} requests.
// Tasks that referenced the template keep their resolved prompt.
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.templateService.DeleteTemplate(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to delete template"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
