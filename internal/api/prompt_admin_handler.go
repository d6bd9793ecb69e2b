package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/service"
)

// PromptAdminHandler manages prompt config groups and options.
type PromptAdminHandler struct {
	adminService service.PromptAdminService
	logger       *slog.Logger
}

// NewPromptAdminHandler creates a new PromptAdminHandler
func NewPromptAdminHandler(adminService service.PromptAdminService, logger *slog.Logger) *PromptAdminHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PromptAdminHandler")
	}

	return &PromptAdminHandler{
		adminService: adminService,
		logger:       logger.With(slog.String("component", "prompt_admin_handler")),
	}
}

// CreateGroup handles POST /prompts/groups requests
func (h *PromptAdminHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreatePromptGroupRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	group, err := h.adminService.CreateGroup(r.Context(), req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to create prompt group"))
		return
	}

	log.Info("prompt group created", slog.Int64("group_id", group.ID), slog.String("group_key", group.GroupKey))
	shared.RespondWithJSON(w, r, http.StatusCreated, group)
}

// UpdateGroup handles PUT /prompts/groups/{id} requests.
// Only the fields present in the body change.
func (h *PromptAdminHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdatePromptGroupRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	group, err := h.adminService.UpdateGroup(r.Context(), id, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to update prompt group"))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, group)
}

// ListOptions handles GET /prompts/groups/{id}/options requests.
// Only active options are returned unless ?all=true is given.
func (h *PromptAdminHandler) ListOptions(w http.ResponseWriter, r *http.Request) {
	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	activeOnly, ok := activeOnlyFilter(w, r)
	if !ok {
		return
	}

	options, err := h.adminService.ListGroupOptions(r.Context(), id, activeOnly)
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to list prompt options"))
		return
	}
	if options == nil {
		options = []domain.PromptConfigOption{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, options)
}

// CreateOption handles POST /prompts/options requests
func (h *PromptAdminHandler) CreateOption(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreatePromptOptionRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	option, err := h.adminService.CreateOption(r.Context(), req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to create prompt option"))
		return
	}

	log.Info("prompt option created",
		slog.Int64("option_id", option.ID),
		slog.Int64("group_id", option.GroupID),
		slog.String("option_key", option.OptionKey))
	shared.RespondWithJSON(w, r, http.StatusCreated, option)
}

// UpdateOption handles PUT /prompts/options/{id} requests.
// Only the fields present in the body change.
func (h *PromptAdminHandler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdatePromptOptionRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	option, err := h.adminService.UpdateOption(r.Context(), id, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to update prompt option"))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, option)
}
