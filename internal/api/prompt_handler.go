package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/service"
)

// PromptHandler serves prompt configuration and assembly previews.
type PromptHandler struct {
	promptService service.PromptService
	logger        *slog.Logger
}

// NewPromptHandler creates a new PromptHandler
func NewPromptHandler(promptService service.PromptService, logger *slog.Logger) *PromptHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PromptHandler")
	}

	return &PromptHandler{
		promptService: promptService,
		logger:        logger.With(slog.String("component", "prompt_handler")),
	}
}

// ListGroups handles GET /prompts/groups requests
func (h *PromptHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.promptService.Groups(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to load prompt configuration"))
		return
	}
	if groups == nil {
		groups = []service.GroupWithOptions{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, groups)
}

// Assemble handles POST /prompts/assemble requests.
// It returns the prompt a task with the same inputs would be generated with.
func (h *PromptHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req AssemblePromptRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	result, err := h.promptService.Preview(r.Context(), domain.TaskType(req.TaskType), req.Selections, req.Prompt)
	if err != nil {
		HandleAPIError(w, r, err, failureMessage(err, "Failed to assemble prompt"))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
