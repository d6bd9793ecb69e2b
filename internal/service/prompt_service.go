package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/prompt"
	"github.com/phrazzld/atelier-api/internal/store"
)

// GroupWithOptions is an active config group and its active options.
type GroupWithOptions struct {
	domain.PromptConfigGroup
	Options []domain.PromptConfigOption `json:"options"`
}

// PromptService exposes prompt configuration to clients.
type PromptService interface {
	// Groups returns every active group with its active options, in sort order.
	Groups(ctx context.Context) ([]GroupWithOptions, error)

	// Preview assembles a prompt without creating a task.
	Preview(
		ctx context.Context,
		taskType domain.TaskType,
		selections map[string][]string,
		userPrompt string,
	) (prompt.Result, error)
}

type promptServiceImpl struct {
	config    store.PromptConfigStore
	assembler PromptAssembler
	logger    *slog.Logger
}

var _ PromptService = (*promptServiceImpl)(nil)

// NewPromptService creates a new PromptService.
func NewPromptService(
	config store.PromptConfigStore,
	assembler PromptAssembler,
	logger *slog.Logger,
) (PromptService, error) {
	if config == nil {
		return nil, missing("config")
	}
	if assembler == nil {
		return nil, missing("assembler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &promptServiceImpl{
		config:    config,
		assembler: assembler,
		logger:    logger.With("component", "prompt_service"),
	}, nil
}

func (s *promptServiceImpl) Groups(ctx context.Context) ([]GroupWithOptions, error) {
	groups, err := s.config.ActiveGroups(ctx, nil)
	if err != nil {
		return nil, wrapError("prompt", "list_groups", "failed to load groups", err)
	}

	result := make([]GroupWithOptions, 0, len(groups))
	for _, g := range groups {
		options, err := s.config.ActiveOptions(ctx, g.ID, nil)
		if err != nil {
			return nil, wrapError("prompt", "list_groups", "failed to load options for "+g.GroupKey, err)
		}
		result = append(result, GroupWithOptions{PromptConfigGroup: g, Options: options})
	}
	return result, nil
}

func (s *promptServiceImpl) Preview(
	ctx context.Context,
	taskType domain.TaskType,
	selections map[string][]string,
	userPrompt string,
) (prompt.Result, error) {
	if !taskType.Valid() {
		return prompt.Result{}, domain.NewValidationError("task_type", "is not supported", domain.ErrInvalidTaskType)
	}
	result, err := s.assembler.Assemble(ctx, taskType, selections, userPrompt)
	if err != nil {
		return prompt.Result{}, wrapError("prompt", "preview", "failed to assemble prompt", err)
	}
	return result, nil
}
