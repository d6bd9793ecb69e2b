package task

import (
	"context"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/hub"
	"github.com/phrazzld/atelier-api/internal/prompt"
)

// PromptAssembler derives a prompt pair for tasks that were queued without one.
// Version: 1.0
type PromptAssembler interface {
	Assemble(
		ctx context.Context,
		taskType domain.TaskType,
		selections map[string][]string,
		userPrompt string,
	) (prompt.Result, error)
}

// TemplateLookup resolves detail templates referenced by tasks.
// store.TemplateStore satisfies it.
// Version: 1.0
type TemplateLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Template, error)
}

// Notifier pushes task status changes to subscribed clients.
// *hub.Hub satisfies it.
// Version: 1.0
type Notifier interface {
	Push(ctx context.Context, update hub.TaskUpdate) bool
}
