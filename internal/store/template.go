package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/atelier-api/internal/domain"
)

// TemplateStore defines the interface for detail template persistence.
// Version: 1.0
type TemplateStore interface {
	// Create saves a new template and sets its ID.
	Create(ctx context.Context, template *domain.Template) error

	// GetByID retrieves a template by ID.
	// Returns ErrTemplateNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Template, error)

	// List returns templates ordered by ID; activeOnly hides inactive ones.
	List(ctx context.Context, activeOnly bool) ([]*domain.Template, error)

	// Update saves changes to an existing template.
	// Returns ErrTemplateNotFound if it does not exist.
	Update(ctx context.Context, template *domain.Template) error

	// Delete removes a template. Tasks that referenced it keep their stored prompts.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new TemplateStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TemplateStore
}
