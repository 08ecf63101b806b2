package workflow

import "context"

// Repository defines data access for workflows
type Repository interface {
	Create(ctx context.Context, w *Workflow) (string, error)

	// Update rewrites actions, trigger tag and system key of an existing workflow
	Update(ctx context.Context, w *Workflow) error

	// GetBySystemKey returns a NOT_FOUND AppError when no workflow has the key
	GetBySystemKey(ctx context.Context, tenantID, systemKey string) (*Workflow, error)

	// GetByName returns a NOT_FOUND AppError when no workflow has the name
	GetByName(ctx context.Context, tenantID, name string) (*Workflow, error)

	ListByTenant(ctx context.Context, tenantID string) ([]*Workflow, error)
}

// TemplateRepository lists a tenant's email templates
type TemplateRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*EmailTemplate, error)
}

// TagRepository lists a tenant's tags
type TagRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*Tag, error)
}
