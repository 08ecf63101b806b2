package workflow

import "context"

// Service provisions and lists tenant workflows
type Service interface {
	// CreateDefaultWorkflowsForTenant materializes the default definitions for
	// a tenant. Repeated calls do not duplicate workflows.
	CreateDefaultWorkflowsForTenant(ctx context.Context, tenantID string) (*ProvisionResult, error)

	List(ctx context.Context, tenantID string) ([]*Workflow, error)
}
