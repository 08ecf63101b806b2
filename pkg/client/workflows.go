package client

import "context"

// WorkflowService handles a tenant's workflows
type WorkflowService struct {
	client *Client
}

// List retrieves the tenant's workflows
func (s *WorkflowService) List(ctx context.Context, tenantID string) ([]Workflow, error) {
	var workflows []Workflow
	if err := s.client.doRequest(ctx, "GET", tenantPath(tenantID, "workflows"), nil, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

// ProvisionDefaults creates or repairs the tenant's default workflows
func (s *WorkflowService) ProvisionDefaults(ctx context.Context, tenantID string) (*ProvisionResult, error) {
	var result ProvisionResult
	if err := s.client.doRequest(ctx, "POST", tenantPath(tenantID, "workflows/defaults"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
