package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/clientflow/alertrunner/internal/domain/workflow"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/metrics"
)

// WorkflowService implements workflow.Service
type WorkflowService struct {
	workflows   workflow.Repository
	templates   workflow.TemplateRepository
	tags        workflow.TagRepository
	definitions func() ([]workflow.Definition, error)
	logger      *logger.Logger
}

// NewWorkflowService creates a workflow service provisioning the embedded
// default definitions
func NewWorkflowService(
	workflows workflow.Repository,
	templates workflow.TemplateRepository,
	tags workflow.TagRepository,
	log *logger.Logger,
) workflow.Service {
	return &WorkflowService{
		workflows:   workflows,
		templates:   templates,
		tags:        tags,
		definitions: workflow.DefaultDefinitions,
		logger:      log,
	}
}

// inventory indexes a tenant's templates and tags for reference resolution
type inventory struct {
	templateByKey    map[string]string
	tagByName        map[string]string
	tagByNameAndType map[string]string
}

func tagKey(name, tagType string) string {
	return strings.ToLower(name) + ":" + tagType
}

func (s *WorkflowService) loadInventory(ctx context.Context, tenantID string) (*inventory, error) {
	templates, err := s.templates.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list email templates: %w", err)
	}
	tags, err := s.tags.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	inv := &inventory{
		templateByKey:    make(map[string]string, len(templates)),
		tagByName:        make(map[string]string, len(tags)),
		tagByNameAndType: make(map[string]string, len(tags)),
	}
	for _, t := range templates {
		if t.SystemKey != "" {
			inv.templateByKey[t.SystemKey] = t.ID
		}
	}
	for _, t := range tags {
		inv.tagByName[strings.ToLower(t.Name)] = t.ID
		inv.tagByNameAndType[tagKey(t.Name, t.Type)] = t.ID
	}
	return inv, nil
}

func (inv *inventory) tag(name, tagType string) *string {
	var id string
	var ok bool
	if tagType != "" {
		id, ok = inv.tagByNameAndType[tagKey(name, tagType)]
	} else {
		id, ok = inv.tagByName[strings.ToLower(name)]
	}
	if !ok {
		return nil
	}
	return &id
}

func (inv *inventory) template(key string) *string {
	id, ok := inv.templateByKey[key]
	if !ok {
		return nil
	}
	return &id
}

// resolve turns a definition's symbolic references into ids. Missing
// references become nil ids and are reported as warnings.
func (inv *inventory) resolve(def workflow.Definition) (workflow.Actions, *string, []string) {
	var warnings []string

	var triggerTagID *string
	if def.HasTriggerTag() {
		triggerTagID = inv.tag(def.TriggerTagName, def.TriggerTagType)
		if triggerTagID == nil {
			warnings = append(warnings, fmt.Sprintf("%s: trigger tag not found: %s (%s)", def.Name, def.TriggerTagName, def.TriggerTagType))
		}
	}

	actions := make(workflow.Actions, 0, len(def.Actions))
	for _, a := range def.Actions {
		if a.Type == workflow.ActionSendEmail {
			id := inv.template(a.TemplateKey)
			if id == nil {
				warnings = append(warnings, fmt.Sprintf("%s: template not found: %s", def.Name, a.TemplateKey))
			}
			actions = append(actions, workflow.NewEmailAction(id))
			continue
		}

		id := inv.tag(a.TagName, a.TagType)
		if id == nil {
			ref := a.TagName
			if a.TagType != "" {
				ref = fmt.Sprintf("%s (%s)", a.TagName, a.TagType)
			}
			warnings = append(warnings, fmt.Sprintf("%s: tag not found: %s", def.Name, ref))
		}
		actions = append(actions, workflow.NewTagAction(a.Type, id))
	}

	return actions, triggerTagID, warnings
}

// CreateDefaultWorkflowsForTenant creates missing default workflows and
// repairs stale system ones. Workflows already in their resolved state are
// skipped, so repeated calls are no-ops.
func (s *WorkflowService) CreateDefaultWorkflowsForTenant(ctx context.Context, tenantID string) (*workflow.ProvisionResult, error) {
	defs, err := s.definitions()
	if err != nil {
		return nil, apperrors.Internal("failed to load default workflows", err)
	}

	inv, err := s.loadInventory(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &workflow.ProvisionResult{
		TenantID: tenantID,
		Created:  []*workflow.Workflow{},
		Updated:  []*workflow.Workflow{},
		Skipped:  []string{},
	}

	for _, def := range defs {
		actions, triggerTagID, warnings := inv.resolve(def)
		result.Warnings = append(result.Warnings, warnings...)

		outcome, w, err := s.provision(ctx, tenantID, def, actions, triggerTagID)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"tenant_id": tenantID,
				"workflow":  def.Name,
			}).ErrorWithErr(err, "Failed to provision default workflow")
			result.Failed = append(result.Failed, workflow.ProvisionFailure{Name: def.Name, Error: err.Error()})
			metrics.RecordWorkflowProvision("failed")
			continue
		}

		switch outcome {
		case "created":
			result.Created = append(result.Created, w)
		case "updated":
			result.Updated = append(result.Updated, w)
		default:
			result.Skipped = append(result.Skipped, def.Name)
		}
		metrics.RecordWorkflowProvision(outcome)
	}

	for _, warning := range result.Warnings {
		s.logger.With("tenant_id", tenantID).Warn(warning)
	}
	s.logger.WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"created":   len(result.Created),
		"updated":   len(result.Updated),
		"skipped":   len(result.Skipped),
		"failed":    len(result.Failed),
	}).Info("Default workflows provisioned")

	return result, nil
}

func (s *WorkflowService) provision(ctx context.Context, tenantID string, def workflow.Definition, actions workflow.Actions, triggerTagID *string) (string, *workflow.Workflow, error) {
	existing, err := s.findExisting(ctx, tenantID, def)
	if err != nil {
		return "", nil, err
	}

	if existing == nil {
		w := &workflow.Workflow{
			TenantID:     tenantID,
			SystemKey:    def.SystemKey,
			Name:         def.Name,
			Description:  def.Description,
			TriggerType:  def.TriggerType,
			TriggerTagID: triggerTagID,
			DelayMinutes: def.DelayMinutes,
			Active:       def.Active,
			IsSystem:     true,
			Actions:      actions,
		}
		id, err := s.workflows.Create(ctx, w)
		if err != nil {
			return "", nil, fmt.Errorf("create workflow: %w", err)
		}
		w.ID = id
		return "created", w, nil
	}

	if !needsRepair(existing, def, triggerTagID) {
		return "skipped", existing, nil
	}

	existing.Actions = actions
	existing.TriggerTagID = triggerTagID
	existing.SystemKey = def.SystemKey
	if err := s.workflows.Update(ctx, existing); err != nil {
		return "", nil, fmt.Errorf("update workflow: %w", err)
	}
	return "updated", existing, nil
}

// findExisting looks a definition up by system key first, then by name
func (s *WorkflowService) findExisting(ctx context.Context, tenantID string, def workflow.Definition) (*workflow.Workflow, error) {
	if def.SystemKey != "" {
		w, err := s.workflows.GetBySystemKey(ctx, tenantID, def.SystemKey)
		if err == nil {
			return w, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("find workflow by system key: %w", err)
		}
	}

	w, err := s.workflows.GetByName(ctx, tenantID, def.Name)
	if err == nil {
		return w, nil
	}
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	return nil, fmt.Errorf("find workflow by name: %w", err)
}

// needsRepair reports whether an existing system workflow should be
// rewritten: it has no actions, or its trigger tag now resolves to a
// different id than the one stored.
func needsRepair(existing *workflow.Workflow, def workflow.Definition, triggerTagID *string) bool {
	if !existing.IsSystem {
		return false
	}
	if len(existing.Actions) == 0 {
		return true
	}
	if def.HasTriggerTag() && triggerTagID != nil {
		return existing.TriggerTagID == nil || *existing.TriggerTagID != *triggerTagID
	}
	return false
}

// List returns a tenant's workflows
func (s *WorkflowService) List(ctx context.Context, tenantID string) ([]*workflow.Workflow, error) {
	return s.workflows.ListByTenant(ctx, tenantID)
}
