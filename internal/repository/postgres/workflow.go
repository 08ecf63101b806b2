package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/workflow"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
)

const workflowColumns = `id, tenant_id, system_key, name, description, trigger_type, trigger_tag_id,
	delay_minutes, active, is_system, actions, created_at, updated_at`

type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) workflow.Repository {
	return &WorkflowRepository{db: db}
}

func scanWorkflow(row rowScanner) (*workflow.Workflow, error) {
	var w workflow.Workflow
	var triggerTag sql.NullString
	err := row.Scan(
		&w.ID, &w.TenantID, &w.SystemKey, &w.Name, &w.Description, &w.TriggerType, &triggerTag,
		&w.DelayMinutes, &w.Active, &w.IsSystem, &w.Actions, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if triggerTag.Valid {
		w.TriggerTagID = &triggerTag.String
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return &w, nil
}

func (r *WorkflowRepository) Create(ctx context.Context, w *workflow.Workflow) (string, error) {
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	id := newID()

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		id, w.TenantID, w.SystemKey, w.Name, w.Description, w.TriggerType, w.TriggerTagID,
		w.DelayMinutes, w.Active, w.IsSystem, w.Actions, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", errors.Conflict("A workflow named " + w.Name + " already exists")
		}
		return "", errors.DatabaseError("Failed to create workflow", err)
	}

	return id, nil
}

func (r *WorkflowRepository) Update(ctx context.Context, w *workflow.Workflow) error {
	w.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflows SET actions = $1, trigger_tag_id = $2, system_key = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6
	`, w.Actions, w.TriggerTagID, w.SystemKey, w.UpdatedAt, w.TenantID, w.ID)
	if err != nil {
		return errors.DatabaseError("Failed to update workflow", err)
	}
	return requireRow(result, "Workflow")
}

func (r *WorkflowRepository) get(ctx context.Context, where string, args ...interface{}) (*workflow.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows WHERE " + where + " ORDER BY created_at LIMIT 1"

	w, err := scanWorkflow(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Workflow")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get workflow", err)
	}
	return w, nil
}

func (r *WorkflowRepository) GetBySystemKey(ctx context.Context, tenantID, systemKey string) (*workflow.Workflow, error) {
	return r.get(ctx, "tenant_id = $1 AND system_key = $2", tenantID, systemKey)
}

func (r *WorkflowRepository) GetByName(ctx context.Context, tenantID, name string) (*workflow.Workflow, error) {
	return r.get(ctx, "tenant_id = $1 AND name = $2", tenantID, name)
}

func (r *WorkflowRepository) ListByTenant(ctx context.Context, tenantID string) ([]*workflow.Workflow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+workflowColumns+" FROM workflows WHERE tenant_id = $1 ORDER BY created_at, name",
		tenantID,
	)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list workflows", err)
	}
	defer rows.Close()

	workflows := make([]*workflow.Workflow, 0)
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan workflow", err)
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

// TemplateRepository reads a tenant's email templates
type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) workflow.TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) ListByTenant(ctx context.Context, tenantID string) ([]*workflow.EmailTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, system_key, name FROM email_templates WHERE tenant_id = $1 ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list email templates", err)
	}
	defer rows.Close()

	templates := make([]*workflow.EmailTemplate, 0)
	for rows.Next() {
		var t workflow.EmailTemplate
		if err := rows.Scan(&t.ID, &t.SystemKey, &t.Name); err != nil {
			return nil, errors.DatabaseError("Failed to scan email template", err)
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// TagRepository reads a tenant's tags
type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) workflow.TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) ListByTenant(ctx context.Context, tenantID string) ([]*workflow.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, type FROM tags WHERE tenant_id = $1 ORDER BY name, type",
		tenantID,
	)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list tags", err)
	}
	defer rows.Close()

	tags := make([]*workflow.Tag, 0)
	for rows.Next() {
		var t workflow.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Type); err != nil {
			return nil, errors.DatabaseError("Failed to scan tag", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}
