package postgres

import (
	"context"
	"testing"

	"github.com/clientflow/alertrunner/internal/domain/workflow"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/testutil"
)

func TestWorkflowRepository_RoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	tagID := "tag-paid"
	w := &workflow.Workflow{
		TenantID:    "t1",
		SystemKey:   "invoice_paid",
		Name:        "Invoice Paid",
		TriggerType: workflow.EventInvoicePaid,
		Active:      true,
		IsSystem:    true,
		Actions: workflow.Actions{
			workflow.NewTagAction(workflow.ActionAddTagToInvoice, &tagID),
			workflow.NewEmailAction(nil),
		},
	}
	id, err := repo.Create(ctx, w)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		get     func() (*workflow.Workflow, error)
		wantErr bool
	}{
		{name: "by system key", get: func() (*workflow.Workflow, error) { return repo.GetBySystemKey(ctx, "t1", "invoice_paid") }},
		{name: "by name", get: func() (*workflow.Workflow, error) { return repo.GetByName(ctx, "t1", "Invoice Paid") }},
		{name: "other tenant", get: func() (*workflow.Workflow, error) { return repo.GetByName(ctx, "t2", "Invoice Paid") }, wantErr: true},
		{name: "unknown key", get: func() (*workflow.Workflow, error) { return repo.GetBySystemKey(ctx, "t1", "nope") }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			if (err != nil) != tt.wantErr {
				t.Fatalf("get error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !apperrors.IsNotFound(err) {
					t.Errorf("error = %v, want not found", err)
				}
				return
			}
			if got.ID != id || !got.IsSystem || got.TriggerTagID != nil {
				t.Errorf("got %+v", got)
			}
			if len(got.Actions) != 2 || *got.Actions[0].Tag.TagID != tagID || got.Actions[1].Email.TemplateID != nil {
				t.Errorf("actions = %+v", got.Actions)
			}
		})
	}

	if _, err := repo.Create(ctx, &workflow.Workflow{TenantID: "t1", Name: "Invoice Paid", TriggerType: workflow.EventInvoicePaid}); !apperrors.IsConflict(err) {
		t.Errorf("duplicate Create() error = %v, want conflict", err)
	}

	trigger := "tag-vip"
	w.ID = id
	w.TriggerTagID = &trigger
	w.Actions = workflow.Actions{workflow.NewEmailAction(&trigger)}
	if err := repo.Update(ctx, w); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	list, err := repo.ListByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("ListByTenant() error = %v", err)
	}
	if len(list) != 1 || list[0].TriggerTagID == nil || *list[0].TriggerTagID != trigger || len(list[0].Actions) != 1 {
		t.Errorf("ListByTenant() = %+v", list)
	}
}

func TestInventoryRepositories(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	ctx := context.Background()
	for _, stmt := range []string{
		"INSERT INTO email_templates (id, tenant_id, system_key, name) VALUES ('tpl-1', 't1', 'invoice_sent', 'Invoice sent')",
		"INSERT INTO email_templates (id, tenant_id, system_key, name) VALUES ('tpl-2', 't2', 'invoice_sent', 'Invoice sent')",
		"INSERT INTO tags (id, tenant_id, name, type) VALUES ('tag-1', 't1', 'Paid', 'invoice')",
		"INSERT INTO tags (id, tenant_id, name, type) VALUES ('tag-2', 't1', 'Paid', 'payment')",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed error = %v", err)
		}
	}

	templates, err := NewTemplateRepository(db).ListByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("templates ListByTenant() error = %v", err)
	}
	if len(templates) != 1 || templates[0].SystemKey != "invoice_sent" {
		t.Errorf("templates = %+v", templates)
	}

	tags, err := NewTagRepository(db).ListByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("tags ListByTenant() error = %v", err)
	}
	if len(tags) != 2 || tags[0].Type != "invoice" || tags[1].Type != "payment" {
		t.Errorf("tags = %+v", tags)
	}
}
