package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Workflow is a tenant-owned event-to-actions automation
type Workflow struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	SystemKey    string    `json:"systemKey,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	TriggerType  string    `json:"triggerType"`
	TriggerTagID *string   `json:"triggerTagId"`
	DelayMinutes int       `json:"delayMinutes"`
	Active       bool      `json:"active"`
	IsSystem     bool      `json:"isSystem"`
	Actions      Actions   `json:"actions"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ActionType names an action variant
type ActionType string

const (
	ActionAddTag          ActionType = "add_tag"
	ActionRemoveTag       ActionType = "remove_tag"
	ActionAddTagToBooking ActionType = "add_tag_to_booking"
	ActionAddTagToInvoice ActionType = "add_tag_to_invoice"
	ActionAddTagToPayment ActionType = "add_tag_to_payment"
	ActionSendEmail       ActionType = "send_email"
)

// IsTag reports whether the action mutates a tag
func (t ActionType) IsTag() bool {
	switch t {
	case ActionAddTag, ActionRemoveTag, ActionAddTagToBooking, ActionAddTagToInvoice, ActionAddTagToPayment:
		return true
	}
	return false
}

// Valid reports whether t is a known action type
func (t ActionType) Valid() bool {
	return t.IsTag() || t == ActionSendEmail
}

// TagConfig is the payload of a tag action. A nil TagID means the tag could
// not be resolved when the workflow was materialized.
type TagConfig struct {
	TagID *string `json:"tagId"`
}

// EmailConfig is the payload of a send_email action
type EmailConfig struct {
	TemplateID *string `json:"templateId"`
}

// Action is one resolved workflow step. Exactly one of Tag or Email is set,
// matching Type.
type Action struct {
	Type  ActionType
	Tag   *TagConfig
	Email *EmailConfig
}

// NewTagAction returns a tag action of the given type
func NewTagAction(t ActionType, tagID *string) Action {
	return Action{Type: t, Tag: &TagConfig{TagID: tagID}}
}

// NewEmailAction returns a send_email action
func NewEmailAction(templateID *string) Action {
	return Action{Type: ActionSendEmail, Email: &EmailConfig{TemplateID: templateID}}
}

// Resolved reports whether the action's reference points at a persisted id
func (a Action) Resolved() bool {
	switch {
	case a.Tag != nil:
		return a.Tag.TagID != nil
	case a.Email != nil:
		return a.Email.TemplateID != nil
	}
	return false
}

type actionWire struct {
	Type   ActionType      `json:"type"`
	Config json.RawMessage `json:"config"`
}

// MarshalJSON encodes the action as {"type": ..., "config": {...}}
func (a Action) MarshalJSON() ([]byte, error) {
	var config interface{} = struct{}{}
	switch {
	case a.Tag != nil:
		config = a.Tag
	case a.Email != nil:
		config = a.Email
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionWire{Type: a.Type, Config: raw})
}

// UnmarshalJSON decodes the config payload according to type
func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("unknown action type %q", w.Type)
	}
	*a = Action{Type: w.Type}
	if len(w.Config) == 0 || string(w.Config) == "null" {
		w.Config = []byte("{}")
	}
	if w.Type.IsTag() {
		a.Tag = &TagConfig{}
		return json.Unmarshal(w.Config, a.Tag)
	}
	a.Email = &EmailConfig{}
	return json.Unmarshal(w.Config, a.Email)
}

// Actions is the ordered action list stored as a JSON column
type Actions []Action

// Value implements driver.Valuer
func (as Actions) Value() (driver.Value, error) {
	if as == nil {
		as = Actions{}
	}
	b, err := json.Marshal([]Action(as))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (as *Actions) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*as = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("actions: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*as = nil
		return nil
	}
	var list []Action
	if err := json.Unmarshal(raw, &list); err != nil {
		return err
	}
	*as = list
	return nil
}

// EmailTemplate is the part of a tenant's email template needed for resolution
type EmailTemplate struct {
	ID        string `json:"id"`
	SystemKey string `json:"systemKey,omitempty"`
	Name      string `json:"name"`
}

// Tag is the part of a tenant's tag needed for resolution
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ProvisionFailure records a definition that could not be written
type ProvisionFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ProvisionResult reports what default-workflow provisioning did for a tenant
type ProvisionResult struct {
	TenantID string             `json:"tenantId"`
	Created  []*Workflow        `json:"created"`
	Updated  []*Workflow        `json:"updated"`
	Skipped  []string           `json:"skipped"`
	Failed   []ProvisionFailure `json:"failed,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}
