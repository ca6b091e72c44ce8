package authz

import (
	"encoding/json"
	"fmt"
)

// ConditionScope is the closed set of scopes a condition can require.
type ConditionScope string

const (
	ScopeOwn        ConditionScope = "own"
	ScopeDepartment ConditionScope = "department"
	ScopeCompany    ConditionScope = "company"
	ScopeWorkspace  ConditionScope = "workspace"
	ScopeCustom     ConditionScope = "custom"
)

// Condition narrows a permission to a scope. It replaces the free-form JSON
// condition blobs of the underlying schema with a tagged variant that is
// decoded exactly once at snapshot load time.
//
// Fields is only meaningful for ScopeCustom: every named field must be
// present and non-empty in the EvalContext attributes for the condition to
// hold.
type Condition struct {
	Scope  ConditionScope `json:"scope"`
	Fields []string       `json:"fields,omitempty"`
}

// ParseCondition decodes a stored JSON condition blob. Empty input means
// unconditional (nil). Unknown scopes are a configuration error; they are
// rejected at load time so the resolver never sees one.
func ParseCondition(raw []byte) (*Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var c Condition
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode condition: %w", err)
	}
	switch c.Scope {
	case ScopeOwn, ScopeDepartment, ScopeCompany, ScopeWorkspace:
		if len(c.Fields) > 0 {
			return nil, fmt.Errorf("condition scope %q does not take fields", c.Scope)
		}
	case ScopeCustom:
		if len(c.Fields) == 0 {
			return nil, fmt.Errorf("custom condition requires at least one field")
		}
	default:
		return nil, fmt.Errorf("unknown condition scope %q", c.Scope)
	}
	return &c, nil
}

// Satisfied evaluates the condition against the principal, tenant and the
// target object's facts. A nil condition is unconditional.
//
// A condition whose required fact is missing from the EvalContext is not
// satisfied: the caller failed to supply the fact, and the system fails
// closed rather than guessing.
func (c *Condition) Satisfied(p Principal, tenant TenantContext, eval EvalContext) bool {
	if c == nil {
		return true
	}
	switch c.Scope {
	case ScopeOwn:
		return eval.OwnerID != 0 && eval.OwnerID == p.UserID
	case ScopeDepartment:
		return eval.DepartmentID != 0 && eval.DepartmentID == p.DepartmentID
	case ScopeCompany:
		return eval.CompanyID != 0 && eval.CompanyID == tenant.CompanyID
	case ScopeWorkspace:
		// The check is already anchored to a workspace; workspace scope is
		// satisfied by construction.
		return true
	case ScopeCustom:
		for _, field := range c.Fields {
			if eval.Attributes[field] == "" {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSONBlob encodes the condition back into the stored representation.
// Nil conditions encode as nil (SQL NULL).
func (c *Condition) MarshalJSONBlob() ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}
