package audit

import (
	"encoding/json"
	"time"
)

// Outcome is the result recorded for one resolved decision.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// Entry is one immutable access-log record: who asked to do what, where,
// and how it was decided. Entries are created only by the resolver's
// post-decision hook and never mutated or deleted by application code;
// retention is handled by the RetentionRunner or an external batch job.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	PrincipalID int64 `json:"principal_id"`
	WorkspaceID int64 `json:"workspace_id"`
	CompanyID   int64 `json:"company_id,omitempty"`

	ResourceCode string `json:"resource_code"`
	ResourceID   int64  `json:"resource_id,omitempty"`
	Action       string `json:"action"`

	Outcome Outcome `json:"outcome"`
	// Reason is one of the resolver's closed reason codes, recorded
	// verbatim so compliance tooling can filter without parsing free text.
	Reason        string  `json:"reason"`
	AssignmentIDs []int64 `json:"assignment_ids,omitempty"`

	Duration  time.Duration `json:"duration_ns,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// ToJSON encodes the entry for export and file sinks.
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter selects entries for compliance review.
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	PrincipalID  *int64
	WorkspaceID  *int64
	CompanyID    *int64
	ResourceCode string
	Action       string
	Outcome      *Outcome
	Reason       string

	Limit  int
	Offset int
}

// ExportFormat is the serialization used by Store.Export.
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson"
)

// RetentionPolicy defines how long access-log entries are kept and whether
// expired entries are archived before deletion.
type RetentionPolicy struct {
	RetentionDays  int
	ArchiveEnabled bool

	// ArchiveBatchSize bounds how many entries one archive object holds.
	ArchiveBatchSize int
}

// DefaultRetentionPolicy keeps entries for 90 days without archiving.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		RetentionDays:    90,
		ArchiveEnabled:   false,
		ArchiveBatchSize: 10000,
	}
}
