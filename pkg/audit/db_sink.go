package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// DBSink persists entries to the warden_access_log table in PostgreSQL.
// Wrap it in an AsyncSink on the resolver path; direct Append is synchronous.
type DBSink struct {
	db *sql.DB
}

// NewDBSink creates a database sink and ensures the access-log table exists.
func NewDBSink(db *sql.DB) (*DBSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	s := &DBSink{db: db}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure warden_access_log table: %w", err)
	}
	return s, nil
}

func (s *DBSink) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS warden_access_log (
		id VARCHAR(36) PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		principal_id BIGINT NOT NULL,
		workspace_id BIGINT NOT NULL,
		company_id BIGINT,
		resource_code VARCHAR(255) NOT NULL,
		resource_id BIGINT,
		action VARCHAR(50) NOT NULL,
		outcome VARCHAR(10) NOT NULL,
		reason VARCHAR(50) NOT NULL,
		assignment_ids BIGINT[],
		duration_ns BIGINT,
		request_id VARCHAR(100),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_warden_access_log_timestamp ON warden_access_log(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_warden_access_log_principal ON warden_access_log(principal_id);
	CREATE INDEX IF NOT EXISTS idx_warden_access_log_workspace ON warden_access_log(workspace_id);
	CREATE INDEX IF NOT EXISTS idx_warden_access_log_resource ON warden_access_log(resource_code);
	CREATE INDEX IF NOT EXISTS idx_warden_access_log_outcome ON warden_access_log(outcome);
	`
	_, err := s.db.Exec(query)
	return err
}

// Append inserts one entry.
func (s *DBSink) Append(ctx context.Context, entry *Entry) error {
	stampID(entry)

	var companyID, resourceID interface{}
	if entry.CompanyID != 0 {
		companyID = entry.CompanyID
	}
	if entry.ResourceID != 0 {
		resourceID = entry.ResourceID
	}

	query := `
		INSERT INTO warden_access_log (
			id, timestamp, principal_id, workspace_id, company_id,
			resource_code, resource_id, action, outcome, reason,
			assignment_ids, duration_ns, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.PrincipalID,
		entry.WorkspaceID,
		companyID,
		entry.ResourceCode,
		resourceID,
		entry.Action,
		string(entry.Outcome),
		entry.Reason,
		pq.Array(entry.AssignmentIDs),
		int64(entry.Duration),
		entry.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access log entry: %w", err)
	}
	return nil
}

// Close is a no-op; the sink does not own the database handle.
func (s *DBSink) Close() error { return nil }
