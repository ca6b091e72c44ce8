package audit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// Store queries and manages persisted access-log entries. It reads the same
// table DBSink writes.
type Store struct {
	db *sql.DB
}

// NewStore creates an access-log store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Search returns entries matching the filter, newest first.
func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]*Entry, error) {
	query := `
		SELECT id, timestamp, principal_id, workspace_id, company_id,
		       resource_code, resource_id, action, outcome, reason,
		       assignment_ids, duration_ns, request_id
		FROM warden_access_log
		WHERE 1=1
	`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.StartTime != nil {
		query += " AND timestamp >= " + arg(*filter.StartTime)
	}
	if filter.EndTime != nil {
		query += " AND timestamp <= " + arg(*filter.EndTime)
	}
	if filter.PrincipalID != nil {
		query += " AND principal_id = " + arg(*filter.PrincipalID)
	}
	if filter.WorkspaceID != nil {
		query += " AND workspace_id = " + arg(*filter.WorkspaceID)
	}
	if filter.CompanyID != nil {
		query += " AND company_id = " + arg(*filter.CompanyID)
	}
	if filter.ResourceCode != "" {
		query += " AND resource_code = " + arg(filter.ResourceCode)
	}
	if filter.Action != "" {
		query += " AND action = " + arg(filter.Action)
	}
	if filter.Outcome != nil {
		query += " AND outcome = " + arg(string(*filter.Outcome))
	}
	if filter.Reason != "" {
		query += " AND reason = " + arg(filter.Reason)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search access log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var e Entry
	var companyID, resourceID sql.NullInt64
	var durationNS sql.NullInt64
	var requestID sql.NullString
	var assignmentIDs pq.Int64Array

	err := rows.Scan(
		&e.ID,
		&e.Timestamp,
		&e.PrincipalID,
		&e.WorkspaceID,
		&companyID,
		&e.ResourceCode,
		&resourceID,
		&e.Action,
		&e.Outcome,
		&e.Reason,
		&assignmentIDs,
		&durationNS,
		&requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan access log entry: %w", err)
	}
	if companyID.Valid {
		e.CompanyID = companyID.Int64
	}
	if resourceID.Valid {
		e.ResourceID = resourceID.Int64
	}
	if durationNS.Valid {
		e.Duration = time.Duration(durationNS.Int64)
	}
	if requestID.Valid {
		e.RequestID = requestID.String
	}
	e.AssignmentIDs = []int64(assignmentIDs)
	return &e, nil
}

// Export serializes the entries matching the filter.
func (s *Store) Export(ctx context.Context, filter SearchFilter, format ExportFormat) ([]byte, error) {
	entries, err := s.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Encode(entries, format)
}

// Encode serializes entries in the given export format.
func Encode(entries []*Entry, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return json.MarshalIndent(entries, "", "  ")
	case ExportFormatNDJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return nil, fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
			}
		}
		return buf.Bytes(), nil
	case ExportFormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		header := []string{"id", "timestamp", "principal_id", "workspace_id", "company_id", "resource_code", "action", "outcome", "reason", "request_id"}
		if err := w.Write(header); err != nil {
			return nil, err
		}
		for _, e := range entries {
			record := []string{
				e.ID,
				e.Timestamp.Format(time.RFC3339Nano),
				strconv.FormatInt(e.PrincipalID, 10),
				strconv.FormatInt(e.WorkspaceID, 10),
				strconv.FormatInt(e.CompanyID, 10),
				e.ResourceCode,
				e.Action,
				string(e.Outcome),
				e.Reason,
				e.RequestID,
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Cleanup deletes entries older than the retention period and returns how
// many were removed.
func (s *Store) Cleanup(ctx context.Context, policy RetentionPolicy) (int64, error) {
	if policy.RetentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -policy.RetentionDays)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM warden_access_log WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired access log entries: %w", err)
	}
	return result.RowsAffected()
}

// DeleteByIDs removes the given entries and returns how many were removed.
// The retention runner uses it to advance past each archived batch.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM warden_access_log WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete archived access log entries: %w", err)
	}
	return result.RowsAffected()
}

// ExpiredBatch returns up to limit entries past the retention cutoff, oldest
// first, for archival before deletion.
func (s *Store) ExpiredBatch(ctx context.Context, policy RetentionPolicy, limit int) ([]*Entry, error) {
	cutoff := time.Now().AddDate(0, 0, -policy.RetentionDays)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, principal_id, workspace_id, company_id,
		       resource_code, resource_id, action, outcome, reason,
		       assignment_ids, duration_ns, request_id
		FROM warden_access_log
		WHERE timestamp < $1
		ORDER BY timestamp ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired access log entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
