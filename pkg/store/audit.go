package store

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	auditEntropyMu sync.Mutex
	auditEntropy   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewOpID returns a fresh ULID for an audit entry; sortable by emission time.
func NewOpID() string {
	auditEntropyMu.Lock()
	defer auditEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), auditEntropy).String()
}

// RecordAudit appends one entry to the operation audit collection.
// Audit writes are auxiliary bookkeeping: callers log failures and move on.
func (s *SQLiteStore) RecordAudit(ctx context.Context, entry *AuditEntry) error {
	if entry.OpID == "" {
		entry.OpID = NewOpID()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO audit_log (op_id, operation, memory_id, status, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.OpID, entry.Operation, nullableString(entry.MemoryID),
		entry.Status, nullableString(entry.Detail), entry.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// RotateAudit deletes audit entries older than the cutoff in one set-oriented
// statement and returns the removed count.
func (s *SQLiteStore) RotateAudit(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.writer.ExecContext(ctx,
		"DELETE FROM audit_log WHERE recorded_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to rotate audit log: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}

// GetRevisions returns the content-revision history of a memory, ascending
// by revision. The history is maintained independently of the event log.
func (s *SQLiteStore) GetRevisions(ctx context.Context, memoryID string) ([]*RevisionRecord, error) {
	rows, err := s.readDB().QueryContext(ctx, `
		SELECT memory_id, revision, summary, confidence, content_hash, recorded_at
		FROM memory_revisions
		WHERE memory_id = ?
		ORDER BY revision`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*RevisionRecord
	for rows.Next() {
		var r RevisionRecord
		if err := rows.Scan(&r.MemoryID, &r.Revision, &r.Summary, &r.Confidence, &r.ContentHash, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		r.RecordedAt = r.RecordedAt.UTC()
		revisions = append(revisions, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revisions: %w", err)
	}

	return revisions, nil
}
