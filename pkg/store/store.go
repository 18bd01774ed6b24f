package store

import (
	"context"
	"time"
)

// MemoryStore defines the interface for memory record operations.
// Every mutation appends its event to the event log in the same unit of work;
// an append failure fails the mutation.
type MemoryStore interface {
	// CreateMemory inserts a new memory record and emits a "created" event.
	// The event's RecordedAt is wall-clock emission time, which is independent
	// of (and may be later than) the record's own TransactionTime/ValidTime.
	// Returns ErrDuplicateID if the ID already exists.
	CreateMemory(ctx context.Context, rec *MemoryRecord) error

	// UpdateMemory replaces the whole row, bumps the per-memory revision
	// counter and emits a "content_updated" event plus a revision-history row.
	// Returns ErrMemoryNotFound if the ID does not exist.
	UpdateMemory(ctx context.Context, rec *MemoryRecord) error

	// GetMemory retrieves a memory by ID.
	// Returns ErrMemoryNotFound if the ID does not exist.
	GetMemory(ctx context.Context, id string) (*MemoryRecord, error)

	// ListMemoriesByType returns all live (and archived) memories of one type,
	// ordered by transaction_time then id.
	ListMemoriesByType(ctx context.Context, memType MemoryType) ([]*MemoryRecord, error)

	// ArchiveMemory soft-deletes a memory: the row stays queryable with
	// archived=true. Emits an "archived" event. Reversible via UnarchiveMemory.
	ArchiveMemory(ctx context.Context, id string) error

	// UnarchiveMemory reverses ArchiveMemory and emits an "unarchived" event.
	UnarchiveMemory(ctx context.Context, id string) error

	// DeleteMemory hard-deletes a memory. Every incident causal edge is removed
	// with a "relationship_removed" event emitted before the row disappears,
	// all within one transaction, so the causal audit trail stays intact.
	DeleteMemory(ctx context.Context, id string) error

	// TouchMemory increments access tracking for a memory. Best-effort path:
	// callers may log failures without aborting their primary operation.
	TouchMemory(ctx context.Context, id string) error
}

// EventLog defines the interface for the append-only event ledger.
type EventLog interface {
	// QueryEvents returns all events for a memory ascending by event_id,
	// optionally bounded by a recorded_at ceiling (inclusive).
	QueryEvents(ctx context.Context, memoryID string, before *time.Time) ([]*MemoryEvent, error)

	// QueryEventsRange returns events across all memories with recorded_at in
	// [from, to], ascending by event_id, optionally filtered to a set of
	// event types. Used by causal reconstruction.
	QueryEventsRange(ctx context.Context, from, to time.Time, types ...EventType) ([]*MemoryEvent, error)

	// ModifiedBetween returns the IDs of memories with any event recorded in
	// (a, b]. Lets callers learn what changed without replaying anything.
	ModifiedBetween(ctx context.Context, a, b time.Time) ([]string, error)

	// ArchiveEvents moves events with recorded_at < cutoff AND
	// event_id <= verifiedSnapshotEventID into the frozen archive table, then
	// deletes them from the live log. Set-oriented: two statements, one
	// transaction. Returns the number of events moved.
	ArchiveEvents(ctx context.Context, cutoff time.Time, verifiedSnapshotEventID int64) (int64, error)

	// CountEvents returns the number of events in the live log.
	CountEvents(ctx context.Context) (int64, error)
}

// EdgeStore defines the interface for durable causal edge state. The live
// in-process graph index is authoritative for reads; this collection exists so
// the index can be rebuilt at startup and edges survive restarts.
type EdgeStore interface {
	// PutEdge upserts a causal edge (with evidence) and emits a
	// relationship_added or strength_updated event in the same transaction.
	PutEdge(ctx context.Context, edge *CausalEdge, evType EventType) error

	// RemoveEdge deletes an edge and its evidence, emitting a
	// relationship_removed event in the same transaction.
	// Returns false if the edge did not exist (no event is emitted).
	RemoveEdge(ctx context.Context, sourceID, targetID string) (bool, error)

	// GetEdges returns all durable edges incident to a memory (both directions).
	GetEdges(ctx context.Context, memoryID string) ([]*CausalEdge, error)

	// AllEdges returns every durable edge, ascending by creation order.
	// Used to rebuild the live graph index at startup.
	AllEdges(ctx context.Context) ([]*CausalEdge, error)

	// PruneEdges deletes all edges with strength below minStrength in one
	// set-oriented statement and returns the removed count.
	PruneEdges(ctx context.Context, minStrength float64) (int64, error)
}

// AuditLog defines the interface for the operation audit collection.
// Audit writes are auxiliary bookkeeping: failures may be logged and swallowed.
type AuditLog interface {
	// RecordAudit appends one audit entry.
	RecordAudit(ctx context.Context, entry *AuditEntry) error

	// RotateAudit deletes audit entries older than the cutoff in one
	// set-oriented statement and returns the removed count.
	RotateAudit(ctx context.Context, olderThan time.Time) (int64, error)
}

// RevisionLog defines the interface for the content-revision history,
// maintained independently of the event log.
type RevisionLog interface {
	// GetRevisions returns the revision history of a memory, ascending.
	GetRevisions(ctx context.Context, memoryID string) ([]*RevisionRecord, error)
}

// Store is the full storage boundary consumed by parsing, consolidation and
// bridging collaborators. Backends are interchangeable behind this interface
// without touching temporal or causal logic.
type Store interface {
	MemoryStore
	EventLog
	EdgeStore
	AuditLog
	RevisionLog

	// Close releases all database handles.
	Close() error
}
