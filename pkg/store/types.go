// Package store provides the storage boundary for tempora's bitemporal memory system.
package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// MemoryType classifies a memory record. The set is closed: the Content payload
// is a tagged union keyed by this type.
type MemoryType string

const (
	MemoryTypeFact        MemoryType = "fact"
	MemoryTypeDecision    MemoryType = "decision"
	MemoryTypeInsight     MemoryType = "insight"
	MemoryTypeCodePattern MemoryType = "code_pattern"
	MemoryTypeIncident    MemoryType = "incident"
	MemoryTypeConvention  MemoryType = "convention"
)

// ValidMemoryType reports whether t is a member of the closed type enum.
func ValidMemoryType(t MemoryType) bool {
	switch t {
	case MemoryTypeFact, MemoryTypeDecision, MemoryTypeInsight,
		MemoryTypeCodePattern, MemoryTypeIncident, MemoryTypeConvention:
		return true
	}
	return false
}

// Importance is an ordered enum; higher values survive pruning longer.
type Importance int

const (
	ImportanceLow Importance = iota
	ImportanceMedium
	ImportanceHigh
	ImportanceCritical
)

// String returns the lowercase name of the importance level.
func (i Importance) String() string {
	switch i {
	case ImportanceLow:
		return "low"
	case ImportanceMedium:
		return "medium"
	case ImportanceHigh:
		return "high"
	case ImportanceCritical:
		return "critical"
	}
	return "unknown"
}

// MemoryRecord is the current-state row for a memory. Exactly one live row
// exists per ID; historical states are derived by event replay, never stored
// as duplicate rows.
//
// Two independent time axes apply: TransactionTime records when the fact was
// recorded (system time); ValidTime/ValidUntil bound when the fact was true in
// the modeled world (valid time, half-open [ValidTime, ValidUntil)). A nil
// ValidUntil means the fact is still true.
type MemoryRecord struct {
	ID              string          `json:"id"`
	Type            MemoryType      `json:"type"`
	Content         json.RawMessage `json:"content,omitempty"` // tagged union keyed by Type
	Summary         string          `json:"summary"`
	TransactionTime time.Time       `json:"transaction_time"`
	ValidTime       time.Time       `json:"valid_time"`
	ValidUntil      *time.Time      `json:"valid_until,omitempty"`
	Confidence      float64         `json:"confidence"` // 0..1
	Importance      Importance      `json:"importance"`
	AccessCount     int             `json:"access_count"`
	LastAccessedAt  *time.Time      `json:"last_accessed_at,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	LinkedFiles     []string        `json:"linked_files,omitempty"`
	Archived        bool            `json:"archived"`
	Supersedes      *string         `json:"supersedes,omitempty"`
	SupersededBy    *string         `json:"superseded_by,omitempty"`
	Revision        int             `json:"revision"` // per-memory monotonic counter
	ContentHash     string          `json:"content_hash"`
}

// ComputeContentHash computes a canonical hash of a memory's content payload.
// The hash is a deterministic function of (type, content, summary): same input
// always yields the same hash, independent of field ordering in the payload.
func ComputeContentHash(memType MemoryType, content json.RawMessage, summary string) string {
	canonical := map[string]interface{}{
		"content": json.RawMessage(content),
		"summary": summary,
		"type":    string(memType),
	}

	jsonBytes, err := json.Marshal(canonical)
	if err != nil {
		// Marshal of map[string]interface{} with raw JSON cannot fail unless
		// the content itself is invalid JSON; fall back to hashing the raw bytes.
		h := sha256.Sum256(append([]byte(memType), append(content, summary...)...))
		return fmt.Sprintf("%x", h)
	}

	hash := sha256.Sum256(jsonBytes)
	return fmt.Sprintf("%x", hash)
}

// EventType identifies the kind of state change a MemoryEvent records.
type EventType string

const (
	EventCreated             EventType = "created"
	EventContentUpdated      EventType = "content_updated"
	EventArchived            EventType = "archived"
	EventUnarchived          EventType = "unarchived"
	EventRelationshipAdded   EventType = "relationship_added"
	EventRelationshipRemoved EventType = "relationship_removed"
	EventStrengthUpdated     EventType = "strength_updated"
)

// RelationshipEventTypes lists the event types that affect the causal graph.
// Temporal graph reconstruction replays exactly these.
var RelationshipEventTypes = []EventType{
	EventRelationshipAdded,
	EventRelationshipRemoved,
	EventStrengthUpdated,
}

// ActorKind identifies what kind of actor emitted an event.
type ActorKind string

const (
	ActorAgent  ActorKind = "agent"
	ActorHuman  ActorKind = "human"
	ActorSystem ActorKind = "system"
)

// MemoryEvent is one append-only ledger entry. EventID is assigned by the
// single writer in strictly increasing order and is never reused or reordered;
// replay applies events strictly by EventID, not by RecordedAt.
type MemoryEvent struct {
	EventID       int64           `json:"event_id"`
	MemoryID      string          `json:"memory_id"`
	RecordedAt    time.Time       `json:"recorded_at"`
	Type          EventType       `json:"event_type"`
	Delta         json.RawMessage `json:"delta,omitempty"` // partial-state payload
	ActorKind     ActorKind       `json:"actor_kind"`
	ActorID       string          `json:"actor_id,omitempty"`
	CausedBy      []int64         `json:"caused_by,omitempty"` // upstream event ids
	SchemaVersion int             `json:"schema_version"`
}

// EventSchemaVersion is stamped on every appended event.
const EventSchemaVersion = 1

// Evidence supports a causal edge with a description of why the relation holds.
type Evidence struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Source      string    `json:"source,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// CausalEdge is a directed relation between two memories. The edge set, viewed
// as a directed graph over memory ids, is always acyclic.
type CausalEdge struct {
	SourceID  string     `json:"source_id"`
	TargetID  string     `json:"target_id"`
	Relation  string     `json:"relation"`
	Strength  float64    `json:"strength"` // 0..1
	Evidence  []Evidence `json:"evidence,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// RevisionRecord is one entry in the content-revision history, kept
// independently of the event log for direct "show me version N" lookups.
type RevisionRecord struct {
	MemoryID    string    `json:"memory_id"`
	Revision    int       `json:"revision"`
	Summary     string    `json:"summary"`
	Confidence  float64   `json:"confidence"`
	ContentHash string    `json:"content_hash"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// AuditEntry records one storage-boundary operation for the operation audit trail.
type AuditEntry struct {
	OpID       string    `json:"op_id"` // ULID, sortable by emission time
	Operation  string    `json:"operation"`
	MemoryID   string    `json:"memory_id,omitempty"`
	Status     string    `json:"status"` // "ok" or "error"
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CreatedDelta is the payload of a "created" event: the full record at creation.
type CreatedDelta struct {
	Record MemoryRecord `json:"record"`
}

// ContentUpdatedDelta is the payload of a "content_updated" event. Updates are
// whole-row replaces, so the delta carries the complete post-update state of
// every mutable field: null or empty means cleared, never "unchanged". Replay
// applies the delta unconditionally.
type ContentUpdatedDelta struct {
	Summary     string          `json:"summary"`
	Confidence  float64         `json:"confidence"`
	Revision    int             `json:"revision"`
	Content     json.RawMessage `json:"content"`
	ContentHash string          `json:"content_hash"`
	ValidTime   time.Time       `json:"valid_time"`
	ValidUntil  *time.Time      `json:"valid_until"` // nil = open-ended
	Tags        []string        `json:"tags"`
	LinkedFiles []string        `json:"linked_files"`
	Importance  Importance      `json:"importance"`
}

// RelationshipDelta is the payload of relationship_added / relationship_removed /
// strength_updated events. Source is always the memory the event is filed under.
type RelationshipDelta struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Relation string  `json:"relation,omitempty"`
	Strength float64 `json:"strength"`
}
