package tempora

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dan-solli/tempora/pkg/store"
)

// MemoryInput holds the caller-supplied fields for a new memory.
type MemoryInput struct {
	// ID is optional; a UUID is generated when empty
	ID string

	// Type classifies the memory (fact, decision, insight, ...)
	Type store.MemoryType

	// Content is the typed payload, keyed by Type
	Content json.RawMessage

	// Summary is a short human-readable description
	Summary string

	// ValidTime is when the fact became true in the modeled world.
	// Zero means "true from when it was recorded".
	ValidTime time.Time

	// ValidUntil bounds the validity window (exclusive); nil means still true
	ValidUntil *time.Time

	// Confidence in [0, 1]; zero means full confidence (1.0)
	Confidence float64

	// Importance orders memories for retention
	Importance store.Importance

	Tags        []string
	LinkedFiles []string

	// Supersedes names an older memory this one replaces
	Supersedes string
}

// MemoryUpdate holds a partial update; nil fields are left unchanged.
type MemoryUpdate struct {
	Content     json.RawMessage
	Summary     *string
	Confidence  *float64
	Importance  *store.Importance
	ValidTime   *time.Time
	ValidUntil  *time.Time
	Tags        []string
	LinkedFiles []string
}

// PutMemory creates a new memory, emits its "created" event and registers the
// memory in the live causal index. When input.Supersedes is set, the older
// memory is marked superseded in its own revision history.
func (t *Tempora) PutMemory(ctx context.Context, input MemoryInput) (*store.MemoryRecord, error) {
	start := time.Now()

	confidence := input.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	rec := &store.MemoryRecord{
		ID:          input.ID,
		Type:        input.Type,
		Content:     input.Content,
		Summary:     input.Summary,
		ValidTime:   input.ValidTime,
		ValidUntil:  input.ValidUntil,
		Confidence:  confidence,
		Importance:  input.Importance,
		Tags:        input.Tags,
		LinkedFiles: input.LinkedFiles,
	}
	if input.Supersedes != "" {
		s := input.Supersedes
		rec.Supersedes = &s
	}

	err := t.store.CreateMemory(ctx, rec)
	if err == nil {
		t.index.AddNode(rec.ID, rec.Type, rec.Summary)
		if input.Supersedes != "" {
			err = t.markSuperseded(ctx, input.Supersedes, rec.ID)
		}
	}

	t.finishOp(ctx, "put_memory", rec.ID, start, err)
	if err != nil {
		return nil, err
	}

	t.logDebug("memory created", "id", rec.ID, "type", string(rec.Type))
	return rec, nil
}

// markSuperseded points an older memory at its replacement.
func (t *Tempora) markSuperseded(ctx context.Context, oldID, newID string) error {
	old, err := t.store.GetMemory(ctx, oldID)
	if err != nil {
		return fmt.Errorf("superseded memory: %w", err)
	}
	old.SupersededBy = &newID
	if err := t.store.UpdateMemory(ctx, old); err != nil {
		return fmt.Errorf("failed to mark %s superseded: %w", oldID, err)
	}
	return nil
}

// UpdateMemory applies a partial update to a memory. The store bumps the
// revision counter and appends the "content_updated" event in the same
// transaction as the row write.
func (t *Tempora) UpdateMemory(ctx context.Context, id string, upd MemoryUpdate) (*store.MemoryRecord, error) {
	start := time.Now()

	rec, err := t.store.GetMemory(ctx, id)
	if err == nil {
		if upd.Content != nil {
			rec.Content = upd.Content
		}
		if upd.Summary != nil {
			rec.Summary = *upd.Summary
		}
		if upd.Confidence != nil {
			rec.Confidence = *upd.Confidence
		}
		if upd.Importance != nil {
			rec.Importance = *upd.Importance
		}
		if upd.ValidTime != nil {
			rec.ValidTime = *upd.ValidTime
		}
		if upd.ValidUntil != nil {
			rec.ValidUntil = upd.ValidUntil
		}
		if upd.Tags != nil {
			rec.Tags = upd.Tags
		}
		if upd.LinkedFiles != nil {
			rec.LinkedFiles = upd.LinkedFiles
		}
		err = t.store.UpdateMemory(ctx, rec)
	}
	if err == nil {
		t.index.AddNode(rec.ID, rec.Type, rec.Summary)
	}

	t.finishOp(ctx, "update_memory", id, start, err)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetMemory retrieves a memory by id and bumps its access statistics.
// The access bump is best-effort: a failure is logged, not returned.
func (t *Tempora) GetMemory(ctx context.Context, id string) (*store.MemoryRecord, error) {
	start := time.Now()

	rec, err := t.store.GetMemory(ctx, id)
	if err == nil {
		if touchErr := t.store.TouchMemory(ctx, id); touchErr != nil {
			t.logWarn("failed to update access stats", "id", id, "error", touchErr)
		}
	}

	t.finishOp(ctx, "get_memory", id, start, err)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListMemoriesByType returns all memories of one type, ordered by
// transaction time then id.
func (t *Tempora) ListMemoriesByType(ctx context.Context, memType store.MemoryType) ([]*store.MemoryRecord, error) {
	start := time.Now()
	records, err := t.store.ListMemoriesByType(ctx, memType)
	t.finishOp(ctx, "list_memories", "", start, err)
	return records, err
}

// ArchiveMemory soft-deletes a memory. The row stays queryable and the
// operation is reversible via UnarchiveMemory.
func (t *Tempora) ArchiveMemory(ctx context.Context, id string) error {
	start := time.Now()
	err := t.store.ArchiveMemory(ctx, id)
	t.finishOp(ctx, "archive_memory", id, start, err)
	return err
}

// UnarchiveMemory reverses ArchiveMemory.
func (t *Tempora) UnarchiveMemory(ctx context.Context, id string) error {
	start := time.Now()
	err := t.store.UnarchiveMemory(ctx, id)
	t.finishOp(ctx, "unarchive_memory", id, start, err)
	return err
}

// DeleteMemory hard-deletes a memory, its durable edges and its node in the
// live causal index. The event trail of the deletion survives in the ledger.
func (t *Tempora) DeleteMemory(ctx context.Context, id string) error {
	start := time.Now()

	t.causalMu.Lock()
	err := t.store.DeleteMemory(ctx, id)
	if err == nil {
		t.index.RemoveNode(id)
	}
	t.causalMu.Unlock()

	t.finishOp(ctx, "delete_memory", id, start, err)
	return err
}

// finishOp records metrics and a best-effort audit entry for one completed
// operation.
func (t *Tempora) finishOp(ctx context.Context, operation, memoryID string, start time.Time, err error) {
	durationMs := time.Since(start).Milliseconds()

	status := "ok"
	detail := ""
	if err != nil {
		status = "error"
		detail = err.Error()
		t.metrics.RecordError(ctx, operation, ClassifyError(err))
	}
	t.metrics.RecordOperation(ctx, operation, status, durationMs)

	if auditErr := t.store.RecordAudit(ctx, &store.AuditEntry{
		Operation: operation,
		MemoryID:  memoryID,
		Status:    status,
		Detail:    detail,
	}); auditErr != nil {
		t.logWarn("failed to record audit entry", "operation", operation, "error", auditErr)
	}
}
