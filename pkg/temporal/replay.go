package temporal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dan-solli/tempora/pkg/store"
)

// Replay folds an ordered event slice into the memory state after the last
// event. Events must be ascending by event_id; replay applies them strictly in
// that order. Returns nil (no error) when the slice contains no "created"
// event, which happens when a memory did not yet exist at the query's system
// time. A malformed delta fails the replay with store.ErrReplay.
//
// Replay is deterministic and idempotent: the same events always produce the
// same state, byte for byte.
func Replay(events []*store.MemoryEvent) (*store.MemoryRecord, error) {
	var rec *store.MemoryRecord

	for _, ev := range events {
		switch ev.Type {
		case store.EventCreated:
			var delta store.CreatedDelta
			if err := json.Unmarshal(ev.Delta, &delta); err != nil {
				return nil, replayErr(ev, err)
			}
			r := delta.Record
			rec = &r

		case store.EventContentUpdated:
			if rec == nil {
				return nil, replayErr(ev, fmt.Errorf("update before creation"))
			}
			var delta store.ContentUpdatedDelta
			if err := json.Unmarshal(ev.Delta, &delta); err != nil {
				return nil, replayErr(ev, err)
			}
			applyUpdate(rec, &delta)

		case store.EventArchived:
			if rec != nil {
				rec.Archived = true
			}

		case store.EventUnarchived:
			if rec != nil {
				rec.Archived = false
			}

		case store.EventRelationshipAdded, store.EventRelationshipRemoved, store.EventStrengthUpdated:
			// Relationship events live in the ledger for causal reconstruction
			// but do not alter record state.

		default:
			// Unknown event types are skipped, not failed: a newer writer may
			// have appended types this reader predates.
		}
	}

	return rec, nil
}

// applyUpdate overwrites the record with the delta's whole-row state. A null
// or empty field in the delta means cleared, matching what a fresh row scan
// would return, so replayed state stays byte-identical to the live row.
func applyUpdate(rec *store.MemoryRecord, delta *store.ContentUpdatedDelta) {
	rec.Summary = delta.Summary
	rec.Confidence = delta.Confidence
	rec.Revision = delta.Revision
	rec.Content = normalizeRaw(delta.Content)
	rec.ContentHash = delta.ContentHash
	rec.ValidTime = delta.ValidTime
	rec.ValidUntil = delta.ValidUntil
	rec.Tags = normalizeSet(delta.Tags)
	rec.LinkedFiles = normalizeSet(delta.LinkedFiles)
	rec.Importance = delta.Importance
}

// normalizeRaw maps a decoded JSON null back to a nil payload.
func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

func normalizeSet(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func replayErr(ev *store.MemoryEvent, err error) error {
	return fmt.Errorf("event %d (%s) for memory %s: %v: %w",
		ev.EventID, ev.Type, ev.MemoryID, err, store.ErrReplay)
}

// ReplayFailure reports one memory whose historical state could not be
// reconstructed. Failures are isolated per record: one corrupt event never
// poisons the rest of a query's result set.
type ReplayFailure struct {
	MemoryID string
	Err      error
}
