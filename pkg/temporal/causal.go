package temporal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dan-solli/tempora/pkg/graph"
	"github.com/dan-solli/tempora/pkg/store"
)

// Reconstructor rebuilds historical causal graphs from the event ledger.
// Reconstruction folds relationship events in event_id order into a fresh
// in-memory index; the live index is never touched. Because the ledger
// records the exact historical sequence, the fold can never produce a cycle
// that did not exist at the time.
type Reconstructor struct {
	backend Backend
}

// NewReconstructor creates a reconstructor over the given backend.
func NewReconstructor(backend Backend) *Reconstructor {
	return &Reconstructor{backend: backend}
}

// graphEpoch is the lower bound of reconstruction queries: all relationship
// history since the beginning of the ledger participates.
var graphEpoch = time.Unix(0, 0).UTC()

// GraphAt returns the causal graph as it stood at asOf (system time).
// Malformed events are skipped and reported per affected memory; the rest of
// the graph is still built. Node type and summary are replayed from each
// endpoint's event stream as of the same moment, so reconstructed nodes carry
// the metadata they had then, same as the live index carries it now.
func (r *Reconstructor) GraphAt(ctx context.Context, asOf time.Time) (*graph.Index, []ReplayFailure, error) {
	cutoff := asOf.UTC()
	events, err := r.backend.QueryEventsRange(ctx, graphEpoch, cutoff, store.RelationshipEventTypes...)
	if err != nil {
		return nil, nil, err
	}

	idx := graph.New()
	var failures []ReplayFailure

	for _, ev := range events {
		var delta store.RelationshipDelta
		if err := json.Unmarshal(ev.Delta, &delta); err != nil {
			failures = append(failures, ReplayFailure{MemoryID: ev.MemoryID, Err: replayErr(ev, err)})
			continue
		}

		switch ev.Type {
		case store.EventRelationshipAdded, store.EventStrengthUpdated:
			if _, err := idx.AddEdge(delta.SourceID, delta.TargetID, delta.Relation, delta.Strength); err != nil {
				failures = append(failures, ReplayFailure{MemoryID: ev.MemoryID, Err: replayErr(ev, err)})
			}
		case store.EventRelationshipRemoved:
			idx.RemoveEdge(delta.SourceID, delta.TargetID)
		}
	}

	// Edge folding only knows memory ids; fill in type and summary from each
	// node's own stream as of the cutoff.
	for _, node := range idx.Snapshot().Nodes {
		stream, err := r.backend.QueryEvents(ctx, node.ID, &cutoff)
		if err != nil {
			return nil, nil, err
		}
		rec, err := Replay(stream)
		if err != nil {
			failures = append(failures, ReplayFailure{MemoryID: node.ID, Err: err})
			continue
		}
		if rec != nil {
			idx.AddNode(node.ID, rec.Type, rec.Summary)
		}
	}

	return idx, failures, nil
}

// TraverseAt reconstructs the graph at asOf and runs a bounded traversal from
// the given memory id on the reconstructed graph.
func (r *Reconstructor) TraverseAt(ctx context.Context, asOf time.Time, memoryID string, dir graph.Direction, maxDepth int) ([]graph.TraversalResult, []ReplayFailure, error) {
	idx, failures, err := r.GraphAt(ctx, asOf)
	if err != nil {
		return nil, nil, err
	}
	return idx.Traverse(memoryID, dir, maxDepth), failures, nil
}
