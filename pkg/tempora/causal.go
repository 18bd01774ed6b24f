package tempora

import (
	"context"
	"fmt"
	"time"

	"github.com/dan-solli/tempora/pkg/graph"
	"github.com/dan-solli/tempora/pkg/store"
)

// LinkCausal inserts or reweights the causal edge source -> target. The DAG
// check and the in-memory insertion happen atomically inside the index; the
// durable edge write follows under the same causal mutation lock, with the
// index change compensated if the write fails. A relationship_added event is
// emitted for a new edge, strength_updated for a reweight.
//
// Returns store.ErrCausalCycle (idempotently: the graph is unchanged) when the
// edge would close a cycle, including the self-loop case.
func (t *Tempora) LinkCausal(ctx context.Context, sourceID, targetID, relation string, strength float64, evidence []store.Evidence) error {
	start := time.Now()
	opTrace := newTrace()

	t.causalMu.Lock()
	err := t.linkLocked(ctx, sourceID, targetID, relation, strength, evidence, opTrace)
	t.causalMu.Unlock()

	t.finishOp(ctx, "link_causal", sourceID, start, err)
	t.exportTrace(ctx, "link_causal", start, opTrace, err)
	if err == nil {
		t.logDebug("causal edge linked", "source", sourceID, "target", targetID, "relation", relation)
	}
	return err
}

// linkLocked performs the index and durable halves of a causal link.
// Caller holds causalMu.
func (t *Tempora) linkLocked(ctx context.Context, sourceID, targetID, relation string, strength float64, evidence []store.Evidence, opTrace *OperationTrace) error {
	// Both endpoints must be real memories; the edge tables carry no foreign
	// key to keep the single-writer transactions small.
	if _, err := t.store.GetMemory(ctx, sourceID); err != nil {
		return fmt.Errorf("link source: %w", err)
	}
	if _, err := t.store.GetMemory(ctx, targetID); err != nil {
		return fmt.Errorf("link target: %w", err)
	}

	prev, existed := t.index.GetEdge(sourceID, targetID)

	st := newSpanTimer("dag-check", opTrace, t.tracing())
	created, err := t.index.AddEdge(sourceID, targetID, relation, strength)
	st.finish(err == nil, err, nil)
	if err != nil {
		return err
	}

	evType := store.EventRelationshipAdded
	if !created {
		evType = store.EventStrengthUpdated
	}

	edge := &store.CausalEdge{
		SourceID:  sourceID,
		TargetID:  targetID,
		Relation:  relation,
		Strength:  strength,
		Evidence:  evidence,
		CreatedAt: time.Now().UTC(),
	}

	st = newSpanTimer("write-edge", opTrace, t.tracing())
	err = t.store.PutEdge(ctx, edge, evType)
	st.finish(err == nil, err, nil)
	if err != nil {
		// Roll the index back so it keeps matching durable state.
		if created {
			t.index.RemoveEdge(sourceID, targetID)
		} else if existed {
			t.index.AddEdge(sourceID, targetID, prev.Relation, prev.Weight)
		}
		return err
	}

	return nil
}

// SetStrength overwrites the strength of an existing causal edge and emits a
// strength_updated event.
func (t *Tempora) SetStrength(ctx context.Context, sourceID, targetID string, strength float64) error {
	start := time.Now()

	t.causalMu.Lock()
	var err error
	edge, ok := t.index.GetEdge(sourceID, targetID)
	if !ok {
		err = fmt.Errorf("edge %s -> %s does not exist", sourceID, targetID)
	} else {
		err = t.linkLocked(ctx, sourceID, targetID, edge.Relation, strength, nil, nil)
	}
	t.causalMu.Unlock()

	t.finishOp(ctx, "set_strength", sourceID, start, err)
	return err
}

// UnlinkCausal removes the causal edge source -> target from both the durable
// collection and the live index, emitting a relationship_removed event.
// Returns whether the edge existed; removing a missing edge is not an error.
func (t *Tempora) UnlinkCausal(ctx context.Context, sourceID, targetID string) (bool, error) {
	start := time.Now()

	t.causalMu.Lock()
	existed, err := t.store.RemoveEdge(ctx, sourceID, targetID)
	if err == nil && existed {
		t.index.RemoveEdge(sourceID, targetID)
	}
	t.causalMu.Unlock()

	t.finishOp(ctx, "unlink_causal", sourceID, start, err)
	return existed, err
}

// CausalEdges returns all live edges incident to a memory (both directions),
// served from the in-memory index.
func (t *Tempora) CausalEdges(memoryID string) []graph.Edge {
	return t.index.GetEdges(memoryID)
}

// CausalEdgesWithEvidence returns the durable edges incident to a memory,
// including their supporting evidence rows.
func (t *Tempora) CausalEdgesWithEvidence(ctx context.Context, memoryID string) ([]*store.CausalEdge, error) {
	start := time.Now()
	edges, err := t.store.GetEdges(ctx, memoryID)
	t.finishOp(ctx, "get_edges", memoryID, start, err)
	return edges, err
}

// Traverse runs a bounded breadth-first traversal on the live causal graph.
// DirectionForward follows effects, DirectionInverse follows causes.
func (t *Tempora) Traverse(memoryID string, dir graph.Direction, maxDepth int) []graph.TraversalResult {
	return t.index.Traverse(memoryID, dir, maxDepth)
}

// GraphSnapshot returns a point-in-time copy of the live causal graph.
func (t *Tempora) GraphSnapshot() graph.Snapshot {
	return t.index.Snapshot()
}

// PruneGraph removes all causal edges with strength below minStrength, then
// any node left without edges, from both the durable collection and the live
// index. Returns the removed edge and node counts from the index.
func (t *Tempora) PruneGraph(ctx context.Context, minStrength float64) (edgesRemoved, nodesRemoved int, err error) {
	start := time.Now()
	t.logInfo("graph prune start", "minStrength", minStrength)

	t.causalMu.Lock()
	_, err = t.store.PruneEdges(ctx, minStrength)
	if err == nil {
		edgesRemoved, nodesRemoved = t.index.Prune(minStrength)
	}
	t.causalMu.Unlock()

	t.finishOp(ctx, "prune_graph", "", start, err)
	if err != nil {
		return 0, 0, err
	}

	t.logInfo("graph prune complete", "edgesRemoved", edgesRemoved, "nodesRemoved", nodesRemoved)
	return edgesRemoved, nodesRemoved, nil
}
