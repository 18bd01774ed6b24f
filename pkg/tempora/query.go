package tempora

import (
	"context"
	"time"

	"github.com/dan-solli/tempora/pkg/graph"
	"github.com/dan-solli/tempora/pkg/store"
	"github.com/dan-solli/tempora/pkg/temporal"
)

// AsOf answers a bitemporal point query: what did we believe at systemTime
// about what was true at validTime. AsOf(now, now) equals the live view
// exactly. Corrupt event streams fail per memory and are reported in the
// result's Failures, never as an operation error.
func (t *Tempora) AsOf(ctx context.Context, validTime, systemTime time.Time, filter *temporal.Filter) (*temporal.AsOfResult, error) {
	start := time.Now()
	opTrace := newTrace()

	st := newSpanTimer("replay", opTrace, t.tracing())
	result, err := t.engine.AsOf(ctx, validTime, systemTime, filter)
	var counters map[string]int64
	if result != nil {
		counters = map[string]int64{
			"memories":       int64(len(result.Memories)),
			"replayFailures": int64(len(result.Failures)),
		}
	}
	st.finish(err == nil, err, counters)

	t.finishOp(ctx, "as_of", "", start, err)
	t.exportTrace(ctx, "as_of", start, opTrace, err)

	if err == nil && len(result.Failures) > 0 {
		t.logWarn("as-of query had replay failures", "count", len(result.Failures))
	}
	return result, err
}

// Range returns memories whose validity window relates to [from, to) according
// to the given interval mode (overlaps, contains, started_during, ended_during).
func (t *Tempora) Range(ctx context.Context, from, to time.Time, mode temporal.RangeMode, filter *temporal.Filter) ([]*store.MemoryRecord, error) {
	start := time.Now()
	records, err := t.engine.Range(ctx, from, to, mode, filter)
	t.finishOp(ctx, "range", "", start, err)
	return records, err
}

// ModifiedBetween returns the ids of memories with any event recorded in
// (a, b], without replaying anything.
func (t *Tempora) ModifiedBetween(ctx context.Context, a, b time.Time) ([]string, error) {
	start := time.Now()
	ids, err := t.engine.ModifiedBetween(ctx, a, b)
	t.finishOp(ctx, "modified_between", "", start, err)
	return ids, err
}

// GraphAt reconstructs the causal graph as it stood at asOf (system time) by
// folding relationship events from the ledger. The live index is not touched.
func (t *Tempora) GraphAt(ctx context.Context, asOf time.Time) (*graph.Index, []temporal.ReplayFailure, error) {
	start := time.Now()
	idx, failures, err := t.recon.GraphAt(ctx, asOf)
	t.finishOp(ctx, "graph_at", "", start, err)
	return idx, failures, err
}

// TraverseAt runs a bounded traversal on the causal graph as it stood at asOf.
func (t *Tempora) TraverseAt(ctx context.Context, asOf time.Time, memoryID string, dir graph.Direction, maxDepth int) ([]graph.TraversalResult, []temporal.ReplayFailure, error) {
	start := time.Now()
	results, failures, err := t.recon.TraverseAt(ctx, asOf, memoryID, dir, maxDepth)
	t.finishOp(ctx, "traverse_at", memoryID, start, err)
	return results, failures, err
}

// Events returns the event stream of one memory ascending by event id,
// optionally bounded by a recorded-at ceiling.
func (t *Tempora) Events(ctx context.Context, memoryID string, before *time.Time) ([]*store.MemoryEvent, error) {
	return t.store.QueryEvents(ctx, memoryID, before)
}

// Revisions returns the content-revision history of a memory, ascending.
func (t *Tempora) Revisions(ctx context.Context, memoryID string) ([]*store.RevisionRecord, error) {
	return t.store.GetRevisions(ctx, memoryID)
}
