// Package temporal implements the bitemporal query engine: AS OF point
// queries, valid-time range queries and historical causal-graph
// reconstruction, all derived from current rows plus the append-only event
// ledger.
package temporal

import (
	"context"
	"sort"
	"time"

	"github.com/dan-solli/tempora/pkg/store"
)

// Backend is the slice of the storage boundary the query engine needs.
type Backend interface {
	MemoriesValidAsOf(ctx context.Context, validTime, systemTime time.Time) ([]*store.MemoryRecord, error)
	MemoriesWithEventsAfter(ctx context.Context, after time.Time) ([]string, error)
	MemoriesInRange(ctx context.Context, from, to time.Time, mode store.RangeMode) ([]*store.MemoryRecord, error)
	QueryEvents(ctx context.Context, memoryID string, before *time.Time) ([]*store.MemoryEvent, error)
	QueryEventsRange(ctx context.Context, from, to time.Time, types ...store.EventType) ([]*store.MemoryEvent, error)
	ModifiedBetween(ctx context.Context, a, b time.Time) ([]string, error)
}

// Engine answers temporal queries against a storage backend.
type Engine struct {
	backend Backend
}

// NewEngine creates a temporal query engine over the given backend.
func NewEngine(backend Backend) *Engine {
	return &Engine{backend: backend}
}

// Filter narrows a temporal result set. Zero value matches everything.
// Types and Tags match if the record carries any listed value; LinkedFiles
// requires every listed file to be present.
type Filter struct {
	Types       []store.MemoryType
	Tags        []string
	LinkedFiles []string
}

// Match reports whether a record passes the filter.
func (f *Filter) Match(rec *store.MemoryRecord) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if rec.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Tags) > 0 && !anyMember(rec.Tags, f.Tags) {
		return false
	}

	for _, want := range f.LinkedFiles {
		if !member(rec.LinkedFiles, want) {
			return false
		}
	}

	return true
}

func member(have []string, want string) bool {
	for _, h := range have {
		if h == want {
			return true
		}
	}
	return false
}

func anyMember(have, want []string) bool {
	for _, w := range want {
		if member(have, w) {
			return true
		}
	}
	return false
}

// AsOfResult is the outcome of a bitemporal point query. Failures lists
// memories whose events could not be replayed; they are omitted from Memories.
type AsOfResult struct {
	Memories []*store.MemoryRecord
	Failures []ReplayFailure
}

// AsOf answers "what did we believe at systemTime about what was true at
// validTime". The two axes are independent: validTime positions the question
// in the modeled world, systemTime positions it in the record of our knowledge.
//
// Memories untouched since systemTime are served from their current rows
// verbatim; only memories with later events are replayed to their historical
// state. AsOf(now, now) therefore equals the live view exactly.
func (e *Engine) AsOf(ctx context.Context, validTime, systemTime time.Time, filter *Filter) (*AsOfResult, error) {
	validTime = validTime.UTC()
	systemTime = systemTime.UTC()

	dirtyIDs, err := e.backend.MemoriesWithEventsAfter(ctx, systemTime)
	if err != nil {
		return nil, err
	}
	dirty := make(map[string]bool, len(dirtyIDs))
	for _, id := range dirtyIDs {
		dirty[id] = true
	}

	candidates, err := e.backend.MemoriesValidAsOf(ctx, validTime, systemTime)
	if err != nil {
		return nil, err
	}

	result := &AsOfResult{}
	seen := make(map[string]bool)

	for _, rec := range candidates {
		seen[rec.ID] = true
		if !dirty[rec.ID] {
			if filter == nil || filter.Match(rec) {
				result.Memories = append(result.Memories, rec)
			}
			continue
		}
		e.replayInto(ctx, rec.ID, validTime, systemTime, filter, result)
	}

	// A memory whose current row fails the predicates may still have satisfied
	// them at systemTime (archived since, validity narrowed since). Any memory
	// with later events must be judged on its replayed state, not its row.
	for _, id := range dirtyIDs {
		if !seen[id] {
			e.replayInto(ctx, id, validTime, systemTime, filter, result)
		}
	}

	sort.Slice(result.Memories, func(i, j int) bool {
		a, b := result.Memories[i], result.Memories[j]
		if !a.TransactionTime.Equal(b.TransactionTime) {
			return a.TransactionTime.Before(b.TransactionTime)
		}
		return a.ID < b.ID
	})

	return result, nil
}

// replayInto reconstructs one memory's state as of systemTime and appends it
// to the result when it satisfies the bitemporal predicates. Replay errors are
// recorded as per-record failures, never returned.
func (e *Engine) replayInto(ctx context.Context, id string, validTime, systemTime time.Time, filter *Filter, result *AsOfResult) {
	events, err := e.backend.QueryEvents(ctx, id, &systemTime)
	if err != nil {
		result.Failures = append(result.Failures, ReplayFailure{MemoryID: id, Err: err})
		return
	}

	rec, err := Replay(events)
	if err != nil {
		result.Failures = append(result.Failures, ReplayFailure{MemoryID: id, Err: err})
		return
	}
	if rec == nil {
		// Did not exist yet at systemTime.
		return
	}

	if rec.Archived || rec.TransactionTime.After(systemTime) {
		return
	}
	if rec.ValidTime.After(validTime) {
		return
	}
	if rec.ValidUntil != nil && !rec.ValidUntil.After(validTime) {
		return
	}

	if filter == nil || filter.Match(rec) {
		result.Memories = append(result.Memories, rec)
	}
}

// ModifiedBetween returns the ids of memories with any event recorded in
// (a, b], in ascending id order.
func (e *Engine) ModifiedBetween(ctx context.Context, a, b time.Time) ([]string, error) {
	return e.backend.ModifiedBetween(ctx, a, b)
}
