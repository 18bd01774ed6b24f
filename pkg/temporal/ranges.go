package temporal

import (
	"context"
	"time"

	"github.com/dan-solli/tempora/pkg/store"
)

// RangeMode re-exports the interval relations of the storage boundary so
// callers of the engine need not import both packages.
type RangeMode = store.RangeMode

const (
	// RangeOverlaps matches memories whose validity window intersects
	// [from, to) at all.
	RangeOverlaps = store.RangeOverlaps
	// RangeContains matches memories valid throughout the whole window.
	RangeContains = store.RangeContains
	// RangeStartedDuring matches memories whose validity began inside the window.
	RangeStartedDuring = store.RangeStartedDuring
	// RangeEndedDuring matches memories whose validity ended inside the window.
	RangeEndedDuring = store.RangeEndedDuring
)

// Range returns non-archived memories whose validity window relates to the
// half-open window [from, to) according to mode, ordered by valid_time then id.
// Returns store.ErrTemporalQuery for an empty or inverted window or an unknown
// mode.
func (e *Engine) Range(ctx context.Context, from, to time.Time, mode RangeMode, filter *Filter) ([]*store.MemoryRecord, error) {
	records, err := e.backend.MemoriesInRange(ctx, from, to, mode)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return records, nil
	}

	filtered := records[:0]
	for _, rec := range records {
		if filter.Match(rec) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}
