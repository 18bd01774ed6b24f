package store

import (
	"context"
	"fmt"
	"time"
)

// RangeMode names the interval relation used by valid-time range queries.
// Relations follow Allen's interval algebra over the half-open validity
// window [valid_time, valid_until).
type RangeMode string

const (
	RangeOverlaps      RangeMode = "overlaps"
	RangeContains      RangeMode = "contains"
	RangeStartedDuring RangeMode = "started_during"
	RangeEndedDuring   RangeMode = "ended_during"
)

// TemporalReader provides the set-oriented read primitives the temporal query
// engine builds on. Part of the storage boundary so backends can push the
// predicates into their query planner.
type TemporalReader interface {
	// MemoriesValidAsOf returns the bitemporal candidate set: non-archived
	// rows recorded by systemTime and valid at validTime, ordered by
	// transaction_time then id.
	MemoriesValidAsOf(ctx context.Context, validTime, systemTime time.Time) ([]*MemoryRecord, error)

	// MemoriesWithEventsAfter returns the ids of memories that have at least
	// one non-"created" event recorded after the cutoff. A late "created"
	// event alone is expected backfill noise and never forces a replay.
	MemoriesWithEventsAfter(ctx context.Context, after time.Time) ([]string, error)

	// MemoriesInRange returns non-archived memories whose validity window
	// relates to [from, to) according to mode.
	MemoriesInRange(ctx context.Context, from, to time.Time, mode RangeMode) ([]*MemoryRecord, error)
}

// MemoriesValidAsOf returns the bitemporal candidate set for an AS OF query.
func (s *SQLiteStore) MemoriesValidAsOf(ctx context.Context, validTime, systemTime time.Time) ([]*MemoryRecord, error) {
	query := "SELECT " + memoryColumns + ` FROM memories
		WHERE transaction_time <= ?
		  AND valid_time <= ?
		  AND (valid_until IS NULL OR valid_until > ?)
		  AND archived = 0
		ORDER BY transaction_time, id`

	vt := validTime.UTC()
	return s.queryMemories(ctx, query, systemTime.UTC(), vt, vt)
}

// MemoriesWithEventsAfter returns ids of memories with any non-"created"
// event recorded after the cutoff. Spans the live log and the frozen archive:
// an event moved out by retention still marks its memory as edited since the
// queried moment.
func (s *SQLiteStore) MemoriesWithEventsAfter(ctx context.Context, after time.Time) ([]string, error) {
	rows, err := s.readDB().QueryContext(ctx,
		"SELECT DISTINCT memory_id FROM "+liveAndArchivedEvents+`
		WHERE recorded_at > ? AND event_type != ?
		ORDER BY memory_id`,
		after.UTC(), string(EventCreated))
	if err != nil {
		return nil, fmt.Errorf("failed to query later events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan memory id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memory ids: %w", err)
	}
	return ids, nil
}

// MemoriesInRange returns non-archived memories whose validity window relates
// to [from, to) according to mode.
func (s *SQLiteStore) MemoriesInRange(ctx context.Context, from, to time.Time, mode RangeMode) ([]*MemoryRecord, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("range [%s, %s): %w", from, to, ErrTemporalQuery)
	}

	var cond string
	switch mode {
	case RangeOverlaps:
		cond = "valid_time < ? AND (valid_until IS NULL OR valid_until > ?)"
	case RangeContains:
		cond = "valid_time <= ? AND (valid_until IS NULL OR valid_until >= ?)"
	case RangeStartedDuring:
		cond = "valid_time >= ? AND valid_time < ?"
	case RangeEndedDuring:
		cond = "valid_until IS NOT NULL AND valid_until >= ? AND valid_until < ?"
	default:
		return nil, fmt.Errorf("unknown range mode %q: %w", mode, ErrTemporalQuery)
	}

	query := "SELECT " + memoryColumns + " FROM memories WHERE archived = 0 AND " + cond +
		" ORDER BY valid_time, id"

	f, t := from.UTC(), to.UTC()
	switch mode {
	case RangeOverlaps:
		return s.queryMemories(ctx, query, t, f)
	case RangeContains:
		return s.queryMemories(ctx, query, f, t)
	default:
		return s.queryMemories(ctx, query, f, t)
	}
}

// Compile-time interface check
var _ TemporalReader = (*SQLiteStore)(nil)
