package tempora

import (
	"context"
	"fmt"
	"time"

	"github.com/dan-solli/tempora/pkg/temporal"
)

// Stats summarizes the current storage footprint.
type Stats struct {
	Memories   int   `json:"memories"`
	LiveEvents int64 `json:"liveEvents"`
	GraphNodes int   `json:"graphNodes"`
	GraphEdges int   `json:"graphEdges"`
}

// Stats returns the current storage footprint and publishes it as gauges.
func (t *Tempora) Stats(ctx context.Context) (*Stats, error) {
	memories, err := t.store.ListLiveMemories(ctx)
	if err != nil {
		return nil, err
	}
	events, err := t.store.CountEvents(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Memories:   len(memories),
		LiveEvents: events,
		GraphNodes: t.index.NodeCount(),
		GraphEdges: t.index.EdgeCount(),
	}

	t.metrics.SetStorageCount(ctx, "memories", int64(stats.Memories))
	t.metrics.SetStorageCount(ctx, "events", stats.LiveEvents)
	t.metrics.SetStorageCount(ctx, "edges", int64(stats.GraphEdges))

	return stats, nil
}

// ArchiveEvents moves events older than the cutoff into the frozen archive
// table. Before anything moves, every memory touched before the cutoff is
// replayed once to prove the stream still folds cleanly; a replay failure
// aborts the whole archival. Returns the number of events moved.
func (t *Tempora) ArchiveEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	moved, err := t.archiveEvents(ctx, cutoff)
	t.finishOp(ctx, "archive_events", "", start, err)
	if err == nil {
		t.logInfo("event archival complete", "moved", moved, "cutoff", cutoff)
	}
	return moved, err
}

func (t *Tempora) archiveEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	maxID, err := t.store.MaxEventID(ctx)
	if err != nil {
		return 0, err
	}
	if maxID == 0 {
		return 0, nil
	}

	ids, err := t.store.ModifiedBetween(ctx, time.Unix(0, 0).UTC(), cutoff)
	if err != nil {
		return 0, err
	}

	// Verification pass: the archive is only safe if the streams it will
	// absorb still replay.
	for _, id := range ids {
		events, err := t.store.QueryEvents(ctx, id, nil)
		if err != nil {
			return 0, err
		}
		if _, err := temporal.Replay(events); err != nil {
			return 0, fmt.Errorf("pre-archive verification failed for %s: %w", id, err)
		}
	}

	return t.store.ArchiveEvents(ctx, cutoff, maxID)
}

// RotateAudit deletes audit entries older than the cutoff and returns the
// removed count.
func (t *Tempora) RotateAudit(ctx context.Context, olderThan time.Time) (int64, error) {
	start := time.Now()
	removed, err := t.store.RotateAudit(ctx, olderThan)
	t.finishOp(ctx, "rotate_audit", "", start, err)
	return removed, err
}
