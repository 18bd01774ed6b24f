package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/dan-solli/tempora/pkg/store"
)

func setupEngine(t *testing.T) (*store.SQLiteStore, *Engine) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:", 0)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, NewEngine(s)
}

func seedMemory(t *testing.T, s *store.SQLiteStore, id string, mutate func(*store.MemoryRecord)) *store.MemoryRecord {
	t.Helper()
	rec := &store.MemoryRecord{
		ID:      id,
		Type:    store.MemoryTypeFact,
		Content: json.RawMessage(`{"statement":"seed"}`),
		Summary: "seed " + id,
	}
	if mutate != nil {
		mutate(rec)
	}
	if err := s.CreateMemory(context.Background(), rec); err != nil {
		t.Fatalf("CreateMemory %s failed: %v", id, err)
	}
	return rec
}

// TestAsOf_NowEqualsLive tests that a point query at the present moment
// returns exactly the live listing, including for memories with edit history.
func TestAsOf_NowEqualsLive(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	seedMemory(t, s, "a", nil)
	seedMemory(t, s, "b", func(r *store.MemoryRecord) { r.Type = store.MemoryTypeDecision })
	rec := seedMemory(t, s, "c", nil)

	rec.Summary = "edited"
	if err := s.UpdateMemory(ctx, rec); err != nil {
		t.Fatalf("UpdateMemory failed: %v", err)
	}

	now := time.Now().UTC().Add(time.Second)
	result, err := e.AsOf(ctx, now, now, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("Unexpected failures: %v", result.Failures)
	}

	live, err := s.ListLiveMemories(ctx)
	if err != nil {
		t.Fatalf("ListLiveMemories failed: %v", err)
	}

	asOfJSON, _ := json.Marshal(result.Memories)
	liveJSON, _ := json.Marshal(live)
	if string(asOfJSON) != string(liveJSON) {
		t.Fatalf("AsOf(now, now) != live listing:\n%s\n%s", asOfJSON, liveJSON)
	}
}

// TestAsOf_HistoricalState tests that a system-time point query replays a
// later-edited memory back to its state at that moment.
func TestAsOf_HistoricalState(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	rec := seedMemory(t, s, "h1", func(r *store.MemoryRecord) { r.Confidence = 0.9 })

	time.Sleep(10 * time.Millisecond)
	mark := time.Now().UTC()
	time.Sleep(10 * time.Millisecond)

	rec.Summary = "revised"
	rec.Confidence = 0.4
	if err := s.UpdateMemory(ctx, rec); err != nil {
		t.Fatalf("UpdateMemory failed: %v", err)
	}

	result, err := e.AsOf(ctx, mark, mark, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 1 {
		t.Fatalf("Expected 1 memory, got %d", len(result.Memories))
	}
	got := result.Memories[0]
	if got.Summary != "seed h1" || got.Confidence != 0.9 || got.Revision != 1 {
		t.Errorf("Historical state = %+v", got)
	}

	// The present still shows the edit.
	now := time.Now().UTC()
	result, err = e.AsOf(ctx, now, now, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 1 || result.Memories[0].Summary != "revised" {
		t.Fatalf("Present state = %v", result.Memories)
	}
}

// TestAsOf_ArchivedAfterSystemTime tests that archival does not erase a
// memory from views of moments before the archival happened.
func TestAsOf_ArchivedAfterSystemTime(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	seedMemory(t, s, "arch", nil)

	time.Sleep(10 * time.Millisecond)
	mark := time.Now().UTC()
	time.Sleep(10 * time.Millisecond)

	if err := s.ArchiveMemory(ctx, "arch"); err != nil {
		t.Fatalf("ArchiveMemory failed: %v", err)
	}

	result, err := e.AsOf(ctx, mark, mark, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 1 || result.Memories[0].ID != "arch" {
		t.Fatalf("Expected archived memory visible before archival, got %v", result.Memories)
	}

	now := time.Now().UTC()
	result, err = e.AsOf(ctx, now, now, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 0 {
		t.Fatalf("Expected archived memory hidden now, got %v", result.Memories)
	}
}

// TestAsOf_ValidTimeAxis tests that the valid-time axis is independent of
// system time: facts about the future are invisible to earlier valid times.
func TestAsOf_ValidTimeAxis(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-48 * time.Hour)
	future := time.Now().UTC().Add(48 * time.Hour)

	seedMemory(t, s, "past-fact", func(r *store.MemoryRecord) { r.ValidTime = past })
	seedMemory(t, s, "future-fact", func(r *store.MemoryRecord) { r.ValidTime = future })
	until := past.Add(24 * time.Hour)
	seedMemory(t, s, "expired-fact", func(r *store.MemoryRecord) {
		r.ValidTime = past
		r.ValidUntil = &until
	})

	now := time.Now().UTC()
	result, err := e.AsOf(ctx, now, now, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 1 || result.Memories[0].ID != "past-fact" {
		t.Fatalf("AsOf(now) = %v, want only past-fact", result.Memories)
	}

	// At a valid time inside the expired window, the expired fact was true.
	result, err = e.AsOf(ctx, past.Add(time.Hour), now, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 2 {
		t.Fatalf("Expected past-fact and expired-fact, got %v", result.Memories)
	}

	// At a future valid time the future fact holds too.
	result, err = e.AsOf(ctx, future.Add(time.Hour), now, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 2 {
		t.Fatalf("Expected past-fact and future-fact, got %v", result.Memories)
	}
}

// TestAsOf_Filter tests type, tag and file filter semantics.
func TestAsOf_Filter(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	seedMemory(t, s, "f1", func(r *store.MemoryRecord) {
		r.Type = store.MemoryTypeDecision
		r.Tags = []string{"auth", "security"}
		r.LinkedFiles = []string{"auth.go", "session.go"}
	})
	seedMemory(t, s, "f2", func(r *store.MemoryRecord) {
		r.Tags = []string{"auth"}
		r.LinkedFiles = []string{"auth.go"}
	})
	seedMemory(t, s, "f3", nil)

	now := time.Now().UTC()

	result, err := e.AsOf(ctx, now, now, &Filter{Types: []store.MemoryType{store.MemoryTypeDecision}})
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 1 || result.Memories[0].ID != "f1" {
		t.Errorf("Type filter = %v", result.Memories)
	}

	// Tags match any listed value.
	result, _ = e.AsOf(ctx, now, now, &Filter{Tags: []string{"security", "unused"}})
	if len(result.Memories) != 1 || result.Memories[0].ID != "f1" {
		t.Errorf("Tag filter = %v", result.Memories)
	}

	// LinkedFiles require every listed file.
	result, _ = e.AsOf(ctx, now, now, &Filter{LinkedFiles: []string{"auth.go", "session.go"}})
	if len(result.Memories) != 1 || result.Memories[0].ID != "f1" {
		t.Errorf("File filter = %v", result.Memories)
	}
	result, _ = e.AsOf(ctx, now, now, &Filter{LinkedFiles: []string{"auth.go"}})
	if len(result.Memories) != 2 {
		t.Errorf("Single-file filter = %v", result.Memories)
	}
}

// TestAsOf_BeforeCreation tests that a memory is invisible at system times
// before it was recorded.
func TestAsOf_BeforeCreation(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	mark := time.Now().UTC()
	time.Sleep(10 * time.Millisecond)

	seedMemory(t, s, "late", nil)

	result, err := e.AsOf(ctx, mark, mark, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Memories) != 0 {
		t.Fatalf("Expected nothing before creation, got %v", result.Memories)
	}
}

// TestAsOf_AfterEventRotation tests that moving old events into the frozen
// archive does not change the answer of a historical point query.
func TestAsOf_AfterEventRotation(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	rec := seedMemory(t, s, "rot", nil)

	time.Sleep(10 * time.Millisecond)
	mark := time.Now().UTC()
	time.Sleep(10 * time.Millisecond)

	rec.Summary = "revised"
	if err := s.UpdateMemory(ctx, rec); err != nil {
		t.Fatalf("UpdateMemory failed: %v", err)
	}

	maxID, err := s.MaxEventID(ctx)
	if err != nil {
		t.Fatalf("MaxEventID failed: %v", err)
	}
	moved, err := s.ArchiveEvents(ctx, time.Now().UTC().Add(time.Second), maxID)
	if err != nil {
		t.Fatalf("ArchiveEvents failed: %v", err)
	}
	if moved == 0 {
		t.Fatal("Expected events moved to archive")
	}

	result, err := e.AsOf(ctx, mark, mark, nil)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("Unexpected failures: %v", result.Failures)
	}
	if len(result.Memories) != 1 {
		t.Fatalf("Expected 1 memory, got %d", len(result.Memories))
	}
	if got := result.Memories[0]; got.Summary != "seed rot" || got.Revision != 1 {
		t.Errorf("Historical state after rotation = %+v", got)
	}
}

// TestRange_Modes tests the four interval relations against a fixed layout.
func TestRange_Modes(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	window := func(start, end time.Duration) (time.Time, *time.Time) {
		u := base.Add(end)
		return base.Add(start), &u
	}

	// Query window is [day 2, day 5).
	//   spans:   day 0 .. day 7   (contains the window)
	//   inside:  day 3 .. day 4   (started and ended during)
	//   before:  day 0 .. day 1   (disjoint)
	//   tail:    day 4 .. open    (started during, never ended)
	seedMemory(t, s, "spans", func(r *store.MemoryRecord) { r.ValidTime, r.ValidUntil = window(0, 7*day) })
	seedMemory(t, s, "inside", func(r *store.MemoryRecord) { r.ValidTime, r.ValidUntil = window(3*day, 4*day) })
	seedMemory(t, s, "before", func(r *store.MemoryRecord) { r.ValidTime, r.ValidUntil = window(0, 1*day) })
	seedMemory(t, s, "tail", func(r *store.MemoryRecord) { r.ValidTime = base.Add(4 * day) })

	from, to := base.Add(2*day), base.Add(5*day)

	cases := []struct {
		mode RangeMode
		want []string
	}{
		{RangeOverlaps, []string{"spans", "inside", "tail"}},
		{RangeContains, []string{"spans"}},
		{RangeStartedDuring, []string{"inside", "tail"}},
		{RangeEndedDuring, []string{"inside"}},
	}

	for _, tc := range cases {
		records, err := e.Range(ctx, from, to, tc.mode, nil)
		if err != nil {
			t.Fatalf("Range(%s) failed: %v", tc.mode, err)
		}
		got := make(map[string]bool, len(records))
		for _, r := range records {
			got[r.ID] = true
		}
		if len(records) != len(tc.want) {
			t.Errorf("Range(%s) returned %d records, want %d: %v", tc.mode, len(records), len(tc.want), got)
			continue
		}
		for _, id := range tc.want {
			if !got[id] {
				t.Errorf("Range(%s) missing %s", tc.mode, id)
			}
		}
	}
}

// TestRange_RandomizedAgainstReference tests all four interval modes against a
// naive in-memory predicate over randomly generated validity windows.
func TestRange_RandomizedAgainstReference(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	rng := rand.New(rand.NewSource(7))
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	hour := time.Hour

	type window struct {
		id    string
		start time.Time
		end   *time.Time // nil = open-ended
	}
	var windows []window
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("w%02d", i)
		start := base.Add(time.Duration(rng.Intn(100)) * hour)
		w := window{id: id, start: start}
		if rng.Intn(3) > 0 {
			end := start.Add(time.Duration(1+rng.Intn(50)) * hour)
			w.end = &end
		}
		windows = append(windows, w)
		seedMemory(t, s, id, func(r *store.MemoryRecord) {
			r.ValidTime = w.start
			r.ValidUntil = w.end
		})
	}

	matches := func(w window, from, to time.Time, mode RangeMode) bool {
		switch mode {
		case RangeOverlaps:
			return w.start.Before(to) && (w.end == nil || w.end.After(from))
		case RangeContains:
			return !w.start.After(from) && (w.end == nil || !w.end.Before(to))
		case RangeStartedDuring:
			return !w.start.Before(from) && w.start.Before(to)
		case RangeEndedDuring:
			return w.end != nil && !w.end.Before(from) && w.end.Before(to)
		}
		return false
	}

	modes := []RangeMode{RangeOverlaps, RangeContains, RangeStartedDuring, RangeEndedDuring}
	for i := 0; i < 25; i++ {
		a := rng.Intn(120)
		b := a + 1 + rng.Intn(60)
		from, to := base.Add(time.Duration(a)*hour), base.Add(time.Duration(b)*hour)

		for _, mode := range modes {
			records, err := e.Range(ctx, from, to, mode, nil)
			if err != nil {
				t.Fatalf("Range(%s, [%v, %v)) failed: %v", mode, from, to, err)
			}
			got := make(map[string]bool, len(records))
			for _, r := range records {
				got[r.ID] = true
			}
			for _, w := range windows {
				if want := matches(w, from, to, mode); want != got[w.id] {
					t.Errorf("Range(%s, [%v, %v)): %s present=%v, reference says %v",
						mode, from, to, w.id, got[w.id], want)
				}
			}
		}
	}
}

// TestRange_OrderAndFilter tests valid-time ordering and in-place filtering.
func TestRange_OrderAndFilter(t *testing.T) {
	s, e := setupEngine(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedMemory(t, s, "second", func(r *store.MemoryRecord) {
		r.ValidTime = base.Add(2 * time.Hour)
		r.Tags = []string{"keep"}
	})
	seedMemory(t, s, "first", func(r *store.MemoryRecord) { r.ValidTime = base.Add(time.Hour) })

	records, err := e.Range(ctx, base, base.Add(24*time.Hour), RangeOverlaps, nil)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "first" || records[1].ID != "second" {
		t.Fatalf("Range ordering = %v", records)
	}

	records, err = e.Range(ctx, base, base.Add(24*time.Hour), RangeOverlaps, &Filter{Tags: []string{"keep"}})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "second" {
		t.Fatalf("Filtered range = %v", records)
	}
}
