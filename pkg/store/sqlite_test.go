package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	s, err := NewSQLiteStore(":memory:", 0)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return s
}

func testRecord(id string) *MemoryRecord {
	return &MemoryRecord{
		ID:      id,
		Type:    MemoryTypeFact,
		Content: json.RawMessage(`{"statement":"the sky is blue"}`),
		Summary: "sky color",
	}
}

// TestCreateAndGetMemory tests basic memory round-trip.
func TestCreateAndGetMemory(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()

	rec := testRecord("mem-1")
	rec.Tags = []string{"physics", "color"}
	rec.LinkedFiles = []string{"notes/sky.md"}
	rec.Confidence = 0.9

	if err := s.CreateMemory(ctx, rec); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}

	if rec.TransactionTime.IsZero() {
		t.Fatal("Expected transaction time to be set")
	}
	if rec.Revision != 1 {
		t.Errorf("Revision = %d, want 1", rec.Revision)
	}
	if rec.ContentHash == "" {
		t.Error("Expected content hash to be computed")
	}

	got, err := s.GetMemory(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.Summary != rec.Summary {
		t.Errorf("Summary = %q, want %q", got.Summary, rec.Summary)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %f, want 0.9", got.Confidence)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "physics" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if len(got.LinkedFiles) != 1 {
		t.Errorf("LinkedFiles = %v", got.LinkedFiles)
	}
	if got.ContentHash != rec.ContentHash {
		t.Errorf("ContentHash mismatch: %s vs %s", got.ContentHash, rec.ContentHash)
	}
}

// TestCreateMemory_GeneratesID tests that an empty id gets a UUID.
func TestCreateMemory_GeneratesID(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	rec := testRecord("")
	if err := s.CreateMemory(context.Background(), rec); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Expected generated id")
	}
}

// TestCreateMemory_DuplicateID tests the duplicate id error.
func TestCreateMemory_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.CreateMemory(ctx, testRecord("dup")); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}

	err := s.CreateMemory(ctx, testRecord("dup"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Expected ErrDuplicateID, got %v", err)
	}
}

// TestCreateMemory_InvalidInput tests validation failures.
func TestCreateMemory_InvalidInput(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()

	bad := testRecord("bad-type")
	bad.Type = "opinion"
	if err := s.CreateMemory(ctx, bad); err == nil {
		t.Error("Expected error for invalid type")
	}

	bad = testRecord("bad-conf")
	bad.Confidence = 1.5
	if err := s.CreateMemory(ctx, bad); err == nil {
		t.Error("Expected error for confidence > 1")
	}

	bad = testRecord("bad-window")
	vt := time.Now().UTC()
	bad.ValidTime = vt
	bad.ValidUntil = &vt
	if err := s.CreateMemory(ctx, bad); err == nil {
		t.Error("Expected error for empty validity window")
	}
}

// TestGetMemory_NotFound tests the not-found sentinel.
func TestGetMemory_NotFound(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	_, err := s.GetMemory(context.Background(), "missing")
	if !errors.Is(err, ErrMemoryNotFound) {
		t.Fatalf("Expected ErrMemoryNotFound, got %v", err)
	}
}

// TestUpdateMemory tests revision bumping and store-owned fields.
func TestUpdateMemory(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()
	rec := testRecord("upd-1")
	if err := s.CreateMemory(ctx, rec); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}
	origTxTime := rec.TransactionTime

	rec.Summary = "revised summary"
	rec.Confidence = 0.5
	if err := s.UpdateMemory(ctx, rec); err != nil {
		t.Fatalf("UpdateMemory failed: %v", err)
	}

	got, err := s.GetMemory(ctx, "upd-1")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.Revision != 2 {
		t.Errorf("Revision = %d, want 2", got.Revision)
	}
	if got.Summary != "revised summary" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if !got.TransactionTime.Equal(origTxTime) {
		t.Errorf("TransactionTime changed on update: %v vs %v", got.TransactionTime, origTxTime)
	}

	revisions, err := s.GetRevisions(ctx, "upd-1")
	if err != nil {
		t.Fatalf("GetRevisions failed: %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("Expected 2 revisions, got %d", len(revisions))
	}
	if revisions[0].Revision != 1 || revisions[1].Revision != 2 {
		t.Errorf("Revision ordering wrong: %d, %d", revisions[0].Revision, revisions[1].Revision)
	}
	if revisions[1].Summary != "revised summary" {
		t.Errorf("Revision 2 summary = %q", revisions[1].Summary)
	}
}

// TestUpdateMemory_NotFound tests updating a missing memory.
func TestUpdateMemory_NotFound(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	err := s.UpdateMemory(context.Background(), testRecord("ghost"))
	if !errors.Is(err, ErrMemoryNotFound) {
		t.Fatalf("Expected ErrMemoryNotFound, got %v", err)
	}
}

// TestArchiveUnarchive tests the soft-delete cycle and its events.
func TestArchiveUnarchive(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.CreateMemory(ctx, testRecord("arch-1")); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}

	if err := s.ArchiveMemory(ctx, "arch-1"); err != nil {
		t.Fatalf("ArchiveMemory failed: %v", err)
	}
	got, _ := s.GetMemory(ctx, "arch-1")
	if !got.Archived {
		t.Error("Expected archived flag set")
	}

	live, err := s.ListLiveMemories(ctx)
	if err != nil {
		t.Fatalf("ListLiveMemories failed: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("Archived memory still listed live: %d", len(live))
	}

	if err := s.UnarchiveMemory(ctx, "arch-1"); err != nil {
		t.Fatalf("UnarchiveMemory failed: %v", err)
	}
	got, _ = s.GetMemory(ctx, "arch-1")
	if got.Archived {
		t.Error("Expected archived flag cleared")
	}

	events, err := s.QueryEvents(ctx, "arch-1", nil)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[1].Type != EventArchived || events[2].Type != EventUnarchived {
		t.Errorf("Event types: %s, %s", events[1].Type, events[2].Type)
	}

	if err := s.ArchiveMemory(ctx, "missing"); !errors.Is(err, ErrMemoryNotFound) {
		t.Errorf("Expected ErrMemoryNotFound, got %v", err)
	}
}

// TestDeleteMemory tests hard delete with incident edge cleanup.
func TestDeleteMemory(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()
	for _, id := range []string{"del-a", "del-b", "del-c"} {
		if err := s.CreateMemory(ctx, testRecord(id)); err != nil {
			t.Fatalf("CreateMemory failed: %v", err)
		}
	}

	for _, pair := range [][2]string{{"del-a", "del-b"}, {"del-c", "del-a"}} {
		err := s.PutEdge(ctx, &CausalEdge{
			SourceID: pair[0], TargetID: pair[1], Relation: "caused", Strength: 0.8,
			CreatedAt: time.Now().UTC(),
		}, EventRelationshipAdded)
		if err != nil {
			t.Fatalf("PutEdge failed: %v", err)
		}
	}

	if err := s.DeleteMemory(ctx, "del-a"); err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}

	if _, err := s.GetMemory(ctx, "del-a"); !errors.Is(err, ErrMemoryNotFound) {
		t.Fatalf("Expected ErrMemoryNotFound after delete, got %v", err)
	}

	edges, err := s.AllEdges(ctx)
	if err != nil {
		t.Fatalf("AllEdges failed: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("Expected incident edges removed, got %d", len(edges))
	}

	// The deletion trail stays in the ledger: one relationship_removed per edge.
	removed, err := s.QueryEventsRange(ctx, time.Unix(0, 0), time.Now().UTC().Add(time.Minute), EventRelationshipRemoved)
	if err != nil {
		t.Fatalf("QueryEventsRange failed: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("Expected 2 relationship_removed events, got %d", len(removed))
	}

	if err := s.DeleteMemory(ctx, "del-a"); !errors.Is(err, ErrMemoryNotFound) {
		t.Errorf("Expected ErrMemoryNotFound on double delete, got %v", err)
	}
}

// TestTouchMemory tests access stat tracking.
func TestTouchMemory(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.CreateMemory(ctx, testRecord("touch-1")); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}

	if err := s.TouchMemory(ctx, "touch-1"); err != nil {
		t.Fatalf("TouchMemory failed: %v", err)
	}
	if err := s.TouchMemory(ctx, "touch-1"); err != nil {
		t.Fatalf("TouchMemory failed: %v", err)
	}

	got, _ := s.GetMemory(ctx, "touch-1")
	if got.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", got.AccessCount)
	}
	if got.LastAccessedAt == nil {
		t.Error("Expected LastAccessedAt set")
	}
}

// TestListMemoriesByType tests type filtering and ordering.
func TestListMemoriesByType(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()
	f1 := testRecord("f1")
	f2 := testRecord("f2")
	d1 := testRecord("d1")
	d1.Type = MemoryTypeDecision

	for _, r := range []*MemoryRecord{f1, f2, d1} {
		if err := s.CreateMemory(ctx, r); err != nil {
			t.Fatalf("CreateMemory failed: %v", err)
		}
	}

	facts, err := s.ListMemoriesByType(ctx, MemoryTypeFact)
	if err != nil {
		t.Fatalf("ListMemoriesByType failed: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("Expected 2 facts, got %d", len(facts))
	}

	decisions, err := s.ListMemoriesByType(ctx, MemoryTypeDecision)
	if err != nil {
		t.Fatalf("ListMemoriesByType failed: %v", err)
	}
	if len(decisions) != 1 || decisions[0].ID != "d1" {
		t.Errorf("Decisions = %v", decisions)
	}
}

// TestPersistence tests that data survives close/reopen.
func TestPersistence(t *testing.T) {
	dbPath := t.TempDir() + "/tempora.db"

	s, err := NewSQLiteStore(dbPath, 2)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	ctx := context.Background()
	if err := s.CreateMemory(ctx, testRecord("persist-1")); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewSQLiteStore(dbPath, 2)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetMemory(ctx, "persist-1")
	if err != nil {
		t.Fatalf("GetMemory after reopen failed: %v", err)
	}
	if got.Summary != "sky color" {
		t.Errorf("Summary = %q", got.Summary)
	}

	events, err := s2.QueryEvents(ctx, "persist-1", nil)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventCreated {
		t.Errorf("Events after reopen: %v", events)
	}
}

// TestComputeContentHash tests hash determinism.
func TestComputeContentHash(t *testing.T) {
	content := json.RawMessage(`{"a":1,"b":2}`)

	h1 := ComputeContentHash(MemoryTypeFact, content, "summary")
	h2 := ComputeContentHash(MemoryTypeFact, content, "summary")
	if h1 != h2 {
		t.Error("Hash not deterministic")
	}

	h3 := ComputeContentHash(MemoryTypeFact, content, "other summary")
	if h1 == h3 {
		t.Error("Hash ignores summary")
	}

	h4 := ComputeContentHash(MemoryTypeDecision, content, "summary")
	if h1 == h4 {
		t.Error("Hash ignores type")
	}
}
