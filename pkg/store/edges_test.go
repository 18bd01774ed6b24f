package store

import (
	"context"
	"testing"
	"time"
)

func setupEdgeStore(t *testing.T) *SQLiteStore {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"n1", "n2", "n3"} {
		if err := s.CreateMemory(ctx, testRecord(id)); err != nil {
			t.Fatalf("CreateMemory failed: %v", err)
		}
	}
	return s
}

// TestPutEdge tests edge upsert with evidence.
func TestPutEdge(t *testing.T) {
	s := setupEdgeStore(t)
	defer s.Close()

	ctx := context.Background()
	edge := &CausalEdge{
		SourceID: "n1",
		TargetID: "n2",
		Relation: "caused",
		Strength: 0.8,
		Evidence: []Evidence{{Description: "observed in incident 42", Source: "postmortem"}},
	}

	if err := s.PutEdge(ctx, edge, EventRelationshipAdded); err != nil {
		t.Fatalf("PutEdge failed: %v", err)
	}
	if edge.Evidence[0].ID == "" {
		t.Error("Expected evidence id generated")
	}

	edges, err := s.GetEdges(ctx, "n1")
	if err != nil {
		t.Fatalf("GetEdges failed: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(edges))
	}
	got := edges[0]
	if got.Relation != "caused" || got.Strength != 0.8 {
		t.Errorf("Edge = %+v", got)
	}
	if len(got.Evidence) != 1 || got.Evidence[0].Description != "observed in incident 42" {
		t.Errorf("Evidence = %v", got.Evidence)
	}

	// Upsert: reweight in place, event type strength_updated.
	edge.Strength = 0.3
	if err := s.PutEdge(ctx, edge, EventStrengthUpdated); err != nil {
		t.Fatalf("PutEdge reweight failed: %v", err)
	}
	edges, _ = s.GetEdges(ctx, "n1")
	if len(edges) != 1 || edges[0].Strength != 0.3 {
		t.Errorf("Expected single reweighted edge, got %v", edges)
	}

	events, err := s.QueryEvents(ctx, "n1", nil)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	// created + relationship_added + strength_updated
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[1].Type != EventRelationshipAdded || events[2].Type != EventStrengthUpdated {
		t.Errorf("Event types: %s, %s", events[1].Type, events[2].Type)
	}
}

// TestPutEdge_Validation tests rejected inputs.
func TestPutEdge_Validation(t *testing.T) {
	s := setupEdgeStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "n1", TargetID: "n2", Strength: 1.5}, EventRelationshipAdded); err == nil {
		t.Error("Expected error for strength > 1")
	}
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "", TargetID: "n2", Strength: 0.5}, EventRelationshipAdded); err == nil {
		t.Error("Expected error for missing source")
	}
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "n1", TargetID: "n2", Strength: 0.5}, EventArchived); err == nil {
		t.Error("Expected error for invalid event type")
	}
}

// TestRemoveEdge tests idempotent removal.
func TestRemoveEdge(t *testing.T) {
	s := setupEdgeStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "n1", TargetID: "n2", Relation: "caused", Strength: 0.9}, EventRelationshipAdded); err != nil {
		t.Fatalf("PutEdge failed: %v", err)
	}

	existed, err := s.RemoveEdge(ctx, "n1", "n2")
	if err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}
	if !existed {
		t.Fatal("Expected edge to exist")
	}

	existed, err = s.RemoveEdge(ctx, "n1", "n2")
	if err != nil {
		t.Fatalf("RemoveEdge repeat failed: %v", err)
	}
	if existed {
		t.Fatal("Expected edge already gone")
	}

	events, _ := s.QueryEvents(ctx, "n1", nil)
	// created + relationship_added + relationship_removed; the second remove
	// emits nothing.
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[2].Type != EventRelationshipRemoved {
		t.Errorf("Last event = %s", events[2].Type)
	}
}

// TestGetEdges_BothDirections tests incident edge listing.
func TestGetEdges_BothDirections(t *testing.T) {
	s := setupEdgeStore(t)
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "n1", TargetID: "n2", Relation: "caused", Strength: 0.9, CreatedAt: now}, EventRelationshipAdded); err != nil {
		t.Fatalf("PutEdge failed: %v", err)
	}
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "n3", TargetID: "n2", Relation: "enabled", Strength: 0.4, CreatedAt: now.Add(time.Millisecond)}, EventRelationshipAdded); err != nil {
		t.Fatalf("PutEdge failed: %v", err)
	}

	edges, err := s.GetEdges(ctx, "n2")
	if err != nil {
		t.Fatalf("GetEdges failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("Expected 2 incident edges, got %d", len(edges))
	}

	all, err := s.AllEdges(ctx)
	if err != nil {
		t.Fatalf("AllEdges failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 edges total, got %d", len(all))
	}
}

// TestPruneEdges tests set-oriented pruning with event emission.
func TestPruneEdges(t *testing.T) {
	s := setupEdgeStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "n1", TargetID: "n2", Relation: "caused", Strength: 0.9}, EventRelationshipAdded); err != nil {
		t.Fatalf("PutEdge failed: %v", err)
	}
	if err := s.PutEdge(ctx, &CausalEdge{SourceID: "n2", TargetID: "n3", Relation: "caused", Strength: 0.1}, EventRelationshipAdded); err != nil {
		t.Fatalf("PutEdge failed: %v", err)
	}

	removed, err := s.PruneEdges(ctx, 0.5)
	if err != nil {
		t.Fatalf("PruneEdges failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 edge pruned, got %d", removed)
	}

	all, _ := s.AllEdges(ctx)
	if len(all) != 1 || all[0].SourceID != "n1" {
		t.Errorf("Remaining edges = %v", all)
	}

	// The prune left a removal event for reconstruction.
	events, _ := s.QueryEvents(ctx, "n2", nil)
	last := events[len(events)-1]
	if last.Type != EventRelationshipRemoved {
		t.Errorf("Last n2 event = %s", last.Type)
	}
}

// TestAuditLog tests audit recording and rotation.
func TestAuditLog(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	ctx := context.Background()
	entry := &AuditEntry{Operation: "put_memory", MemoryID: "m1", Status: "ok"}
	if err := s.RecordAudit(ctx, entry); err != nil {
		t.Fatalf("RecordAudit failed: %v", err)
	}
	if entry.OpID == "" {
		t.Fatal("Expected op id generated")
	}

	removed, err := s.RotateAudit(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("RotateAudit failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 entry rotated, got %d", removed)
	}
}

// TestNewOpID tests uniqueness of generated op ids.
func TestNewOpID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewOpID()
		if seen[id] {
			t.Fatalf("Duplicate op id: %s", id)
		}
		seen[id] = true
	}
}
