package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PutEdge upserts a causal edge (with evidence) and appends a
// relationship_added or strength_updated event in the same transaction.
// Cycle enforcement is the live graph index's job; callers must have passed
// the DAG check before reaching durable state.
func (s *SQLiteStore) PutEdge(ctx context.Context, edge *CausalEdge, evType EventType) error {
	if edge.SourceID == "" || edge.TargetID == "" {
		return fmt.Errorf("edge requires source and target ids")
	}
	if edge.Strength < 0 || edge.Strength > 1 {
		return fmt.Errorf("strength must be in [0, 1], got %f", edge.Strength)
	}
	if evType != EventRelationshipAdded && evType != EventStrengthUpdated {
		return fmt.Errorf("invalid edge event type %q", evType)
	}

	now := time.Now().UTC()
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = now
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO causal_edges (source_id, target_id, relation, strength, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id) DO UPDATE SET relation = excluded.relation, strength = excluded.strength`,
		edge.SourceID, edge.TargetID, edge.Relation, edge.Strength, edge.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}

	for i := range edge.Evidence {
		ev := &edge.Evidence[i]
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO edge_evidence (id, source_id, target_id, description, evidence_source, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, edge.SourceID, edge.TargetID, ev.Description, nullableString(ev.Source), ev.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert evidence: %w", err)
		}
	}

	delta, err := json.Marshal(RelationshipDelta{
		SourceID: edge.SourceID,
		TargetID: edge.TargetID,
		Relation: edge.Relation,
		Strength: edge.Strength,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal relationship delta: %w", err)
	}

	if _, err := appendEventTx(ctx, tx, &MemoryEvent{
		MemoryID:   edge.SourceID,
		RecordedAt: now,
		Type:       evType,
		Delta:      delta,
		ActorKind:  ActorSystem,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RemoveEdge deletes an edge and its evidence, appending a
// relationship_removed event in the same transaction. Returns false without
// emitting anything if the edge did not exist.
func (s *SQLiteStore) RemoveEdge(ctx context.Context, sourceID, targetID string) (bool, error) {
	now := time.Now().UTC()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var strength float64
	err = tx.QueryRowContext(ctx,
		"SELECT strength FROM causal_edges WHERE source_id = ? AND target_id = ?",
		sourceID, targetID).Scan(&strength)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check edge: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM causal_edges WHERE source_id = ? AND target_id = ?",
		sourceID, targetID); err != nil {
		return false, fmt.Errorf("failed to delete edge: %w", err)
	}

	delta, err := json.Marshal(RelationshipDelta{
		SourceID: sourceID,
		TargetID: targetID,
		Strength: strength,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal relationship delta: %w", err)
	}

	if _, err := appendEventTx(ctx, tx, &MemoryEvent{
		MemoryID:   sourceID,
		RecordedAt: now,
		Type:       EventRelationshipRemoved,
		Delta:      delta,
		ActorKind:  ActorSystem,
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// GetEdges returns all durable edges incident to a memory (both directions),
// evidence included.
func (s *SQLiteStore) GetEdges(ctx context.Context, memoryID string) ([]*CausalEdge, error) {
	return s.queryEdges(ctx, `
		SELECT source_id, target_id, relation, strength, created_at
		FROM causal_edges
		WHERE source_id = ? OR target_id = ?
		ORDER BY created_at, source_id, target_id`, memoryID, memoryID)
}

// AllEdges returns every durable edge ascending by creation order. Used to
// rebuild the live graph index at startup.
func (s *SQLiteStore) AllEdges(ctx context.Context) ([]*CausalEdge, error) {
	return s.queryEdges(ctx, `
		SELECT source_id, target_id, relation, strength, created_at
		FROM causal_edges
		ORDER BY created_at, source_id, target_id`)
}

func (s *SQLiteStore) queryEdges(ctx context.Context, query string, args ...interface{}) ([]*CausalEdge, error) {
	rows, err := s.readDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []*CausalEdge
	for rows.Next() {
		var edge CausalEdge
		if err := rows.Scan(&edge.SourceID, &edge.TargetID, &edge.Relation, &edge.Strength, &edge.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge.CreatedAt = edge.CreatedAt.UTC()
		edges = append(edges, &edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	for _, edge := range edges {
		evidence, err := s.edgeEvidence(ctx, edge.SourceID, edge.TargetID)
		if err != nil {
			return nil, err
		}
		edge.Evidence = evidence
	}

	return edges, nil
}

func (s *SQLiteStore) edgeEvidence(ctx context.Context, sourceID, targetID string) ([]Evidence, error) {
	rows, err := s.readDB().QueryContext(ctx, `
		SELECT id, description, evidence_source, recorded_at
		FROM edge_evidence
		WHERE source_id = ? AND target_id = ?
		ORDER BY recorded_at, id`, sourceID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	defer rows.Close()

	var evidence []Evidence
	for rows.Next() {
		var ev Evidence
		var source *string
		if err := rows.Scan(&ev.ID, &ev.Description, &source, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		if source != nil {
			ev.Source = *source
		}
		ev.Timestamp = ev.Timestamp.UTC()
		evidence = append(evidence, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence: %w", err)
	}

	return evidence, nil
}

// PruneEdges deletes all edges with strength below minStrength, emitting a
// relationship_removed event per pruned edge so historical reconstruction
// stays accurate, then removes the rows in one set-oriented statement.
func (s *SQLiteStore) PruneEdges(ctx context.Context, minStrength float64) (int64, error) {
	now := time.Now().UTC()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doomed, err := collectEdgesTx(ctx, tx,
		"SELECT source_id, target_id, strength FROM causal_edges WHERE strength < ? ORDER BY created_at, source_id, target_id",
		minStrength)
	if err != nil {
		return 0, err
	}

	for _, e := range doomed {
		delta, err := json.Marshal(RelationshipDelta{
			SourceID: e.source,
			TargetID: e.target,
			Strength: e.strength,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to marshal relationship delta: %w", err)
		}
		if _, err := appendEventTx(ctx, tx, &MemoryEvent{
			MemoryID:   e.source,
			RecordedAt: now,
			Type:       EventRelationshipRemoved,
			Delta:      delta,
			ActorKind:  ActorSystem,
		}); err != nil {
			return 0, err
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM causal_edges WHERE strength < ?", minStrength)
	if err != nil {
		return 0, fmt.Errorf("failed to prune edges: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return removed, nil
}
