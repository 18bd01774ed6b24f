package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// appendEventTx appends one event to the ledger inside an open transaction.
// The event_id comes from the AUTOINCREMENT sequence, so ids are assigned by
// the single writer in strictly increasing order and never reused.
func appendEventTx(ctx context.Context, tx *sql.Tx, ev *MemoryEvent) (int64, error) {
	if ev.SchemaVersion == 0 {
		ev.SchemaVersion = EventSchemaVersion
	}
	if ev.ActorKind == "" {
		ev.ActorKind = ActorSystem
	}

	var causedByJSON *string
	if len(ev.CausedBy) > 0 {
		b, err := json.Marshal(ev.CausedBy)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal caused_by: %w", err)
		}
		s := string(b)
		causedByJSON = &s
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO memory_events (memory_id, recorded_at, event_type, delta, actor_kind, actor_id, caused_by_json, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.MemoryID, ev.RecordedAt.UTC(), string(ev.Type), nullableRaw(ev.Delta),
		string(ev.ActorKind), nullableString(ev.ActorID), causedByJSON, ev.SchemaVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get event id: %w", err)
	}
	ev.EventID = id
	return id, nil
}

const eventColumns = "event_id, memory_id, recorded_at, event_type, delta, actor_kind, actor_id, caused_by_json, schema_version"

// liveAndArchivedEvents reads across the live log and the frozen archive, so
// replay and reconstruction stay correct after retention moves old events out
// of the live table.
const liveAndArchivedEvents = `(
	SELECT ` + eventColumns + ` FROM memory_events
	UNION ALL
	SELECT ` + eventColumns + ` FROM memory_events_archive
)`

// QueryEvents returns all events for a memory ascending by event_id,
// optionally bounded by a recorded_at ceiling (inclusive). Archived events
// are included: the frozen table is still readable, just no longer appended to.
func (s *SQLiteStore) QueryEvents(ctx context.Context, memoryID string, before *time.Time) ([]*MemoryEvent, error) {
	query := "SELECT " + eventColumns + " FROM " + liveAndArchivedEvents + " WHERE memory_id = ?"
	args := []interface{}{memoryID}

	if before != nil {
		query += " AND recorded_at <= ?"
		args = append(args, before.UTC())
	}
	query += " ORDER BY event_id"

	return s.queryEvents(ctx, query, args...)
}

// QueryEventsRange returns events across all memories with recorded_at in
// [from, to], ascending by event_id, optionally filtered to a set of event
// types. Used by causal reconstruction; spans live and archived events.
func (s *SQLiteStore) QueryEventsRange(ctx context.Context, from, to time.Time, types ...EventType) ([]*MemoryEvent, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range [%s, %s]: %w", from, to, ErrTemporalQuery)
	}

	query := "SELECT " + eventColumns + " FROM " + liveAndArchivedEvents + " WHERE recorded_at >= ? AND recorded_at <= ?"
	args := []interface{}{from.UTC(), to.UTC()}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += fmt.Sprintf(" AND event_type IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY event_id"

	return s.queryEvents(ctx, query, args...)
}

// ModifiedBetween returns the IDs of memories with any event recorded in
// (a, b], without replaying anything. Spans live and archived events so the
// answer stays stable across retention runs.
func (s *SQLiteStore) ModifiedBetween(ctx context.Context, a, b time.Time) ([]string, error) {
	if b.Before(a) {
		return nil, fmt.Errorf("range (%s, %s]: %w", a, b, ErrTemporalQuery)
	}

	rows, err := s.readDB().QueryContext(ctx,
		"SELECT DISTINCT memory_id FROM "+liveAndArchivedEvents+" WHERE recorded_at > ? AND recorded_at <= ? ORDER BY memory_id",
		a.UTC(), b.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query modified memories: %w", err)
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

// ArchiveEvents moves events with recorded_at < cutoff AND event_id <=
// verifiedSnapshotEventID into the frozen archive table, then deletes them
// from the live log. Two set-oriented statements in one transaction; events
// newer than the verified snapshot are never touched, so every still-open
// historical query window stays reconstructible.
func (s *SQLiteStore) ArchiveEvents(ctx context.Context, cutoff time.Time, verifiedSnapshotEventID int64) (int64, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO memory_events_archive (event_id, memory_id, recorded_at, event_type, delta, actor_kind, actor_id, caused_by_json, schema_version)
		SELECT event_id, memory_id, recorded_at, event_type, delta, actor_kind, actor_id, caused_by_json, schema_version
		FROM memory_events
		WHERE recorded_at < ? AND event_id <= ?`,
		cutoff.UTC(), verifiedSnapshotEventID)
	if err != nil {
		return 0, fmt.Errorf("failed to copy events to archive: %w", err)
	}

	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM memory_events WHERE recorded_at < ? AND event_id <= ?",
		cutoff.UTC(), verifiedSnapshotEventID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete archived events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return moved, nil
}

// CountEvents returns the number of events in the live log.
func (s *SQLiteStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.readDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM memory_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// MaxEventID returns the highest assigned event id, or 0 for an empty log.
func (s *SQLiteStore) MaxEventID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.readDB().QueryRowContext(ctx, "SELECT MAX(event_id) FROM memory_events").Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max event id: %w", err)
	}
	return max.Int64, nil
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*MemoryEvent, error) {
	rows, err := s.readDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*MemoryEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func scanEvent(row rowScanner) (*MemoryEvent, error) {
	var ev MemoryEvent
	var evType, actorKind string
	var delta, actorID, causedByJSON sql.NullString

	err := row.Scan(
		&ev.EventID, &ev.MemoryID, &ev.RecordedAt, &evType, &delta,
		&actorKind, &actorID, &causedByJSON, &ev.SchemaVersion,
	)
	if err != nil {
		return nil, err
	}

	ev.Type = EventType(evType)
	ev.ActorKind = ActorKind(actorKind)
	ev.RecordedAt = ev.RecordedAt.UTC()
	if delta.Valid && delta.String != "" {
		ev.Delta = json.RawMessage(delta.String)
	}
	if actorID.Valid {
		ev.ActorID = actorID.String
	}
	if causedByJSON.Valid && causedByJSON.String != "" {
		if err := json.Unmarshal([]byte(causedByJSON.String), &ev.CausedBy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal caused_by: %w", err)
		}
	}

	return &ev, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
