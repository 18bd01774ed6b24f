package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore implements the full Store boundary using SQLite.
//
// Durable state follows single-writer/multi-reader discipline: one exclusive
// write handle (MaxOpenConns=1) serializes every mutating operation, and a
// pool of read-only handles serves concurrent queries round-robin. When no
// reader pool exists (in-memory mode), reads fall back to the writer.
type SQLiteStore struct {
	writer  *sql.DB
	readers []*sql.DB
	rr      atomic.Uint64
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// The dbPath can be a file path or ":memory:" for an in-memory database.
// readPoolSize read-only handles are opened for file-backed databases;
// in-memory databases always use the single writer handle for reads.
func NewSQLiteStore(dbPath string, readPoolSize int) (*SQLiteStore, error) {
	inMemory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")

	dsn := dbPath
	if !inMemory {
		dsn = sqliteDSN(dbPath)
	}

	writer, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Event ids are assigned by this one handle; a second concurrent writer
	// would break strict ordering.
	writer.SetMaxOpenConns(1)

	s := &SQLiteStore{writer: writer}

	if err := s.initSchema(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if !inMemory && readPoolSize > 0 {
		for i := 0; i < readPoolSize; i++ {
			r, err := sql.Open(sqliteDriverName, dsn)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to open read handle: %w", err)
			}
			r.SetMaxOpenConns(1)
			s.readers = append(s.readers, r)
		}
	}

	return s, nil
}

// readDB selects a read handle round-robin, falling back to the writer when
// no reader pool exists.
func (s *SQLiteStore) readDB() *sql.DB {
	if len(s.readers) == 0 {
		return s.writer
	}
	n := s.rr.Add(1)
	return s.readers[int(n)%len(s.readers)]
}

// initSchema creates the database schema if it doesn't exist.
// Also performs schema migrations for new columns.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		content TEXT,
		summary TEXT NOT NULL,
		transaction_time DATETIME NOT NULL,
		valid_time DATETIME NOT NULL,
		valid_until DATETIME,
		confidence REAL NOT NULL DEFAULT 1.0,
		importance INTEGER NOT NULL DEFAULT 1,
		access_count INTEGER NOT NULL DEFAULT 0,
		last_accessed_at DATETIME,
		tags_json TEXT,
		archived INTEGER NOT NULL DEFAULT 0,
		supersedes TEXT,
		revision INTEGER NOT NULL DEFAULT 1,
		content_hash TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_valid ON memories(valid_time, valid_until);
	CREATE INDEX IF NOT EXISTS idx_memories_txtime ON memories(transaction_time);

	CREATE TABLE IF NOT EXISTS memory_events (
		event_id INTEGER PRIMARY KEY AUTOINCREMENT,
		memory_id TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		event_type TEXT NOT NULL,
		delta TEXT,
		actor_kind TEXT NOT NULL DEFAULT 'system',
		actor_id TEXT,
		caused_by_json TEXT,
		schema_version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_events_memory ON memory_events(memory_id, event_id);
	CREATE INDEX IF NOT EXISTS idx_events_recorded ON memory_events(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_events_type ON memory_events(event_type, recorded_at);

	CREATE TABLE IF NOT EXISTS memory_events_archive (
		event_id INTEGER PRIMARY KEY,
		memory_id TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		event_type TEXT NOT NULL,
		delta TEXT,
		actor_kind TEXT NOT NULL DEFAULT 'system',
		actor_id TEXT,
		caused_by_json TEXT,
		schema_version INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS causal_edges (
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		relation TEXT NOT NULL,
		strength REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (source_id, target_id)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_target ON causal_edges(target_id);

	CREATE TABLE IF NOT EXISTS edge_evidence (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		description TEXT NOT NULL,
		evidence_source TEXT,
		recorded_at DATETIME NOT NULL,
		FOREIGN KEY (source_id, target_id) REFERENCES causal_edges(source_id, target_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_evidence_edge ON edge_evidence(source_id, target_id);

	CREATE TABLE IF NOT EXISTS memory_revisions (
		memory_id TEXT NOT NULL,
		revision INTEGER NOT NULL,
		summary TEXT NOT NULL,
		confidence REAL NOT NULL,
		content_hash TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		PRIMARY KEY (memory_id, revision)
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		op_id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		memory_id TEXT,
		status TEXT NOT NULL,
		detail TEXT,
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_recorded ON audit_log(recorded_at);
	`

	_, err := s.writer.Exec(schema)
	if err != nil {
		return err
	}

	return s.migrateSchema()
}

// migrateSchema adds new columns to existing tables if they don't exist.
func (s *SQLiteStore) migrateSchema() error {
	if !s.columnExists("memories", "superseded_by") {
		_, err := s.writer.Exec("ALTER TABLE memories ADD COLUMN superseded_by TEXT")
		if err != nil {
			return fmt.Errorf("failed to add superseded_by column: %w", err)
		}
	}

	if !s.columnExists("memories", "linked_files_json") {
		_, err := s.writer.Exec("ALTER TABLE memories ADD COLUMN linked_files_json TEXT")
		if err != nil {
			return fmt.Errorf("failed to add linked_files_json column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table.
func (s *SQLiteStore) columnExists(tableName, columnName string) bool {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := s.writer.Query(query)
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false
		}

		if name == columnName {
			return true
		}
	}

	return false
}

const memoryColumns = `id, type, content, summary, transaction_time, valid_time, valid_until,
	confidence, importance, access_count, last_accessed_at, tags_json, linked_files_json,
	archived, supersedes, superseded_by, revision, content_hash`

// CreateMemory inserts a new memory record and emits a "created" event in the
// same transaction. The event carries wall-clock emission time, which may be
// later than the record's TransactionTime/ValidTime for backfilled data.
func (s *SQLiteStore) CreateMemory(ctx context.Context, rec *MemoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if !ValidMemoryType(rec.Type) {
		return fmt.Errorf("invalid memory type %q", rec.Type)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0, 1], got %f", rec.Confidence)
	}

	now := time.Now().UTC()
	if rec.TransactionTime.IsZero() {
		rec.TransactionTime = now
	} else {
		rec.TransactionTime = rec.TransactionTime.UTC()
	}
	if rec.ValidTime.IsZero() {
		rec.ValidTime = rec.TransactionTime
	} else {
		rec.ValidTime = rec.ValidTime.UTC()
	}
	if rec.ValidUntil != nil {
		u := rec.ValidUntil.UTC()
		rec.ValidUntil = &u
		if !u.After(rec.ValidTime) {
			return fmt.Errorf("valid_until must be after valid_time")
		}
	}
	if rec.Revision == 0 {
		rec.Revision = 1
	}
	rec.ContentHash = ComputeContentHash(rec.Type, rec.Content, rec.Summary)

	tagsJSON, filesJSON, err := marshalStringSets(rec.Tags, rec.LinkedFiles)
	if err != nil {
		return err
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memories WHERE id = ?", rec.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check existing memory: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("create memory %s: %w", rec.ID, ErrDuplicateID)
	}

	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		rec.ID, string(rec.Type), nullableRaw(rec.Content), rec.Summary,
		rec.TransactionTime, rec.ValidTime, rec.ValidUntil,
		rec.Confidence, int(rec.Importance), rec.AccessCount, rec.LastAccessedAt,
		tagsJSON, filesJSON, rec.Archived, rec.Supersedes, rec.SupersededBy,
		rec.Revision, rec.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	delta, err := json.Marshal(CreatedDelta{Record: *rec})
	if err != nil {
		return fmt.Errorf("failed to marshal created delta: %w", err)
	}

	// The event record is load-bearing for correctness: an append failure
	// fails the whole create.
	if _, err := appendEventTx(ctx, tx, &MemoryEvent{
		MemoryID:   rec.ID,
		RecordedAt: now,
		Type:       EventCreated,
		Delta:      delta,
		ActorKind:  ActorSystem,
	}); err != nil {
		return err
	}

	if err := insertRevisionTx(ctx, tx, rec, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateMemory replaces the whole row, bumps the per-memory revision counter
// and emits a "content_updated" event plus a revision-history row, all in one
// transaction.
func (s *SQLiteStore) UpdateMemory(ctx context.Context, rec *MemoryRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("memory id is required")
	}
	if !ValidMemoryType(rec.Type) {
		return fmt.Errorf("invalid memory type %q", rec.Type)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0, 1], got %f", rec.Confidence)
	}

	now := time.Now().UTC()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var curRevision, curAccessCount int
	var curTxTime time.Time
	var curLastAccessed *time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT revision, transaction_time, access_count, last_accessed_at FROM memories WHERE id = ?",
		rec.ID).Scan(&curRevision, &curTxTime, &curAccessCount, &curLastAccessed)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update memory %s: %w", rec.ID, ErrMemoryNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get memory revision: %w", err)
	}

	// Whole-row replace, but transaction time and access statistics stay
	// store-owned.
	rec.Revision = curRevision + 1
	rec.TransactionTime = curTxTime.UTC()
	rec.AccessCount = curAccessCount
	rec.LastAccessedAt = curLastAccessed
	if rec.ValidTime.IsZero() {
		rec.ValidTime = rec.TransactionTime
	} else {
		rec.ValidTime = rec.ValidTime.UTC()
	}
	if rec.ValidUntil != nil {
		u := rec.ValidUntil.UTC()
		rec.ValidUntil = &u
	}
	rec.ContentHash = ComputeContentHash(rec.Type, rec.Content, rec.Summary)

	tagsJSON, filesJSON, err := marshalStringSets(rec.Tags, rec.LinkedFiles)
	if err != nil {
		return err
	}

	query := `
		UPDATE memories
		SET type = ?, content = ?, summary = ?, valid_time = ?, valid_until = ?,
			confidence = ?, importance = ?, tags_json = ?, linked_files_json = ?,
			archived = ?, supersedes = ?, superseded_by = ?, revision = ?, content_hash = ?
		WHERE id = ?
	`

	_, err = tx.ExecContext(ctx, query,
		string(rec.Type), nullableRaw(rec.Content), rec.Summary,
		rec.ValidTime, rec.ValidUntil, rec.Confidence, int(rec.Importance),
		tagsJSON, filesJSON, rec.Archived, rec.Supersedes, rec.SupersededBy,
		rec.Revision, rec.ContentHash, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}

	delta, err := json.Marshal(ContentUpdatedDelta{
		Summary:     rec.Summary,
		Confidence:  rec.Confidence,
		Revision:    rec.Revision,
		Content:     rec.Content,
		ContentHash: rec.ContentHash,
		ValidTime:   rec.ValidTime,
		ValidUntil:  rec.ValidUntil,
		Tags:        rec.Tags,
		LinkedFiles: rec.LinkedFiles,
		Importance:  rec.Importance,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal content_updated delta: %w", err)
	}

	if _, err := appendEventTx(ctx, tx, &MemoryEvent{
		MemoryID:   rec.ID,
		RecordedAt: now,
		Type:       EventContentUpdated,
		Delta:      delta,
		ActorKind:  ActorSystem,
	}); err != nil {
		return err
	}

	if err := insertRevisionTx(ctx, tx, rec, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetMemory retrieves a memory by ID.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*MemoryRecord, error) {
	query := "SELECT " + memoryColumns + " FROM memories WHERE id = ?"
	rec, err := scanMemory(s.readDB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get memory %s: %w", id, ErrMemoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return rec, nil
}

// ListMemoriesByType returns all memories of one type, ordered by
// transaction_time then id for deterministic output.
func (s *SQLiteStore) ListMemoriesByType(ctx context.Context, memType MemoryType) ([]*MemoryRecord, error) {
	query := "SELECT " + memoryColumns + " FROM memories WHERE type = ? ORDER BY transaction_time, id"
	return s.queryMemories(ctx, query, string(memType))
}

// ListLiveMemories returns all non-archived memories, ordered by
// transaction_time then id. This is the reference result set the temporal
// engine's as-of-now query must match exactly.
func (s *SQLiteStore) ListLiveMemories(ctx context.Context) ([]*MemoryRecord, error) {
	query := "SELECT " + memoryColumns + " FROM memories WHERE archived = 0 ORDER BY transaction_time, id"
	return s.queryMemories(ctx, query)
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...interface{}) ([]*MemoryRecord, error) {
	rows, err := s.readDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var records []*MemoryRecord
	for rows.Next() {
		rec, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}

	return records, nil
}

// ArchiveMemory flips the archived flag and emits an "archived" event.
// The row remains queryable; archiving is reversible.
func (s *SQLiteStore) ArchiveMemory(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, true, EventArchived)
}

// UnarchiveMemory reverses ArchiveMemory and emits an "unarchived" event.
func (s *SQLiteStore) UnarchiveMemory(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, false, EventUnarchived)
}

func (s *SQLiteStore) setArchived(ctx context.Context, id string, archived bool, evType EventType) error {
	now := time.Now().UTC()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE memories SET archived = ? WHERE id = ?", archived, id)
	if err != nil {
		return fmt.Errorf("failed to update archived flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("archive memory %s: %w", id, ErrMemoryNotFound)
	}

	if _, err := appendEventTx(ctx, tx, &MemoryEvent{
		MemoryID:   id,
		RecordedAt: now,
		Type:       evType,
		ActorKind:  ActorSystem,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteMemory hard-deletes a memory. A relationship_removed event is emitted
// for every incident causal edge before the rows disappear, keeping the causal
// audit trail intact. Everything happens in one transaction.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	now := time.Now().UTC()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check memory: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("delete memory %s: %w", id, ErrMemoryNotFound)
	}

	incident, err := collectEdgesTx(ctx, tx,
		"SELECT source_id, target_id, strength FROM causal_edges WHERE source_id = ? OR target_id = ? ORDER BY created_at, source_id, target_id",
		id, id)
	if err != nil {
		return err
	}

	for _, e := range incident {
		delta, err := json.Marshal(RelationshipDelta{
			SourceID: e.source,
			TargetID: e.target,
			Strength: e.strength,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal relationship delta: %w", err)
		}
		if _, err := appendEventTx(ctx, tx, &MemoryEvent{
			MemoryID:   e.source,
			RecordedAt: now,
			Type:       EventRelationshipRemoved,
			Delta:      delta,
			ActorKind:  ActorSystem,
		}); err != nil {
			return err
		}
	}

	// Evidence rows cascade off the edge delete.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM causal_edges WHERE source_id = ? OR target_id = ?", id, id); err != nil {
		return fmt.Errorf("failed to delete incident edges: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// TouchMemory increments access tracking for a memory. This is auxiliary
// bookkeeping: callers may log failures without aborting their primary read.
func (s *SQLiteStore) TouchMemory(ctx context.Context, id string) error {
	result, err := s.writer.ExecContext(ctx,
		"UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?",
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update memory access: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("touch memory %s: %w", id, ErrMemoryNotFound)
	}
	return nil
}

// Close releases all database handles.
func (s *SQLiteStore) Close() error {
	var firstErr error
	for _, r := range s.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanMemory.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*MemoryRecord, error) {
	var rec MemoryRecord
	var memType string
	var content sql.NullString
	var importance int
	var tagsJSON, filesJSON sql.NullString

	err := row.Scan(
		&rec.ID, &memType, &content, &rec.Summary,
		&rec.TransactionTime, &rec.ValidTime, &rec.ValidUntil,
		&rec.Confidence, &importance, &rec.AccessCount, &rec.LastAccessedAt,
		&tagsJSON, &filesJSON, &rec.Archived, &rec.Supersedes, &rec.SupersededBy,
		&rec.Revision, &rec.ContentHash,
	)
	if err != nil {
		return nil, err
	}

	rec.Type = MemoryType(memType)
	rec.Importance = Importance(importance)
	if content.Valid && content.String != "" {
		rec.Content = json.RawMessage(content.String)
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &rec.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if filesJSON.Valid && filesJSON.String != "" {
		if err := json.Unmarshal([]byte(filesJSON.String), &rec.LinkedFiles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal linked files: %w", err)
		}
	}

	rec.TransactionTime = rec.TransactionTime.UTC()
	rec.ValidTime = rec.ValidTime.UTC()
	if rec.ValidUntil != nil {
		u := rec.ValidUntil.UTC()
		rec.ValidUntil = &u
	}
	if rec.LastAccessedAt != nil {
		a := rec.LastAccessedAt.UTC()
		rec.LastAccessedAt = &a
	}

	return &rec, nil
}

func marshalStringSets(tags, files []string) (tagsJSON, filesJSON *string, err error) {
	if len(tags) > 0 {
		b, err := json.Marshal(tags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal tags: %w", err)
		}
		s := string(b)
		tagsJSON = &s
	}
	if len(files) > 0 {
		b, err := json.Marshal(files)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal linked files: %w", err)
		}
		s := string(b)
		filesJSON = &s
	}
	return tagsJSON, filesJSON, nil
}

func nullableRaw(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func insertRevisionTx(ctx context.Context, tx *sql.Tx, rec *MemoryRecord, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO memory_revisions (memory_id, revision, summary, confidence, content_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Revision, rec.Summary, rec.Confidence, rec.ContentHash, now)
	if err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}
	return nil
}

type edgeRow struct {
	source, target string
	strength       float64
}

func collectEdgesTx(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) ([]edgeRow, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []edgeRow
	for rows.Next() {
		var e edgeRow
		if err := rows.Scan(&e.source, &e.target, &e.strength); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return edges, nil
}

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)
