// Package tempora provides a bitemporal, event-sourced memory system for AI
// agents: memories with independent system and valid time axes, an append-only
// event ledger, and a causal DAG relating memories to each other.
package tempora

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dan-solli/tempora/pkg/graph"
	"github.com/dan-solli/tempora/pkg/metrics"
	"github.com/dan-solli/tempora/pkg/store"
	"github.com/dan-solli/tempora/pkg/temporal"
	"github.com/dan-solli/tempora/pkg/trace"
)

// Config holds configuration for the Tempora system
type Config struct {
	// DBPath is the SQLite database path; ":memory:" for an in-process store
	DBPath string

	// ReadPoolSize is the number of read connections (default: 4).
	// Ignored for in-memory databases, which share the single writer handle.
	ReadPoolSize int

	// TraceFile enables operation trace export to the given JSON Lines file.
	// Empty disables export. Export only happens in builds with -tags tracing.
	TraceFile string
}

// Tempora is the main entry point for the memory system.
type Tempora struct {
	config   Config
	store    *store.SQLiteStore
	index    *graph.Index
	engine   *temporal.Engine
	recon    *temporal.Reconstructor
	metrics  metrics.Collector
	exporter trace.Exporter
	logger   *slog.Logger

	// causalMu serializes causal mutations so the in-memory index and the
	// durable edge collection move in lockstep.
	causalMu sync.Mutex
}

// New creates a new Tempora instance: opens the database, runs migrations and
// rebuilds the live causal graph index from the durable edge collection.
func New(cfg Config) (*Tempora, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}
	if cfg.ReadPoolSize == 0 {
		cfg.ReadPoolSize = 4
	}

	s, err := store.NewSQLiteStore(cfg.DBPath, cfg.ReadPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	t := &Tempora{
		config:  cfg,
		store:   s,
		index:   graph.New(),
		engine:  temporal.NewEngine(s),
		recon:   temporal.NewReconstructor(s),
		metrics: metrics.NewNoopCollector(),
	}

	if err := t.rebuildIndex(); err != nil {
		s.Close()
		return nil, err
	}

	if cfg.TraceFile != "" {
		exporter, err := trace.NewFileExporter(cfg.TraceFile)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open trace exporter: %w", err)
		}
		t.exporter = exporter
	}

	return t, nil
}

// rebuildIndex loads every live memory and durable edge into a fresh in-memory
// graph index. Called once at startup; the index is authoritative afterwards.
func (t *Tempora) rebuildIndex() error {
	ctx := context.Background()

	memories, err := t.store.ListLiveMemories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load memories for index: %w", err)
	}
	for _, m := range memories {
		t.index.AddNode(m.ID, m.Type, m.Summary)
	}

	edges, err := t.store.AllEdges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load edges for index: %w", err)
	}
	for _, e := range edges {
		if _, err := t.index.AddEdge(e.SourceID, e.TargetID, e.Relation, e.Strength); err != nil {
			// The durable collection is DAG-invariant; a cycle here means the
			// database was edited out-of-band. Surface it instead of serving a
			// corrupt index.
			return fmt.Errorf("failed to rebuild causal index: %w", err)
		}
	}

	t.logDebug("causal index rebuilt", "nodes", t.index.NodeCount(), "edges", t.index.EdgeCount())
	return nil
}

// WithLogger sets a structured logger and returns the receiver for chaining.
// Passing nil disables logging. Safe to call at any time.
func (t *Tempora) WithLogger(logger *slog.Logger) *Tempora {
	t.logger = logger
	return t
}

// WithMetrics sets a metrics collector and returns the receiver for chaining.
func (t *Tempora) WithMetrics(collector metrics.Collector) *Tempora {
	if collector != nil {
		t.metrics = collector
	}
	return t
}

// Close releases the database handles and flushes the trace exporter.
func (t *Tempora) Close() error {
	if t.exporter != nil {
		if err := t.exporter.Close(); err != nil {
			t.logWarn("failed to close trace exporter", "error", err)
		}
	}
	return t.store.Close()
}

// Store exposes the underlying storage boundary for advanced callers
// (event log inspection, revision history, audit queries).
func (t *Tempora) Store() store.Store {
	return t.store
}

// logDebug logs at debug level when a logger is set.
func (t *Tempora) logDebug(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Debug(msg, args...)
	}
}

// logInfo logs at info level when a logger is set.
func (t *Tempora) logInfo(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Info(msg, args...)
	}
}

// logWarn logs at warn level when a logger is set.
func (t *Tempora) logWarn(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Warn(msg, args...)
	}
}
