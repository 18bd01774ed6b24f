package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollector_RecordOperation(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	// Record some operations
	collector.RecordOperation(ctx, "put_memory", "ok", 12)
	collector.RecordOperation(ctx, "put_memory", "ok", 8)
	collector.RecordOperation(ctx, "put_memory", "error", 3)
	collector.RecordOperation(ctx, "as_of", "ok", 25)

	// Verify counters
	if got := testutil.CollectAndCount(collector.operationsTotal); got != 3 {
		t.Errorf("expected 3 metric series (put_memory/ok, put_memory/error, as_of/ok), got %d", got)
	}

	// Check specific counter value
	putOK := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("put_memory", "ok"))
	if putOK != 2 {
		t.Errorf("expected 2 put_memory/ok operations, got %f", putOK)
	}

	putErr := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("put_memory", "error"))
	if putErr != 1 {
		t.Errorf("expected 1 put_memory/error operation, got %f", putErr)
	}
}

func TestMetricsCollector_RecordStage(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	// Record stage durations (in milliseconds)
	collector.RecordStage(ctx, "as_of", "candidates", 5)
	collector.RecordStage(ctx, "as_of", "replay", 40)
	collector.RecordStage(ctx, "as_of", "replay", 55)

	// Verify histogram has entries
	if got := testutil.CollectAndCount(collector.operationDuration); got != 2 {
		t.Errorf("expected 2 histogram series, got %d", got)
	}

	replayHistogram := collector.operationDuration.WithLabelValues("as_of", "replay")
	if replayHistogram == nil {
		t.Error("expected replay histogram to exist")
	}
}

func TestMetricsCollector_RecordError(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordError(ctx, "link_causal", "cycle")
	collector.RecordError(ctx, "link_causal", "cycle")
	collector.RecordError(ctx, "link_causal", "database")
	collector.RecordError(ctx, "as_of", "replay")

	cycleErrors := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("link_causal", "cycle"))
	if cycleErrors != 2 {
		t.Errorf("expected 2 cycle errors, got %f", cycleErrors)
	}

	dbErrors := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("link_causal", "database"))
	if dbErrors != 1 {
		t.Errorf("expected 1 database error, got %f", dbErrors)
	}
}

func TestMetricsCollector_SetStorageCount(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.SetStorageCount(ctx, "memories", 42)
	collector.SetStorageCount(ctx, "events", 150)
	collector.SetStorageCount(ctx, "edges", 300)

	memories := testutil.ToFloat64(collector.storageCount.WithLabelValues("memories"))
	if memories != 42 {
		t.Errorf("expected 42 memories, got %f", memories)
	}

	// Update existing gauge
	collector.SetStorageCount(ctx, "memories", 50)
	memories = testutil.ToFloat64(collector.storageCount.WithLabelValues("memories"))
	if memories != 50 {
		t.Errorf("expected 50 memories after update, got %f", memories)
	}
}

func TestMetricsCollector_Registry(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	// Generate some metrics first so they appear in the registry
	collector.RecordOperation(ctx, "get_memory", "ok", 1)
	collector.RecordStage(ctx, "get_memory", "read-row", 1)
	collector.RecordError(ctx, "get_memory", "not_found")
	collector.SetStorageCount(ctx, "memories", 10)

	registry := collector.Registry()
	if registry == nil {
		t.Fatal("expected non-nil registry")
	}

	// Verify metrics are registered
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	// We registered 4 metrics: operations_total, operation_duration, errors_total, storage_count
	expectedFamilies := 4
	if len(metricFamilies) != expectedFamilies {
		t.Errorf("expected %d metric families, got %d", expectedFamilies, len(metricFamilies))
	}
}

// TestMetricsCollector_NoPayloadLeakage verifies metrics contain no memory content
func TestMetricsCollector_NoPayloadLeakage(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "put_memory", "ok", 10)
	collector.RecordStage(ctx, "put_memory", "append-event", 5)
	collector.RecordError(ctx, "put_memory", "validation")

	metricFamilies, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	// Verify no sensitive keywords appear in any label values
	forbiddenTerms := []string{"summary", "content", "statement", "rationale", "api_key", "Bearer"}
	for _, mf := range metricFamilies {
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				value := label.GetValue()
				for _, term := range forbiddenTerms {
					if value == term {
						t.Errorf("found forbidden term %q in metric label", term)
					}
				}
			}
		}
	}
}
