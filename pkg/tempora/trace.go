package tempora

import (
	"context"
	"time"

	"github.com/dan-solli/tempora/pkg/store"
	"github.com/dan-solli/tempora/pkg/trace"
)

// OperationTrace captures timing and performance data for one operation.
// This structure is stable and versioned to support downstream consumers.
type OperationTrace struct {
	// Spans contains timing data for each stage of the operation
	Spans []Span `json:"spans"`

	// TotalDurationMs is the total elapsed time for the operation in milliseconds
	TotalDurationMs int64 `json:"totalDurationMs"`
}

// Span represents a single timed stage within an operation.
// Stage names are stable and documented:
//   - "write-row": current-state row write
//   - "append-event": ledger append
//   - "dag-check": cycle check plus index insertion
//   - "write-edge": durable edge write
//   - "candidates": bitemporal candidate query
//   - "replay": event replay of dirty memories
//   - "rebuild-graph": historical graph fold
//   - "traverse": graph traversal
type Span struct {
	// Name identifies the operation stage (see Span documentation for stable names)
	Name string `json:"name"`

	// DurationMs is the elapsed time for this span in milliseconds
	DurationMs int64 `json:"durationMs"`

	// OK indicates whether the span completed successfully
	OK bool `json:"ok"`

	// Error contains error message if OK is false (optional)
	Error string `json:"error,omitempty"`

	// Counters provides additional metrics for the span (optional)
	// Example keys: "eventCount", "replayedMemories", "visitedNodes"
	Counters map[string]int64 `json:"counters,omitempty"`
}

// newTrace creates a new OperationTrace with empty spans
func newTrace() *OperationTrace {
	return &OperationTrace{
		Spans: make([]Span, 0),
	}
}

// addSpan appends a completed span to the trace
func (t *OperationTrace) addSpan(span Span) {
	t.Spans = append(t.Spans, span)
	t.TotalDurationMs += span.DurationMs
}

// spanTimer is a helper for measuring span duration
type spanTimer struct {
	name    string
	start   int64 // Unix time in milliseconds
	trace   *OperationTrace
	enabled bool
}

// newSpanTimer creates a timer for a named span
func newSpanTimer(name string, trace *OperationTrace, enabled bool) *spanTimer {
	if !enabled || trace == nil {
		return &spanTimer{enabled: false}
	}
	return &spanTimer{
		name:    name,
		start:   timeNowMs(),
		trace:   trace,
		enabled: true,
	}
}

// finish completes the span and records it to the trace
func (st *spanTimer) finish(ok bool, err error, counters map[string]int64) {
	if !st.enabled {
		return
	}

	duration := timeNowMs() - st.start
	span := Span{
		Name:       st.name,
		DurationMs: duration,
		OK:         ok,
		Counters:   counters,
	}
	if err != nil {
		span.Error = err.Error()
	}
	st.trace.addSpan(span)
}

// timeNowMs returns current Unix time in milliseconds
func timeNowMs() int64 {
	return time.Now().UnixMilli()
}

// tracing reports whether operation traces should be collected at all.
func (t *Tempora) tracing() bool {
	return t.exporter != nil
}

// exportTrace converts a completed OperationTrace into a sanitized export
// record and hands it to the exporter. Export failures are logged, never
// returned: tracing must not fail operations.
func (t *Tempora) exportTrace(ctx context.Context, operation string, start time.Time, opTrace *OperationTrace, err error) {
	if t.exporter == nil || opTrace == nil {
		return
	}

	status := "success"
	errType := ""
	if err != nil {
		status = "error"
		errType = ClassifyError(err)
	}

	record := &trace.TraceRecord{
		Timestamp:   start,
		OperationID: store.NewOpID(),
		Operation:   operation,
		DurationMs:  time.Since(start).Milliseconds(),
		Status:      status,
		ErrorType:   errType,
	}
	for _, span := range opTrace.Spans {
		rec := trace.SpanRecord{
			Name:       span.Name,
			DurationMs: span.DurationMs,
			OK:         span.OK,
			Counters:   span.Counters,
		}
		if !span.OK {
			rec.ErrorType = ClassifyError(err)
		}
		record.Spans = append(record.Spans, rec)
	}

	if exportErr := t.exporter.Export(ctx, record); exportErr != nil {
		t.logWarn("failed to export trace", "operation", operation, "error", exportErr)
	}
}
