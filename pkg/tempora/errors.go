package tempora

import (
	"errors"
	"strings"

	"github.com/dan-solli/tempora/pkg/store"
)

// Error type constants for classification
const (
	ErrTypeDatabase   = "database"
	ErrTypeValidation = "validation"
	ErrTypeCycle      = "cycle"
	ErrTypeTemporal   = "temporal"
	ErrTypeReplay     = "replay"
	ErrTypeNotFound   = "not_found"
	ErrTypeConflict   = "conflict"
	ErrTypeUnknown    = "unknown"
)

// ClassifyError inspects an error and returns its type classification.
// This enables grouping errors by category in metrics and traces.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, store.ErrCausalCycle):
		return ErrTypeCycle
	case errors.Is(err, store.ErrTemporalQuery):
		return ErrTypeTemporal
	case errors.Is(err, store.ErrReplay):
		return ErrTypeReplay
	case errors.Is(err, store.ErrMemoryNotFound):
		return ErrTypeNotFound
	case errors.Is(err, store.ErrDuplicateID), errors.Is(err, store.ErrConcurrency):
		return ErrTypeConflict
	}

	errStrLower := strings.ToLower(err.Error())

	// Check for database errors (SQLite specific)
	if strings.Contains(errStrLower, "sql") ||
		strings.Contains(errStrLower, "database") ||
		strings.Contains(errStrLower, "constraint") ||
		strings.Contains(errStrLower, "unique") && strings.Contains(errStrLower, "failed") {
		return ErrTypeDatabase
	}

	// Check for validation errors
	if strings.Contains(errStrLower, "validation") ||
		strings.Contains(errStrLower, "invalid") ||
		strings.Contains(errStrLower, "required") ||
		strings.Contains(errStrLower, "cannot be empty") ||
		strings.Contains(errStrLower, "must be") {
		return ErrTypeValidation
	}

	return ErrTypeUnknown
}
