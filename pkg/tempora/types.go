package tempora

import (
	"github.com/dan-solli/tempora/pkg/graph"
	"github.com/dan-solli/tempora/pkg/store"
	"github.com/dan-solli/tempora/pkg/temporal"
)

// Type re-exports for caller convenience

// MemoryRecord is re-exported from store package
type MemoryRecord = store.MemoryRecord

// MemoryType is re-exported from store package
type MemoryType = store.MemoryType

// MemoryType constants re-exported from store package
const (
	MemoryTypeFact        = store.MemoryTypeFact
	MemoryTypeDecision    = store.MemoryTypeDecision
	MemoryTypeInsight     = store.MemoryTypeInsight
	MemoryTypeCodePattern = store.MemoryTypeCodePattern
	MemoryTypeIncident    = store.MemoryTypeIncident
	MemoryTypeConvention  = store.MemoryTypeConvention
)

// Importance is re-exported from store package
type Importance = store.Importance

// Importance constants re-exported from store package
const (
	ImportanceLow      = store.ImportanceLow
	ImportanceMedium   = store.ImportanceMedium
	ImportanceHigh     = store.ImportanceHigh
	ImportanceCritical = store.ImportanceCritical
)

// Evidence is re-exported from store package
type Evidence = store.Evidence

// CausalEdge is re-exported from store package
type CausalEdge = store.CausalEdge

// MemoryEvent is re-exported from store package
type MemoryEvent = store.MemoryEvent

// Filter is re-exported from temporal package
type Filter = temporal.Filter

// AsOfResult is re-exported from temporal package
type AsOfResult = temporal.AsOfResult

// RangeMode is re-exported from temporal package
type RangeMode = temporal.RangeMode

// RangeMode constants re-exported from temporal package
const (
	RangeOverlaps      = temporal.RangeOverlaps
	RangeContains      = temporal.RangeContains
	RangeStartedDuring = temporal.RangeStartedDuring
	RangeEndedDuring   = temporal.RangeEndedDuring
)

// Direction is re-exported from graph package
type Direction = graph.Direction

// Direction constants re-exported from graph package
const (
	DirectionForward = graph.DirectionForward
	DirectionInverse = graph.DirectionInverse
)

// TraversalResult is re-exported from graph package
type TraversalResult = graph.TraversalResult
