package store

import "errors"

// ErrMemoryNotFound indicates that no memory was found for the given ID.
var ErrMemoryNotFound = errors.New("memory not found")

// ErrDuplicateID indicates a create collided with an existing memory ID.
var ErrDuplicateID = errors.New("memory id already exists")

// ErrCausalCycle indicates an edge insertion would close a directed cycle.
// The edge set is left untouched when this is returned.
var ErrCausalCycle = errors.New("edge would create a causal cycle")

// ErrConcurrency indicates lock contention or a poisoned write handle.
var ErrConcurrency = errors.New("concurrent access conflict")

// ErrTemporalQuery indicates a malformed time range or unknown range mode.
var ErrTemporalQuery = errors.New("invalid temporal query")

// ErrReplay indicates a single event record was corrupt or unparseable during
// replay. Reconstruction for that one memory fails; batch queries report it in
// isolation and continue with the remaining memories.
var ErrReplay = errors.New("event replay failed")
