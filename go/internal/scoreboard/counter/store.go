package counter

import (
	"errors"
	"maps"
)

// ErrMissingID is returned when a counter operation arrives without an identifier
var ErrMissingID = errors.New("counter id is required")

// Store holds named non-negative counters.
// It is not safe for concurrent use; the owning session serializes access.
type Store struct {
	values map[string]int64
}

// NewStore creates an empty counter store
func NewStore() *Store {
	return &Store{values: make(map[string]int64)}
}

// Increment adds amount to the counter, creating it at zero when absent.
// The result is floored at zero so a negative amount can never push it below.
func (s *Store) Increment(id string, amount int64) (map[string]int64, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	s.values[id] = floor(s.values[id] + amount)
	return s.Snapshot(), nil
}

// Subtract removes amount from the counter. Unknown ids operate against an implicit zero.
func (s *Store) Subtract(id string, amount int64) (map[string]int64, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	s.values[id] = floor(s.values[id] - amount)
	return s.Snapshot(), nil
}

// ResetAll drops every counter
func (s *Store) ResetAll() {
	clear(s.values)
}

// Get returns the current value, zero when the counter does not exist
func (s *Store) Get(id string) int64 {
	return s.values[id]
}

// Snapshot returns a copy of the mapping. The result is never nil.
func (s *Store) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(s.values))
	maps.Copy(out, s.values)
	return out
}

func floor(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
