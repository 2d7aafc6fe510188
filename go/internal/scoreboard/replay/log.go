package replay

import (
	"encoding/json"
	"fmt"
	"slices"
)

// NoData is the serialized form of an empty log
const NoData = "No replay data"

// Event is one scoring action within a match
type Event struct {
	Round     int    `json:"round"`
	Technique string `json:"technique"`
	Player    string `json:"player"`
	Timestamp int64  `json:"timestamp"`
}

// Log is the ordered, append-only record of scoring events for the current match.
// It is not safe for concurrent use; the owning session serializes access.
type Log struct {
	events []Event
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{}
}

// Append records an event at the end of the log
func (l *Log) Append(e Event) {
	l.events = append(l.events, e)
}

// Len returns the number of recorded events
func (l *Log) Len() int {
	return len(l.events)
}

// Events returns a copy of the recorded events in insertion order
func (l *Log) Events() []Event {
	return slices.Clone(l.events)
}

// Serialize renders the log as a JSON array, or NoData when the log is empty
func (l *Log) Serialize() (string, error) {
	if len(l.events) == 0 {
		return NoData, nil
	}
	b, err := json.Marshal(l.events)
	if err != nil {
		return "", fmt.Errorf("failed to marshal replay events: %w", err)
	}
	return string(b), nil
}

// Clear drops every event
func (l *Log) Clear() {
	l.events = nil
}
