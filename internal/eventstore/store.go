// Package eventstore keeps the append-only history of pipeline runs. Every
// state transition of a run is stored as one event; summaries are projected
// from the events.
package eventstore

import (
	"context"
	"time"
)

// Event is one stored record.
type Event struct {
	ID        int64
	RunID     string
	Type      string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}

// Store persists and retrieves events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error

	// ByRun retrieves all events of one run in insertion order.
	ByRun(ctx context.Context, runID string) ([]Event, error)

	// Range retrieves events within a time range.
	Range(ctx context.Context, start, end time.Time) ([]Event, error)

	Close() error
}
