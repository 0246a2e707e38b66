package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/ftdocs/internal/eventstore"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// RunEvent is published for every state transition of a run.
type RunEvent struct {
	RunID      string                `json:"run_id"`
	Transition eventstore.Transition `json:"transition"`
}

// Handler consumes run events. Handler errors are logged; they never change
// the outcome of a run.
type Handler func(ctx context.Context, e RunEvent) error

// Bus delivers run events to the history store and to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Handler
	store       eventstore.Store
}

// NewBus creates a bus. store may be nil when history is disabled.
func NewBus(store eventstore.Store) *Bus {
	return &Bus{store: store}
}

// Subscribe registers a handler.
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, h)
	b.mu.Unlock()
}

// Publish persists e, then delivers it to every handler synchronously.
// Only a failure to persist is returned.
func (b *Bus) Publish(ctx context.Context, e RunEvent) error {
	if b.store != nil {
		if err := eventstore.AppendTransition(ctx, b.store, e.RunID, e.Transition); err != nil {
			return err
		}
	}
	b.mu.RLock()
	hs := append([]Handler(nil), b.subscribers...)
	b.mu.RUnlock()
	for _, h := range hs {
		if err := h(ctx, e); err != nil {
			slog.Warn("Run event handler failed",
				logfields.RunID(e.RunID),
				logfields.RunState(e.Transition.To),
				logfields.Error(err))
		}
	}
	return nil
}
