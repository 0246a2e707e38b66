package eventstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// RunHistoryProjection keeps summaries of runs reconstructed from the store.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewRunHistoryProjection creates a projection backed by store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 50
	}
	return &RunHistoryProjection{store: store, runs: map[string]*RunSummary{}, maxSize: maxHistorySize}
}

// Rebuild reconstructs the projection from all stored events.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.Range(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = map[string]*RunSummary{}
	for _, e := range events {
		p.applyLocked(e)
	}
	return nil
}

// Apply updates the projection with one event.
func (p *RunHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *RunHistoryProjection) applyLocked(e Event) {
	if e.Type != TypeTransition || e.RunID == "" {
		return
	}
	t, err := DecodeTransition(e)
	if err != nil {
		slog.Warn("Skipping unreadable history event", logfields.RunID(e.RunID), logfields.Error(err))
		return
	}
	s, ok := p.runs[e.RunID]
	if !ok {
		s = &RunSummary{RunID: e.RunID, StartedAt: e.Timestamp}
		p.runs[e.RunID] = s
	}
	s.State = t.To
	s.States = append(s.States, t.To)
	if t.Trigger != "" {
		s.Trigger = t.Trigger
	}
	if t.Branch != "" {
		s.Branch = t.Branch
	}
	if t.Commit != "" {
		s.Commit = t.Commit
	}
	if t.Published != "" {
		s.Published = t.Published
	}
	if t.Reason != "" {
		s.Reason = t.Reason
	}
	if t.Error != "" {
		s.Error = t.Error
	}
	if t.Warnings > 0 || t.Errors > 0 {
		s.Warnings, s.Errors = t.Warnings, t.Errors
	}
	if t.Final {
		s.FinishedAt = e.Timestamp
		s.Duration = e.Timestamp.Sub(s.StartedAt)
	}
}

// Recent returns up to n runs, newest first. n <= 0 uses the projection size.
func (p *RunHistoryProjection) Recent(n int) []RunSummary {
	if n <= 0 || n > p.maxSize {
		n = p.maxSize
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		c := *s
		c.States = append([]string(nil), s.States...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].RunID > out[j].RunID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Get returns the summary of one run.
func (p *RunHistoryProjection) Get(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	c := *s
	c.States = append([]string(nil), s.States...)
	return c, true
}
