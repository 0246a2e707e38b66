package eventstore

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

// TypeTransition is the event type of a run state change.
const TypeTransition = "RunTransition"

// Transition is the payload of a TypeTransition event.
type Transition struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	// Final marks a terminal state.
	Final  bool   `json:"final,omitempty"`
	Reason string `json:"reason,omitempty"`
	// Trigger describes the CI event that started the run.
	Trigger string `json:"trigger,omitempty"`
	Branch  string `json:"branch,omitempty"`
	Commit  string `json:"commit,omitempty"`
	// Published is the commit created on the publish branch.
	Published string `json:"published,omitempty"`
	Error     string `json:"error,omitempty"`
	Warnings  int    `json:"warnings,omitempty"`
	Errors    int    `json:"errors,omitempty"`
	// DurationMS is the time spent in the state being left.
	DurationMS int64 `json:"duration_ms,omitempty"`
}

// AppendTransition stores t for runID.
func AppendTransition(ctx context.Context, s Store, runID string, t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHistory, "failed to marshal transition").
			WithContext("run_id", runID).Build()
	}
	return s.Append(ctx, runID, TypeTransition, payload, map[string]string{"to": t.To})
}

// DecodeTransition reads the payload of a TypeTransition event.
func DecodeTransition(e Event) (Transition, error) {
	var t Transition
	if err := json.Unmarshal(e.Payload, &t); err != nil {
		return t, errors.WrapError(err, errors.CategoryHistory, "failed to unmarshal transition").
			WithContext("event_id", e.ID).Build()
	}
	return t, nil
}

// RunSummary is the read model of one run.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	State      string        `json:"state"`
	Trigger    string        `json:"trigger,omitempty"`
	Branch     string        `json:"branch,omitempty"`
	Commit     string        `json:"commit,omitempty"`
	Published  string        `json:"published,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Error      string        `json:"error,omitempty"`
	Warnings   int           `json:"warnings,omitempty"`
	Errors     int           `json:"errors,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
	Duration   time.Duration `json:"duration,omitempty"`
	States     []string      `json:"states"`
}
