// Package metrics provides the observability hooks of the build and the CI
// pipeline. Components receive a Recorder and default to NoopRecorder, so
// metrics cost nothing unless a PrometheusRecorder is injected.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for builds, publishes and CI runs.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	AddIssues(severity string, n int)
	SetPagesRendered(n int)
	ObserveFiles(written, unchanged, removed int)
	IncPublishResult(result string)
	IncRunState(state string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) AddIssues(string, int)                      {}
func (NoopRecorder) SetPagesRendered(int)                       {}
func (NoopRecorder) ObserveFiles(int, int, int)                 {}
func (NoopRecorder) IncPublishResult(string)                    {}
func (NoopRecorder) IncRunState(string)                         {}
