package pipeline

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ftdocs/internal/build"
	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/eventstore"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/git"
	"git.home.luguber.info/inful/ftdocs/internal/lint"
	"git.home.luguber.info/inful/ftdocs/internal/workflow"
)

type fakeBuilder struct {
	err   error
	calls int
}

func (f *fakeBuilder) Build(context.Context) (*build.Report, error) {
	f.calls++
	return &build.Report{Lint: &lint.Result{}}, f.err
}

func (f *fakeBuilder) SiteDir() string { return "site" }

type fakePublisher struct {
	errs  []error
	calls int
}

func (f *fakePublisher) Deploy(context.Context, string) (*git.DeployResult, error) {
	f.calls++
	if len(f.errs) >= f.calls {
		if err := f.errs[f.calls-1]; err != nil {
			return nil, err
		}
	}
	return &git.DeployResult{Commit: "c0ffee", Changed: true}, nil
}

const testWorkflow = `on:
  push:
    branches: [main, develop]
  pull_request:
`

type harness struct {
	runner    *Runner
	builder   *fakeBuilder
	publisher *fakePublisher
	store     *eventstore.SQLiteStore
	seen      []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Parse([]byte("site_name: Guide\nftdocs:\n  retry:\n    initial: 1ms\n    max: 2ms\n    max_retries: 2\n"))
	require.NoError(t, err)
	wf, err := workflow.Parse([]byte(testWorkflow))
	require.NoError(t, err)
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{builder: &fakeBuilder{}, publisher: &fakePublisher{}, store: store}
	bus := NewBus(store)
	bus.Subscribe(func(_ context.Context, e RunEvent) error {
		h.seen = append(h.seen, e.Transition.To)
		return stderrors.New("subscriber failures are ignored")
	})
	h.runner, err = NewRunner(Options{
		Config: cfg, Workflow: wf, Builder: h.builder, Publisher: h.publisher, Bus: bus, Commit: "abc123",
	})
	require.NoError(t, err)
	return h
}

func TestRun_PushToSourceBranchPublishes(t *testing.T) {
	h := newHarness(t)
	run, err := h.runner.Run(t.Context(), workflow.Event{Name: workflow.EventPush, Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, run.State)
	require.Equal(t, "c0ffee", run.Deploy.Commit)
	require.Equal(t, []string{"pending", "building", "publishing", "succeeded"}, h.seen)

	proj := eventstore.NewRunHistoryProjection(h.store, 10)
	require.NoError(t, proj.Rebuild(t.Context()))
	summary, ok := proj.Get(run.ID)
	require.True(t, ok)
	require.Equal(t, "succeeded", summary.State)
	require.Equal(t, "abc123", summary.Commit)
	require.Equal(t, "c0ffee", summary.Published)
}

func TestRun_OtherBranchBuildsOnly(t *testing.T) {
	h := newHarness(t)
	run, err := h.runner.Run(t.Context(), workflow.Event{Name: workflow.EventPush, Branch: "develop"})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, run.State)
	require.Equal(t, 1, h.builder.calls)
	require.Zero(t, h.publisher.calls)
	require.Contains(t, run.Reason, "build only")
}

func TestRun_PullRequestNeverPublishes(t *testing.T) {
	h := newHarness(t)
	run, err := h.runner.Run(t.Context(), workflow.Event{Name: workflow.EventPullRequest, Branch: "main", BaseBranch: "main"})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, run.State)
	require.Zero(t, h.publisher.calls)
}

func TestRun_NotTriggeredIsSkipped(t *testing.T) {
	h := newHarness(t)
	run, err := h.runner.Run(t.Context(), workflow.Event{Name: workflow.EventPush, Branch: "feature/x"})
	require.NoError(t, err)
	require.Equal(t, StateSkipped, run.State)
	require.Zero(t, h.builder.calls)
	require.Equal(t, []string{"pending", "skipped"}, h.seen)
}

func TestRun_BuildFailureIsNotRetried(t *testing.T) {
	h := newHarness(t)
	h.builder.err = errors.ValidationError("validation failed with 1 error(s)").Build()
	run, err := h.runner.Run(t.Context(), workflow.Event{Name: workflow.EventPush, Branch: "main"})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.Equal(t, StateFailed, run.State)
	require.Equal(t, 1, h.builder.calls)
	require.Zero(t, h.publisher.calls)
}

func TestRun_TransientPublishErrorIsRetried(t *testing.T) {
	h := newHarness(t)
	h.publisher.errs = []error{
		errors.NewError(errors.CategoryNetwork, "connection reset").Retryable().Build(),
	}
	run, err := h.runner.Run(t.Context(), workflow.Event{Name: workflow.EventPush, Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, run.State)
	require.Equal(t, 2, run.Attempts)
}

func TestRun_AuthPublishErrorFailsFast(t *testing.T) {
	h := newHarness(t)
	h.publisher.errs = []error{errors.AuthError("authentication required").UserAction().Build()}
	run, err := h.runner.Run(t.Context(), workflow.Event{Name: workflow.EventPush, Branch: "main"})
	require.Error(t, err)
	require.Equal(t, StateFailed, run.State)
	require.Equal(t, 1, h.publisher.calls)
	require.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestStateMachine(t *testing.T) {
	require.True(t, CanTransition("", StatePending))
	require.True(t, CanTransition(StateBuilding, StatePublishing))
	require.False(t, CanTransition(StatePending, StatePublishing))
	require.False(t, CanTransition(StateSucceeded, StateBuilding))
	for _, s := range []State{StateSucceeded, StateFailed, StateSkipped} {
		require.True(t, s.Terminal())
	}
	require.Error(t, checkTransition(StateFailed, StatePending))
}

func TestShouldPublish(t *testing.T) {
	cfg, err := config.Parse([]byte("site_name: x\nftdocs:\n  publish:\n    source_branch: trunk\n"))
	require.NoError(t, err)
	require.True(t, ShouldPublish(cfg, workflow.Event{Name: "push", Branch: "trunk"}))
	require.False(t, ShouldPublish(cfg, workflow.Event{Name: "push", Branch: "main"}))
	require.False(t, ShouldPublish(cfg, workflow.Event{Name: "workflow_dispatch", Branch: "trunk"}))
}
