package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/ftdocs/internal/build"
	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/eventstore"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/git"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/metrics"
	"git.home.luguber.info/inful/ftdocs/internal/retry"
	"git.home.luguber.info/inful/ftdocs/internal/workflow"
)

// SiteBuilder builds the site once.
type SiteBuilder interface {
	Build(ctx context.Context) (*build.Report, error)
	SiteDir() string
}

// Publisher pushes a built site.
type Publisher interface {
	Deploy(ctx context.Context, siteDir string) (*git.DeployResult, error)
}

// Run is the record of one pipeline run.
type Run struct {
	ID         string
	State      State
	Event      workflow.Event
	Commit     string
	Reason     string
	Report     *build.Report
	Deploy     *git.DeployResult
	Attempts   int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Options configures a Runner.
type Options struct {
	Config   *config.Config
	Workflow *workflow.Workflow
	Builder  SiteBuilder
	// Publisher may be nil; runs that would publish then fail.
	Publisher Publisher
	Bus       *Bus
	Recorder  metrics.Recorder
	// Commit is the source commit being built, recorded in the history.
	Commit string
	Logger *slog.Logger
}

// Runner executes runs.
type Runner struct {
	opts     Options
	policy   retry.Policy
	recorder metrics.Recorder
	log      *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Config == nil || opts.Builder == nil {
		return nil, errors.ConfigError("pipeline requires a configuration and a builder").Build()
	}
	policy := retry.FromConfig(opts.Config.Tool.Retry)
	if err := policy.Validate(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid retry policy").Build()
	}
	if opts.Bus == nil {
		opts.Bus = NewBus(nil)
	}
	r := &Runner{opts: opts, policy: policy, recorder: opts.Recorder, log: opts.Logger}
	if r.recorder == nil {
		r.recorder = metrics.NoopRecorder{}
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r, nil
}

// ShouldPublish reports whether a successful build of ev is published.
func ShouldPublish(cfg *config.Config, ev workflow.Event) bool {
	return ev.Name == workflow.EventPush && ev.Branch == cfg.Tool.Publish.SourceBranch
}

// Run executes one run for ev. The returned Run is always non-nil; the error
// is the build or publish failure that ended it.
func (r *Runner) Run(ctx context.Context, ev workflow.Event) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Event: ev, Commit: r.opts.Commit, StartedAt: time.Now()}
	log := r.log.With(logfields.RunID(run.ID), logfields.Event(ev.Name), logfields.Branch(ev.Branch))
	entered := time.Now()

	move := func(to State, t eventstore.Transition) error {
		if err := checkTransition(run.State, to); err != nil {
			return err
		}
		t.From, t.To, t.Final = string(run.State), string(to), to.Terminal()
		if run.State != "" {
			t.DurationMS = time.Since(entered).Milliseconds()
		}
		run.State = to
		entered = time.Now()
		if to.Terminal() {
			run.FinishedAt = entered
		}
		r.recorder.IncRunState(string(to))
		log.Info("Run state changed", logfields.RunState(string(to)), slog.String("reason", t.Reason))
		if err := r.opts.Bus.Publish(ctx, RunEvent{RunID: run.ID, Transition: t}); err != nil {
			log.Warn("Failed to record run transition", logfields.Error(err))
		}
		return nil
	}
	fail := func(err error) (*Run, error) {
		run.Err = err
		t := eventstore.Transition{Error: err.Error()}
		if run.Report != nil && run.Report.Lint != nil {
			t.Errors, t.Warnings = run.Report.Lint.ErrorCount(), run.Report.Lint.WarningCount()
		}
		if moveErr := move(StateFailed, t); moveErr != nil {
			return run, moveErr
		}
		return run, err
	}

	if err := move(StatePending, eventstore.Transition{
		Trigger: ev.Name, Branch: ev.Branch, Commit: run.Commit,
	}); err != nil {
		return run, err
	}

	if r.opts.Workflow != nil {
		ok, reason := r.opts.Workflow.Triggers(ev)
		run.Reason = reason
		if !ok {
			return run, move(StateSkipped, eventstore.Transition{Reason: reason})
		}
	}

	if err := move(StateBuilding, eventstore.Transition{Reason: run.Reason}); err != nil {
		return run, err
	}
	report, err := r.opts.Builder.Build(ctx)
	run.Report = report
	if err != nil {
		return fail(err)
	}
	counts := eventstore.Transition{}
	if report != nil && report.Lint != nil {
		counts.Errors, counts.Warnings = report.Lint.ErrorCount(), report.Lint.WarningCount()
	}

	if !ShouldPublish(r.opts.Config, ev) {
		counts.Reason = fmt.Sprintf("build only: publishing happens on push to %q", r.opts.Config.Tool.Publish.SourceBranch)
		run.Reason = counts.Reason
		return run, move(StateSucceeded, counts)
	}

	if err := move(StatePublishing, counts); err != nil {
		return run, err
	}
	if r.opts.Publisher == nil {
		r.recorder.IncPublishResult("failed")
		return fail(errors.ConfigError("no publish remote configured").UserAction().Build())
	}
	err = r.policy.Do(ctx, "publish", func(attempt int) error {
		run.Attempts = attempt + 1
		res, deployErr := r.opts.Publisher.Deploy(ctx, r.opts.Builder.SiteDir())
		if deployErr != nil {
			return deployErr
		}
		run.Deploy = res
		return nil
	}, errors.IsRetryable)
	if err != nil {
		r.recorder.IncPublishResult("failed")
		return fail(err)
	}

	done := eventstore.Transition{Published: run.Deploy.Commit}
	if run.Deploy.Changed {
		r.recorder.IncPublishResult("pushed")
		done.Reason = "published"
		log.Info("Site published", logfields.Commit(run.Deploy.Commit), slog.Int("attempts", run.Attempts))
	} else {
		r.recorder.IncPublishResult("unchanged")
		done.Reason = "site unchanged, nothing to publish"
	}
	run.Reason = done.Reason
	return run, move(StateSucceeded, done)
}
