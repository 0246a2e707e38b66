package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/ftdocs/internal/build"
	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/eventstore"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/git"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/metrics"
	"git.home.luguber.info/inful/ftdocs/internal/pipeline"
	"git.home.luguber.info/inful/ftdocs/internal/scheduler"
	"git.home.luguber.info/inful/ftdocs/internal/version"
	"git.home.luguber.info/inful/ftdocs/internal/workflow"
)

// CICmd groups the workflow commands.
type CICmd struct {
	Exec    CIRunCmd     `cmd:"" name:"run" help:"Run the build and publish pipeline for a CI event"`
	Check   CICheckCmd   `cmd:"" help:"Report whether the workflow triggers for an event"`
	History CIHistoryCmd `cmd:"" help:"List recorded pipeline runs"`
	Watch   CIWatchCmd   `cmd:"" help:"Run the scheduled triggers of the workflow until interrupted"`
}

// EventFlags describe the triggering event. Defaults come from the
// environment variables set by the CI platform.
type EventFlags struct {
	Event      string   `help:"Triggering event" env:"GITHUB_EVENT_NAME" default:"push"`
	Branch     string   `help:"Branch of the event (current branch when empty)" env:"GITHUB_REF_NAME"`
	BaseBranch string   `name:"base-branch" help:"Target branch of a pull request" env:"GITHUB_BASE_REF"`
	Since      string   `help:"Revision to diff against for path filters, such as the commit before a push (first parent of HEAD when empty)" env:"FTDOCS_SINCE"`
	Files      []string `help:"Changed files, skipping the git diff" sep:","`
}

func (f *EventFlags) resolve(cfg *config.Config) workflow.Event {
	ev := workflow.Event{Name: f.Event, Branch: f.Branch, BaseBranch: f.BaseBranch}
	if ev.Branch == "" {
		if b, err := git.CurrentBranch(cfg.Root()); err == nil {
			ev.Branch = b
		}
	}
	if len(f.Files) > 0 {
		ev.ChangedFiles = f.Files
		return ev
	}
	if isZeroRevision(f.Since) {
		// First push of a branch: there is no earlier commit to diff against.
		slog.Info("No previous revision for this push; path filters are not applied")
		return ev
	}
	if f.Since == "" && os.Getenv("GITHUB_ACTIONS") == "true" {
		// The platform already applied the path filters when it started the job.
		slog.Info("No diff range given; relying on the CI platform path filters")
		return ev
	}
	files, err := git.ChangedFiles(cfg.Root(), f.Since, "")
	if err != nil {
		slog.Warn("Cannot list changed files; path filters are not applied", logfields.Error(err))
		return ev
	}
	ev.ChangedFiles = files
	return ev
}

// isZeroRevision reports whether rev is the all-zero object id that CI
// platforms send as the previous commit of a newly created branch.
func isZeroRevision(rev string) bool {
	return len(rev) >= 40 && strings.Trim(rev, "0") == ""
}

// loadWorkflow returns nil when the workflow file does not exist; every event
// then triggers.
func loadWorkflow(cfg *config.Config) (*workflow.Workflow, error) {
	wf, err := workflow.Load(cfg.WorkflowPath())
	if errors.HasCategory(err, errors.CategoryNotFound) {
		slog.Warn("No workflow file; every event triggers a run", logfields.Path(cfg.WorkflowPath()))
		return nil, nil
	}
	return wf, err
}

// runEnv is the wiring shared by the pipeline commands.
type runEnv struct {
	cfg      *config.Config
	workflow *workflow.Workflow
	builder  *build.Builder
	bus      *pipeline.Bus
	store    eventstore.Store
	notifier *pipeline.NATSNotifier
	recorder metrics.Recorder
}

func newRunEnv(ctx context.Context, root *CLI, recorder metrics.Recorder) (*runEnv, error) {
	cfg, err := root.LoadConfig()
	if err != nil {
		return nil, err
	}
	wf, err := loadWorkflow(cfg)
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	builder, err := build.New(build.Options{Config: cfg, ConfigFile: root.Config, Recorder: recorder, Logger: slog.Default()})
	if err != nil {
		return nil, err
	}
	env := &runEnv{cfg: cfg, workflow: wf, builder: builder, recorder: recorder}
	if !cfg.Tool.History.Disabled {
		store, err := eventstore.NewSQLiteStore(cfg.HistoryPath())
		if err != nil {
			return nil, err
		}
		env.store = store
	}
	env.bus = pipeline.NewBus(env.store)
	if cfg.Tool.Notify.NATSURL != "" {
		n, err := pipeline.NewNATSNotifier(ctx, cfg.Tool.Notify)
		if err != nil {
			slog.Warn("Run notifications disabled", logfields.URL(cfg.Tool.Notify.NATSURL), logfields.Error(err))
		} else {
			env.notifier = n
			env.bus.Subscribe(n.Handle)
		}
	}
	return env, nil
}

func (e *runEnv) Close() {
	if e.notifier != nil {
		e.notifier.Close()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Warn("Failed to close run history", logfields.Error(err))
		}
	}
}

func (e *runEnv) runner() (*pipeline.Runner, error) {
	commit, err := git.HeadCommit(e.cfg.Root())
	if err != nil {
		slog.Debug("Source commit unknown", logfields.Error(err))
	}
	opts := pipeline.Options{
		Config:   e.cfg,
		Workflow: e.workflow,
		Builder:  e.builder,
		Bus:      e.bus,
		Recorder: e.recorder,
		Commit:   commit,
		Logger:   slog.Default(),
	}
	if remote := e.cfg.PublishRemote(); remote != "" {
		opts.Publisher = git.NewDeployer(git.DeployOptions{
			Remote:    remote,
			Publish:   e.cfg.Tool.Publish,
			SourceSHA: commit,
			Version:   version.Version,
		})
	}
	return pipeline.NewRunner(opts)
}

// CIRunCmd implements 'ci run'.
type CIRunCmd struct {
	EventFlags `embed:""`
}

func (c *CIRunCmd) Run(g *Global, root *CLI) error {
	ctx := g.context()
	env, err := newRunEnv(ctx, root, nil)
	if err != nil {
		return err
	}
	defer env.Close()
	runner, err := env.runner()
	if err != nil {
		return err
	}
	run, err := runner.Run(ctx, c.resolve(env.cfg))
	if _, printErr := fmt.Fprintf(g.out(), "run %s %s: %s\n", run.ID, run.State, run.Reason); printErr != nil && err == nil {
		err = printErr
	}
	return err
}

// CICheckCmd implements 'ci check'.
type CICheckCmd struct {
	EventFlags `embed:""`
}

func (c *CICheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	wf, err := loadWorkflow(cfg)
	if err != nil {
		return err
	}
	ev := c.resolve(cfg)
	triggered, reason := true, "no workflow file"
	if wf != nil {
		triggered, reason = wf.Triggers(ev)
	}
	publish := triggered && pipeline.ShouldPublish(cfg, ev)
	_, err = fmt.Fprintf(g.out(), "event: %s\nbranch: %s\ntriggered: %t (%s)\npublish: %t\n",
		ev.Name, ev.Branch, triggered, reason, publish)
	return err
}

// CIHistoryCmd implements 'ci history'.
type CIHistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to list" default:"20"`
	RunID string `name:"run" help:"Show the transitions of one run"`
	JSON  bool   `help:"Print JSON"`
}

func (c *CIHistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Tool.History.Disabled {
		return errors.ConfigError("run history is disabled (ftdocs.history.disabled)").UserAction().Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	proj := eventstore.NewRunHistoryProjection(store, c.Limit)
	if err := proj.Rebuild(g.context()); err != nil {
		return err
	}
	var runs []eventstore.RunSummary
	if c.RunID != "" {
		run, ok := proj.Get(c.RunID)
		if !ok {
			return errors.NewError(errors.CategoryNotFound, "run not found").WithContext("run_id", c.RunID).Build()
		}
		runs = []eventstore.RunSummary{run}
	} else {
		runs = proj.Recent(c.Limit)
	}

	if c.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "RUN\tSTARTED\tTRIGGER\tBRANCH\tSTATE\tDURATION\tREASON"); err != nil {
		return err
	}
	for _, r := range runs {
		reason := r.Reason
		if r.Error != "" {
			reason = r.Error
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), r.Trigger, r.Branch, r.State,
			r.Duration.Round(time.Millisecond), reason); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// CIWatchCmd implements 'ci watch'.
type CIWatchCmd struct {
	Metrics string `help:"Serve prometheus metrics on this address"`
}

func (c *CIWatchCmd) Run(g *Global, root *CLI) error {
	ctx := g.context()
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	env, err := newRunEnv(ctx, root, startMetrics(ctx, cfg, c.Metrics))
	if err != nil {
		return err
	}
	defer env.Close()
	if env.workflow == nil || len(env.workflow.Crons()) == 0 {
		return errors.WorkflowError("workflow has no schedule triggers").
			WithContext("path", cfg.WorkflowPath()).UserAction().Build()
	}

	sched, err := scheduler.New()
	if err != nil {
		return errors.InternalError("failed to create scheduler").WithCause(err).Build()
	}
	for i, expr := range env.workflow.Crons() {
		_, err := sched.ScheduleCron(fmt.Sprintf("schedule-%d", i), expr, func(taskCtx context.Context) {
			env.scheduledRun(taskCtx)
		})
		if err != nil {
			_ = sched.Stop()
			return errors.WorkflowError("invalid schedule").WithCause(err).WithContext("cron", expr).Build()
		}
	}
	sched.Start()
	for name, next := range sched.NextRuns() {
		slog.Info("Scheduled trigger", slog.String("job", name), slog.Time("next", next))
	}

	<-ctx.Done()
	return sched.Stop()
}

func (e *runEnv) scheduledRun(ctx context.Context) {
	runner, err := e.runner()
	if err != nil {
		slog.Error("Cannot start scheduled run", logfields.Error(err))
		return
	}
	branch, _ := git.CurrentBranch(e.cfg.Root())
	run, err := runner.Run(ctx, workflow.Event{Name: workflow.EventSchedule, Branch: branch})
	if err != nil {
		slog.Error("Scheduled run failed", logfields.RunID(run.ID), logfields.Error(err))
	}
}
