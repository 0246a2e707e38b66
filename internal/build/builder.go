// Package build turns a configuration and its docs_dir into a static site.
//
// A build runs in stages: discover, nav, plugin page hooks, lint, render,
// write, plugin post-build hooks and verify. Lint issues of error severity
// stop the build before anything is written to site_dir.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/lint"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/manifest"
	"git.home.luguber.info/inful/ftdocs/internal/markdown"
	"git.home.luguber.info/inful/ftdocs/internal/metrics"
	"git.home.luguber.info/inful/ftdocs/internal/nav"
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
	"git.home.luguber.info/inful/ftdocs/internal/plugin/builtin"
	"git.home.luguber.info/inful/ftdocs/internal/render"
)

// Stage names used in logs and metrics.
const (
	StageDiscover = "discover"
	StageNav      = "nav"
	StagePlugins  = "plugins"
	StageLint     = "lint"
	StageRender   = "render"
	StagePost     = "post_build"
	StageVerify   = "verify"
	StageWrite    = "write"
)

// ManifestPath is where the build manifest is stored inside site_dir.
const ManifestPath = ".ftdocs/manifest.json"

// Options configures a Builder.
type Options struct {
	Config *config.Config
	// ConfigFile is reported as the file of configuration issues.
	ConfigFile string
	// Registry provides the plugins named in the configuration.
	// Defaults to the built-in plugins.
	Registry *plugin.Registry
	// SiteDir overrides the configured site_dir.
	SiteDir string
	// Strict overrides the configured strict setting when non-nil.
	Strict     *bool
	LiveReload bool
	// ValidateOnly stops after the lint stage.
	ValidateOnly bool
	Recorder     metrics.Recorder
	Logger       *slog.Logger
}

// Report summarizes one build.
type Report struct {
	Pages     []*docs.Page
	Nav       *nav.Tree
	Lint      *lint.Result
	Written   []string
	Unchanged []string
	Removed   []string
	Manifest  *manifest.Manifest
	// SiteHash identifies the produced site; it changes whenever an output does.
	SiteHash string
	Duration time.Duration
	SiteDir  string
}

// Builder builds one configured site. A Builder may be reused for rebuilds.
type Builder struct {
	opts     Options
	recorder metrics.Recorder
	log      *slog.Logger
}

// New creates a builder.
func New(opts Options) (*Builder, error) {
	if opts.Config == nil {
		return nil, errors.ConfigError("build requires a configuration").Build()
	}
	if opts.Registry == nil {
		opts.Registry = builtin.Registry()
	}
	b := &Builder{opts: opts, recorder: opts.Recorder, log: opts.Logger}
	if b.recorder == nil {
		b.recorder = metrics.NoopRecorder{}
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b, nil
}

func (b *Builder) strict() bool {
	if b.opts.Strict != nil {
		return *b.opts.Strict
	}
	return b.opts.Config.Strict
}

// SiteDir returns the directory the site is written to.
func (b *Builder) SiteDir() string {
	if b.opts.SiteDir != "" {
		return b.opts.SiteDir
	}
	return b.opts.Config.SitePath()
}

// recordingOutput collects the files of one build in memory. Nothing reaches
// site_dir until flush, which runs after verification passed.
type recordingOutput struct {
	w     *Writer
	files map[string][]byte
}

func (o *recordingOutput) Write(rel string, data []byte) error {
	o.files[filepath.ToSlash(rel)] = data
	return nil
}

func (o *recordingOutput) flush() error {
	for _, rel := range sortedKeys(o.files) {
		if err := o.w.Write(rel, o.files[rel]); err != nil {
			return errors.FileSystemError("failed to write site file").WithCause(err).WithContext("path", rel).Build()
		}
	}
	return nil
}

// Build runs every stage. The returned report is non-nil whenever the lint
// stage ran, also when the build fails.
func (b *Builder) Build(ctx context.Context) (report *Report, err error) {
	start := time.Now()
	cfg := b.opts.Config
	report = &Report{SiteDir: b.SiteDir()}
	b.log.Info("Build started", logfields.Path(cfg.DocsPath()), slog.Bool("strict", b.strict()))

	defer func() {
		report.Duration = time.Since(start)
		b.recorder.ObserveBuildDuration(report.Duration)
		outcome := metrics.BuildOutcomeSuccess
		switch {
		case err != nil && ctx.Err() != nil:
			outcome = metrics.BuildOutcomeCanceled
		case err != nil:
			outcome = metrics.BuildOutcomeFailed
		case report.Lint != nil && report.Lint.HasWarnings():
			outcome = metrics.BuildOutcomeWarning
		}
		b.recorder.IncBuildOutcome(outcome)
		if err != nil {
			b.log.Error("Build failed", logfields.Elapsed(report.Duration), logfields.Error(err))
			return
		}
		b.log.Info("Build finished",
			logfields.Elapsed(report.Duration),
			slog.Int("pages", len(report.Pages)),
			slog.Int("written", len(report.Written)),
			slog.Int("unchanged", len(report.Unchanged)),
			slog.Int("removed", len(report.Removed)))
	}()

	// discover
	var (
		set    *plugin.Set
		parser *markdown.Parser
		site   *docs.Site
	)
	if err := b.stage(ctx, StageDiscover, func() error {
		var unknown []string
		var loadErr error
		set, unknown, loadErr = b.opts.Registry.Load(cfg.Plugins)
		if loadErr != nil {
			return loadErr
		}
		for _, name := range unknown {
			b.log.Warn("Unknown plugin ignored", logfields.Plugin(name))
		}
		parser = markdown.NewParser(markdown.OptionsFromExtensions(cfg.MarkdownExtensions.Names()))
		var discoverErr error
		site, discoverErr = docs.Discover(cfg.DocsPath(), docs.Options{
			DirectoryURLs: cfg.DirectoryURLs(),
			Notebooks:     set.PageGlobs(),
			Parser:        parser,
		})
		if discoverErr != nil {
			return errors.WrapError(discoverErr, errors.CategoryFileSystem, "failed to discover documentation").
				WithContext("docs_dir", cfg.DocsPath()).Build()
		}
		report.Pages = site.Pages
		return nil
	}); err != nil {
		return report, err
	}

	// nav
	var navProblems []nav.Problem
	if err := b.stage(ctx, StageNav, func() error {
		report.Nav, navProblems = nav.Build(cfg, site)
		return nil
	}); err != nil {
		return report, err
	}

	out := &recordingOutput{w: NewWriter(report.SiteDir), files: map[string][]byte{}}
	env := &plugin.Env{Config: cfg, Site: site, Parser: parser, Output: out, Logger: b.log}

	if err := b.stage(ctx, StagePlugins, func() error {
		return set.RunPage(ctx, env)
	}); err != nil {
		return report, err
	}

	// lint
	if err := b.stage(ctx, StageLint, func() error {
		result := lint.NewLinter(lint.DefaultRules()...).Run(&lint.Context{
			Config:      cfg,
			ConfigFile:  b.opts.ConfigFile,
			Site:        site,
			Nav:         report.Nav,
			NavProblems: navProblems,
		})
		result.Promote(b.strict())
		report.Lint = result
		b.recordIssues(result)
		return gate(result)
	}); err != nil {
		return report, err
	}
	if b.opts.ValidateOnly {
		return report, nil
	}

	// render
	rendered := map[string][]byte{}
	pageSrc := map[string]string{}
	if err := b.stage(ctx, StageRender, func() error {
		if err := b.render(ctx, set, site, report.Nav, parser, rendered, pageSrc); err != nil {
			return err
		}
		for _, f := range site.Static {
			if _, done := rendered[f.DestPath]; done {
				continue
			}
			data, readErr := readFile(f.AbsPath)
			if readErr != nil {
				return errors.WrapError(readErr, errors.CategoryFileSystem, "failed to read static file").
					WithContext("path", f.Src).Build()
			}
			rendered[f.DestPath] = data
		}
		for rel, data := range rendered {
			if err := out.Write(rel, data); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return report, err
	}
	b.recorder.SetPagesRendered(len(site.Pages))

	if err := b.stage(ctx, StagePost, func() error {
		return set.RunPostBuild(ctx, env)
	}); err != nil {
		return report, err
	}

	if err := b.stage(ctx, StageVerify, func() error {
		issues, verifyErr := verifyOutput(out.files, pageSrc, cfg.Validation.Links)
		if verifyErr != nil {
			return errors.WrapError(verifyErr, errors.CategoryBuild, "failed to verify generated HTML").Build()
		}
		if len(issues) == 0 {
			return nil
		}
		verified := &lint.Result{Issues: issues}
		verified.Promote(b.strict())
		report.Lint.Add(verified.Issues...)
		b.recordIssues(verified)
		return gate(verified)
	}); err != nil {
		return report, err
	}

	// write
	if err := b.stage(ctx, StageWrite, func() error {
		return b.finish(cfg, site, set, out, report)
	}); err != nil {
		return report, err
	}
	return report, nil
}

// render produces every page, the 404 page, the sitemap and the theme assets.
func (b *Builder) render(ctx context.Context, set *plugin.Set, site *docs.Site, tree *nav.Tree, parser *markdown.Parser, rendered map[string][]byte, pageSrc map[string]string) error {
	theme, err := render.LoadTheme()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRender, "failed to load theme").Build()
	}
	r := render.NewRenderer(theme, b.opts.Config, tree, render.Options{
		LiveReload: b.opts.LiveReload,
		Search:     slices.Contains(set.Names(), "search"),
	})
	for _, p := range site.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Notebook pages get their content from the notebook plugin.
		if p.Content == nil && p.Kind == docs.KindMarkdown {
			content, renderErr := parser.Render(p.Body, site.LinkResolver(p))
			if renderErr != nil {
				return errors.WrapError(renderErr, errors.CategoryRender, "failed to render Markdown").
					WithContext("page", p.Src).Build()
			}
			p.Content = content
		}
		html, pageErr := r.Page(p)
		if pageErr != nil {
			return errors.WrapError(pageErr, errors.CategoryRender, "failed to render page").
				WithContext("page", p.Src).Build()
		}
		rendered[p.DestPath] = html
		pageSrc[p.DestPath] = p.Src
		b.log.Debug("Rendered page", logfields.Page(p.Src), logfields.Path(p.DestPath))
	}

	notFound, err := r.NotFound()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRender, "failed to render 404 page").Build()
	}
	rendered["404.html"] = notFound

	sitemap, err := r.Sitemap(site.Pages)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRender, "failed to render sitemap").Build()
	}
	rendered["sitemap.xml"] = sitemap

	assets, err := theme.Assets()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRender, "failed to load theme assets").Build()
	}
	for name, data := range assets {
		rendered[name] = data
	}
	return nil
}

// finish records the manifest, prunes stale files and fills the report.
func (b *Builder) finish(cfg *config.Config, site *docs.Site, set *plugin.Set, out *recordingOutput, report *Report) error {
	if len(out.files) == 0 {
		return errors.BuildError("build produced no output").WithContext("site_dir", report.SiteDir).Build()
	}
	cfgData, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to serialize configuration").Build()
	}
	m := manifest.New(cfg.SiteName, cfgData, set.Names())
	for _, p := range site.Pages {
		entry := manifest.PageEntry{Src: p.Src, URL: p.URL, Fingerprint: p.Fingerprint}
		if !p.RevisionDate.IsZero() {
			entry.RevisionDate = p.RevisionDate.UTC().Format(time.RFC3339)
		}
		m.AddPage(entry)
	}
	for rel, data := range out.files {
		m.AddOutput(rel, data)
	}
	hash, err := m.Hash()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to hash manifest").Build()
	}
	data, err := m.ToJSON()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to serialize manifest").Build()
	}
	if err := out.flush(); err != nil {
		return err
	}
	// The manifest itself is not recorded, it would change its own hash.
	if err := out.w.Write(ManifestPath, data); err != nil {
		return errors.FileSystemError("failed to write manifest").WithCause(err).Build()
	}
	if err := out.w.Finish(); err != nil {
		return errors.FileSystemError("failed to prune site_dir").WithCause(err).
			WithContext("site_dir", report.SiteDir).Build()
	}

	report.Manifest = m
	report.SiteHash = hash
	report.Written, report.Unchanged, report.Removed = out.w.Stats()
	b.recorder.ObserveFiles(len(report.Written), len(report.Unchanged), len(report.Removed))
	return nil
}

// stage runs fn with timing, logging and metrics.
func (b *Builder) stage(ctx context.Context, name string, fn func() error) error {
	select {
	case <-ctx.Done():
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
		return errors.WrapError(ctx.Err(), errors.CategoryRuntime, "build canceled").
			WithContext("stage", name).Build()
	default:
	}
	stageStart := time.Now()
	err := fn()
	elapsed := time.Since(stageStart)
	b.recorder.ObserveStageDuration(name, elapsed)
	switch {
	case err == nil:
		b.recorder.IncStageResult(name, metrics.ResultSuccess)
		b.log.Debug("Stage finished", logfields.Stage(name), logfields.Elapsed(elapsed))
	case ctx.Err() != nil:
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		b.recorder.IncStageResult(name, metrics.ResultFatal)
		b.log.Debug("Stage failed", logfields.Stage(name), logfields.Elapsed(elapsed), logfields.Error(err))
	}
	return err
}

func (b *Builder) recordIssues(result *lint.Result) {
	b.recorder.AddIssues("error", result.ErrorCount())
	b.recorder.AddIssues("warning", result.WarningCount())
	b.recorder.AddIssues("info", result.InfoCount())
}

// gate turns error-level issues into a validation error.
func gate(result *lint.Result) error {
	if !result.HasErrors() {
		return nil
	}
	first := ""
	for _, issue := range result.Issues {
		if issue.Severity == lint.SeverityError {
			first = fmt.Sprintf("%s: %s", issue.File, issue.Message)
			break
		}
	}
	return errors.ValidationError(fmt.Sprintf("validation failed with %d error(s)", result.ErrorCount())).
		WithContext("first", first).
		Build()
}
