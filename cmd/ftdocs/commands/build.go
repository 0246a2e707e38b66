package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/ftdocs/internal/build"
	"git.home.luguber.info/inful/ftdocs/internal/lint"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// StrictFlags override the strict setting of the configuration.
type StrictFlags struct {
	Strict   bool `help:"Treat warnings as errors" xor:"strict"`
	NoStrict bool `name:"no-strict" help:"Report warnings without failing" xor:"strict"`
}

func (f StrictFlags) override() *bool {
	switch {
	case f.Strict:
		v := true
		return &v
	case f.NoStrict:
		v := false
		return &v
	}
	return nil
}

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SiteDir     string `short:"d" name:"site-dir" help:"Override site_dir" type:"path"`
	StrictFlags `embed:""`
	Format      string `help:"Issue report format (text|json)" enum:"text,json" default:"text"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	builder, err := build.New(build.Options{
		Config:     cfg,
		ConfigFile: root.Config,
		SiteDir:    b.SiteDir,
		Strict:     b.override(),
		Logger:     slog.Default(),
	})
	if err != nil {
		return err
	}
	report, err := builder.Build(g.context())
	if report != nil && report.Lint != nil && len(report.Lint.Issues) > 0 {
		if fmtErr := lint.NewFormatter(b.Format).Format(g.out(), report.Lint, cfg.DocsDir); fmtErr != nil {
			slog.Warn("Failed to print issues", logfields.Error(fmtErr))
		}
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(g.out(), "Built %d pages into %s (%d written, %d unchanged, %d removed)\n",
		len(report.Pages), report.SiteDir, len(report.Written), len(report.Unchanged), len(report.Removed))
	return err
}

// ValidateCmd implements the 'validate' command: every build check up to the
// lint gate, with nothing written.
type ValidateCmd struct {
	StrictFlags `embed:""`
	Format      string `help:"Issue report format (text|json)" enum:"text,json" default:"text"`
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	builder, err := build.New(build.Options{
		Config:       cfg,
		ConfigFile:   root.Config,
		Strict:       v.override(),
		ValidateOnly: true,
		Logger:       slog.Default(),
	})
	if err != nil {
		return err
	}
	report, err := builder.Build(g.context())
	if report != nil && report.Lint != nil {
		if fmtErr := lint.NewFormatter(v.Format).Format(g.out(), report.Lint, cfg.DocsDir); fmtErr != nil {
			slog.Warn("Failed to print issues", logfields.Error(fmtErr))
		}
	}
	return err
}
