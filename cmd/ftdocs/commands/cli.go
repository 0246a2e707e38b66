// Package commands implements the ftdocs command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/metrics"
)

// Global carries process wide state into every command.
type Global struct {
	Ctx context.Context
	Out io.Writer
}

func (g *Global) context() context.Context {
	if g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI is the root of the command tree.
type CLI struct {
	Config  string           `short:"c" help:"Site configuration file" default:"mkdocs.yml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build the site into site_dir"`
	Validate ValidateCmd `cmd:"" help:"Check pages, links and navigation without writing output"`
	Serve    ServeCmd    `cmd:"" help:"Serve the site locally and rebuild on changes"`
	Publish  PublishCmd  `cmd:"" help:"Build and push the site to the publish branch"`
	Tracking TrackingCmd `cmd:"" help:"Export the compatibility tracking table"`
	Nav      NavCmd      `cmd:"" help:"Print the resolved navigation tree"`
	Init     InitCmd     `cmd:"" help:"Write a starter configuration file"`
	CI       CICmd       `cmd:"" name:"ci" help:"Evaluate and run the deploy workflow"`

	cfg    *config.Config
	cfgErr error
}

// AfterApply loads the configuration once and sets up logging from it.
// nolint:unparam // configuration errors surface in the commands that need it.
func (c *CLI) AfterApply() error {
	c.cfg, c.cfgErr = config.Load(c.Config)

	var logCfg config.LogConfig
	if c.cfg != nil {
		logCfg = c.cfg.Tool.Log
	}
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(c.Verbose, logCfg.Level)}
	var handler slog.Handler
	if config.NormalizeLogFormat(logCfg.Format) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// LoadConfig returns the configuration read during AfterApply.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfg == nil && c.cfgErr == nil {
		c.cfg, c.cfgErr = config.Load(c.Config)
	}
	return c.cfg, c.cfgErr
}

// startMetrics serves prometheus metrics until ctx is done when enabled or
// when listen is given explicitly.
func startMetrics(ctx context.Context, cfg *config.Config, listen string) metrics.Recorder {
	if listen == "" && !cfg.Tool.Metrics.Enabled {
		return metrics.NoopRecorder{}
	}
	if listen == "" {
		listen = cfg.Tool.Metrics.Listen
	}
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	go func() {
		if err := metrics.Serve(ctx, listen, reg); err != nil {
			slog.Warn("Metrics server stopped", logfields.Error(err))
		}
	}()
	return rec
}
