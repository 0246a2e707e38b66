// Package plugin provides the hook system used by the site build. Plugins are
// selected by the names listed under `plugins` in mkdocs.yml.
package plugin

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/markdown"
)

// Plugin is a configured build extension. A plugin participates in the build
// by also implementing one or more of the hook interfaces below.
type Plugin interface {
	// Name is the key used in the `plugins` list.
	Name() string

	// Configure applies the options given in mkdocs.yml. It is called once,
	// before any hook.
	Configure(spec config.PluginSpec) error
}

// PageHook runs for every page after discovery and before rendering.
type PageHook interface {
	OnPage(ctx context.Context, page *docs.Page, env *Env) error
}

// PostBuildHook runs once after all pages have been rendered. Its output is
// verified together with the pages before anything is written to site_dir.
type PostBuildHook interface {
	OnPostBuild(ctx context.Context, env *Env) error
}

// SourceProvider lets a plugin claim additional page sources (glob patterns
// relative to docs_dir) before discovery.
type SourceProvider interface {
	PageGlobs() []string
}

// Output receives files produced by plugins. Paths are relative to site_dir
// and slash separated.
type Output interface {
	Write(rel string, data []byte) error
}

// Env is shared by all hooks of one build.
type Env struct {
	Config *config.Config
	Site   *docs.Site
	Parser *markdown.Parser
	Output Output
	Logger *slog.Logger
}

// Log returns the build logger, falling back to the default logger.
func (e *Env) Log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
