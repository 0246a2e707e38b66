package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// Factory creates a fresh, unconfigured plugin instance.
type Factory func() Plugin

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
// Returns an error if the name is empty or already taken.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Has checks if a plugin with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered plugin names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Load instantiates and configures the plugins listed in specs, in order.
// Names without a registered factory are returned in unknown; the caller
// decides how loudly to report them.
func (r *Registry) Load(specs config.PluginList) (set *Set, unknown []string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set = &Set{}
	for _, spec := range specs {
		factory, ok := r.factories[spec.Name]
		if !ok {
			unknown = append(unknown, spec.Name)
			continue
		}
		p := factory()
		if cfgErr := p.Configure(spec); cfgErr != nil {
			return nil, unknown, errors.WrapError(cfgErr, errors.CategoryConfig, "invalid plugin options").
				Fatal().
				WithContext("plugin", spec.Name).
				Build()
		}
		set.plugins = append(set.plugins, p)
	}
	return set, unknown, nil
}

// Set is the ordered list of plugins active for a build.
type Set struct {
	plugins []Plugin
}

// NewSet wraps already configured plugins.
func NewSet(plugins ...Plugin) *Set { return &Set{plugins: plugins} }

// Plugins returns the plugins in configuration order.
func (s *Set) Plugins() []Plugin { return s.plugins }

// Names returns the active plugin names.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.plugins))
	for _, p := range s.plugins {
		out = append(out, p.Name())
	}
	return out
}

// PageGlobs collects the extra page sources claimed by plugins.
func (s *Set) PageGlobs() []string {
	var out []string
	for _, p := range s.plugins {
		if sp, ok := p.(SourceProvider); ok {
			out = append(out, sp.PageGlobs()...)
		}
	}
	return out
}

// RunPage calls every PageHook for every page of the site.
func (s *Set) RunPage(ctx context.Context, env *Env) error {
	for _, p := range s.plugins {
		hook, ok := p.(PageHook)
		if !ok {
			continue
		}
		for _, page := range env.Site.Pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := hook.OnPage(ctx, page, env); err != nil {
				return errors.WrapError(err, errors.CategoryBuild, "plugin page hook failed").
					Fatal().
					WithContext("plugin", p.Name()).
					WithContext("page", page.Src).
					Build()
			}
		}
	}
	return nil
}

// RunPostBuild calls every PostBuildHook in order.
func (s *Set) RunPostBuild(ctx context.Context, env *Env) error {
	for _, p := range s.plugins {
		hook, ok := p.(PostBuildHook)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Log().Debug("Running post-build hook", logfields.Plugin(p.Name()))
		if err := hook.OnPostBuild(ctx, env); err != nil {
			return errors.WrapError(err, errors.CategoryBuild, "plugin post-build hook failed").
				Fatal().
				WithContext("plugin", p.Name()).
				Build()
		}
	}
	return nil
}
