// Package builtin registers the plugins shipped with ftdocs.
package builtin

import (
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
	"git.home.luguber.info/inful/ftdocs/internal/plugin/jupyter"
	"git.home.luguber.info/inful/ftdocs/internal/plugin/revisiondate"
	"git.home.luguber.info/inful/ftdocs/internal/plugin/search"
)

// Registry returns a registry holding every built-in plugin.
func Registry() *plugin.Registry {
	r := plugin.NewRegistry()
	for name, factory := range map[string]plugin.Factory{
		search.Name:       search.New,
		revisiondate.Name: revisiondate.New,
		jupyter.Name:      jupyter.New,
	} {
		if err := r.Register(name, factory); err != nil {
			panic(err)
		}
	}
	return r
}
