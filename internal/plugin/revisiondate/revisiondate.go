// Package revisiondate adds the last git modification date to every page.
package revisiondate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/git"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
	"git.home.luguber.info/inful/ftdocs/internal/render"
)

// Name is the plugin key in mkdocs.yml.
const Name = "git-revision-date-localized"

// Plugin sets Page.RevisionDate and the formatted date shown by the theme.
type Plugin struct {
	kind     string
	locale   string
	fallback bool
	exclude  []string

	now   func() time.Time
	once  sync.Once
	dates map[string]time.Time
	tag   language.Tag
}

func New() plugin.Plugin { return &Plugin{now: time.Now} }

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Configure(spec config.PluginSpec) error {
	p.kind = spec.String("type", TypeDate)
	if !validType(p.kind) {
		return fmt.Errorf("unsupported type %q (valid options: date, datetime, iso_date, iso_datetime, timeago)", p.kind)
	}
	p.locale = spec.String("locale", "")
	p.fallback = spec.Bool("fallback_to_build_date", false)
	p.exclude = spec.Strings("exclude")
	for _, pattern := range p.exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return nil
}

func (p *Plugin) load(env *plugin.Env) {
	locale := p.locale
	if locale == "" && env.Config != nil {
		locale = env.Config.Theme.Language
	}
	p.tag = matchLocale(locale)

	dates, err := git.RevisionDates(env.Site.Root, env.Site.Root)
	if err != nil {
		env.Log().Warn("No git history available for revision dates", logfields.Error(err))
		dates = map[string]time.Time{}
	}
	p.dates = dates
}

func (p *Plugin) OnPage(_ context.Context, page *docs.Page, env *plugin.Env) error {
	p.once.Do(func() { p.load(env) })

	for _, pattern := range p.exclude {
		if ok, _ := doublestar.Match(pattern, page.Src); ok {
			return nil
		}
	}
	when, ok := p.dates[page.Src]
	if !ok {
		if !p.fallback {
			env.Log().Debug("Page has no git history", logfields.Page(page.Src))
			return nil
		}
		when = p.now()
	}
	page.RevisionDate = when
	if page.Meta.Fields == nil {
		page.Meta.Fields = map[string]any{}
	}
	page.Meta.Fields[render.RevisionDateKey] = format(when, p.kind, p.tag)
	return nil
}
