// Package lint validates a discovered site the way a strict documentation
// build does: navigation targets, internal links and anchors, front matter and
// the compatibility table.
package lint

import (
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/nav"
)

// Context is the input shared by all rules.
type Context struct {
	Config      *config.Config
	ConfigFile  string
	Site        *docs.Site
	Nav         *nav.Tree
	NavProblems []nav.Problem
}

func (c *Context) configFile() string {
	if c.ConfigFile != "" {
		return filepath.Base(c.ConfigFile)
	}
	return config.DefaultPath
}

// Linter runs a set of rules.
type Linter struct {
	rules []Rule
}

// DefaultRules returns every built-in rule.
func DefaultRules() []Rule {
	return []Rule{
		&NavTargetRule{},
		&NavOmittedRule{},
		&NavAbsoluteRule{},
		&LinkTargetRule{},
		&LinkAnchorRule{},
		&LinkAbsoluteRule{},
		&LinkUnrecognizedRule{},
		&FrontmatterRule{},
		&TrackingTableRule{},
	}
}

// NewLinter creates a linter; without rules the defaults are used.
func NewLinter(rules ...Rule) *Linter {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Linter{rules: rules}
}

// Run applies every rule. Strict promotion is left to the caller.
func (l *Linter) Run(ctx *Context) *Result {
	result := &Result{FilesTotal: len(ctx.Site.Pages)}
	for _, rule := range l.rules {
		issues := rule.Check(ctx)
		if len(issues) > 0 {
			slog.Debug("Rule reported issues", logfields.Rule(rule.Name()), slog.Int("count", len(issues)))
		}
		result.Add(issues...)
	}
	return result
}
