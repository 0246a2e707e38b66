package lint

import (
	"errors"

	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/frontmatter"
	"git.home.luguber.info/inful/ftdocs/internal/tracking"
)

// FrontmatterRule reports pages whose front matter cannot be read. This is
// always an error since the page metadata would silently be lost.
type FrontmatterRule struct{}

func (r *FrontmatterRule) Name() string { return "frontmatter" }

func (r *FrontmatterRule) Check(ctx *Context) []Issue {
	var out []Issue
	for _, p := range ctx.Site.Pages {
		if p.ParseErr == nil {
			continue
		}
		fix := "Fix the YAML between the --- delimiters"
		if errors.Is(p.ParseErr, frontmatter.ErrMissingClosingDelimiter) {
			fix = "Add the closing --- line after the front matter"
		}
		out = append(out, Issue{
			File:        p.Src,
			Line:        1,
			Rule:        r.Name(),
			Severity:    SeverityError,
			Message:     "malformed front matter",
			Explanation: p.ParseErr.Error(),
			Fix:         fix,
		})
	}
	return out
}

// TrackingTableRule checks the compatibility table for empty names,
// duplicates and ordering at the level set by `ftdocs.tracking.level`.
type TrackingTableRule struct{}

func (r *TrackingTableRule) Name() string { return "tracking-table" }

func (r *TrackingTableRule) Check(ctx *Context) []Issue {
	sev, report := SeverityFor(ctx.Config.Tool.Tracking.Level)
	if !report {
		return nil
	}
	page, ok := ctx.Site.Page(ctx.Config.Tool.Tracking.Page)
	if !ok || page.Kind != docs.KindMarkdown {
		return nil
	}
	table, err := tracking.Parse(page.Body, ctx.Config.Tool.Tracking.KeyColumn)
	if err != nil {
		return []Issue{{
			File:        page.Src,
			Rule:        r.Name(),
			Severity:    sev,
			Message:     "tracking page has no compatibility table",
			Explanation: err.Error(),
		}}
	}
	var out []Issue
	for _, p := range table.Check() {
		out = append(out, Issue{
			File:     page.Src,
			Line:     p.Line,
			Rule:     r.Name(),
			Severity: sev,
			Message:  p.Message,
		})
	}
	return out
}
