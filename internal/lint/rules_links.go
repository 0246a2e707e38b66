package lint

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/markdown"
)

// pageLink is a link that names a relative target (not external, not absolute,
// not an autolink).
type pageLink struct {
	page   *docs.Page
	link   markdown.Link
	target docs.Target
	err    error
}

func relativeLinks(site *docs.Site) []pageLink {
	var out []pageLink
	for _, p := range site.Pages {
		for _, l := range p.Links {
			if l.Kind == markdown.LinkKindAuto || l.Destination == "" || l.IsExternal() || l.IsAbsolute() {
				continue
			}
			t, err := site.Resolve(p, l.Destination)
			out = append(out, pageLink{page: p, link: l, target: t, err: err})
		}
	}
	return out
}

func isPagePath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown", ".ipynb":
		return true
	}
	return false
}

func linkIssues(ctx *Context, rule string, level config.ValidationLevel, match func(pageLink) (Issue, bool)) []Issue {
	severity, ok := SeverityFor(level)
	if !ok {
		return nil
	}
	var out []Issue
	for _, pl := range relativeLinks(ctx.Site) {
		issue, hit := match(pl)
		if !hit {
			continue
		}
		issue.File = pl.page.Src
		issue.Line = pl.link.Line
		issue.Rule = rule
		issue.Severity = severity
		out = append(out, issue)
	}
	return out
}

// LinkTargetRule reports relative links to pages that do not exist.
type LinkTargetRule struct{}

func (r *LinkTargetRule) Name() string { return "link-target" }

func (r *LinkTargetRule) Check(ctx *Context) []Issue {
	return linkIssues(ctx, r.Name(), ctx.Config.Validation.Links.NotFound, func(pl pageLink) (Issue, bool) {
		if errors.Is(pl.err, docs.ErrOutsideDocs) {
			return Issue{
				Message: fmt.Sprintf("link %q points outside docs_dir", pl.link.Destination),
				Fix:     "Link to the file on the repository host instead",
			}, true
		}
		if !isPagePath(pl.target.Path) || pl.target.Found() {
			return Issue{}, false
		}
		return Issue{
			Message: fmt.Sprintf("link %q points to %q which is not found among documentation files", pl.link.Destination, pl.target.Path),
			Fix:     "Correct the link or create the missing page",
		}, true
	})
}

// LinkAnchorRule reports fragments that do not exist on the linked page.
type LinkAnchorRule struct{}

func (r *LinkAnchorRule) Name() string { return "link-anchor" }

func (r *LinkAnchorRule) Check(ctx *Context) []Issue {
	return linkIssues(ctx, r.Name(), ctx.Config.Validation.Links.Anchors, func(pl pageLink) (Issue, bool) {
		t := pl.target
		if t.Page == nil || t.Fragment == "" || t.Page.Kind != docs.KindMarkdown || t.Page.Anchors[t.Fragment] {
			return Issue{}, false
		}
		return Issue{
			Message: fmt.Sprintf("link %q points to anchor %q which does not exist in %q", pl.link.Destination, t.Fragment, t.Page.Src),
			Fix:     "Use one of the heading ids of the target page",
		}, true
	})
}

// LinkAbsoluteRule reports site-absolute links, which break when the site is
// served from a sub path.
type LinkAbsoluteRule struct{}

func (r *LinkAbsoluteRule) Name() string { return "link-absolute" }

func (r *LinkAbsoluteRule) Check(ctx *Context) []Issue {
	severity, ok := SeverityFor(ctx.Config.Validation.Links.AbsoluteLinks)
	if !ok {
		return nil
	}
	var out []Issue
	for _, p := range ctx.Site.Pages {
		for _, l := range p.Links {
			if !l.IsAbsolute() {
				continue
			}
			out = append(out, Issue{
				File:     p.Src,
				Line:     l.Line,
				Rule:     r.Name(),
				Severity: severity,
				Message:  fmt.Sprintf("link %q is an absolute link and is left as is", l.Destination),
				Fix:      "Use a relative link to the page source",
			})
		}
	}
	return out
}

// LinkUnrecognizedRule reports relative links that are neither pages, static
// files, nor directories with an index page.
type LinkUnrecognizedRule struct{}

func (r *LinkUnrecognizedRule) Name() string { return "link-unrecognized" }

func (r *LinkUnrecognizedRule) Check(ctx *Context) []Issue {
	return linkIssues(ctx, r.Name(), ctx.Config.Validation.Links.UnrecognizedLinks, func(pl pageLink) (Issue, bool) {
		if pl.err != nil || isPagePath(pl.target.Path) || pl.target.Found() {
			return Issue{}, false
		}
		return Issue{
			Message: fmt.Sprintf("link %q is not a recognized relative link", pl.link.Destination),
			Fix:     "Link to the .md source of the page",
		}, true
	})
}
