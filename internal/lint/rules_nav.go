package lint

import (
	"fmt"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/nav"
)

// NavTargetRule reports nav entries that do not resolve to a page.
type NavTargetRule struct{}

func (r *NavTargetRule) Name() string { return "nav-target" }

func (r *NavTargetRule) Check(ctx *Context) []Issue {
	return navIssues(ctx, r.Name(), nav.ProblemNotFound, ctx.Config.Validation.Nav.NotFound,
		func(p nav.Problem) Issue {
			return Issue{
				Message: fmt.Sprintf("nav entry %q points to %q which does not exist in docs_dir", p.Title, p.Path),
				Fix:     "Create the page or remove the entry from nav",
			}
		})
}

// NavOmittedRule reports pages that exist but are missing from nav.
type NavOmittedRule struct{}

func (r *NavOmittedRule) Name() string { return "nav-omitted" }

func (r *NavOmittedRule) Check(ctx *Context) []Issue {
	if len(ctx.Config.Nav) == 0 {
		return nil
	}
	return navIssues(ctx, r.Name(), nav.ProblemOmitted, ctx.Config.Validation.Nav.OmittedFiles,
		func(p nav.Problem) Issue {
			return Issue{
				File:    p.Path,
				Message: "page is not included in the nav",
				Fix:     "Add the page to nav or list it under not_in_nav",
			}
		})
}

// NavAbsoluteRule reports nav entries written as site-absolute paths.
type NavAbsoluteRule struct{}

func (r *NavAbsoluteRule) Name() string { return "nav-absolute" }

func (r *NavAbsoluteRule) Check(ctx *Context) []Issue {
	return navIssues(ctx, r.Name(), nav.ProblemAbsolute, ctx.Config.Validation.Nav.AbsoluteLinks,
		func(p nav.Problem) Issue {
			return Issue{Message: fmt.Sprintf("nav entry %q is an absolute link %q and is left as is", p.Title, p.Path)}
		})
}

func navIssues(ctx *Context, rule string, kind nav.ProblemKind, level config.ValidationLevel, build func(nav.Problem) Issue) []Issue {
	severity, ok := SeverityFor(level)
	if !ok {
		return nil
	}
	var out []Issue
	for _, p := range ctx.NavProblems {
		if p.Kind != kind {
			continue
		}
		issue := build(p)
		if issue.File == "" {
			issue.File = ctx.configFile()
		}
		issue.Rule = rule
		issue.Severity = severity
		out = append(out, issue)
	}
	return out
}
