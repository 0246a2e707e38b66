package lint

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/nav"
)

func newContext(t *testing.T, cfgYAML string, files map[string]string) *Context {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "mkdocs.yml"), []byte(cfgYAML), 0o600))
	for name, body := range files {
		p := filepath.Join(root, "docs", filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	cfg, err := config.Load(filepath.Join(root, "mkdocs.yml"))
	require.NoError(t, err)
	site, err := docs.Discover(cfg.DocsPath(), docs.Options{DirectoryURLs: cfg.DirectoryURLs()})
	require.NoError(t, err)
	tree, problems := nav.Build(cfg, site)
	return &Context{Config: cfg, Site: site, Nav: tree, NavProblems: problems}
}

func rules(result *Result) map[string][]Issue {
	out := map[string][]Issue{}
	for _, i := range result.Issues {
		out[i.Rule] = append(out[i.Rule], i)
	}
	return out
}

func TestLinter_MissingNavTargetFailsOnlyWhenStrict(t *testing.T) {
	ctx := newContext(t, "site_name: Guide\nnav:\n  - index.md\n  - tracking.md\n", map[string]string{
		"index.md": "# Home\n",
	})

	result := NewLinter().Run(ctx)
	byRule := rules(result)
	require.Len(t, byRule["nav-target"], 1)
	require.Equal(t, "mkdocs.yml", byRule["nav-target"][0].File)
	require.Equal(t, SeverityWarning, byRule["nav-target"][0].Severity)
	require.False(t, result.HasErrors())

	result.Promote(true)
	require.True(t, result.HasErrors())
	require.True(t, result.Issues[0].Promoted)
}

func TestLinter_Links(t *testing.T) {
	ctx := newContext(t, "site_name: Guide\nvalidation:\n  links:\n    anchors: warn\n    absolute_links: warn\n    unrecognized_links: warn\n", map[string]string{
		"index.md": "# Home\n\n" +
			"[ok](porting.md#c-extensions)\n" +
			"[missing](missing.md)\n" +
			"[bad anchor](porting.md#nope)\n" +
			"[self](#home)\n" +
			"[abs](/porting.md)\n" +
			"[dir](examples/)\n" +
			"[img](img/x.png)\n" +
			"[outside](../README.md)\n" +
			"[web](https://example.com/x.md)\n",
		"porting.md": "# Porting\n\n## C extensions\n",
		"img/x.png":  "png",
	})

	byRule := rules(NewLinter().Run(ctx))

	require.Len(t, byRule["link-target"], 2)
	require.Equal(t, 4, byRule["link-target"][0].Line)
	require.Contains(t, byRule["link-target"][1].Message, "outside docs_dir")

	require.Len(t, byRule["link-anchor"], 1)
	require.Equal(t, 5, byRule["link-anchor"][0].Line)

	require.Len(t, byRule["link-absolute"], 1)
	require.Len(t, byRule["link-unrecognized"], 1)
	require.Contains(t, byRule["link-unrecognized"][0].Message, "examples/")
}

func TestLinter_IgnoreLevelDropsIssues(t *testing.T) {
	ctx := newContext(t, "site_name: Guide\nvalidation:\n  links:\n    not_found: ignore\n", map[string]string{
		"index.md": "[missing](missing.md)\n",
	})
	require.Empty(t, rules(NewLinter().Run(ctx))["link-target"])
}

func TestLinter_FrontmatterAlwaysError(t *testing.T) {
	ctx := newContext(t, "site_name: Guide\n", map[string]string{
		"index.md": "---\ntitle: x\n",
	})
	result := NewLinter().Run(ctx)
	require.True(t, result.HasErrors())
	require.Equal(t, "frontmatter", result.Issues[0].Rule)
}

func TestLinter_NavOmitted(t *testing.T) {
	ctx := newContext(t, "site_name: Guide\nnav:\n  - index.md\nnot_in_nav: |\n  drafts/*.md\nvalidation:\n  nav:\n    omitted_files: warn\n", map[string]string{
		"index.md":      "# Home\n",
		"faq.md":        "# FAQ\n",
		"drafts/wip.md": "# WIP\n",
	})
	issues := rules(NewLinter().Run(ctx))["nav-omitted"]
	require.Len(t, issues, 1)
	require.Equal(t, "faq.md", issues[0].File)
}

func TestLinter_TrackingTable(t *testing.T) {
	ctx := newContext(t, "site_name: Guide\n", map[string]string{
		"tracking.md": "| Project | CI |\n|---|---|\n| numpy | ✅ |\n| Cython | ✅ |\n",
	})
	result := NewLinter().Run(ctx)
	issues := rules(result)["tracking-table"]
	require.Len(t, issues, 1)
	require.Equal(t, 4, issues[0].Line)
	require.Equal(t, SeverityInfo, issues[0].Severity)

	result.Promote(true)
	require.False(t, result.HasErrors(), "an unsorted table must not fail a strict build")
}

func TestLinter_TrackingTableLevel(t *testing.T) {
	table := map[string]string{
		"tracking.md": "| Project | CI |\n|---|---|\n| numpy | ✅ |\n| aiohttp | ✅ |\n",
	}

	ctx := newContext(t, "site_name: Guide\nftdocs:\n  tracking:\n    level: warn\n", table)
	issues := rules(NewLinter().Run(ctx))["tracking-table"]
	require.Len(t, issues, 1)
	require.Equal(t, SeverityWarning, issues[0].Severity)

	ctx = newContext(t, "site_name: Guide\nftdocs:\n  tracking:\n    level: ignore\n", table)
	require.Empty(t, rules(NewLinter().Run(ctx))["tracking-table"])
}

func TestFormatters(t *testing.T) {
	result := &Result{FilesTotal: 2}
	result.Add(
		Issue{File: "b.md", Line: 3, Rule: "link-target", Severity: SeverityError, Message: "broken", Fix: "fix it"},
		Issue{File: "a.md", Rule: "nav-omitted", Severity: SeverityInfo, Message: "omitted"},
	)
	require.Equal(t, "a.md", result.Issues[0].File)

	var text bytes.Buffer
	require.NoError(t, NewFormatter("text").Format(&text, result, "docs"))
	require.Contains(t, text.String(), "b.md:3 [link-target] broken")
	require.Contains(t, text.String(), "1 error (blocks build)")

	var js bytes.Buffer
	require.NoError(t, NewFormatter("json").Format(&js, result, "docs"))
	var out JSONOutput
	require.NoError(t, json.Unmarshal(js.Bytes(), &out))
	require.Equal(t, 1, out.ErrorCount)
	require.Equal(t, 1, out.InfoCount)
	require.Len(t, out.Issues, 2)
}
