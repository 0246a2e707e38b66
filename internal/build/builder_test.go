package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/lint"
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
)

func writeSite(t *testing.T, cfgYAML string, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, "docs", filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	cfg, err := config.Parse([]byte(cfgYAML))
	require.NoError(t, err)
	cfg.SetRoot(root)
	return cfg
}

func newBuilder(t *testing.T, cfg *config.Config) *Builder {
	t.Helper()
	b, err := New(Options{Config: cfg})
	require.NoError(t, err)
	return b
}

var guideFiles = map[string]string{
	"index.md":        "# Free-threaded Python\n\nSee [porting](porting.md#c-extensions).\n\n![GIL](img/gil.png)\n",
	"porting.md":      "# Porting\n\n## C extensions\n\nBack to [home](index.md).\n",
	"img/gil.png":     "png",
	"guide/faq.md":    "# FAQ\n",
	"guide/README.md": "# Guide\n\n[FAQ](faq.md)\n",
}

func TestBuild_WritesSite(t *testing.T) {
	cfg := writeSite(t, "site_name: Guide\nplugins:\n  - search\n", guideFiles)
	report, err := newBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)

	site := cfg.SitePath()
	for _, rel := range []string{
		"index.html", "porting/index.html", "guide/index.html", "guide/faq/index.html",
		"img/gil.png", "404.html", "sitemap.xml", "assets/ftdocs.css",
		"search/search_index.json", ManifestPath,
	} {
		require.FileExists(t, filepath.Join(site, filepath.FromSlash(rel)), rel)
	}

	index, err := os.ReadFile(filepath.Join(site, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), `href="porting/#c-extensions"`)

	require.Len(t, report.Pages, 4)
	require.NotEmpty(t, report.SiteHash)
	require.False(t, report.Lint.HasErrors())
	require.Contains(t, report.Manifest.OutputPaths(), "index.html")
}

func TestBuild_RebuildKeepsUnchangedFilesAndPrunes(t *testing.T) {
	cfg := writeSite(t, "site_name: Guide\n", guideFiles)
	b := newBuilder(t, cfg)
	first, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first.Written)

	stale := filepath.Join(cfg.SitePath(), "old", "page", "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	second, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, second.Written)
	require.Equal(t, []string{"old/page/index.html"}, second.Removed)
	require.NoDirExists(t, filepath.Join(cfg.SitePath(), "old"))
	require.Equal(t, first.SiteHash, second.SiteHash)
}

func TestBuild_StrictStopsBeforeWriting(t *testing.T) {
	files := map[string]string{
		"index.md": "# Home\n\n[missing](nowhere.md)\n",
	}
	cfg := writeSite(t, "site_name: Guide\nstrict: true\n", files)
	report, err := newBuilder(t, cfg).Build(context.Background())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.True(t, report.Lint.HasErrors())
	require.NoDirExists(t, cfg.SitePath())

	var promoted bool
	for _, issue := range report.Lint.Issues {
		promoted = promoted || issue.Promoted
	}
	require.True(t, promoted)
}

func TestBuild_NonStrictWarnsAndWrites(t *testing.T) {
	files := map[string]string{
		"index.md": "# Home\n\n[missing](nowhere.md)\n",
	}
	cfg := writeSite(t, "site_name: Guide\n", files)
	report, err := newBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)
	require.True(t, report.Lint.HasWarnings())
	require.FileExists(t, filepath.Join(cfg.SitePath(), "index.html"))
}

func TestBuild_ValidateOnlyWritesNothing(t *testing.T) {
	cfg := writeSite(t, "site_name: Guide\n", guideFiles)
	b, err := New(Options{Config: cfg, ValidateOnly: true})
	require.NoError(t, err)
	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Lint)
	require.NoDirExists(t, cfg.SitePath())
}

func TestBuild_Canceled(t *testing.T) {
	cfg := writeSite(t, "site_name: Guide\n", guideFiles)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newBuilder(t, cfg).Build(ctx)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryRuntime))
}

func TestVerifyOutput(t *testing.T) {
	files := map[string][]byte{
		"index.html":         []byte(`<a href="guide/#intro">ok</a><a href="guide/#gone">bad</a><img src="img/x.png"><a href="https://python.org">ext</a><a href="#top" id="top">self</a>`),
		"guide/index.html":   []byte(`<h2 id="intro">Intro</h2><a href="../">home</a><a href="../missing/">nope</a>`),
		"404.html":           []byte(`<a href="/nowhere/">home</a>`),
		"assets/ftdocs.css":  []byte("body{}"),
		"guide/diagram.html": []byte(`<link rel="stylesheet" href="../assets/ftdocs.css">`),
	}
	warnAll := config.LinkValidation{NotFound: config.LevelWarn, Anchors: config.LevelWarn}
	issues, err := verifyOutput(files, map[string]string{"index.html": "index.md"}, warnAll)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	byFile := map[string][]lint.Issue{}
	for _, issue := range issues {
		require.Equal(t, RuleRenderedLink, issue.Rule)
		byFile[issue.File] = append(byFile[issue.File], issue)
	}
	require.Len(t, byFile["index.md"], 2)
	require.Len(t, byFile["guide/index.html"], 1)
	require.Contains(t, byFile["guide/index.html"][0].Message, "missing")

	t.Run("anchor level", func(t *testing.T) {
		issues, err := verifyOutput(files, nil, config.LinkValidation{NotFound: config.LevelWarn, Anchors: config.LevelInfo})
		require.NoError(t, err)
		require.Len(t, issues, 3)
		for _, issue := range issues {
			if strings.Contains(issue.Message, "#gone") {
				require.Equal(t, lint.SeverityInfo, issue.Severity)
			} else {
				require.Equal(t, lint.SeverityWarning, issue.Severity)
			}
		}
	})

	t.Run("ignored levels drop issues", func(t *testing.T) {
		issues, err := verifyOutput(files, nil, config.LinkValidation{NotFound: config.LevelWarn, Anchors: config.LevelIgnore})
		require.NoError(t, err)
		require.Len(t, issues, 2)

		issues, err = verifyOutput(files, nil, config.LinkValidation{NotFound: config.LevelIgnore, Anchors: config.LevelIgnore})
		require.NoError(t, err)
		require.Empty(t, issues)
	})
}

func TestBuild_StrictAnchorLevels(t *testing.T) {
	files := map[string]string{
		"index.md":   "# Home\n\nSee [porting](porting.md#no-such-section).\n",
		"porting.md": "# Porting\n\n## Thread safety\n",
	}

	for _, level := range []string{"", "anchors: info\n", "anchors: ignore\n"} {
		cfgYAML := "site_name: Guide\nstrict: true\n"
		if level != "" {
			cfgYAML += "validation:\n  links:\n    " + level
		}
		cfg := writeSite(t, cfgYAML, files)
		report, err := newBuilder(t, cfg).Build(context.Background())
		require.NoError(t, err, "level %q", level)
		require.False(t, report.Lint.HasErrors())
		require.FileExists(t, filepath.Join(cfg.SitePath(), "index.html"))
	}

	cfg := writeSite(t, "site_name: Guide\nstrict: true\nvalidation:\n  links:\n    anchors: warn\n", files)
	_, err := newBuilder(t, cfg).Build(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.NoDirExists(t, cfg.SitePath())
}

func TestBuild_TrackingTableOrderDoesNotFailStrictBuild(t *testing.T) {
	files := map[string]string{
		"index.md":    "# Home\n",
		"tracking.md": "# Tracking\n\n| Project | CI |\n|---|---|\n| numpy | ✅ |\n| aiohttp | ✅ |\n",
	}
	cfg := writeSite(t, "site_name: Guide\nstrict: true\n", files)
	report, err := newBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)

	var found bool
	for _, issue := range report.Lint.Issues {
		if issue.Rule == "tracking-table" {
			found = true
			require.Equal(t, lint.SeverityInfo, issue.Severity)
		}
	}
	require.True(t, found)
}

// brokenLinkPlugin writes a page whose link only shows up in the output.
type brokenLinkPlugin struct{}

func (brokenLinkPlugin) Name() string                      { return "broken-link" }
func (brokenLinkPlugin) Configure(config.PluginSpec) error { return nil }
func (brokenLinkPlugin) OnPostBuild(_ context.Context, env *plugin.Env) error {
	return env.Output.Write("extra/index.html", []byte(`<a href="../gone/">gone</a>`))
}

func TestBuild_StrictVerifyFailureLeavesSiteUntouched(t *testing.T) {
	cfg := writeSite(t, "site_name: Guide\nstrict: true\nplugins:\n  - broken-link\n", map[string]string{
		"index.md": "# Home\n",
	})
	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register("broken-link", func() plugin.Plugin { return brokenLinkPlugin{} }))

	previous := filepath.Join(cfg.SitePath(), "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(previous), 0o750))
	require.NoError(t, os.WriteFile(previous, []byte("previous build"), 0o600))

	b, err := New(Options{Config: cfg, Registry: registry})
	require.NoError(t, err)
	report, err := b.Build(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.True(t, report.Lint.HasErrors())

	data, err := os.ReadFile(previous)
	require.NoError(t, err)
	require.Equal(t, "previous build", string(data))
	require.NoFileExists(t, filepath.Join(cfg.SitePath(), "extra", "index.html"))
	require.NoFileExists(t, filepath.Join(cfg.SitePath(), filepath.FromSlash(ManifestPath)))
}

func TestWriter_Reconcile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "site")
	w := NewWriter(root)
	require.NoError(t, w.Write("a/index.html", []byte("a")))
	require.NoError(t, w.Write("b.txt", []byte("b")))
	require.Error(t, w.Write("../escape", []byte("x")))
	require.NoError(t, w.Finish())

	w = NewWriter(root)
	require.NoError(t, w.Write("a/index.html", []byte("a")))
	require.NoError(t, w.Finish())
	written, unchanged, removed := w.Stats()
	require.Empty(t, written)
	require.Equal(t, []string{"a/index.html"}, unchanged)
	require.Equal(t, []string{"b.txt"}, removed)
	require.NoFileExists(t, filepath.Join(root, "b.txt"))
}
