package revisiondate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
	"git.home.luguber.info/inful/ftdocs/internal/render"
)

var committed = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func repoWithDocs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "index.md"), []byte("# Home\n"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("docs/index.md")
	require.NoError(t, err)
	_, err = wt.Commit("docs", &git.CommitOptions{Author: &object.Signature{Name: "a", Email: "a@b", When: committed}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "new.md"), []byte("# New\n"), 0o600))
	return filepath.Join(root, "docs")
}

func configured(t *testing.T, opts map[string]any) *Plugin {
	t.Helper()
	p := New().(*Plugin)
	require.NoError(t, p.Configure(config.PluginSpec{Name: Name, Options: opts}))
	return p
}

func TestPlugin_SetsDatesFromHistory(t *testing.T) {
	docsDir := repoWithDocs(t)
	index := &docs.Page{Src: "index.md"}
	fresh := &docs.Page{Src: "new.md"}
	env := &plugin.Env{
		Config: &config.Config{Theme: config.ThemeConfig{Language: "de"}},
		Site:   docs.NewSite(docsDir, true, []*docs.Page{index, fresh}, nil),
	}

	p := configured(t, map[string]any{})
	require.NoError(t, plugin.NewSet(p).RunPage(context.Background(), env))

	require.True(t, committed.Equal(index.RevisionDate))
	require.Equal(t, "5. März 2024", index.Meta.Fields[render.RevisionDateKey])
	require.True(t, fresh.RevisionDate.IsZero())
	require.Nil(t, fresh.Meta.Fields)
}

func TestPlugin_FallbackToBuildDate(t *testing.T) {
	docsDir := repoWithDocs(t)
	fresh := &docs.Page{Src: "new.md"}
	env := &plugin.Env{Site: docs.NewSite(docsDir, true, []*docs.Page{fresh}, nil)}

	p := configured(t, map[string]any{"fallback_to_build_date": true, "type": "iso_date"})
	p.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, p.OnPage(context.Background(), fresh, env))
	require.Equal(t, "2025-02-01", fresh.Meta.Fields[render.RevisionDateKey])
}

func TestPlugin_NoRepositoryIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	page := &docs.Page{Src: "index.md"}
	env := &plugin.Env{Site: docs.NewSite(dir, true, []*docs.Page{page}, nil)}
	require.NoError(t, configured(t, map[string]any{}).OnPage(context.Background(), page, env))
	require.True(t, page.RevisionDate.IsZero())
}

func TestConfigure_RejectsUnknownType(t *testing.T) {
	p := New()
	require.Error(t, p.Configure(config.PluginSpec{Name: Name, Options: map[string]any{"type": "relative"}}))
	require.Error(t, p.Configure(config.PluginSpec{Name: Name, Options: map[string]any{"exclude": []any{"[bad"}}}))
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 11, 2, 14, 5, 9, 0, time.FixedZone("CET", 3600))
	require.Equal(t, "November 2, 2024", format(ts, TypeDate, language.English))
	require.Equal(t, "2 novembre 2024 13:05:09", format(ts, TypeDateTime, language.French))
	require.Equal(t, "2024-11-02", format(ts, TypeISODate, language.English))
	require.Equal(t, "2024-11-02 13:05:09", format(ts, TypeISODateTime, language.English))
	require.Equal(t, "2024-11-02T13:05:09Z", format(ts, TypeTimeAgo, language.English))
}

func TestMatchLocale(t *testing.T) {
	require.Equal(t, language.German, matchLocale("de_CH"))
	require.Equal(t, language.Spanish, matchLocale("es-MX"))
	require.Equal(t, language.English, matchLocale(""))
	require.Equal(t, language.English, matchLocale("not a locale!"))
}
