package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/frontmatter"
	"git.home.luguber.info/inful/ftdocs/internal/markdown"
	"git.home.luguber.info/inful/ftdocs/internal/nav"
)

func fixture(t *testing.T) (*Renderer, *docs.Site) {
	t.Helper()
	theme, err := LoadTheme()
	require.NoError(t, err)

	home := &docs.Page{Src: "index.md", IsIndex: true, Title: "Home", URL: "", Content: []byte("<h1 id=\"home\">Home</h1>")}
	porting := &docs.Page{
		Src: "guide/porting.md", Title: "Porting", URL: "guide/porting/",
		Content:  []byte("<h2 id=\"c-api\">C API</h2>"),
		Headings: []markdown.Heading{{Level: 2, Text: "C API", ID: "c-api"}},
		Meta:     frontmatter.Meta{Description: "How to port", Fields: map[string]any{RevisionDateKey: "January 2, 2026"}},
	}
	site := docs.NewSite("", true, []*docs.Page{home, porting}, nil)

	cfg := &config.Config{
		SiteName: "Free-Threading Guide",
		SiteURL:  "https://example.github.io/guide/",
		RepoURL:  "https://github.com/org/guide",
		RepoName: "GitHub",
		EditURI:  "edit/main/docs/",
		Theme:    config.ThemeConfig{Language: "en"},
		Nav: []config.NavItem{
			{Title: "Home", Path: "index.md"},
			{Title: "Guide", Children: []config.NavItem{{Title: "Porting", Path: "guide/porting.md"}}},
		},
	}
	tree, problems := nav.Build(cfg, site)
	require.Empty(t, problems)
	return NewRenderer(theme, cfg, tree, Options{Search: true}), site
}

func TestRenderer_Page(t *testing.T) {
	r, site := fixture(t)
	p, _ := site.Page("guide/porting.md")

	out, err := r.Page(p)
	require.NoError(t, err)
	html := string(out)

	require.Contains(t, html, "<title>Porting - Free-Threading Guide</title>")
	require.Contains(t, html, `<meta name="description" content="How to port">`)
	require.Contains(t, html, `href="../../assets/ftdocs.css"`)
	require.Contains(t, html, `<a href="./" aria-current="page">Porting</a>`)
	require.Contains(t, html, `<a class="prev" href="../../">`)
	require.Contains(t, html, `href="https://github.com/org/guide/edit/main/docs/guide/porting.md"`)
	require.Contains(t, html, "Last update: January 2, 2026")
	require.Contains(t, html, `<a href="#c-api">C API</a>`)
	require.Contains(t, html, `<link rel="canonical" href="https://example.github.io/guide/guide/porting/">`)
	require.Contains(t, html, "assets/search.js")
	require.NotContains(t, html, "__livereload")
}

func TestRenderer_DeterministicOutput(t *testing.T) {
	r, site := fixture(t)
	home, _ := site.Page("index.md")
	a, err := r.Page(home)
	require.NoError(t, err)
	b, err := r.Page(home)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Contains(t, string(a), "<title>Free-Threading Guide</title>")
}

func TestRenderer_NotFoundAndSitemap(t *testing.T) {
	r, site := fixture(t)

	out, err := r.NotFound()
	require.NoError(t, err)
	require.Contains(t, string(out), `href="/guide/assets/ftdocs.css"`)
	require.Contains(t, string(out), `href="/guide/guide/porting/"`)

	sm, err := r.Sitemap(site.Pages)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(sm), "<?xml"))
	require.Contains(t, string(sm), "<loc>https://example.github.io/guide/guide/porting/</loc>")
}

func TestTheme_Assets(t *testing.T) {
	theme, err := LoadTheme()
	require.NoError(t, err)
	assets, err := theme.Assets()
	require.NoError(t, err)
	require.Equal(t, []string{"assets/ftdocs.css", "assets/search.js"}, AssetNames(assets))
}
