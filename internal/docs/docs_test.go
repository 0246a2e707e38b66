package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

func TestDiscover_PagesStaticAndTitles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.md":                  "Welcome\n",
		"porting.md":                "---\ntitle: Porting Extensions\n---\n# Ignored\n",
		"free-threading_intro.md":   "no heading\n",
		"guide/README.md":           "# Guide\n",
		"guide/debugging.md":        "# Debugging\n\n## TSan\n",
		"img/gil.png":               "png",
		".hidden.md":                "# Hidden\n",
		".git/config":               "x",
		"examples/scraper.ipynb":    "{}",
		"examples/other/data.ipynb": "{}",
	})

	site, err := Discover(root, Options{DirectoryURLs: true, Notebooks: []string{"examples/*.ipynb"}})
	require.NoError(t, err)

	var srcs []string
	for _, p := range site.Pages {
		srcs = append(srcs, p.Src)
	}
	require.Equal(t, []string{
		"examples/scraper.ipynb", "free-threading_intro.md", "guide/README.md",
		"guide/debugging.md", "index.md", "porting.md",
	}, srcs)

	_, ok := site.StaticFile("img/gil.png")
	require.True(t, ok)
	_, ok = site.StaticFile("examples/other/data.ipynb")
	require.True(t, ok)

	index, _ := site.Page("index.md")
	require.Equal(t, "Home", index.Title)
	require.Equal(t, "", index.URL)
	require.Equal(t, "index.html", index.DestPath)

	porting, _ := site.Page("porting.md")
	require.Equal(t, "Porting Extensions", porting.Title)
	require.Equal(t, "porting/", porting.URL)
	require.Equal(t, "porting/index.html", porting.DestPath)
	require.NotEmpty(t, porting.Fingerprint)

	intro, _ := site.Page("free-threading_intro.md")
	require.Equal(t, "Free Threading Intro", intro.Title)

	readme, _ := site.Page("guide/README.md")
	require.True(t, readme.IsIndex)
	require.Equal(t, "guide/", readme.URL)

	dbg, _ := site.Page("guide/debugging.md")
	require.True(t, dbg.Anchors["tsan"])
	require.Len(t, dbg.TOC(), 1)

	nb, _ := site.Page("examples/scraper.ipynb")
	require.Equal(t, KindNotebook, nb.Kind)
	require.Equal(t, "examples/scraper/", nb.URL)
}

func TestDiscover_ReadmeSkippedWhenIndexExists(t *testing.T) {
	root := writeTree(t, map[string]string{"index.md": "# Home\n", "README.md": "# Readme\n"})
	site, err := Discover(root, Options{DirectoryURLs: true})
	require.NoError(t, err)
	require.Len(t, site.Pages, 1)
}

func TestDiscover_MalformedFrontMatterRecorded(t *testing.T) {
	root := writeTree(t, map[string]string{"broken.md": "---\ntitle: x\n# no close\n"})
	site, err := Discover(root, Options{})
	require.NoError(t, err)
	p, _ := site.Page("broken.md")
	require.Error(t, p.ParseErr)
	require.Equal(t, "broken.html", p.URL)
}

func TestDiscover_MissingDocsDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "docs"), Options{})
	require.Error(t, err)
}

func TestPageURL(t *testing.T) {
	cases := []struct {
		src     string
		index   bool
		dirURLs bool
		url     string
		dest    string
	}{
		{"index.md", true, true, "", "index.html"},
		{"a.md", false, true, "a/", "a/index.html"},
		{"d/index.md", true, true, "d/", "d/index.html"},
		{"a.md", false, false, "a.html", "a.html"},
		{"d/index.md", true, false, "d/index.html", "d/index.html"},
	}
	for _, tc := range cases {
		url, dest := pageURL(tc.src, tc.index, tc.dirURLs)
		require.Equal(t, tc.url, url, tc.src)
		require.Equal(t, tc.dest, dest, tc.src)
	}
}

func TestRelativeURL(t *testing.T) {
	require.Equal(t, "faq/", RelativeURL("", "faq/"))
	require.Equal(t, "../", RelativeURL("faq/", ""))
	require.Equal(t, "../porting/", RelativeURL("faq/", "porting/"))
	require.Equal(t, "../b/", RelativeURL("guide/a/", "guide/b/"))
	require.Equal(t, "./", RelativeURL("faq/", "faq/"))
	require.Equal(t, "../img/x.png", RelativeURL("faq/", "img/x.png"))
	require.Equal(t, "index.html", RelativeURL("guide/index.html", "guide/index.html"))
	require.Equal(t, "../guide.html", RelativeURL("guide/a.html", "guide.html"))
}

func TestResolveAndLinkResolver(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.md":       "# Home\n",
		"guide/a.md":     "# A\n",
		"guide/index.md": "# Guide\n",
		"img/x.png":      "png",
	})
	site, err := Discover(root, Options{DirectoryURLs: true})
	require.NoError(t, err)
	a, _ := site.Page("guide/a.md")

	tgt, err := site.Resolve(a, "../index.md#top")
	require.NoError(t, err)
	require.Equal(t, "index.md", tgt.Page.Src)
	require.Equal(t, "top", tgt.Fragment)

	tgt, err = site.Resolve(a, "./")
	require.NoError(t, err)
	require.Equal(t, "guide/index.md", tgt.Page.Src)

	tgt, err = site.Resolve(a, "missing.md")
	require.NoError(t, err)
	require.False(t, tgt.Found())

	_, err = site.Resolve(a, "../../outside.md")
	require.ErrorIs(t, err, ErrOutsideDocs)

	resolve := site.LinkResolver(a)
	require.Equal(t, "../../#top", resolve("../index.md#top"))
	require.Equal(t, "../../img/x.png", resolve("../img/x.png"))
	require.Equal(t, "https://example.com", resolve("https://example.com"))
	require.Equal(t, "#local", resolve("#local"))
	require.Equal(t, "missing.md", resolve("missing.md"))
}
