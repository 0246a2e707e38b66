package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/frontmatter"
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
)

type memOutput map[string][]byte

func (m memOutput) Write(rel string, data []byte) error {
	m[rel] = data
	return nil
}

func TestExtract_SplitsSections(t *testing.T) {
	content := []byte(`<p>Intro &amp; overview.</p>
<h2 id="install">Installing <code>cp313t</code></h2>
<p>Use the
installer.</p><script>var x = 1;</script>
<h3>No id</h3><p>still install</p>
<h2 id="run">Running</h2><p>Set PYTHON_GIL=0.</p>`)

	got := Extract("installing/", "Installing", content)
	require.Equal(t, []Doc{
		{Location: "installing/", Title: "Installing", Text: "Intro & overview."},
		{Location: "installing/#install", Title: "Installing cp313t", Text: "Use the installer. No id still install"},
		{Location: "installing/#run", Title: "Running", Text: "Set PYTHON_GIL=0."},
	}, got)
}

func TestPlugin_WritesIndex(t *testing.T) {
	p := New()
	require.NoError(t, p.Configure(config.PluginSpec{Name: Name, Options: map[string]any{}}))

	hidden := &docs.Page{Src: "secret.md", URL: "secret/", Title: "Secret", Content: []byte("<p>x</p>"),
		Meta: frontmatter.Meta{Hide: []string{"search"}}}
	page := &docs.Page{Src: "index.md", URL: "", Title: "Home", Content: []byte("<p>Welcome</p>")}
	cfg := &config.Config{Theme: config.ThemeConfig{Language: "de"}}
	out := memOutput{}
	env := &plugin.Env{Config: cfg, Site: docs.NewSite("docs", true, []*docs.Page{page, hidden}, nil), Output: out}

	require.NoError(t, p.(plugin.PostBuildHook).OnPostBuild(context.Background(), env))

	var idx Index
	require.NoError(t, json.Unmarshal(out[IndexPath], &idx))
	require.Equal(t, []string{"de"}, idx.Config.Lang)
	require.Equal(t, []Doc{{Location: "", Title: "Home", Text: "Welcome"}}, idx.Docs)
}
