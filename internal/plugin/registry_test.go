package plugin

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

type recordingPlugin struct {
	name     string
	options  map[string]any
	pages    []string
	post     int
	failPage string
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) Configure(spec config.PluginSpec) error {
	if spec.Bool("reject", false) {
		return fmt.Errorf("rejected")
	}
	p.options = spec.Options
	return nil
}

func (p *recordingPlugin) OnPage(_ context.Context, page *docs.Page, _ *Env) error {
	if page.Src == p.failPage {
		return fmt.Errorf("boom")
	}
	p.pages = append(p.pages, page.Src)
	return nil
}

func (p *recordingPlugin) OnPostBuild(context.Context, *Env) error {
	p.post++
	return nil
}

func (p *recordingPlugin) PageGlobs() []string { return []string{"**/*.ipynb"} }

func newTestRegistry(t *testing.T, instances map[string]*recordingPlugin) *Registry {
	t.Helper()
	r := NewRegistry()
	for name := range instances {
		require.NoError(t, r.Register(name, func() Plugin {
			instances[name].name = name
			return instances[name]
		}))
	}
	return r
}

func testSite() *docs.Site {
	return docs.NewSite("docs", true, []*docs.Page{{Src: "b.md"}, {Src: "a.md"}}, nil)
}

func TestRegistry_RegisterRejectsDuplicatesAndNil(t *testing.T) {
	r := NewRegistry()
	factory := func() Plugin { return &recordingPlugin{name: "search"} }
	require.NoError(t, r.Register("search", factory))
	require.Error(t, r.Register("search", factory))
	require.Error(t, r.Register("other", nil))
	require.Error(t, r.Register("", factory))
	require.True(t, r.Has("search"))
	require.Equal(t, []string{"search"}, r.Names())
}

func TestRegistry_LoadKeepsOrderAndReportsUnknown(t *testing.T) {
	search, dates := &recordingPlugin{}, &recordingPlugin{}
	r := newTestRegistry(t, map[string]*recordingPlugin{"search": search, "dates": dates})

	var specs config.PluginList
	specs = append(specs,
		config.PluginSpec{Name: "dates", Options: map[string]any{"type": "iso_date"}},
		config.PluginSpec{Name: "social"},
		config.PluginSpec{Name: "search"})

	set, unknown, err := r.Load(specs)
	require.NoError(t, err)
	require.Equal(t, []string{"social"}, unknown)
	require.Equal(t, []string{"dates", "search"}, set.Names())
	require.Equal(t, "iso_date", dates.options["type"])
	require.Equal(t, []string{"**/*.ipynb", "**/*.ipynb"}, set.PageGlobs())
}

func TestRegistry_LoadConfigureErrorIsConfigError(t *testing.T) {
	r := newTestRegistry(t, map[string]*recordingPlugin{"search": {}})
	_, _, err := r.Load(config.PluginList{{Name: "search", Options: map[string]any{"reject": true}}})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestSet_RunHooks(t *testing.T) {
	p := &recordingPlugin{name: "rec"}
	set := NewSet(p)
	env := &Env{Site: testSite()}

	require.NoError(t, set.RunPage(context.Background(), env))
	require.Equal(t, []string{"a.md", "b.md"}, p.pages)
	require.NoError(t, set.RunPostBuild(context.Background(), env))
	require.Equal(t, 1, p.post)
}

func TestSet_RunPageWrapsFailure(t *testing.T) {
	set := NewSet(&recordingPlugin{name: "rec", failPage: "b.md"})
	err := set.RunPage(context.Background(), &Env{Site: testSite()})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryBuild))
	require.Contains(t, err.Error(), "page hook")
}

func TestSet_RunPageHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSet(&recordingPlugin{name: "rec"}).RunPage(ctx, &Env{Site: testSite()})
	require.ErrorIs(t, err, context.Canceled)
}
