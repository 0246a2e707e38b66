package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

const sampleConfig = `
site_name: Python Free-Threading Guide
site_url: https://py-free-threading.github.io/
repo_url: https://github.com/Quansight-Labs/free-threaded-compatibility
strict: true
theme:
  name: material
  features: [navigation.tabs, content.code.copy]
nav:
  - Home: index.md
  - installing.md
  - Guide:
      - Porting: porting.md
      - Testing: testing.md
  - Issues: https://github.com/Quansight-Labs/free-threaded-compatibility/issues
plugins:
  - search
  - git-revision-date-localized:
      type: timeago
      locale: de
  - mkdocs-jupyter:
      include: ["examples/*.ipynb"]
markdown_extensions:
  - tables
  - toc:
      permalink: true
validation:
  links:
    anchors: warn
not_in_nav: |
  drafts/*.md
  # comment
  /hidden.md
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mkdocs.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "Python Free-Threading Guide", cfg.SiteName)
	require.True(t, cfg.Strict)
	require.True(t, cfg.DirectoryURLs())
	require.Equal(t, "material", cfg.Theme.Name)
	require.True(t, cfg.Theme.HasFeature("navigation.tabs"))
	require.Equal(t, "GitHub", cfg.RepoName)
	require.Equal(t, "edit/main/docs/", cfg.EditURI)
	require.Equal(t, filepath.Join(filepath.Dir(path), "docs"), cfg.DocsPath())
	require.Equal(t, filepath.Join(filepath.Dir(path), "site"), cfg.SitePath())

	require.Len(t, cfg.Nav, 4)
	require.Equal(t, NavItem{Title: "Home", Path: "index.md"}, cfg.Nav[0])
	require.Equal(t, "installing.md", cfg.Nav[1].Path)
	require.True(t, cfg.Nav[2].IsSection())
	require.Len(t, cfg.Nav[2].Children, 2)
	require.True(t, cfg.Nav[3].IsExternal())

	require.Equal(t, []string{"search", "git-revision-date-localized", "mkdocs-jupyter"}, cfg.Plugins.Names())
	dates, ok := cfg.Plugin("git-revision-date-localized")
	require.True(t, ok)
	require.Equal(t, "timeago", dates.String("type", "date"))
	jupyter, _ := cfg.Plugin("mkdocs-jupyter")
	require.Equal(t, []string{"examples/*.ipynb"}, jupyter.Strings("include"))
	require.True(t, cfg.HasExtension("toc"))
	require.False(t, cfg.HasExtension("admonition"))

	require.Equal(t, LevelWarn, cfg.Validation.Links.Anchors)
	require.Equal(t, LevelWarn, cfg.Validation.Links.NotFound)
	require.Equal(t, LevelInfo, cfg.Validation.Nav.OmittedFiles)
	require.Equal(t, Patterns{"drafts/*.md", "/hidden.md"}, cfg.NotInNav)

	require.Equal(t, "gh-pages", cfg.Tool.Publish.Branch)
	require.Equal(t, "main", cfg.Tool.Publish.SourceBranch)
	require.Equal(t, time.Second, cfg.Tool.Retry.Initial)
	require.Equal(t, cfg.RepoURL, cfg.PublishRemote())
	require.Equal(t,
		"https://github.com/Quansight-Labs/free-threaded-compatibility/edit/main/docs/porting.md",
		cfg.EditURL("porting.md"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "mkdocs.yml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestLoad_RequiresSiteName(t *testing.T) {
	_, err := Load(writeConfig(t, "docs_dir: docs\n"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_InvalidValidationLevel(t *testing.T) {
	_, err := Load(writeConfig(t, "site_name: x\nvalidation:\n  links:\n    not_found: fatal\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "valid options")
}

func TestLoad_DuplicatePlugin(t *testing.T) {
	_, err := Load(writeConfig(t, "site_name: x\nplugins:\n  - search\n  - search\n"))
	require.Error(t, err)
}

func TestLoad_EnvTagsAndExpansion(t *testing.T) {
	t.Setenv("FTDOCS_TEST_URL", "https://docs.example.org/")
	t.Setenv("FTDOCS_TEST_NAME", "From Env")
	body := "site_name: ${FTDOCS_TEST_NAME}\n" +
		"site_url: !ENV FTDOCS_TEST_URL\n" +
		"site_author: !ENV [FTDOCS_UNSET_VAR, Anonymous]\n" +
		"markdown_extensions:\n  - pymdownx.emoji:\n      emoji_index: !!python/name:material.extensions.emoji.twemoji\n"

	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	require.Equal(t, "From Env", cfg.SiteName)
	require.Equal(t, "https://docs.example.org/", cfg.SiteURL)
	require.Equal(t, "Anonymous", cfg.SiteAuthor)
	require.True(t, cfg.HasExtension("pymdownx.emoji"))
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	path := writeConfig(t, "site_name: ${FTDOCS_DOTENV_NAME}\nsite_description: ${FTDOCS_DOTENV_DESC}\n")
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("FTDOCS_DOTENV_NAME=from-file\nFTDOCS_DOTENV_DESC=described\n"), 0o600))
	t.Setenv("FTDOCS_DOTENV_NAME", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("FTDOCS_DOTENV_DESC") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-process", cfg.SiteName)
	require.Equal(t, "described", cfg.SiteDescription)
}

func TestNavItem_RejectsMultiKeyEntries(t *testing.T) {
	var items []NavItem
	err := yaml.Unmarshal([]byte("- A: a.md\n  B: b.md\n"), &items)
	require.Error(t, err)
}

func TestNavItem_MarshalRoundTrip(t *testing.T) {
	items := []NavItem{
		{Path: "index.md"},
		{Title: "Guide", Children: []NavItem{{Title: "Porting", Path: "porting.md"}}},
	}
	out, err := yaml.Marshal(items)
	require.NoError(t, err)

	var back []NavItem
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Equal(t, items, back)
}

func TestPluginList_MappingForm(t *testing.T) {
	var list PluginList
	require.NoError(t, yaml.Unmarshal([]byte("search: {}\ngit-revision-date-localized:\n  type: date\n"), &list))
	require.Equal(t, []string{"search", "git-revision-date-localized"}, list.Names())
	spec, _ := list.Get("git-revision-date-localized")
	require.Equal(t, "date", spec.String("type", ""))
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mkdocs.yml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "My Documentation", cfg.SiteName)

	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv("FTDOCS_LOG_LEVEL", "")
	require.Equal(t, "DEBUG", ParseLogLevel(true, "error").String())
	require.Equal(t, "ERROR", ParseLogLevel(false, "error").String())
	t.Setenv("FTDOCS_LOG_LEVEL", "warn")
	require.Equal(t, "WARN", ParseLogLevel(false, "error").String())
	require.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
}
