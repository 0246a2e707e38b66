package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when -c is not given.
const DefaultPath = "mkdocs.yml"

// Config represents the site configuration. The schema is the mkdocs one so the
// same file can be read by either toolchain; ftdocs specific settings live
// under the `ftdocs` key.
type Config struct {
	SiteName           string         `yaml:"site_name"`
	SiteURL            string         `yaml:"site_url,omitempty"`
	SiteDescription    string         `yaml:"site_description,omitempty"`
	SiteAuthor         string         `yaml:"site_author,omitempty"`
	Copyright          string         `yaml:"copyright,omitempty"`
	RepoURL            string         `yaml:"repo_url,omitempty"`
	RepoName           string         `yaml:"repo_name,omitempty"`
	EditURI            string         `yaml:"edit_uri,omitempty"`
	DocsDir            string         `yaml:"docs_dir,omitempty"`
	SiteDir            string         `yaml:"site_dir,omitempty"`
	Strict             bool           `yaml:"strict,omitempty"`
	UseDirectoryURLs   *bool          `yaml:"use_directory_urls,omitempty"`
	Theme              ThemeConfig    `yaml:"theme,omitempty"`
	Nav                []NavItem      `yaml:"nav,omitempty"`
	NotInNav           Patterns       `yaml:"not_in_nav,omitempty"`
	Plugins            PluginList     `yaml:"plugins,omitempty"`
	MarkdownExtensions PluginList     `yaml:"markdown_extensions,omitempty"`
	Validation         Validation     `yaml:"validation,omitempty"`
	Extra              map[string]any `yaml:"extra,omitempty"`
	Tool               ToolConfig     `yaml:"ftdocs,omitempty"`

	// root is the directory containing the configuration file; relative
	// directories are resolved against it.
	root string
}

// ThemeConfig holds the theme settings. A bare string is accepted as the theme name.
type ThemeConfig struct {
	Name     string         `yaml:"name,omitempty"`
	Language string         `yaml:"language,omitempty"`
	Features []string       `yaml:"features,omitempty"`
	Palette  map[string]any `yaml:"palette,omitempty"`
	Logo     string         `yaml:"logo,omitempty"`
	Favicon  string         `yaml:"favicon,omitempty"`
}

// UnmarshalYAML accepts `theme: material` as well as the mapping form.
func (t *ThemeConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Name = node.Value
		return nil
	}
	type plain ThemeConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = ThemeConfig(p)
	return nil
}

// HasFeature reports whether a theme feature flag is enabled.
func (t ThemeConfig) HasFeature(name string) bool {
	for _, f := range t.Features {
		if f == name {
			return true
		}
	}
	return false
}

// Patterns is a list of glob patterns. mkdocs writes `not_in_nav` as a
// multi-line string, so a scalar is split on newlines.
type Patterns []string

func (p *Patterns) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, line := range strings.Split(node.Value, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			out = append(out, line)
		}
		*p = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*p = out
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of patterns", node.Line)
	}
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	root, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve config directory").Build()
	}
	if loaded, envErr := loadEnvFiles(root); envErr != nil {
		slog.Warn("Failed to load .env file", "error", envErr)
	} else if loaded != "" {
		slog.Debug("Loaded environment variables", "file", loaded)
	}

	// #nosec G304 -- the config path is an operator-supplied CLI argument.
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError(errors.CategoryNotFound, "configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			WithContext("path", configPath).
			Build()
	}
	cfg.root = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration bytes and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if doc.Kind != 0 {
		resolveTags(&doc)
		if err := doc.Decode(cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

// resolveTags handles the custom YAML tags found in mkdocs files: `!ENV` is
// resolved from the environment and `!!python/...` tags are reduced to strings.
func resolveTags(node *yaml.Node) {
	switch {
	case node.Tag == "!ENV":
		resolveEnvTag(node)
		return
	case strings.HasPrefix(node.Tag, "tag:yaml.org,2002:python/"), strings.HasPrefix(node.Tag, "!!python/"):
		node.Kind = yaml.ScalarNode
		node.Tag = "!!str"
		node.Content = nil
		return
	}
	for _, child := range node.Content {
		resolveTags(child)
	}
}

// resolveEnvTag supports `!ENV NAME` and `!ENV [NAME, OTHER, default]`.
func resolveEnvTag(node *yaml.Node) {
	var names []string
	switch node.Kind {
	case yaml.ScalarNode:
		names = []string{node.Value}
	case yaml.SequenceNode:
		for _, c := range node.Content {
			names = append(names, c.Value)
		}
	}
	value := ""
	for i, name := range names {
		if v, ok := os.LookupEnv(name); ok {
			value = v
			break
		}
		if i == len(names)-1 && len(names) > 1 {
			value = name
		}
	}
	node.Kind = yaml.ScalarNode
	node.Tag = ""
	node.Style = yaml.DoubleQuotedStyle
	node.Value = value
	node.Content = nil
}

func (c *Config) applyDefaults() {
	if c.DocsDir == "" {
		c.DocsDir = "docs"
	}
	if c.SiteDir == "" {
		c.SiteDir = "site"
	}
	if c.UseDirectoryURLs == nil {
		v := true
		c.UseDirectoryURLs = &v
	}
	if c.Theme.Name == "" {
		c.Theme.Name = "ftdocs"
	}
	if c.Theme.Language == "" {
		c.Theme.Language = "en"
	}
	if c.RepoURL != "" {
		if c.RepoName == "" {
			c.RepoName = repoNameFor(c.RepoURL)
		}
		if c.EditURI == "" && strings.Contains(c.RepoURL, "github.com") {
			c.EditURI = "edit/main/" + strings.Trim(c.DocsDir, "/") + "/"
		}
	}
	c.Validation.applyDefaults()
	c.Tool.applyDefaults()
}

func repoNameFor(repoURL string) string {
	u, err := url.Parse(repoURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch {
	case strings.Contains(host, "github"):
		return "GitHub"
	case strings.Contains(host, "gitlab"):
		return "GitLab"
	case strings.Contains(host, "bitbucket"):
		return "Bitbucket"
	default:
		return host
	}
}

// Root returns the directory that relative paths are resolved against.
func (c *Config) Root() string {
	if c.root == "" {
		return "."
	}
	return c.root
}

// SetRoot overrides the resolution root (used by callers that build a Config in memory).
func (c *Config) SetRoot(dir string) { c.root = dir }

// DocsPath returns the absolute docs directory.
func (c *Config) DocsPath() string { return c.resolve(c.DocsDir) }

// SitePath returns the absolute output directory.
func (c *Config) SitePath() string { return c.resolve(c.SiteDir) }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root(), p)
}

// DirectoryURLs reports whether pages are written as `page/index.html`.
func (c *Config) DirectoryURLs() bool {
	return c.UseDirectoryURLs == nil || *c.UseDirectoryURLs
}

// Plugin returns the configured plugin with the given name.
func (c *Config) Plugin(name string) (PluginSpec, bool) {
	return c.Plugins.Get(name)
}

// HasExtension reports whether a markdown extension is enabled.
func (c *Config) HasExtension(name string) bool {
	_, ok := c.MarkdownExtensions.Get(name)
	return ok
}

// EditURL returns the edit link for a page source path, or "" when not configured.
func (c *Config) EditURL(src string) string {
	if c.RepoURL == "" || c.EditURI == "" {
		return ""
	}
	if strings.Contains(c.EditURI, "://") {
		return strings.TrimSuffix(c.EditURI, "/") + "/" + src
	}
	return strings.TrimSuffix(c.RepoURL, "/") + "/" + strings.Trim(c.EditURI, "/") + "/" + src
}
