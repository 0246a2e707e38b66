package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/normalization"
)

// ValidationLevel controls how a class of content problem is reported.
// With strict mode enabled every `warn` problem fails the build.
type ValidationLevel string

const (
	LevelWarn   ValidationLevel = "warn"
	LevelInfo   ValidationLevel = "info"
	LevelIgnore ValidationLevel = "ignore"
)

var levelNormalizer = normalization.NewNormalizer(map[string]ValidationLevel{
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"info":    LevelInfo,
	"ignore":  LevelIgnore,
}, "")

func (l *ValidationLevel) UnmarshalYAML(node *yaml.Node) error {
	v, err := levelNormalizer.NormalizeWithError(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*l = v
	return nil
}

// Validation mirrors the mkdocs `validation` block.
type Validation struct {
	Nav   NavValidation  `yaml:"nav,omitempty"`
	Links LinkValidation `yaml:"links,omitempty"`
}

type NavValidation struct {
	OmittedFiles  ValidationLevel `yaml:"omitted_files,omitempty"`
	NotFound      ValidationLevel `yaml:"not_found,omitempty"`
	AbsoluteLinks ValidationLevel `yaml:"absolute_links,omitempty"`
}

type LinkValidation struct {
	NotFound          ValidationLevel `yaml:"not_found,omitempty"`
	Anchors           ValidationLevel `yaml:"anchors,omitempty"`
	AbsoluteLinks     ValidationLevel `yaml:"absolute_links,omitempty"`
	UnrecognizedLinks ValidationLevel `yaml:"unrecognized_links,omitempty"`
}

func (v *Validation) applyDefaults() {
	setLevel(&v.Nav.OmittedFiles, LevelInfo)
	setLevel(&v.Nav.NotFound, LevelWarn)
	setLevel(&v.Nav.AbsoluteLinks, LevelInfo)
	setLevel(&v.Links.NotFound, LevelWarn)
	setLevel(&v.Links.Anchors, LevelInfo)
	setLevel(&v.Links.AbsoluteLinks, LevelInfo)
	setLevel(&v.Links.UnrecognizedLinks, LevelInfo)
}

func setLevel(l *ValidationLevel, def ValidationLevel) {
	if *l == "" {
		*l = def
	}
}

// Validate checks structural invariants that decoding alone cannot enforce.
func (c *Config) Validate() error {
	if c.SiteName == "" {
		return errors.ConfigError("site_name is required").Build()
	}
	if err := validateNav(c.Nav, "nav"); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid nav").Fatal().Build()
	}
	for _, list := range []struct {
		key   string
		specs PluginList
	}{{"plugins", c.Plugins}, {"markdown_extensions", c.MarkdownExtensions}} {
		seen := make(map[string]bool, len(list.specs))
		for _, p := range list.specs {
			if p.Name == "" {
				return errors.ConfigError(list.key + " entry without a name").Build()
			}
			if seen[p.Name] {
				return errors.ConfigError("duplicate "+list.key+" entry").WithContext("name", p.Name).Build()
			}
			seen[p.Name] = true
		}
	}
	if _, err := retryModeNormalizer.NormalizeWithError(string(c.Tool.Retry.Mode)); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid ftdocs.retry.mode").Fatal().Build()
	}
	if c.Tool.Retry.MaxRetries < 0 {
		return errors.ConfigError("ftdocs.retry.max_retries cannot be negative").Build()
	}
	return nil
}
