package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PluginSpec names a plugin (or markdown extension) with its options.
type PluginSpec struct {
	Name    string
	Options map[string]any
}

func (p *PluginSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p.Name = strings.TrimSpace(node.Value)
		p.Options = map[string]any{}
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: plugin entry must have exactly one key", node.Line)
		}
		return p.decode(node.Content[0], node.Content[1])
	default:
		return fmt.Errorf("line %d: unsupported plugin entry", node.Line)
	}
}

func (p *PluginSpec) decode(key, value *yaml.Node) error {
	p.Name = strings.TrimSpace(key.Value)
	p.Options = map[string]any{}
	if value.Kind == yaml.ScalarNode && (value.Tag == "!!null" || value.Value == "") {
		return nil
	}
	if err := value.Decode(&p.Options); err != nil {
		return fmt.Errorf("line %d: options for %q: %w", value.Line, p.Name, err)
	}
	if p.Options == nil {
		p.Options = map[string]any{}
	}
	return nil
}

func (p PluginSpec) MarshalYAML() (any, error) {
	if len(p.Options) == 0 {
		return p.Name, nil
	}
	return map[string]map[string]any{p.Name: p.Options}, nil
}

// String returns a string option or def.
func (p PluginSpec) String(key, def string) string {
	if v, ok := p.Options[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return def
}

// Bool returns a boolean option or def.
func (p PluginSpec) Bool(key string, def bool) bool {
	if v, ok := p.Options[key].(bool); ok {
		return v
	}
	return def
}

// Strings returns a list option; a single string is treated as a one element list.
func (p PluginSpec) Strings(key string) []string {
	switch v := p.Options[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// PluginList accepts both the list form and the mapping form of `plugins`.
type PluginList []PluginSpec

func (l *PluginList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		out := make([]PluginSpec, 0, len(node.Content))
		for _, c := range node.Content {
			var spec PluginSpec
			if err := c.Decode(&spec); err != nil {
				return err
			}
			out = append(out, spec)
		}
		*l = out
		return nil
	case yaml.MappingNode:
		out := make([]PluginSpec, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var spec PluginSpec
			if err := spec.decode(node.Content[i], node.Content[i+1]); err != nil {
				return err
			}
			out = append(out, spec)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or mapping of plugins", node.Line)
	}
}

// Get returns the entry with the given name.
func (l PluginList) Get(name string) (PluginSpec, bool) {
	for _, p := range l {
		if p.Name == name {
			return p, true
		}
	}
	return PluginSpec{}, false
}

// Names returns the configured names in order.
func (l PluginList) Names() []string {
	out := make([]string, 0, len(l))
	for _, p := range l {
		out = append(out, p.Name)
	}
	return out
}
