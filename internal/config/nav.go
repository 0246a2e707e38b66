package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// NavItem is one entry of the `nav` tree. Exactly one of Path or Children is set.
//
// Accepted YAML forms:
//
//	nav:
//	- index.md
//	- Home: index.md
//	- Issues: https://github.com/org/repo/issues
//	- Guide:
//	    - porting.md
type NavItem struct {
	Title    string
	Path     string
	Children []NavItem
}

// IsSection reports whether the item groups other items.
func (n NavItem) IsSection() bool { return n.Children != nil }

// IsExternal reports whether the item points outside the documentation set.
func (n NavItem) IsExternal() bool {
	return strings.Contains(n.Path, "://") || strings.HasPrefix(n.Path, "mailto:")
}

func (n *NavItem) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		n.Path = strings.TrimSpace(node.Value)
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: nav entry must have exactly one key", node.Line)
		}
		n.Title = node.Content[0].Value
		value := node.Content[1]
		switch value.Kind {
		case yaml.ScalarNode:
			n.Path = strings.TrimSpace(value.Value)
			return nil
		case yaml.SequenceNode:
			n.Children = make([]NavItem, 0, len(value.Content))
			for _, c := range value.Content {
				var child NavItem
				if err := c.Decode(&child); err != nil {
					return err
				}
				n.Children = append(n.Children, child)
			}
			return nil
		default:
			return fmt.Errorf("line %d: nav entry %q must map to a path or a list", value.Line, n.Title)
		}
	default:
		return fmt.Errorf("line %d: unsupported nav entry", node.Line)
	}
}

func (n NavItem) MarshalYAML() (any, error) {
	switch {
	case n.IsSection():
		return map[string][]NavItem{n.Title: n.Children}, nil
	case n.Title == "":
		return n.Path, nil
	default:
		return map[string]string{n.Title: n.Path}, nil
	}
}

func validateNav(items []NavItem, trail string) error {
	for i, item := range items {
		where := fmt.Sprintf("%s[%d]", trail, i)
		if item.IsSection() {
			if item.Path != "" {
				return fmt.Errorf("%s: section %q cannot also have a path", where, item.Title)
			}
			if item.Title == "" {
				return fmt.Errorf("%s: section needs a title", where)
			}
			if err := validateNav(item.Children, where); err != nil {
				return err
			}
			continue
		}
		if item.Path == "" {
			return fmt.Errorf("%s: entry %q has no path", where, item.Title)
		}
	}
	return nil
}
