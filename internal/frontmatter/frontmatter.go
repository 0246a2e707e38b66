// Package frontmatter splits YAML front matter from Markdown pages and decodes
// the page metadata fields the site uses.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml front matter start delimiter found but closing delimiter is missing")

// Meta holds the front matter of a page. Title and Description are the fields
// the theme knows about; everything else is kept in Fields for templates.
type Meta struct {
	Title       string
	Description string
	Template    string
	Hide        []string
	Fields      map[string]any
}

// Hidden reports whether the page asked the theme to hide an element
// (e.g. `hide: [navigation, toc]`).
func (m Meta) Hidden(element string) bool {
	for _, h := range m.Hide {
		if h == element {
			return true
		}
	}
	return false
}

// Split separates `---` delimited YAML front matter from the Markdown body.
//
// If the document does not start with a delimiter, had is false and body is the
// full input. Both LF and CRLF line endings are recognized.
func Split(content []byte) (raw []byte, body []byte, had bool, err error) {
	nl := []byte("\n")
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = []byte("\r\n")
	} else if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content, false, nil
	}

	delim := append([]byte("---"), nl...)
	start := len(delim)
	if bytes.HasPrefix(content[start:], delim) {
		return []byte{}, content[start+len(delim):], true, nil
	}

	closing := append(append([]byte{}, nl...), delim...)
	idx := bytes.Index(content[start:], closing)
	if idx < 0 {
		// A closing delimiter at EOF without a trailing newline is still valid.
		tail := append(append([]byte{}, nl...), []byte("---")...)
		if bytes.HasSuffix(content, tail) {
			return content[start : len(content)-len("---")], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	end := start + idx + len(nl)
	return content[start:end], content[start+idx+len(closing):], true, nil
}

// Decode parses raw YAML front matter into Meta.
func Decode(raw []byte) (Meta, error) {
	meta := Meta{Fields: map[string]any{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return meta, nil
	}
	if err := yaml.Unmarshal(raw, &meta.Fields); err != nil {
		return Meta{}, fmt.Errorf("invalid front matter: %w", err)
	}
	if meta.Fields == nil {
		// Scalar documents (e.g. a lone string) are not metadata.
		return Meta{}, errors.New("invalid front matter: expected a mapping")
	}
	if v, ok := meta.Fields["title"]; ok && v != nil {
		meta.Title = fmt.Sprint(v)
	}
	if v, ok := meta.Fields["description"]; ok && v != nil {
		meta.Description = fmt.Sprint(v)
	}
	if v, ok := meta.Fields["template"].(string); ok {
		meta.Template = v
	}
	if hide, ok := meta.Fields["hide"].([]any); ok {
		for _, h := range hide {
			meta.Hide = append(meta.Hide, fmt.Sprint(h))
		}
	}
	return meta, nil
}

// Parse splits and decodes in one step.
func Parse(content []byte) (Meta, []byte, error) {
	raw, body, _, err := Split(content)
	if err != nil {
		return Meta{}, nil, err
	}
	meta, err := Decode(raw)
	if err != nil {
		return Meta{}, body, err
	}
	return meta, body, nil
}
