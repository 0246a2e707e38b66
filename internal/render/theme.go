// Package render turns pages into complete HTML documents with the embedded
// theme, and produces the site-level files (404 page, sitemap).
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
)

//go:embed theme
var themeFS embed.FS

// Theme is the parsed embedded theme.
type Theme struct {
	tmpl *template.Template
}

// LoadTheme parses the embedded templates.
func LoadTheme() (*Theme, error) {
	tmpl, err := template.New("theme").ParseFS(themeFS, "theme/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse theme templates: %w", err)
	}
	return &Theme{tmpl: tmpl}, nil
}

// Assets returns the static theme files keyed by their site-relative path.
func (t *Theme) Assets() (map[string][]byte, error) {
	out := map[string][]byte{}
	err := fs.WalkDir(themeFS, "theme/assets", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, readErr := themeFS.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		out[path.Join("assets", path.Base(p))] = b
		return nil
	})
	return out, err
}

// AssetNames returns the asset paths in sorted order.
func AssetNames(assets map[string][]byte) []string {
	names := make([]string, 0, len(assets))
	for n := range assets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *Theme) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
