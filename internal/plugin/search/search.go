// Package search builds the client-side search index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
)

// Name is the plugin key in mkdocs.yml.
const Name = "search"

// IndexPath is where the index is written inside site_dir.
const IndexPath = "search/search_index.json"

// Index is the serialized search index, in the layout lunr based themes read.
type Index struct {
	Config IndexConfig `json:"config"`
	Docs   []Doc       `json:"docs"`
}

type IndexConfig struct {
	Lang      []string `json:"lang"`
	Separator string   `json:"separator"`
}

// Doc is one searchable unit: a page or a section of a page.
type Doc struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// Plugin writes search/search_index.json after the build.
type Plugin struct {
	lang      []string
	separator string
}

func New() plugin.Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Configure(spec config.PluginSpec) error {
	p.lang = spec.Strings("lang")
	p.separator = spec.String("separator", `[\s\-]+`)
	return nil
}

func (p *Plugin) OnPostBuild(_ context.Context, env *plugin.Env) error {
	lang := p.lang
	if len(lang) == 0 {
		lang = []string{"en"}
		if env.Config != nil && env.Config.Theme.Language != "" {
			lang = []string{env.Config.Theme.Language}
		}
	}
	idx := Index{Config: IndexConfig{Lang: lang, Separator: p.separator}, Docs: []Doc{}}
	for _, page := range env.Site.Pages {
		if page.Meta.Hidden("search") {
			continue
		}
		idx.Docs = append(idx.Docs, Extract(page.URL, page.Title, page.Content)...)
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return env.Output.Write(IndexPath, data)
}

// Extract splits a rendered page into a page entry followed by one entry per
// heading that carries an id. Text is whitespace-normalized.
func Extract(location, title string, content []byte) []Doc {
	page := Doc{Location: location, Title: title}
	docs := []Doc{}
	var current *Doc
	var text strings.Builder
	var heading *Doc
	var headingText strings.Builder
	skip := 0

	flush := func() {
		if current == nil {
			page.Text = normalize(text.String())
		} else {
			current.Text = normalize(text.String())
			docs = append(docs, *current)
		}
		text.Reset()
	}

	z := html.NewTokenizer(bytes.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			flush()
			return append([]Doc{page}, docs...)
		case html.StartTagToken:
			tok := z.Token()
			switch {
			case tok.DataAtom == atom.Script || tok.DataAtom == atom.Style:
				skip++
			case isHeading(tok.DataAtom):
				if id := attr(tok, "id"); id != "" {
					flush()
					heading = &Doc{Location: location + "#" + id}
					headingText.Reset()
				}
			}
			text.WriteByte(' ')
		case html.EndTagToken:
			tok := z.Token()
			switch {
			case tok.DataAtom == atom.Script || tok.DataAtom == atom.Style:
				if skip > 0 {
					skip--
				}
			case isHeading(tok.DataAtom) && heading != nil:
				heading.Title = normalize(headingText.String())
				current = heading
				heading = nil
			}
			text.WriteByte(' ')
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if heading != nil {
				headingText.Write(z.Text())
				continue
			}
			text.Write(z.Text())
		}
	}
}

func isHeading(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
