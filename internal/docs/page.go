// Package docs models the documentation set: pages discovered under docs_dir,
// their URLs and output locations, and the static files copied alongside them.
package docs

import (
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/ftdocs/internal/frontmatter"
	"git.home.luguber.info/inful/ftdocs/internal/markdown"
)

type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindNotebook Kind = "notebook"
)

// Page is a rendered document of the site.
type Page struct {
	// Src is the slash separated path relative to docs_dir.
	Src     string
	AbsPath string
	Kind    Kind

	Meta frontmatter.Meta
	Raw  []byte
	// Body is the Markdown without front matter. Empty for notebooks.
	Body []byte

	Title    string
	URL      string
	DestPath string
	IsIndex  bool

	Headings []markdown.Heading
	Anchors  map[string]bool
	Links    []markdown.Link

	Fingerprint  string
	RevisionDate time.Time

	// ParseErr records malformed front matter. The page is still part of the
	// site so the problem can be reported against it.
	ParseErr error

	// Content is the rendered HTML fragment, set during the render stage.
	Content []byte
}

// StaticFile is copied verbatim into the site.
type StaticFile struct {
	Src      string
	AbsPath  string
	DestPath string
}

// TOC returns the level 2 and 3 headings used for the page table of contents.
func (p *Page) TOC() []markdown.Heading {
	var out []markdown.Heading
	for _, h := range p.Headings {
		if h.Level == 2 || h.Level == 3 {
			out = append(out, h)
		}
	}
	return out
}

// Description returns the front matter description.
func (p *Page) Description() string { return p.Meta.Description }

var titleCaser = cases.Title(language.English)

// titleFromName derives a readable title from a file or directory name.
func titleFromName(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return titleCaser.String(strings.TrimSpace(name))
}

// SectionTitle derives a section title from a directory name.
func SectionTitle(dir string) string { return titleFromName(path.Base(dir)) }

func (p *Page) resolveTitle(firstH1 string) {
	switch {
	case p.Meta.Title != "":
		p.Title = p.Meta.Title
	case firstH1 != "":
		p.Title = firstH1
	case p.IsIndex && path.Dir(p.Src) == ".":
		p.Title = "Home"
	case p.IsIndex:
		p.Title = titleFromName(path.Base(path.Dir(p.Src)))
	default:
		p.Title = titleFromName(path.Base(p.Src))
	}
}
