package render

import (
	"encoding/xml"
	"html/template"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/markdown"
	"git.home.luguber.info/inful/ftdocs/internal/nav"
)

// SiteData is the site-wide part of the template data.
type SiteData struct {
	Name      string
	URL       string
	Author    string
	Copyright string
	RepoURL   string
	RepoName  string
	Language  string
}

// PageView is the page-specific part of the template data.
type PageView struct {
	Title          string
	Description    string
	Content        template.HTML
	Canonical      string
	EditURL        string
	RevisionDate   string
	IsHome         bool
	HideNavigation bool
	HideTOC        bool
}

// NavLink is a navigation entry with its URL relative to the current page.
type NavLink struct {
	Title    string
	URL      string
	Section  bool
	Active   bool
	Children []NavLink
}

// Data is passed to the base template.
type Data struct {
	Site       SiteData
	Page       PageView
	Nav        []NavLink
	TOC        []markdown.Heading
	Prev       *NavLink
	Next       *NavLink
	Base       string
	Search     bool
	LiveReload bool
}

// Options tweak rendering for preview.
type Options struct {
	LiveReload bool
	Search     bool
}

// Renderer renders pages of one build.
type Renderer struct {
	theme *Theme
	cfg   *config.Config
	tree  *nav.Tree
	opts  Options
}

func NewRenderer(theme *Theme, cfg *config.Config, tree *nav.Tree, opts Options) *Renderer {
	return &Renderer{theme: theme, cfg: cfg, tree: tree, opts: opts}
}

func (r *Renderer) site() SiteData {
	return SiteData{
		Name:      r.cfg.SiteName,
		URL:       r.cfg.SiteURL,
		Author:    r.cfg.SiteAuthor,
		Copyright: r.cfg.Copyright,
		RepoURL:   r.cfg.RepoURL,
		RepoName:  r.cfg.RepoName,
		Language:  r.cfg.Theme.Language,
	}
}

// RevisionDateKey is the page metadata field holding the formatted last
// update date.
const RevisionDateKey = "git_revision_date_localized"

// Page renders p, whose Content must already hold the HTML fragment.
func (r *Renderer) Page(p *docs.Page) ([]byte, error) {
	data := Data{
		Site: r.site(),
		Page: PageView{
			Title:          p.Title,
			Description:    p.Description(),
			Content:        template.HTML(p.Content), // #nosec G203 -- rendered from trusted Markdown sources
			EditURL:        r.cfg.EditURL(p.Src),
			IsHome:         p.Src == "index.md" || (p.IsIndex && !strings.Contains(p.Src, "/")),
			HideNavigation: p.Meta.Hidden("navigation"),
			HideTOC:        p.Meta.Hidden("toc"),
		},
		TOC:        p.TOC(),
		Base:       docs.RelativeURL(p.URL, ""),
		Search:     r.opts.Search,
		LiveReload: r.opts.LiveReload,
	}
	if r.cfg.SiteURL != "" {
		data.Page.Canonical = strings.TrimSuffix(r.cfg.SiteURL, "/") + "/" + p.URL
	}
	if v, ok := p.Meta.Fields[RevisionDateKey].(string); ok {
		data.Page.RevisionDate = v
	}
	if r.tree != nil {
		data.Nav = r.navLinks(r.tree.Entries, p)
		if prev := r.tree.Prev(p); prev != nil {
			data.Prev = &NavLink{Title: prev.Title, URL: docs.RelativeURL(p.URL, prev.URL)}
		}
		if next := r.tree.Next(p); next != nil {
			data.Next = &NavLink{Title: next.Title, URL: docs.RelativeURL(p.URL, next.URL)}
		}
	}
	return r.theme.execute("base", data)
}

func (r *Renderer) navLinks(entries []*nav.Entry, current *docs.Page) []NavLink {
	out := make([]NavLink, 0, len(entries))
	for _, e := range entries {
		link := NavLink{Title: e.Title, Active: e.Active(current)}
		switch e.Kind {
		case nav.KindSection:
			link.Section = true
			link.Children = r.navLinks(e.Children, current)
		case nav.KindPage:
			link.URL = docs.RelativeURL(current.URL, e.Page.URL)
		case nav.KindLink:
			link.URL = e.URL
		}
		out = append(out, link)
	}
	return out
}

// NotFound renders the 404 page. It is served from arbitrary paths, so links
// are made absolute with the site URL path when one is configured.
func (r *Renderer) NotFound() ([]byte, error) {
	base := "/"
	if u, err := url.Parse(r.cfg.SiteURL); err == nil && u.Path != "" {
		base = strings.TrimSuffix(u.Path, "/") + "/"
	}
	content, err := r.theme.execute("content404", base)
	if err != nil {
		return nil, err
	}
	data := Data{
		Site: r.site(),
		Page: PageView{Title: "404 - Not found", Content: template.HTML(content)}, // #nosec G203 -- theme output
		Base: base,
	}
	if r.tree != nil {
		data.Nav = r.absoluteNav(r.tree.Entries, base)
	}
	return r.theme.execute("base", data)
}

func (r *Renderer) absoluteNav(entries []*nav.Entry, base string) []NavLink {
	out := make([]NavLink, 0, len(entries))
	for _, e := range entries {
		link := NavLink{Title: e.Title}
		switch e.Kind {
		case nav.KindSection:
			link.Section = true
			link.Children = r.absoluteNav(e.Children, base)
		case nav.KindPage:
			link.URL = base + e.Page.URL
		case nav.KindLink:
			link.URL = e.URL
		}
		out = append(out, link)
	}
	return out
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap renders sitemap.xml for pages. Without a site_url the locations are
// site relative. Lastmod comes from the page revision date when known.
func (r *Renderer) Sitemap(pages []*docs.Page) ([]byte, error) {
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	prefix := ""
	if r.cfg.SiteURL != "" {
		prefix = strings.TrimSuffix(r.cfg.SiteURL, "/") + "/"
	}
	for _, p := range pages {
		u := sitemapURL{Loc: prefix + p.URL}
		if !p.RevisionDate.IsZero() {
			u.LastMod = p.RevisionDate.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
