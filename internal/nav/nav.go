// Package nav builds the navigation tree from the `nav` configuration, or
// from the directory layout when no nav is configured.
package nav

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
)

type EntryKind string

const (
	KindSection EntryKind = "section"
	KindPage    EntryKind = "page"
	KindLink    EntryKind = "link"
)

// Entry is a node of the navigation tree.
type Entry struct {
	Kind     EntryKind
	Title    string
	Page     *docs.Page // KindPage
	URL      string     // KindLink
	Children []*Entry   // KindSection
}

// Tree is the resolved navigation.
type Tree struct {
	Entries []*Entry
	pages   []*docs.Page
	index   map[*docs.Page]int
}

type ProblemKind string

const (
	ProblemNotFound ProblemKind = "not_found"
	ProblemAbsolute ProblemKind = "absolute_link"
	ProblemOmitted  ProblemKind = "omitted"
)

// Problem is a navigation inconsistency. Levels are assigned by lint.
type Problem struct {
	Kind    ProblemKind
	Path    string
	Title   string
	Message string
}

// Build resolves cfg.Nav against site. Without a configured nav, the tree is
// derived from the directory layout.
func Build(cfg *config.Config, site *docs.Site) (*Tree, []Problem) {
	var problems []Problem
	var entries []*Entry
	if len(cfg.Nav) == 0 {
		entries = autoEntries(site)
	} else {
		entries = resolveItems(cfg.Nav, site, &problems)
	}
	t := newTree(entries)

	for _, p := range site.Pages {
		if _, ok := t.index[p]; ok {
			continue
		}
		if excluded(p.Src, cfg.NotInNav) {
			continue
		}
		problems = append(problems, Problem{
			Kind:    ProblemOmitted,
			Path:    p.Src,
			Message: "page exists in docs_dir but is not included in the nav",
		})
	}
	return t, problems
}

func resolveItems(items []config.NavItem, site *docs.Site, problems *[]Problem) []*Entry {
	out := make([]*Entry, 0, len(items))
	for _, item := range items {
		switch {
		case item.IsSection():
			out = append(out, &Entry{
				Kind:     KindSection,
				Title:    item.Title,
				Children: resolveItems(item.Children, site, problems),
			})
		case item.IsExternal():
			out = append(out, &Entry{Kind: KindLink, Title: item.Title, URL: item.Path})
		case strings.HasPrefix(item.Path, "/"):
			*problems = append(*problems, Problem{
				Kind:    ProblemAbsolute,
				Path:    item.Path,
				Title:   item.Title,
				Message: "nav entry is an absolute link and is left as is",
			})
			out = append(out, &Entry{Kind: KindLink, Title: item.Title, URL: item.Path})
		default:
			src := path.Clean(strings.TrimPrefix(item.Path, "./"))
			page, ok := site.Page(src)
			if !ok {
				*problems = append(*problems, Problem{
					Kind:    ProblemNotFound,
					Path:    item.Path,
					Title:   item.Title,
					Message: "nav entry does not resolve to a page in docs_dir",
				})
				continue
			}
			title := item.Title
			if title == "" {
				title = page.Title
			}
			out = append(out, &Entry{Kind: KindPage, Title: title, Page: page})
		}
	}
	return out
}

// autoEntries orders pages by directory: index first, then files
// alphabetically, then subdirectories as sections.
func autoEntries(site *docs.Site) []*Entry {
	type dirNode struct {
		index *docs.Page
		pages []*docs.Page
		dirs  map[string]*dirNode
	}
	root := &dirNode{dirs: map[string]*dirNode{}}
	for _, p := range site.Pages {
		node := root
		dir := path.Dir(p.Src)
		if dir != "." {
			for _, part := range strings.Split(dir, "/") {
				child, ok := node.dirs[part]
				if !ok {
					child = &dirNode{dirs: map[string]*dirNode{}}
					node.dirs[part] = child
				}
				node = child
			}
		}
		if p.IsIndex {
			node.index = p
		} else {
			node.pages = append(node.pages, p)
		}
	}

	var walk func(n *dirNode, includeIndex bool) []*Entry
	walk = func(n *dirNode, includeIndex bool) []*Entry {
		var out []*Entry
		if n.index != nil && includeIndex {
			out = append(out, &Entry{Kind: KindPage, Title: n.index.Title, Page: n.index})
		}
		for _, p := range n.pages {
			out = append(out, &Entry{Kind: KindPage, Title: p.Title, Page: p})
		}
		names := make([]string, 0, len(n.dirs))
		for name := range n.dirs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, &Entry{
				Kind:     KindSection,
				Title:    docs.SectionTitle(name),
				Children: walk(n.dirs[name], true),
			})
		}
		return out
	}
	return walk(root, true)
}

func excluded(src string, patterns []string) bool {
	for _, pattern := range patterns {
		anchored := strings.HasPrefix(pattern, "/")
		pattern = strings.TrimPrefix(pattern, "/")
		if ok, _ := doublestar.Match(pattern, src); ok {
			return true
		}
		// gitignore style: unanchored patterns match at any depth.
		if !anchored {
			if ok, _ := doublestar.Match("**/"+pattern, src); ok {
				return true
			}
		}
	}
	return false
}

func newTree(entries []*Entry) *Tree {
	t := &Tree{Entries: entries, index: map[*docs.Page]int{}}
	var walk func([]*Entry)
	walk = func(es []*Entry) {
		for _, e := range es {
			switch e.Kind {
			case KindPage:
				if _, seen := t.index[e.Page]; !seen {
					t.index[e.Page] = len(t.pages)
					t.pages = append(t.pages, e.Page)
				}
			case KindSection:
				walk(e.Children)
			}
		}
	}
	walk(entries)
	return t
}

// Pages returns the pages in reading order.
func (t *Tree) Pages() []*docs.Page { return t.pages }

// Contains reports whether page is reachable from the nav.
func (t *Tree) Contains(page *docs.Page) bool {
	_, ok := t.index[page]
	return ok
}

// Prev returns the page before p in reading order.
func (t *Tree) Prev(p *docs.Page) *docs.Page {
	if i, ok := t.index[p]; ok && i > 0 {
		return t.pages[i-1]
	}
	return nil
}

// Next returns the page after p in reading order.
func (t *Tree) Next(p *docs.Page) *docs.Page {
	if i, ok := t.index[p]; ok && i+1 < len(t.pages) {
		return t.pages[i+1]
	}
	return nil
}

// Active reports whether e is, or contains, page.
func (e *Entry) Active(page *docs.Page) bool {
	if e.Kind == KindPage {
		return e.Page == page
	}
	for _, c := range e.Children {
		if c.Active(page) {
			return true
		}
	}
	return false
}
