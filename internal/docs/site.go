package docs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/inful/mdfp"

	ferrors "git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/frontmatter"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/markdown"
)

// Options controls discovery.
type Options struct {
	DirectoryURLs bool
	// Notebooks lists glob patterns of .ipynb files rendered as pages.
	// Notebooks that do not match are copied as static files.
	Notebooks []string
	Parser    *markdown.Parser
}

// Site is the discovered documentation set. Pages are ordered by Src.
type Site struct {
	Root          string
	DirectoryURLs bool
	Pages         []*Page
	Static        []*StaticFile

	pages  map[string]*Page
	static map[string]*StaticFile
}

// NewSite indexes pages and static files. Discover is the usual constructor.
func NewSite(root string, directoryURLs bool, pages []*Page, static []*StaticFile) *Site {
	sort.Slice(pages, func(i, j int) bool { return pages[i].Src < pages[j].Src })
	sort.Slice(static, func(i, j int) bool { return static[i].Src < static[j].Src })
	s := &Site{
		Root:          root,
		DirectoryURLs: directoryURLs,
		Pages:         pages,
		Static:        static,
		pages:         make(map[string]*Page, len(pages)),
		static:        make(map[string]*StaticFile, len(static)),
	}
	for _, p := range pages {
		s.pages[p.Src] = p
	}
	for _, f := range static {
		s.static[f.Src] = f
	}
	return s
}

// Page looks up a page by its source path.
func (s *Site) Page(src string) (*Page, bool) {
	p, ok := s.pages[src]
	return p, ok
}

// StaticFile looks up a static file by its source path.
func (s *Site) StaticFile(src string) (*StaticFile, bool) {
	f, ok := s.static[src]
	return f, ok
}

// Discover walks docsDir and builds the site model. Dot-files and
// dot-directories are skipped. A README.md is used as the directory index when
// the directory has no index.md.
func Discover(docsDir string, opts Options) (*Site, error) {
	info, err := os.Stat(docsDir)
	if err != nil || !info.IsDir() {
		return nil, ferrors.ConfigError("docs_dir does not exist or is not a directory").
			WithContext("path", docsDir).
			WithCause(err).
			Build()
	}
	if opts.Parser == nil {
		opts.Parser = markdown.NewParser(markdown.Options{})
	}

	var sources, static []string
	err = filepath.WalkDir(docsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != docsDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(docsDir, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if isPageSource(rel, opts.Notebooks) {
			sources = append(sources, rel)
		} else {
			static = append(static, rel)
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.FileSystemError("failed to walk docs_dir").
			WithContext("path", docsDir).
			WithCause(err).
			Build()
	}

	hasIndex := map[string]bool{}
	for _, src := range sources {
		if path.Base(src) == "index.md" {
			hasIndex[path.Dir(src)] = true
		}
	}

	pages := make([]*Page, 0, len(sources))
	for _, src := range sources {
		isIndex := path.Base(src) == "index.md"
		if strings.EqualFold(path.Base(src), "README.md") {
			if hasIndex[path.Dir(src)] {
				slog.Warn("Both index.md and README.md found; skipping README.md", logfields.Page(src))
				continue
			}
			isIndex = true
		}
		page, loadErr := loadPage(docsDir, src, isIndex, opts)
		if loadErr != nil {
			return nil, loadErr
		}
		pages = append(pages, page)
	}

	files := make([]*StaticFile, 0, len(static))
	for _, src := range static {
		files = append(files, &StaticFile{
			Src:      src,
			AbsPath:  filepath.Join(docsDir, filepath.FromSlash(src)),
			DestPath: src,
		})
	}

	site := NewSite(docsDir, opts.DirectoryURLs, pages, files)
	slog.Debug("Documentation discovered",
		logfields.Path(docsDir),
		slog.Int("pages", len(site.Pages)),
		slog.Int("static", len(site.Static)))
	return site, nil
}

func isPageSource(src string, notebooks []string) bool {
	switch strings.ToLower(path.Ext(src)) {
	case ".md", ".markdown":
		return true
	case ".ipynb":
		for _, pattern := range notebooks {
			if ok, _ := doublestar.Match(pattern, src); ok {
				return true
			}
		}
	}
	return false
}

func loadPage(docsDir, src string, isIndex bool, opts Options) (*Page, error) {
	abs := filepath.Join(docsDir, filepath.FromSlash(src))
	// #nosec G304 -- path comes from walking docs_dir.
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, ferrors.FileSystemError("failed to read page").
			WithContext("page", src).
			WithCause(err).
			Build()
	}

	p := &Page{Src: src, AbsPath: abs, Raw: raw, IsIndex: isIndex, Anchors: map[string]bool{}}
	p.URL, p.DestPath = pageURL(src, isIndex, opts.DirectoryURLs)

	if strings.EqualFold(path.Ext(src), ".ipynb") {
		p.Kind = KindNotebook
		p.Fingerprint = mdfp.CalculateFingerprintFromParts("", string(raw))
		p.resolveTitle("")
		return p, nil
	}

	p.Kind = KindMarkdown
	fm, body, _, splitErr := frontmatter.Split(raw)
	if splitErr != nil {
		p.ParseErr = splitErr
		body = raw
	} else if meta, decErr := frontmatter.Decode(fm); decErr != nil {
		p.ParseErr = decErr
	} else {
		p.Meta = meta
	}
	p.Body = body
	p.Fingerprint = mdfp.CalculateFingerprintFromParts(string(bytes.TrimRight(fm, "\r\n")), string(body))

	analysis, err := opts.Parser.Analyze(body)
	if err != nil {
		return nil, ferrors.RenderError("failed to parse page").
			WithContext("page", src).
			WithCause(err).
			Build()
	}
	p.Headings = analysis.Headings
	p.Anchors = analysis.Anchors
	p.Links = analysis.Links
	p.resolveTitle(analysis.Title())
	return p, nil
}

// ErrOutsideDocs is returned when a relative link climbs above docs_dir.
var ErrOutsideDocs = errors.New("link target is outside docs_dir")

// Target is the result of resolving a link destination written in a page.
type Target struct {
	// Path is the normalized source path the link points at.
	Path     string
	Fragment string
	Page     *Page
	Static   *StaticFile
}

// Found reports whether the link resolved to a page or static file.
func (t Target) Found() bool { return t.Page != nil || t.Static != nil }

// Resolve resolves a relative destination written in from. External and
// absolute destinations are the caller's concern.
func (s *Site) Resolve(from *Page, dest string) (Target, error) {
	p, frag := markdown.SplitDestination(dest)
	if p == "" {
		return Target{Path: from.Src, Fragment: frag, Page: from}, nil
	}
	joined := path.Join(path.Dir(from.Src), p)
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return Target{Path: joined, Fragment: frag}, fmt.Errorf("%w: %s", ErrOutsideDocs, dest)
	}
	t := Target{Path: joined, Fragment: frag}
	if page, ok := s.pages[joined]; ok {
		t.Page = page
		return t, nil
	}
	if f, ok := s.static[joined]; ok {
		t.Static = f
		return t, nil
	}
	// A directory link resolves to its index page.
	for _, idx := range []string{"index.md", "README.md"} {
		candidate := path.Join(joined, idx)
		if joined == "." {
			candidate = idx
		}
		if page, ok := s.pages[candidate]; ok && page.IsIndex {
			t.Page = page
			return t, nil
		}
	}
	return t, nil
}

// LinkResolver returns the resolver used when rendering from: links to pages
// and static files become relative URLs, everything else is left as written.
func (s *Site) LinkResolver(from *Page) markdown.LinkResolver {
	return func(dest string) string {
		l := markdown.Link{Destination: dest}
		if dest == "" || l.IsExternal() || l.IsAbsolute() || strings.HasPrefix(dest, "#") {
			return dest
		}
		t, err := s.Resolve(from, dest)
		if err != nil || !t.Found() {
			return dest
		}
		var url string
		if t.Page != nil {
			url = RelativeURL(from.URL, t.Page.URL)
		} else {
			url = RelativeURL(from.URL, t.Static.DestPath)
		}
		if t.Fragment != "" {
			url += "#" + t.Fragment
		}
		return url
	}
}

// URLFor returns the URL of a site-relative target as seen from page.
func (s *Site) URLFor(from *Page, target string) string {
	if from == nil {
		return target
	}
	return RelativeURL(from.URL, target)
}
