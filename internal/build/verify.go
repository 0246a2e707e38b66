package build

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/lint"
)

// RuleRenderedLink identifies broken links found in the generated HTML.
const RuleRenderedLink = "rendered-link"

// htmlLink is a link extracted from generated HTML.
type htmlLink struct {
	URL  string
	Tag  string
	Attr string
}

// htmlDoc holds what verification needs from one output file.
type htmlDoc struct {
	links []htmlLink
	ids   map[string]bool
}

// parseHTML extracts href/src links and element ids.
func parseHTML(data []byte) (*htmlDoc, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	doc := &htmlDoc{ids: map[string]bool{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				doc.ids[id] = true
			}
			switch n.Data {
			case "a":
				if name := attr(n, "name"); name != "" {
					doc.ids[name] = true
				}
				if href := attr(n, "href"); href != "" {
					doc.links = append(doc.links, htmlLink{URL: href, Tag: n.Data, Attr: "href"})
				}
			case "link":
				if href := attr(n, "href"); href != "" {
					doc.links = append(doc.links, htmlLink{URL: href, Tag: n.Data, Attr: "href"})
				}
			case "img", "script", "source", "video", "audio", "iframe":
				if src := attr(n, "src"); src != "" {
					doc.links = append(doc.links, htmlLink{URL: src, Tag: n.Data, Attr: "src"})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return doc, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// isInternal reports whether link points into the generated site with a
// relative URL. Root-absolute links depend on where the site is hosted and
// are left to the source level lint rules.
func isInternal(link string) bool {
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:", "/"} {
		if strings.HasPrefix(link, prefix) {
			return false
		}
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

// linkProblem classifies a link that does not resolve.
type linkProblem int

const (
	linkOK linkProblem = iota
	linkMissingTarget
	linkMissingAnchor
)

// verifyOutput checks every relative link of the HTML outputs against the set
// of produced files. files maps each output path to its contents; only .html
// entries are parsed. The 404 page uses absolute links and is skipped.
// Missing targets are reported at links.not_found and missing anchors at
// links.anchors; an `ignore` level drops them.
func verifyOutput(files map[string][]byte, pageSrc map[string]string, levels config.LinkValidation) ([]lint.Issue, error) {
	docs := map[string]*htmlDoc{}
	var names []string
	for rel, data := range files {
		if !strings.HasSuffix(rel, ".html") {
			continue
		}
		d, err := parseHTML(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
		docs[rel] = d
		names = append(names, rel)
	}
	sort.Strings(names)

	var issues []lint.Issue
	for _, rel := range names {
		if rel == "404.html" {
			continue
		}
		file := rel
		if src, ok := pageSrc[rel]; ok {
			file = src
		}
		seen := map[string]bool{}
		for _, l := range docs[rel].links {
			if !isInternal(l.URL) || seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			problem, msg := checkLink(rel, l.URL, files, docs)
			if problem == linkOK {
				continue
			}
			level := levels.NotFound
			if problem == linkMissingAnchor {
				level = levels.Anchors
			}
			sev, report := lint.SeverityFor(level)
			if !report {
				continue
			}
			issues = append(issues, lint.Issue{
				File:        file,
				Severity:    sev,
				Rule:        RuleRenderedLink,
				Message:     msg,
				Explanation: fmt.Sprintf("The generated %s has <%s %s=%q> which does not resolve inside the site.", rel, l.Tag, l.Attr, l.URL),
				Fix:         "Fix the link in the source page or add the missing file.",
			})
		}
	}
	return issues, nil
}

// checkLink classifies link, written in the output file from, and describes
// the problem when it does not resolve.
func checkLink(from, link string, files map[string][]byte, docs map[string]*htmlDoc) (linkProblem, string) {
	u, err := url.Parse(link)
	if err != nil {
		return linkMissingTarget, fmt.Sprintf("unparseable link %q", link)
	}
	target := from
	if u.Path != "" {
		target = path.Join(path.Dir(from), u.Path)
		if strings.HasPrefix(target, "../") || target == ".." {
			return linkMissingTarget, fmt.Sprintf("link %q points outside the site", link)
		}
		if strings.HasSuffix(u.Path, "/") || target == "." {
			target = path.Join(target, "index.html")
		}
	}
	if _, ok := files[target]; !ok {
		alt := path.Join(target, "index.html")
		if _, ok := files[alt]; !ok {
			return linkMissingTarget, fmt.Sprintf("link %q target %s does not exist", link, target)
		}
		target = alt
	}
	if u.Fragment == "" {
		return linkOK, ""
	}
	d, ok := docs[target]
	if !ok {
		return linkOK, ""
	}
	if !d.ids[u.Fragment] {
		return linkMissingAnchor, fmt.Sprintf("link %q anchor #%s does not exist in %s", link, u.Fragment, target)
	}
	return linkOK, ""
}
