package markdown

import (
	"net/url"
	"strings"
)

type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
)

// Link is a link-like construct found in a page body.
type Link struct {
	Kind        LinkKind
	Destination string
	// Line is the 1-based line in the body where the link appears.
	Line int
}

// IsExternal reports whether the destination has a URL scheme or is protocol relative.
func (l Link) IsExternal() bool {
	d := l.Destination
	if strings.HasPrefix(d, "//") {
		return true
	}
	u, err := url.Parse(d)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

// IsAbsolute reports whether the destination is a site-absolute path ("/x.md").
func (l Link) IsAbsolute() bool {
	return strings.HasPrefix(l.Destination, "/") && !strings.HasPrefix(l.Destination, "//")
}

// Target splits a relative destination into its unescaped path and fragment.
// The query string is dropped.
func (l Link) Target() (path, fragment string) {
	return SplitDestination(l.Destination)
}

// SplitDestination splits a destination into unescaped path and fragment.
func SplitDestination(dest string) (path, fragment string) {
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		fragment = dest[i+1:]
		dest = dest[:i]
	}
	if i := strings.IndexByte(dest, '?'); i >= 0 {
		dest = dest[:i]
	}
	if p, err := url.PathUnescape(dest); err == nil {
		dest = p
	}
	return dest, fragment
}

// Heading is a section heading with the id the renderer assigns to it.
type Heading struct {
	Level int
	Text  string
	ID    string
	Line  int
}
