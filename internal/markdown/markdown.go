// Package markdown wraps goldmark with the extension set selected by the site
// configuration and provides the analysis (links, headings, anchors) and
// rendering used by the build.
package markdown

import (
	"bytes"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Options selects the goldmark extensions to enable.
type Options struct {
	Tables         bool
	Footnotes      bool
	DefinitionList bool
	Strikethrough  bool
	TaskList       bool
	Typographer    bool
	Attributes     bool
}

// OptionsFromExtensions maps mkdocs `markdown_extensions` names onto goldmark
// extensions. Names without a goldmark counterpart are ignored.
func OptionsFromExtensions(names []string) Options {
	var o Options
	for _, name := range names {
		switch name {
		case "tables":
			o.Tables = true
		case "footnotes":
			o.Footnotes = true
		case "def_list":
			o.DefinitionList = true
		case "attr_list":
			o.Attributes = true
		case "pymdownx.tilde", "strikethrough":
			o.Strikethrough = true
		case "pymdownx.tasklist", "tasklist":
			o.TaskList = true
		case "smarty", "pymdownx.smartsymbols":
			o.Typographer = true
		case "extra":
			o.Tables, o.Footnotes, o.DefinitionList, o.Attributes = true, true, true, true
		}
	}
	return o
}

// Parser parses page bodies (front matter already removed).
// A Parser is safe for concurrent use.
type Parser struct {
	md goldmark.Markdown
}

func NewParser(opts Options) *Parser {
	var exts []goldmark.Extender
	if opts.Tables {
		exts = append(exts, extension.Table)
	}
	if opts.Footnotes {
		exts = append(exts, extension.Footnote)
	}
	if opts.DefinitionList {
		exts = append(exts, extension.DefinitionList)
	}
	if opts.Strikethrough {
		exts = append(exts, extension.Strikethrough)
	}
	if opts.TaskList {
		exts = append(exts, extension.TaskList)
	}
	if opts.Typographer {
		exts = append(exts, extension.Typographer)
	}
	parserOpts := []parser.Option{parser.WithAutoHeadingID()}
	if opts.Attributes {
		parserOpts = append(parserOpts, parser.WithAttribute())
	}
	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parserOpts...),
		// Raw HTML in pages is passed through, as python-markdown does.
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Parser{md: md}
}

// Parse returns the AST of body along with the parse context holding
// reference definitions.
func (p *Parser) Parse(body []byte) (gmast.Node, parser.Context) {
	ctx := parser.NewContext()
	root := p.md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))
	return root, ctx
}

// Analysis is the result of a single pass over a page body.
type Analysis struct {
	Links    []Link
	Headings []Heading
	// Anchors holds every fragment target: heading ids, attribute ids and
	// raw HTML id/name attributes.
	Anchors map[string]bool
}

// Title returns the text of the first level one heading.
func (a *Analysis) Title() string {
	for _, h := range a.Headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// Analyze extracts links, headings and anchors from body.
// Links inside code spans and code blocks are never reported.
func (p *Parser) Analyze(body []byte) (*Analysis, error) {
	root, ctx := p.Parse(body)
	out := &Analysis{Anchors: map[string]bool{}}

	err := gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if id, ok := n.AttributeString("id"); ok {
			if s := attrString(id); s != "" {
				out.Anchors[s] = true
			}
		}
		switch node := n.(type) {
		case *gmast.Heading:
			id, _ := node.AttributeString("id")
			out.Headings = append(out.Headings, Heading{
				Level: node.Level,
				Text:  PlainText(node, body),
				ID:    attrString(id),
				Line:  LineOf(node, body),
			})
		case *gmast.AutoLink:
			out.Links = append(out.Links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body)), Line: LineOf(node, body)})
		case *gmast.Image:
			out.Links = append(out.Links, Link{Kind: LinkKindImage, Destination: string(node.Destination), Line: LineOf(node, body)})
		case *gmast.Link:
			// Reference-style links are resolved to Link nodes by goldmark.
			out.Links = append(out.Links, Link{Kind: LinkKindInline, Destination: string(node.Destination), Line: LineOf(node, body)})
		case *gmast.HTMLBlock:
			var raw bytes.Buffer
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				raw.Write(seg.Value(body))
			}
			collectHTMLAnchors(raw.Bytes(), out.Anchors)
		case *gmast.RawHTML:
			var raw bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				raw.Write(seg.Value(body))
			}
			collectHTMLAnchors(raw.Bytes(), out.Anchors)
		}
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	// Reference definitions live in the parse context, not in the AST.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		out.Links = append(out.Links, Link{
			Kind:        LinkKindReferenceDefinition,
			Destination: string(ref.Destination()),
			Line:        referenceLine(body, ref.Label()),
		})
	}
	return out, nil
}

// ExtractLinks is a convenience wrapper around Analyze.
func (p *Parser) ExtractLinks(body []byte) ([]Link, error) {
	a, err := p.Analyze(body)
	if err != nil {
		return nil, err
	}
	return a.Links, nil
}

// ExtractHeadings is a convenience wrapper around Analyze.
func (p *Parser) ExtractHeadings(body []byte) ([]Heading, error) {
	a, err := p.Analyze(body)
	if err != nil {
		return nil, err
	}
	return a.Headings, nil
}

func attrString(v any) string {
	switch s := v.(type) {
	case []byte:
		return string(s)
	case string:
		return s
	default:
		return ""
	}
}

// PlainText concatenates the text beneath n.
func PlainText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// offsetOf finds a byte offset for n: the first text segment beneath it, or
// the first line of the nearest enclosing block.
func offsetOf(n gmast.Node) int {
	off := -1
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := c.(*gmast.Text); ok {
			off = t.Segment.Start
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if off >= 0 {
		return off
	}
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == gmast.TypeBlock && p.Lines().Len() > 0 {
			return p.Lines().At(0).Start
		}
	}
	return 0
}

// LineOf returns the 1-based line of n within src.
func LineOf(n gmast.Node, src []byte) int {
	return lineAt(src, offsetOf(n))
}

func lineAt(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.Count(src[:offset], []byte("\n")) + 1
}

func referenceLine(src []byte, label []byte) int {
	want := "[" + strings.ToLower(string(label)) + "]:"
	for i, line := range strings.Split(string(src), "\n") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), want) {
			return i + 1
		}
	}
	return 0
}
