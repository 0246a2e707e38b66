package markdown

import (
	"bytes"
	"fmt"

	gmast "github.com/yuin/goldmark/ast"
)

// LinkResolver maps a destination as written in a page onto the URL used in
// the rendered output. Returning the input unchanged is always valid.
type LinkResolver func(dest string) string

// Render converts body to HTML. Link and image destinations are passed through
// resolve when it is non-nil.
func (p *Parser) Render(body []byte, resolve LinkResolver) ([]byte, error) {
	root, _ := p.Parse(body)
	if resolve != nil {
		_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
			if !entering {
				return gmast.WalkContinue, nil
			}
			switch node := n.(type) {
			case *gmast.Link:
				node.Destination = []byte(resolve(string(node.Destination)))
			case *gmast.Image:
				node.Destination = []byte(resolve(string(node.Destination)))
			}
			return gmast.WalkContinue, nil
		})
	}
	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, body, root); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}
