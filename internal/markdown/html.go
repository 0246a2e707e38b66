package markdown

import (
	"bytes"

	"golang.org/x/net/html"
)

// collectHTMLAnchors records id attributes and <a name> targets found in raw HTML.
func collectHTMLAnchors(raw []byte, into map[string]bool) {
	z := html.NewTokenizer(bytes.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch {
				case string(key) == "id":
					into[string(val)] = true
				case string(key) == "name" && string(name) == "a":
					into[string(val)] = true
				}
			}
		}
	}
}
