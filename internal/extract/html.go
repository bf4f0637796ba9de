package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// skipped elements hold page chrome rather than report text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Form:     true,
	atom.Noscript: true,
}

// HTML extracts visible text from an HTML page, one text node per line.
type HTML struct {
	// ContentType helps charset detection; may be empty.
	ContentType string
}

// Extract decodes body to UTF-8, parses it and collects text outside
// skipped elements.
func (h HTML) Extract(ctx context.Context, body []byte) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), h.ContentType)
	if err != nil {
		return "", eris.Wrap(err, "extract: detect charset")
	}
	doc, err := html.Parse(r)
	if err != nil {
		return "", eris.Wrap(err, "extract: parse html")
	}
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "extract: html")
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}
