package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func isHidden(node *html.Node) bool {
	if node.Type != html.ElementNode {
		return false
	}
	switch node.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript:
		return true
	}
	return false
}

// JoinedText returns the trimmed, non-empty text nodes under `node` in document order, joined
// with `sep`. Script, style, template and noscript contents are skipped.
func JoinedText(node *html.Node, sep string) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil || isHidden(n) {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				parts = append(parts, text)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return strings.Join(parts, sep)
}

// SelectionText is JoinedText over every node of a selection.
func SelectionText(sel *goquery.Selection, sep string) string {
	parts := make([]string, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		text := JoinedText(n, sep)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, sep)
}

// ParseDocument parses an html string into a goquery document.
func ParseDocument(contents string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(contents))
}
