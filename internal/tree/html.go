package tree

import (
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLTree is a Tree over a parsed HTML document.
type HTMLTree struct {
	root      *html.Node
	selectors map[string]cascadia.Selector
}

// Parse parses an HTML document into a Tree.
func Parse(r io.Reader) (*HTMLTree, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &HTMLTree{root: root, selectors: make(map[string]cascadia.Selector)}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*HTMLTree, error) {
	return Parse(strings.NewReader(s))
}

// Query implements Tree.
func (t *HTMLTree) Query(selector string) []Node {
	sel, ok := t.selectors[selector]
	if !ok {
		compiled, err := cascadia.Compile(selector)
		if err != nil {
			compiled = nil
		}
		t.selectors[selector] = compiled
		sel = compiled
	}
	if sel == nil {
		return nil
	}

	matches := sel.MatchAll(t.root)
	out := make([]Node, len(matches))
	for i, m := range matches {
		out[i] = m
	}
	return out
}

// TextOf implements Tree. Block-level elements are separated by newlines so
// paragraph structure survives; script and style content is skipped.
func (t *HTMLTree) TextOf(n Node) string {
	hn, ok := n.(*html.Node)
	if !ok || hn == nil {
		return ""
	}
	var b strings.Builder
	writeText(&b, hn)
	return strings.TrimSpace(b.String())
}

// ParentOf implements Tree.
func (t *HTMLTree) ParentOf(n Node) (Node, bool) {
	hn, ok := n.(*html.Node)
	if !ok || hn == nil || hn.Parent == nil || hn.Parent.Type != html.ElementNode {
		return nil, false
	}
	return hn.Parent, true
}

// AttributesOf implements Tree.
func (t *HTMLTree) AttributesOf(n Node) map[string]string {
	hn, ok := n.(*html.Node)
	if !ok || hn == nil {
		return map[string]string{}
	}
	attrs := make(map[string]string, len(hn.Attr))
	for _, a := range hn.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

// Title returns the document <title> text.
func (t *HTMLTree) Title() string {
	return FirstText(t, "title")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		case atom.Br:
			b.WriteString("\n")
			return
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteString("\n")
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Pre, atom.Li, atom.Ul, atom.Ol, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Table, atom.Tr, atom.Section, atom.Article:
		return true
	}
	return false
}
