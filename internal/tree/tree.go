// Package tree defines the minimal read-only document abstraction that the
// extraction code queries. It can be backed by a live DOM snapshot, a parsed
// HTML document, or a hand-built fixture.
package tree

// Node is an opaque handle. Only the Tree that returned it can interpret it.
type Node any

// Tree is a queryable, read-only document.
type Tree interface {
	// Query returns every node matching a CSS selector, in document order.
	// An invalid selector matches nothing.
	Query(selector string) []Node

	// TextOf returns the rendered text of the node and its descendants.
	TextOf(n Node) string

	// ParentOf returns the parent element, or false at the root.
	ParentOf(n Node) (Node, bool)

	// AttributesOf returns the node's attributes. The map is a copy.
	AttributesOf(n Node) map[string]string
}

// IsAncestor reports whether ancestor is a strict ancestor of n.
func IsAncestor(t Tree, ancestor, n Node) bool {
	cur, ok := t.ParentOf(n)
	for ok {
		if cur == ancestor {
			return true
		}
		cur, ok = t.ParentOf(cur)
	}
	return false
}

// QueryWithin returns the nodes matching selector that are descendants of root.
func QueryWithin(t Tree, root Node, selector string) []Node {
	var out []Node
	for _, n := range t.Query(selector) {
		if IsAncestor(t, root, n) {
			out = append(out, n)
		}
	}
	return out
}

// Closest walks from n upward (n included) and returns the first node for
// which match returns true.
func Closest(t Tree, n Node, match func(Node) bool) (Node, bool) {
	cur, ok := n, true
	for ok {
		if match(cur) {
			return cur, true
		}
		cur, ok = t.ParentOf(cur)
	}
	return nil, false
}

// FirstText returns the text of the first node matching selector, or "".
func FirstText(t Tree, selector string) string {
	nodes := t.Query(selector)
	if len(nodes) == 0 {
		return ""
	}
	return t.TextOf(nodes[0])
}

// StripAncestors drops every node that has a descendant also present in
// nodes, keeping the innermost blocks.
func StripAncestors(t Tree, nodes []Node) []Node {
	hasDescendant := make(map[Node]bool, len(nodes))
	for _, n := range nodes {
		cur, ok := t.ParentOf(n)
		for ok {
			hasDescendant[cur] = true
			cur, ok = t.ParentOf(cur)
		}
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if !hasDescendant[n] {
			out = append(out, n)
		}
	}
	return out
}

// StripNested drops every node that has an ancestor also present in nodes, so
// the same subtree is never represented twice.
func StripNested(t Tree, nodes []Node) []Node {
	set := make(map[Node]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		nested := false
		cur, ok := t.ParentOf(n)
		for ok {
			if set[cur] {
				nested = true
				break
			}
			cur, ok = t.ParentOf(cur)
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}
