// Package extract turns a queried page tree into raw message candidates using
// an ordered chain of strategies. The first strategy whose filtered output is
// non-empty wins; results are never merged across strategies.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/tree"
)

// Kind names a strategy variant, highest confidence first.
type Kind string

const (
	KindRoleMarker   Kind = "role-marker"
	KindClassPattern Kind = "class-pattern"
	KindHeuristic    Kind = "heuristic"
)

// PageContext is what a strategy may inspect before touching the tree.
type PageContext struct {
	URL   string
	Title string
}

// Path returns the URL path, or "" when the URL does not parse.
func (c PageContext) Path() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// Strategy is one extraction algorithm.
type Strategy interface {
	Kind() Kind
	Matches(ctx PageContext) bool
	Extract(t tree.Tree) []capture.Candidate
}

// Rule binds a selector to a role. For role markers, a non-empty Attr means
// the role is read from that attribute and Role is only the fallback.
type Rule struct {
	Selector string
	Attr     string
	Role     capture.Role
}

// RoleMarker reads author roles from explicit structural attributes or
// role-specific elements.
type RoleMarker struct {
	Rules []Rule
	Paths *regexp.Regexp // nil matches every page
}

// Kind implements Strategy.
func (s *RoleMarker) Kind() Kind { return KindRoleMarker }

// Matches implements Strategy.
func (s *RoleMarker) Matches(ctx PageContext) bool { return matchPath(s.Paths, ctx) }

// Extract implements Strategy.
func (s *RoleMarker) Extract(t tree.Tree) []capture.Candidate {
	return collect(t, s.Rules, func(n tree.Node, r Rule) capture.Role {
		if r.Attr == "" {
			return r.Role
		}
		if role := capture.ParseRole(t.AttributesOf(n)[r.Attr]); role.Known() {
			return role
		}
		return r.Role
	})
}

// ClassPattern selects messages by class or identifier patterns. The role
// comes from which pattern matched.
type ClassPattern struct {
	Rules []Rule
	Paths *regexp.Regexp
}

// Kind implements Strategy.
func (s *ClassPattern) Kind() Kind { return KindClassPattern }

// Matches implements Strategy.
func (s *ClassPattern) Matches(ctx PageContext) bool { return matchPath(s.Paths, ctx) }

// Extract implements Strategy.
func (s *ClassPattern) Extract(t tree.Tree) []capture.Candidate {
	return collect(t, s.Rules, func(_ tree.Node, r Rule) capture.Role { return r.Role })
}

// Heuristic is the fallback for pages with no usable markup. It takes the
// innermost text blocks under Selector and leaves roles to text shape, except
// that a block containing a code element is treated as an assistant reply.
type Heuristic struct {
	Selector     string
	CodeSelector string   // default "pre, code"
	DenyList     []string // compared case-insensitively against trimmed text
	Paths        *regexp.Regexp
}

// DefaultDenyList holds common UI chrome strings that are never messages.
var DefaultDenyList = []string{
	"New chat", "Settings", "Sign out", "Log out", "Share", "Copy", "Regenerate",
	"Upgrade plan", "Edit", "Retry", "Search",
}

// Kind implements Strategy.
func (s *Heuristic) Kind() Kind { return KindHeuristic }

// Matches implements Strategy.
func (s *Heuristic) Matches(ctx PageContext) bool { return matchPath(s.Paths, ctx) }

// Extract implements Strategy.
func (s *Heuristic) Extract(t tree.Tree) []capture.Candidate {
	deny := make(map[string]bool, len(s.DenyList))
	for _, d := range s.DenyList {
		deny[strings.ToLower(strings.TrimSpace(d))] = true
	}
	codeSel := s.CodeSelector
	if codeSel == "" {
		codeSel = "pre, code"
	}

	nodes := s.blocks(t, codeSel)
	out := make([]capture.Candidate, 0, len(nodes))
	for _, n := range nodes {
		text := t.TextOf(n)
		if deny[strings.ToLower(strings.TrimSpace(text))] {
			continue
		}
		role := capture.RoleUnknown
		if len(tree.QueryWithin(t, n, codeSel)) > 0 {
			role = capture.RoleAssistant
		}
		out = append(out, capture.NewCandidate(role, text))
	}
	return out
}

// blocks returns the innermost selected nodes. A code block lying outside
// all of them promotes its nearest selected ancestor instead, so a reply
// made of prose followed by a sibling <pre> stays one candidate.
func (s *Heuristic) blocks(t tree.Tree, codeSel string) []tree.Node {
	all := t.Query(s.Selector)
	selected := make(map[tree.Node]bool, len(all))
	for _, n := range all {
		selected[n] = true
	}
	inner := make(map[tree.Node]bool, len(all))
	for _, n := range tree.StripAncestors(t, all) {
		inner[n] = true
	}

	keep := make(map[tree.Node]bool, len(inner))
	for n := range inner {
		keep[n] = true
	}
	for _, c := range t.Query(codeSel) {
		if _, ok := tree.Closest(t, c, func(n tree.Node) bool { return inner[n] }); ok {
			continue
		}
		if p, ok := tree.Closest(t, c, func(n tree.Node) bool { return selected[n] }); ok {
			keep[p] = true
		}
	}

	out := make([]tree.Node, 0, len(keep))
	for _, n := range all {
		if keep[n] {
			out = append(out, n)
		}
	}
	return tree.StripNested(t, out)
}

// collect runs every rule's selector, then walks the union in document order
// so interleaved user and assistant turns keep their order. Nodes nested in
// another selected node are dropped so a subtree is represented once.
func collect(t tree.Tree, rules []Rule, roleOf func(tree.Node, Rule) capture.Role) []capture.Candidate {
	if len(rules) == 0 {
		return nil
	}

	selectors := make([]string, len(rules))
	sets := make([]map[tree.Node]bool, len(rules))
	for i, r := range rules {
		selectors[i] = r.Selector
		sets[i] = make(map[tree.Node]bool)
		for _, n := range t.Query(r.Selector) {
			sets[i][n] = true
		}
	}

	ordered := tree.StripNested(t, t.Query(strings.Join(selectors, ", ")))
	out := make([]capture.Candidate, 0, len(ordered))
	for _, n := range ordered {
		for i, r := range rules {
			if sets[i][n] {
				out = append(out, capture.NewCandidate(roleOf(n, r), t.TextOf(n)))
				break
			}
		}
	}
	return out
}

func matchPath(re *regexp.Regexp, ctx PageContext) bool {
	if re == nil {
		return true
	}
	return re.MatchString(ctx.Path())
}
