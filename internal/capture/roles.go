package capture

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// AssistantLengthThreshold is the length above which unmarked text is assumed
// to be an assistant reply.
const AssistantLengthThreshold = 100

var markdown = goldmark.New()

// Shape holds the text-shape signals used when no role marker is available.
type Shape struct {
	Code       bool
	Paragraphs int
	Length     int
}

// AssistantSignal reports whether the shape implies an assistant reply.
func (s Shape) AssistantSignal() bool {
	return s.Code || s.Paragraphs >= 2 || s.Length > AssistantLengthThreshold
}

// AnalyzeShape parses text as markdown and reports its shape. Length counts
// the whitespace-collapsed text. Leading indentation is dropped before
// parsing: rendered page text is full of layout whitespace that would
// otherwise parse as indented code.
func AnalyzeShape(s string) Shape {
	shape := Shape{Length: CountChars(CollapseWhitespace(s))}
	if strings.Contains(s, "```") {
		shape.Code = true
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " \t")
	}
	src := []byte(strings.Join(lines, "\n"))

	doc := markdown.Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock:
			shape.Code = true
		case ast.KindParagraph:
			shape.Paragraphs++
		}
		return ast.WalkContinue, nil
	})
	return shape
}

// InferRoles fills in RoleUnknown entries. When any candidate in the pass
// carries a signal (a known role or an assistant-shaped text), unknown
// candidates become Assistant if assistant-shaped and User otherwise. When no
// signal exists anywhere, roles alternate by index starting at User.
// Candidates with a known role are never changed.
func InferRoles(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)

	hasUnknown := false
	for _, c := range out {
		if !c.Role.Known() {
			hasUnknown = true
			break
		}
	}
	if !hasUnknown {
		return out
	}

	shapes := make([]Shape, len(out))
	anySignal := false
	for i, c := range out {
		if c.Role.Known() {
			anySignal = true
			continue
		}
		shapes[i] = AnalyzeShape(c.RawText)
		if shapes[i].AssistantSignal() {
			anySignal = true
		}
	}

	for i := range out {
		if out[i].Role.Known() {
			continue
		}
		switch {
		case !anySignal && i%2 == 0:
			out[i].Role = RoleUser
		case !anySignal:
			out[i].Role = RoleAssistant
		case shapes[i].AssistantSignal():
			out[i].Role = RoleAssistant
		default:
			out[i].Role = RoleUser
		}
	}
	return out
}
