package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/tree"
)

// countingStrategy returns fixed candidates and records how often it ran.
type countingStrategy struct {
	kind    Kind
	out     []capture.Candidate
	matches bool
	calls   int
}

func (s *countingStrategy) Kind() Kind               { return s.kind }
func (s *countingStrategy) Matches(PageContext) bool { return s.matches }
func (s *countingStrategy) Extract(tree.Tree) []capture.Candidate {
	s.calls++
	return s.out
}

func parse(t *testing.T, doc string) tree.Tree {
	t.Helper()
	tr, err := tree.ParseString(doc)
	require.NoError(t, err)
	return tr
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	first := &countingStrategy{kind: KindRoleMarker, matches: true, out: []capture.Candidate{
		capture.NewCandidate(capture.RoleUser, "from the role marker strategy"),
	}}
	second := &countingStrategy{kind: KindClassPattern, matches: true, out: []capture.Candidate{
		capture.NewCandidate(capture.RoleUser, "from the class pattern strategy"),
	}}

	res := NewChain(10, first, second).Extract(parse(t, "<p></p>"), PageContext{})

	assert.Equal(t, KindRoleMarker, res.Strategy)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "from the role marker strategy", res.Candidates[0].RawText)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "lower-priority strategy must not be consulted")
}

func TestChain_FallsThroughShortAndEmpty(t *testing.T) {
	tooShort := &countingStrategy{kind: KindRoleMarker, matches: true, out: []capture.Candidate{
		capture.NewCandidate(capture.RoleUser, "Copy"),
		capture.NewCandidate(capture.RoleUser, "Edit"),
	}}
	skipped := &countingStrategy{kind: KindClassPattern, matches: false, out: []capture.Candidate{
		capture.NewCandidate(capture.RoleUser, "never reached because it does not match"),
	}}
	fallback := &countingStrategy{kind: KindHeuristic, matches: true, out: []capture.Candidate{
		capture.NewCandidate(capture.RoleUnknown, "heuristic output line"),
	}}

	res := NewChain(10, tooShort, skipped, fallback).Extract(parse(t, "<p></p>"), PageContext{})

	assert.Equal(t, KindHeuristic, res.Strategy)
	assert.Equal(t, 2, res.Discarded)
	assert.Equal(t, 0, skipped.calls)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, capture.RoleUser, res.Candidates[0].Role, "lone unmarked candidate alternates to user")
}

func TestChain_AllEmpty(t *testing.T) {
	res := NewChain(10,
		&countingStrategy{kind: KindRoleMarker, matches: true},
		&countingStrategy{kind: KindHeuristic, matches: true},
	).Extract(parse(t, "<p></p>"), PageContext{})

	assert.True(t, res.Empty())
	assert.Equal(t, Kind(""), res.Strategy)
	assert.Zero(t, res.Discarded)
}

const chatDoc = `<html><body><main>
  <div data-message-author-role="user"><div class="whitespace-pre-wrap">How do goroutines differ from threads?</div></div>
  <div data-message-author-role="assistant"><div class="markdown"><p>Goroutines are multiplexed onto OS threads by the runtime.</p></div></div>
  <div data-message-author-role="system">hidden system prompt text</div>
  <div data-message-author-role="user"><div class="whitespace-pre-wrap">And channels?</div></div>
</main></body></html>`

func TestRoleMarker_Extract(t *testing.T) {
	s := &RoleMarker{Rules: []Rule{{Selector: "[data-message-author-role]", Attr: "data-message-author-role", Role: capture.RoleUnknown}}}
	got := s.Extract(parse(t, chatDoc))

	require.Len(t, got, 4)
	assert.Equal(t, capture.RoleUser, got[0].Role)
	assert.Equal(t, "How do goroutines differ from threads?", got[0].RawText)
	assert.Equal(t, capture.RoleAssistant, got[1].Role)
	assert.Equal(t, capture.RoleUnknown, got[2].Role, "unrecognized marker falls back")
	assert.Equal(t, capture.RoleUser, got[3].Role)
}

func TestRoleMarker_FixedRolesKeepDocumentOrder(t *testing.T) {
	doc := `<html><body>
	  <div data-testid="user-message">first user turn text</div>
	  <div class="reply" data-is-streaming="false">first assistant turn text</div>
	  <div data-testid="user-message">second user turn text</div>
	</body></html>`
	s := &RoleMarker{Rules: []Rule{
		{Selector: `[data-testid="user-message"]`, Role: capture.RoleUser},
		{Selector: "[data-is-streaming]", Role: capture.RoleAssistant},
	}}
	got := s.Extract(parse(t, doc))

	require.Len(t, got, 3)
	assert.Equal(t, []capture.Role{capture.RoleUser, capture.RoleAssistant, capture.RoleUser},
		[]capture.Role{got[0].Role, got[1].Role, got[2].Role})
}

func TestClassPattern_NoDoubleRepresentation(t *testing.T) {
	doc := `<html><body>
	  <div class="msg user-message"><div class="msg">nested inner copy of the text</div></div>
	</body></html>`
	s := &ClassPattern{Rules: []Rule{
		{Selector: ".user-message", Role: capture.RoleUser},
		{Selector: ".msg", Role: capture.RoleUnknown},
	}}
	got := s.Extract(parse(t, doc))

	require.Len(t, got, 1, "nested match must not produce a second candidate")
	assert.Equal(t, capture.RoleUser, got[0].Role)
}

func TestHeuristic_Extract(t *testing.T) {
	doc := `<html><body><main>
	  <div><button>Copy</button></div>
	  <div>Settings</div>
	  <div>Explain closures in Go please</div>
	  <div><p>A closure captures variables.</p><pre><code>func() { x++ }</code></pre></div>
	</main></body></html>`
	s := &Heuristic{Selector: "main div", DenyList: DefaultDenyList}
	got := s.Extract(parse(t, doc))

	require.Len(t, got, 2)
	assert.Equal(t, capture.RoleUnknown, got[0].Role)
	assert.Equal(t, "Explain closures in Go please", got[0].RawText)
	assert.Equal(t, capture.RoleAssistant, got[1].Role, "code block implies assistant")
}

func TestStrategy_Matches(t *testing.T) {
	s := &ClassPattern{Paths: regexp.MustCompile(`^/[^/]+/[^/]+/issues/\d+`)}
	assert.True(t, s.Matches(PageContext{URL: "https://github.com/acme/app/issues/12"}))
	assert.False(t, s.Matches(PageContext{URL: "https://github.com/acme/app/pull/12"}))
	assert.True(t, (&Heuristic{}).Matches(PageContext{URL: "::bad"}))
}

func TestChain_LengthFilterUsesCollapsedText(t *testing.T) {
	padded := &countingStrategy{kind: KindRoleMarker, matches: true, out: []capture.Candidate{
		capture.NewCandidate(capture.RoleUser, "Ok\n"+strings.Repeat(" ", 21)+"go"),
	}}
	fallback := &countingStrategy{kind: KindClassPattern, matches: true, out: []capture.Candidate{
		capture.NewCandidate(capture.RoleUser, "How do I write a binary search in Python?"),
	}}

	res := NewChain(10, padded, fallback).Extract(parse(t, "<p></p>"), PageContext{})
	assert.Equal(t, KindClassPattern, res.Strategy)
	assert.Equal(t, 1, res.Discarded)
	require.Len(t, res.Candidates, 1)
}

func TestHeuristic_SiblingCodeBlockJoinsReply(t *testing.T) {
	doc := `<html><body><main>
	  <div>
	    <p>Can you show me a binary search?</p>
	  </div>
	  <div>
	    <p>Here is an implementation:</p>
	    <pre><code>def bsearch(a, x):
    lo, hi = 0, len(a)</code></pre>
	  </div>
	</main></body></html>`
	s := &Heuristic{Selector: "main p, main div", DenyList: DefaultDenyList}
	got := s.Extract(parse(t, doc))

	require.Len(t, got, 2)
	assert.Equal(t, capture.RoleUnknown, got[0].Role)
	assert.Equal(t, capture.RoleAssistant, got[1].Role)
	assert.Contains(t, got[1].RawText, "Here is an implementation:")
	assert.Contains(t, got[1].RawText, "def bsearch(a, x):")
}
