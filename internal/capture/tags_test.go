package capture

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTagger_BaseTagsAlwaysPresent(t *testing.T) {
	tagger := NewTagger(nil)
	for _, content := range []string{"", "nothing matches here", "python function with a bug"} {
		tags := tagger.Tag(content, TagSource{SourceName: "ChatGPT", ContentType: TypeConversation})
		for _, base := range []string{"chatgpt", "conversation", AutoCapturedTag} {
			if !tags.Has(base) {
				t.Errorf("Tag(%q) missing base tag %q: %v", content, base, tags.Sorted())
			}
		}
	}
}

func TestTagger_Deterministic(t *testing.T) {
	tagger := NewTagger(nil)
	src := TagSource{SourceName: "github", ContentType: TypeIssue, Labels: []string{"Good First Issue"}}
	content := "The API endpoint returns an error when the database query times out"

	first := tagger.Tag(content, src).Sorted()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, tagger.Tag(content, src).Sorted()); diff != "" {
			t.Fatalf("Tag() not deterministic (-first +again):\n%s", diff)
		}
	}

	want := []string{"api", "auto-captured", "database", "debugging", "github", "good-first-issue", "issue"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("Tag() mismatch (-want +got):\n%s", diff)
	}
}

func TestTagger_StructuralTags(t *testing.T) {
	tags := NewTagger(nil).Tag("plain words", TagSource{
		SourceName:  "github",
		ContentType: TypePullRequest,
		Labels:      []string{"Needs Review", "bug", "needs   review"},
		State:       "Open",
		Repository:  "Octo/Hello World",
	})

	for _, want := range []string{"needs-review", "bug", "open", "octo/hello-world", "pull-request"} {
		if !tags.Has(want) {
			t.Errorf("missing structural tag %q: %v", want, tags.Sorted())
		}
	}

	seen := map[string]bool{}
	for _, tag := range tags.Sorted() {
		if seen[tag] {
			t.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}
}

func TestTagger_CustomRules(t *testing.T) {
	tagger := NewTagger([]TagRule{{Pattern: regexp.MustCompile(`(?i)kittens`), Tag: "cats"}})
	tags := tagger.Tag("I like KITTENS and python", TagSource{SourceName: "claude", ContentType: TypeConversation})

	if !tags.Has("cats") {
		t.Error("custom rule did not fire")
	}
	if tags.Has("coding") {
		t.Error("default rules should not apply when custom rules are given")
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Bug", "bug"},
		{"good first issue", "good-first-issue"},
		{"  Needs   Triage ", "needs-triage"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTag(tt.input); got != tt.want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
