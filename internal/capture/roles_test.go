package capture

import (
	"strings"
	"testing"
)

func TestAnalyzeShape(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCode  bool
		wantParas int
		assistant bool
	}{
		{"short question", "What is a goroutine?", false, 1, false},
		{"inline fence", "Try ```go run .``` now", true, 1, true},
		{"fenced block", "Run this:\n```\ngo test ./...\n```", true, 1, true},
		{"two paragraphs", "First thought.\n\nSecond thought.", false, 2, true},
		{"indented layout text", "      indented by the page layout", false, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeShape(tt.input)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", got.Code, tt.wantCode)
			}
			if got.Paragraphs != tt.wantParas {
				t.Errorf("Paragraphs = %d, want %d", got.Paragraphs, tt.wantParas)
			}
			if got.AssistantSignal() != tt.assistant {
				t.Errorf("AssistantSignal() = %v, want %v", got.AssistantSignal(), tt.assistant)
			}
		})
	}
}

func TestAnalyzeShape_LongText(t *testing.T) {
	long := "This reply is deliberately written to be longer than one hundred characters so that the length rule fires."
	if !AnalyzeShape(long).AssistantSignal() {
		t.Errorf("long text (%d chars) should signal assistant", CountChars(long))
	}
}

func TestAnalyzeShape_LengthIgnoresLayoutWhitespace(t *testing.T) {
	pad := strings.Repeat(" ", 30)
	wrapped := "How do I\n" + pad + "write a binary\n" + pad + "search in Python?"

	got := AnalyzeShape(wrapped)
	if got.Length != 41 {
		t.Errorf("Length = %d, want 41", got.Length)
	}
	if got.Paragraphs != 1 || got.Code {
		t.Errorf("shape = %+v, want one plain paragraph", got)
	}
	if got.AssistantSignal() {
		t.Error("source-wrapped short question should not signal assistant")
	}
}

func TestInferRoles(t *testing.T) {
	cands := []Candidate{
		NewCandidate(RoleUnknown, "short ask"),
		NewCandidate(RoleUnknown, "First para.\n\nSecond para."),
		NewCandidate(RoleAuthor, "kept as author"),
	}
	got := InferRoles(cands)

	want := []Role{RoleUser, RoleAssistant, RoleAuthor}
	for i := range want {
		if got[i].Role != want[i] {
			t.Errorf("candidate %d role = %q, want %q", i, got[i].Role, want[i])
		}
	}
	if cands[0].Role != RoleUnknown {
		t.Error("InferRoles mutated its input")
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"user":      RoleUser,
		"Human":     RoleUser,
		"assistant": RoleAssistant,
		" model ":   RoleAssistant,
		"author":    RoleAuthor,
		"system":    RoleUnknown,
		"":          RoleUnknown,
	}
	for in, want := range tests {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}
