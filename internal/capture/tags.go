package capture

import (
	"regexp"
	"sort"
	"strings"
)

// AutoCapturedTag is present on every automatically generated record.
const AutoCapturedTag = "auto-captured"

// TagRule adds Tag when Pattern matches the concatenated message content.
type TagRule struct {
	Pattern *regexp.Regexp
	Tag     string
}

// DefaultTagRules is evaluated in order; every matching rule contributes its tag.
var DefaultTagRules = []TagRule{
	{regexp.MustCompile(`(?i)\b(?:code|coding|function|python|javascript|typescript|golang|rust|java|implementation|compile|refactor|algorithm)\b|` + "```"), "coding"},
	{regexp.MustCompile(`(?i)\b(?:bug|error|exception|stack ?trace|crash|debug(?:ging)?|traceback|segfault)\b`), "debugging"},
	{regexp.MustCompile(`(?i)\b(?:unit tests?|testing|test cases?|coverage|assert(?:ion)?s?|mock(?:ing)?)\b`), "testing"},
	{regexp.MustCompile(`(?i)\b(?:docker|kubernetes|k8s|terraform|deploy(?:ment)?|ci/cd|pipeline|helm|ansible)\b`), "devops"},
	{regexp.MustCompile(`(?i)\b(?:sql|database|postgres(?:ql)?|mysql|sqlite|mongodb|redis|query|schema)\b`), "database"},
	{regexp.MustCompile(`(?i)\b(?:api|endpoint|rest|graphql|grpc|http|webhook)\b`), "api"},
	{regexp.MustCompile(`(?i)\b(?:security|vulnerability|auth(?:entication|orization)?|encrypt(?:ion)?|xss|csrf|cve)\b`), "security"},
	{regexp.MustCompile(`(?i)\b(?:data analysis|dataset|pandas|statistics|regression|csv|visuali[sz]ation)\b`), "data"},
	{regexp.MustCompile(`(?i)\b(?:machine learning|neural|llm|model training|embedding|prompt|gpt|transformer)\b`), "ai"},
	{regexp.MustCompile(`(?i)\b(?:essay|blog post|draft|rewrite|proofread|grammar|paragraph)\b`), "writing"},
	{regexp.MustCompile(`(?i)\b(?:research|paper|study|citation|literature)\b`), "research"},
	{regexp.MustCompile(`(?i)\b(?:css|html|react|vue|frontend|ui|ux|layout)\b`), "design"},
	{regexp.MustCompile(`(?i)\b(?:readme|documentation|docs|tutorial|guide)\b`), "documentation"},
	{regexp.MustCompile(`(?i)\b(?:performance|latency|optimi[sz]e|benchmark|slow|memory leak)\b`), "performance"},
}

// TagSet is a set of tags. Sets have no duplicates by construction.
type TagSet map[string]struct{}

// Add inserts tag; empty tags are ignored.
func (s TagSet) Add(tag string) {
	if tag == "" {
		return
	}
	s[tag] = struct{}{}
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Sorted returns the set as a sorted slice.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TagSource carries the page-level inputs for tag generation.
type TagSource struct {
	SourceName  string
	ContentType ContentType
	Labels      []string
	State       string
	Repository  string
}

// Tagger generates deterministic tags from content and page metadata.
type Tagger struct {
	rules []TagRule
}

// NewTagger creates a Tagger. With no rules it uses DefaultTagRules.
func NewTagger(rules []TagRule) *Tagger {
	if len(rules) == 0 {
		rules = DefaultTagRules
	}
	return &Tagger{rules: rules}
}

// Tag evaluates every rule against content and adds the mandatory base tags
// {source, content type, auto-captured} plus any structural tags.
func (t *Tagger) Tag(content string, src TagSource) TagSet {
	tags := TagSet{}
	tags.Add(NormalizeTag(src.SourceName))
	tags.Add(NormalizeTag(string(src.ContentType)))
	tags.Add(AutoCapturedTag)

	for _, r := range t.rules {
		if r.Pattern.MatchString(content) {
			tags.Add(r.Tag)
		}
	}

	for _, l := range src.Labels {
		tags.Add(NormalizeTag(l))
	}
	tags.Add(NormalizeTag(src.State))
	tags.Add(NormalizeTag(src.Repository))
	return tags
}

// NormalizeTag lowercases a tag and replaces whitespace runs with dashes.
func NormalizeTag(s string) string {
	return strings.ReplaceAll(CollapseWhitespace(strings.ToLower(s)), " ", "-")
}

// JoinContent concatenates message content for tagging and classification.
func JoinContent(msgs []Message) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}
