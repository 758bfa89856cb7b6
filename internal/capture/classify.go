package capture

import (
	"regexp"
	"strings"
)

// Rule is one sensitivity detection pattern.
type Rule struct {
	ID      string
	Reason  Reason
	Pattern *regexp.Regexp
}

// credentialRules are evaluated first. Provider prefixes are self-identifying;
// the generic rule needs a keyword followed closely by a value.
var credentialRules = []Rule{
	{ID: "generic-credential", Reason: ReasonCredentials, Pattern: regexp.MustCompile(
		`(?i)(?:api[_-]?key|secret[_-]?key|access[_-]?token|password|credential)s?["']?\s*(?:[:=]|is|=>)\s*["']?[^\s"']{6,}`)},
	{ID: "pem-private-key", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`-----BEGIN [A-Z ]*KEY-----`)},
	{ID: "openai-key", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\bsk-(?:proj-|ant-)?[A-Za-z0-9_\-]{20,}`)},
	{ID: "github-token", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\b(?:ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{36}\b|\bgithub_pat_[A-Za-z0-9_]{22,}`)},
	{ID: "gitlab-token", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\bglpat-[A-Za-z0-9\-]{20,}`)},
	{ID: "slack-token", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}`)},
	{ID: "aws-access-key-id", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\b(?:AKIA|ASIA|AGPA|AIDA|AROA)[A-Z0-9]{16}\b`)},
	{ID: "google-api-key", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\bAIza[A-Za-z0-9_\-]{35}`)},
	{ID: "stripe-key", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\b(?:sk|rk|pk)_(?:live|test)_[A-Za-z0-9]{24,}`)},
	{ID: "jwt", Reason: ReasonCredentials, Pattern: regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]+`)},
}

var emailRule = Rule{
	ID:      "email",
	Reason:  ReasonEmail,
	Pattern: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
}

var internalKeywords = []string{"internal", "confidential", "private"}

// Classify decides whether text is sensitive. The first matching rule wins:
// credentials, then email addresses, then internal-use keywords. No match is
// not an error; it yields {false, none}.
func Classify(s string) Sensitivity {
	if _, ok := MatchRule(s); ok {
		return Sensitivity{Sensitive: true, Reason: ReasonCredentials}
	}
	if emailRule.Pattern.MatchString(s) {
		return Sensitivity{Sensitive: true, Reason: ReasonEmail}
	}
	lower := strings.ToLower(s)
	for _, kw := range internalKeywords {
		if strings.Contains(lower, kw) {
			return Sensitivity{Sensitive: true, Reason: ReasonInternal}
		}
	}
	return Sensitivity{Sensitive: false, Reason: ReasonNone}
}

// MatchRule returns the first credential rule that matches s.
func MatchRule(s string) (Rule, bool) {
	for _, r := range credentialRules {
		if r.Pattern.MatchString(s) {
			return r, true
		}
	}
	return Rule{}, false
}

// FusePrivacy combines the text classification with the page's own
// visibility signal. Either one alone is enough for Confidential.
func FusePrivacy(s Sensitivity, private bool) PrivacyHint {
	if private || s.Sensitive {
		return PrivacyConfidential
	}
	return PrivacyDefault
}
