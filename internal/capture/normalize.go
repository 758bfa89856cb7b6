package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"
)

// SignatureLength is how many leading runes of content, together with the
// role, identify an exact duplicate.
const SignatureLength = 100

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims s and collapses internal whitespace runs to single spaces.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(s string) int {
	return utf8.RuneCountInString(s)
}

// NewCandidate builds a Candidate with its length filled in.
func NewCandidate(role Role, raw string) Candidate {
	return Candidate{Role: role, RawText: raw, Length: CountChars(CollapseWhitespace(raw))}
}

// Normalize turns raw candidates into an ordered message sequence:
//  1. trim and collapse whitespace
//  2. drop candidates shorter than minLength runes
//  3. drop any candidate contained in another (the longer one stays; for
//     identical text the first occurrence stays)
//  4. fill in unknown roles (see InferRoles)
//  5. drop exact duplicates by (role, first SignatureLength runes), first wins
//  6. assign Index by final position
//
// Normalize is idempotent: Normalize(Candidates(Normalize(x))) equals Normalize(x).
func Normalize(cands []Candidate, minLength int) []Message {
	cleaned := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		content := CollapseWhitespace(c.RawText)
		n := CountChars(content)
		if n == 0 || n < minLength {
			continue
		}
		cleaned = append(cleaned, Candidate{Role: c.Role, RawText: content, Length: n})
	}

	kept := dropContained(cleaned)
	kept = InferRoles(kept)

	seen := make(map[string]bool, len(kept))
	out := make([]Message, 0, len(kept))
	for _, c := range kept {
		key := signature(c.Role, c.RawText)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Message{Role: c.Role, Content: c.RawText, Index: len(out)})
	}
	return out
}

// dropContained removes every candidate whose text is a substring of another
// candidate that is longer, or identical and earlier.
func dropContained(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for i, a := range cands {
		contained := false
		for j, b := range cands {
			if i == j || !strings.Contains(b.RawText, a.RawText) {
				continue
			}
			if len(b.RawText) > len(a.RawText) || j < i {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, a)
		}
	}
	return out
}

func signature(role Role, content string) string {
	prefix := content
	if CountChars(content) > SignatureLength {
		prefix = string([]rune(content)[:SignatureLength])
	}
	return string(role) + "\x00" + prefix
}

// Candidates converts messages back into candidates, e.g. to re-run Normalize.
func Candidates(msgs []Message) []Candidate {
	out := make([]Candidate, len(msgs))
	for i, m := range msgs {
		out[i] = NewCandidate(m.Role, m.Content)
	}
	return out
}

// ContentHash digests the ordered message sequence. Any change in order,
// role or content changes the hash.
func ContentHash(msgs []Message) string {
	h := sha256.New()
	for _, m := range msgs {
		h.Write([]byte(m.Role))
		h.Write([]byte{0x1f})
		h.Write([]byte(m.Content))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
