package capture

import "strings"

// Role identifies who authored a message.
type Role string

const (
	RoleUnknown   Role = "unknown"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleAuthor    Role = "author"
)

// Known reports whether r names an actual author role.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleAuthor
}

// ParseRole maps a structural role marker to a Role. Unrecognized markers map to RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "human":
		return RoleUser
	case "assistant", "model", "ai", "bot":
		return RoleAssistant
	case "author":
		return RoleAuthor
	}
	return RoleUnknown
}

// ContentType is the kind of page a capture came from.
type ContentType string

const (
	TypeConversation ContentType = "conversation"
	TypeIssue        ContentType = "issue"
	TypePullRequest  ContentType = "pull-request"
	TypeDiscussion   ContentType = "discussion"
)

// Reason explains why text was classified as sensitive.
type Reason string

const (
	ReasonNone        Reason = "none"
	ReasonCredentials Reason = "credentials"
	ReasonEmail       Reason = "email"
	ReasonInternal    Reason = "internal"
)

// PrivacyHint is a coarse access-control label for downstream consumers.
type PrivacyHint string

const (
	PrivacyDefault      PrivacyHint = "default"
	PrivacyConfidential PrivacyHint = "confidential"
)

// Candidate is one raw extraction result. Candidates are never persisted.
type Candidate struct {
	Role    Role
	RawText string
	Length  int // rune count of RawText after whitespace collapse
}

// Message is a normalized, ordered message within one capture pass.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// Sensitivity is the classifier output.
type Sensitivity struct {
	Sensitive bool   `json:"sensitive"`
	Reason    Reason `json:"reason"`
}

// Record is one packaged, classified, tagged capture ready for dispatch.
// Build copies the messages it is given; callers treat a built Record as
// read-only.
type Record struct {
	Type        ContentType       `json:"type"`
	Title       string            `json:"title,omitempty"`
	Messages    []Message         `json:"messages"`
	Metadata    map[string]string `json:"metadata"`
	Tags        []string          `json:"tags"` // sorted, unique
	Sensitivity Sensitivity       `json:"sensitivity"`
	PrivacyHint PrivacyHint       `json:"privacy_hint"`
}

// ContentHash returns the record's content hash metadata value.
func (r *Record) ContentHash() string {
	return r.Metadata[MetaContentHash]
}

// Metadata keys shared across adapters.
const (
	MetaURL            = "url"
	MetaSource         = "source"
	MetaCapturedAt     = "captured_at"
	MetaContentHash    = "content_hash"
	MetaMessageCount   = "message_count"
	MetaStrategy       = "strategy"
	MetaConversationID = "conversation_id"
	MetaVisibility     = "visibility"
	MetaRepository     = "repository"
	MetaState          = "state"
	MetaLabels         = "labels"
	MetaAuthor         = "author"
	MetaNumber         = "number"
)
