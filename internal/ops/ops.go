// Package ops implements storage operations over captured records: the
// SQLite sink plus fetch, list, delete, purge, and export.
package ops

import (
	"strings"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ValidateType checks a content type filter. Empty means any type.
func ValidateType(typ string) (capture.ContentType, error) {
	t := capture.ContentType(strings.ToLower(strings.TrimSpace(typ)))
	switch t {
	case "", capture.TypeConversation, capture.TypeIssue, capture.TypePullRequest, capture.TypeDiscussion:
		return t, nil
	}
	return "", errors.NewInvalidRequest("type must be one of: conversation, issue, pull-request, discussion")
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
