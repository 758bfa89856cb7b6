package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Source         string // optional
	Type           string // optional content type
	Tag            string // optional, exact tag match
	Limit          int    // default: 20, max: 100
	Offset         int    // default: 0
	IncludeDeleted bool
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []capture.Summary `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// List retrieves capture summaries, newest first, with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	typ, err := ValidateType(input.Type)
	if err != nil {
		return nil, err
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	filters := db.ListFilters{
		Source:         strings.ToLower(strings.TrimSpace(input.Source)),
		Type:           string(typ),
		Tag:            capture.NormalizeTag(strings.TrimSpace(input.Tag)),
		IncludeDeleted: input.IncludeDeleted,
	}
	summaries, total, err := db.List(ctx, database, filters, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []capture.Summary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "captured_at_desc",
	}, nil
}
