package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/db"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID              string
	IncludeDeleted  bool
	IncludeMessages *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	capture.Stored
}

// Fetch retrieves a stored capture by ID.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	c, err := db.GetByID(ctx, database, id, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{Stored: *c}
	if input.IncludeMessages != nil && !*input.IncludeMessages {
		output.Messages = []capture.Message{}
	}
	return output, nil
}
