package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/trawl/internal/db"
	"github.com/hpungsan/trawl/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	Source        *string // optional filter by source
	OlderThanDays *int    // optional, only purge if deleted_at < (now - N days)
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes soft-deleted captures and their messages.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must not be negative")
	}
	source := cleanOptionalString(input.Source)

	count, err := db.PurgeDeleted(ctx, database, source, input.OlderThanDays)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, source, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, source *string, olderThanDays *int) string {
	if count == 0 {
		return "No deleted captures to purge"
	}

	word := "capture"
	if count > 1 {
		word = "captures"
	}
	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if source != nil {
		msg += fmt.Sprintf(" from source %q", *source)
	}
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}
	return msg
}
