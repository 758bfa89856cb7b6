package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/trawl/internal/db"
)

// Flags persists the per-source enabled flag in SQLite.
type Flags struct {
	DB *sql.DB
}

// GetEnabled reports whether capture is enabled for source. Sources never
// toggled are enabled.
func (f Flags) GetEnabled(ctx context.Context, source string) (bool, error) {
	return db.GetEnabled(ctx, f.DB, source)
}

// SetEnabled records the enabled flag for source.
func (f Flags) SetEnabled(ctx context.Context, source string, enabled bool) error {
	return db.SetEnabled(ctx, f.DB, source, enabled)
}
