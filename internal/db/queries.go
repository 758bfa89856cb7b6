package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/errors"
)

// ListFilters narrows List queries. Empty fields match everything.
type ListFilters struct {
	Source         string
	Type           string
	Tag            string
	IncludeDeleted bool
}

const captureColumns = `
	id, source, type, title, url, content_hash, metadata_json, tags_json,
	sensitive, sensitivity_reason, privacy_hint, captured_at, created_at, deleted_at`

// Insert stores a capture and its messages in one transaction.
func Insert(ctx context.Context, db *sql.DB, c *capture.Stored) error {
	metaJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return errors.NewInternal(err)
	}
	var tagsJSON sql.NullString
	if len(c.Tags) > 0 {
		data, err := json.Marshal(c.Tags)
		if err != nil {
			return errors.NewInternal(err)
		}
		tagsJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO captures (
			id, source, type, title, url, conversation_id, content_hash, message_count,
			metadata_json, tags_json, sensitive, sensitivity_reason, privacy_hint,
			captured_at, created_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`,
		c.ID, c.Source, string(c.Type), toNullString(c.Title), c.URL,
		toNullString(c.Metadata[capture.MetaConversationID]), c.ContentHash(), len(c.Messages),
		string(metaJSON), tagsJSON, boolToInt(c.Sensitivity.Sensitive), string(c.Sensitivity.Reason),
		string(c.PrivacyHint), c.CapturedAt, c.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO capture_messages (capture_id, idx, role, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()
	for _, m := range c.Messages {
		if _, err := stmt.ExecContext(ctx, c.ID, m.Index, string(m.Role), m.Content); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetByID retrieves a capture and its messages by ULID.
// If includeDeleted is false, soft-deleted captures are excluded.
func GetByID(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*capture.Stored, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	c, err := scanCapture(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	msgs, err := messagesFor(ctx, db, id)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return c, nil
}

// List returns summaries matching filters, newest first, plus the total
// number of matches ignoring limit and offset.
func List(ctx context.Context, db *sql.DB, f ListFilters, limit, offset int) ([]capture.Summary, int, error) {
	where, args := listWhere(f)

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + captureColumns + `, message_count FROM captures` + where +
		` ORDER BY captured_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []capture.Summary
	for rows.Next() {
		var count int
		c, err := scanCaptureFrom(rows, &count)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		s := c.Summarize()
		s.MessageCount = count
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// StreamForExport returns rows for every capture matching filters, oldest
// first. Callers scan with ScanCaptureFromRows and load messages separately.
func StreamForExport(ctx context.Context, db *sql.DB, f ListFilters) (*sql.Rows, error) {
	where, args := listWhere(f)
	rows, err := db.QueryContext(ctx, `SELECT `+captureColumns+` FROM captures`+where+` ORDER BY captured_at ASC, id ASC`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanCaptureFromRows scans the current row of a StreamForExport result.
func ScanCaptureFromRows(rows *sql.Rows) (*capture.Stored, error) {
	return scanCaptureFrom(rows)
}

// LoadMessages fills c.Messages from capture_messages.
func LoadMessages(ctx context.Context, db *sql.DB, c *capture.Stored) error {
	msgs, err := messagesFor(ctx, db, c.ID)
	if err != nil {
		return err
	}
	c.Messages = msgs
	return nil
}

// SoftDelete marks a capture as deleted by setting deleted_at.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE captures SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeDeleted permanently removes soft-deleted captures. Messages go with
// them through the foreign key cascade.
func PurgeDeleted(ctx context.Context, db *sql.DB, source *string, olderThanDays *int) (int, error) {
	query := `DELETE FROM captures WHERE deleted_at IS NOT NULL`
	var args []any
	if source != nil {
		query += " AND source = ?"
		args = append(args, *source)
	}
	if olderThanDays != nil {
		cutoff := time.Now().Add(-time.Duration(*olderThanDays) * 24 * time.Hour).Unix()
		query += " AND deleted_at < ?"
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func listWhere(f ListFilters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.Tag != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(captures.tags_json) WHERE json_each.value = ?)")
		args = append(args, f.Tag)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func messagesFor(ctx context.Context, db *sql.DB, id string) ([]capture.Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT idx, role, content FROM capture_messages WHERE capture_id = ? ORDER BY idx
	`, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	msgs := []capture.Message{}
	for rows.Next() {
		var (
			m    capture.Message
			role string
		)
		if err := rows.Scan(&m.Index, &role, &m.Content); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.Role = capture.Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return msgs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCapture(row *sql.Row) (*capture.Stored, error) {
	return scanCaptureFrom(row)
}

// scanCaptureFrom scans captureColumns, followed by any extra destinations.
func scanCaptureFrom(s scanner, extra ...any) (*capture.Stored, error) {
	var (
		c         capture.Stored
		typ       string
		title     sql.NullString
		hash      string
		metaJSON  string
		tagsJSON  sql.NullString
		sensitive int
		reason    string
		hint      string
		deletedAt sql.NullInt64
	)

	dest := []any{
		&c.ID, &c.Source, &typ, &title, &c.URL, &hash, &metaJSON, &tagsJSON,
		&sensitive, &reason, &hint, &c.CapturedAt, &c.CreatedAt, &deletedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	c.Type = capture.ContentType(typ)
	c.Title = title.String
	c.Sensitivity = capture.Sensitivity{Sensitive: sensitive != 0, Reason: capture.Reason(reason)}
	c.PrivacyHint = capture.PrivacyHint(hint)
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Int64
	}

	if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
		return nil, err
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	c.Metadata[capture.MetaContentHash] = hash

	c.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &c.Tags); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
