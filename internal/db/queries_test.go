package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/errors"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newStored(id, source string, typ capture.ContentType, capturedAt int64, tags ...string) *capture.Stored {
	msgs := []capture.Message{
		{Role: capture.RoleUser, Content: "How do I write a binary search in Python?", Index: 0},
		{Role: capture.RoleAssistant, Content: "Here is an implementation with a loop.", Index: 1},
	}
	return &capture.Stored{
		ID: id,
		Record: capture.Record{
			Type:     typ,
			Title:    "Binary search",
			Messages: msgs,
			Metadata: map[string]string{
				capture.MetaSource:         source,
				capture.MetaContentHash:    capture.ContentHash(msgs),
				capture.MetaConversationID: "conv-" + id,
			},
			Tags:        tags,
			Sensitivity: capture.Sensitivity{Reason: capture.ReasonNone},
			PrivacyHint: capture.PrivacyDefault,
		},
		Source:     source,
		URL:        "https://example.com/" + id,
		CapturedAt: capturedAt,
		CreatedAt:  capturedAt,
	}
}

func TestInsertAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := newStored("01A", "chatgpt", capture.TypeConversation, 100, "auto-captured", "coding")
	in.Sensitivity = capture.Sensitivity{Sensitive: true, Reason: capture.ReasonEmail}
	in.PrivacyHint = capture.PrivacyConfidential
	if err := Insert(ctx, db, in); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := GetByID(ctx, db, "01A", false)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Source != "chatgpt" || got.Type != capture.TypeConversation || got.Title != "Binary search" {
		t.Errorf("got = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Role != capture.RoleAssistant || got.Messages[1].Index != 1 {
		t.Errorf("Messages = %+v", got.Messages)
	}
	if got.ContentHash() != in.ContentHash() {
		t.Errorf("ContentHash = %q, want %q", got.ContentHash(), in.ContentHash())
	}
	if !got.Sensitivity.Sensitive || got.Sensitivity.Reason != capture.ReasonEmail {
		t.Errorf("Sensitivity = %+v", got.Sensitivity)
	}
	if got.PrivacyHint != capture.PrivacyConfidential {
		t.Errorf("PrivacyHint = %q", got.PrivacyHint)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "auto-captured" {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := GetByID(context.Background(), db, "missing", false)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestInsert_DuplicateIDRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := Insert(ctx, db, newStored("01A", "chatgpt", capture.TypeConversation, 100)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := Insert(ctx, db, newStored("01A", "claude", capture.TypeConversation, 200)); err == nil {
		t.Fatal("second Insert() with same id should fail")
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM capture_messages WHERE capture_id = '01A'").Scan(&n); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if n != 2 {
		t.Errorf("message rows = %d, want 2", n)
	}
}

func TestList_Filters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, c := range []*capture.Stored{
		newStored("01A", "chatgpt", capture.TypeConversation, 100, "coding"),
		newStored("01B", "github", capture.TypeIssue, 200, "bug", "github"),
		newStored("01C", "github", capture.TypePullRequest, 300, "github"),
		newStored("01D", "claude", capture.TypeConversation, 400, "coding"),
	} {
		if err := Insert(ctx, db, c); err != nil {
			t.Fatalf("Insert(%s) error = %v", c.ID, err)
		}
	}
	if err := SoftDelete(ctx, db, "01D"); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	tests := []struct {
		name    string
		filters ListFilters
		wantIDs []string
	}{
		{"all active newest first", ListFilters{}, []string{"01C", "01B", "01A"}},
		{"by source", ListFilters{Source: "github"}, []string{"01C", "01B"}},
		{"by type", ListFilters{Type: "issue"}, []string{"01B"}},
		{"by tag", ListFilters{Tag: "coding"}, []string{"01A"}},
		{"by tag with deleted", ListFilters{Tag: "coding", IncludeDeleted: true}, []string{"01D", "01A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := List(ctx, db, tt.filters, 10, 0)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != len(tt.wantIDs) {
				t.Errorf("total = %d, want %d", total, len(tt.wantIDs))
			}
			var ids []string
			for _, it := range items {
				ids = append(ids, it.ID)
				if it.MessageCount != 2 {
					t.Errorf("%s MessageCount = %d, want 2", it.ID, it.MessageCount)
				}
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
					break
				}
			}
		})
	}

	items, total, err := List(ctx, db, ListFilters{}, 1, 1)
	if err != nil {
		t.Fatalf("List() paged error = %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].ID != "01B" {
		t.Errorf("paged = %v (total %d)", items, total)
	}
}

func TestSoftDeleteAndPurge(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, c := range []*capture.Stored{
		newStored("01A", "chatgpt", capture.TypeConversation, 100),
		newStored("01B", "github", capture.TypeIssue, 200),
	} {
		if err := Insert(ctx, db, c); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	if err := SoftDelete(ctx, db, "01A"); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if err := SoftDelete(ctx, db, "01A"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second SoftDelete() err = %v, want NOT_FOUND", err)
	}
	if _, err := GetByID(ctx, db, "01A", false); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetByID(deleted) err = %v, want NOT_FOUND", err)
	}
	got, err := GetByID(ctx, db, "01A", true)
	if err != nil || got.DeletedAt == nil {
		t.Fatalf("GetByID(include deleted) = %+v, %v", got, err)
	}

	days := 1
	n, err := PurgeDeleted(ctx, db, nil, &days)
	if err != nil {
		t.Fatalf("PurgeDeleted(older) error = %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d recently deleted captures, want 0", n)
	}

	source := "github"
	if n, _ := PurgeDeleted(ctx, db, &source, nil); n != 0 {
		t.Errorf("purged %d from github, want 0", n)
	}

	n, err = PurgeDeleted(ctx, db, nil, nil)
	if err != nil {
		t.Fatalf("PurgeDeleted() error = %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	var msgs int
	if err := db.QueryRow("SELECT COUNT(*) FROM capture_messages WHERE capture_id = '01A'").Scan(&msgs); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if msgs != 0 {
		t.Errorf("messages left after purge = %d, want 0", msgs)
	}
}

func TestStreamForExport(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().Unix()
	for _, c := range []*capture.Stored{
		newStored("01B", "github", capture.TypeIssue, now),
		newStored("01A", "github", capture.TypeIssue, now-10),
		newStored("01C", "chatgpt", capture.TypeConversation, now+10),
	} {
		if err := Insert(ctx, db, c); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	rows, err := StreamForExport(ctx, db, ListFilters{Source: "github"})
	if err != nil {
		t.Fatalf("StreamForExport() error = %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		c, err := ScanCaptureFromRows(rows)
		if err != nil {
			t.Fatalf("ScanCaptureFromRows() error = %v", err)
		}
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err() = %v", err)
	}
	if len(ids) != 2 || ids[0] != "01A" || ids[1] != "01B" {
		t.Errorf("ids = %v, want [01A 01B]", ids)
	}
}

func TestEnabledSetting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	enabled, err := GetEnabled(ctx, db, "chatgpt")
	if err != nil {
		t.Fatalf("GetEnabled() error = %v", err)
	}
	if !enabled {
		t.Error("unset source should default to enabled")
	}

	if err := SetEnabled(ctx, db, "chatgpt", false); err != nil {
		t.Fatalf("SetEnabled(false) error = %v", err)
	}
	if enabled, _ := GetEnabled(ctx, db, "chatgpt"); enabled {
		t.Error("GetEnabled() = true after SetEnabled(false)")
	}
	if enabled, _ := GetEnabled(ctx, db, "claude"); !enabled {
		t.Error("setting leaked across sources")
	}

	if err := SetEnabled(ctx, db, "chatgpt", true); err != nil {
		t.Fatalf("SetEnabled(true) error = %v", err)
	}
	if enabled, _ := GetEnabled(ctx, db, "chatgpt"); !enabled {
		t.Error("GetEnabled() = false after SetEnabled(true)")
	}
}
