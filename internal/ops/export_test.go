package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/config"
	"github.com/hpungsan/trawl/internal/errors"
)

func readExport(t *testing.T, path string) (ExportHeader, []capture.Stored) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !sc.Scan() {
		t.Fatal("export has no header line")
	}
	var header ExportHeader
	if err := json.Unmarshal(sc.Bytes(), &header); err != nil {
		t.Fatalf("header: %v", err)
	}

	var out []capture.Stored
	for sc.Scan() {
		var c capture.Stored
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("record line: %v", err)
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return header, out
}

func exportConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

func TestExport_WritesHeaderAndRecordsOldestFirst(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	second := mustStore(t, database, buildRecord(t, "claude", capture.TypeConversation, base.Add(time.Minute)))
	first := mustStore(t, database, buildRecord(t, "chatgpt", capture.TypeConversation, base))

	dir := t.TempDir()
	path := filepath.Join(dir, "captures.jsonl")
	out, err := Export(ctx, database, exportConfig(dir), ExportInput{Path: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Count != 2 || out.Path != path || out.ExportedAt == 0 {
		t.Errorf("Export = %+v", out)
	}

	header, records := readExport(t, path)
	if !header.TrawlExport || header.SchemaVersion != ExportSchemaVersion {
		t.Errorf("header = %+v", header)
	}
	if len(records) != 2 || records[0].ID != first || records[1].ID != second {
		t.Fatalf("records out of order: %+v", records)
	}
	if len(records[0].Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(records[0].Messages))
	}
	if records[0].Source != "chatgpt" {
		t.Errorf("Source = %q, want chatgpt", records[0].Source)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestExport_SourceFilterAndDeleted(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustStore(t, database, buildRecord(t, "chatgpt", capture.TypeConversation, time.Now()))
	gone := mustStore(t, database, buildRecord(t, "github", capture.TypeIssue, time.Now()))
	if _, err := Delete(ctx, database, DeleteInput{ID: gone}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	dir := t.TempDir()
	source := "github"
	tests := []struct {
		name  string
		input ExportInput
		want  int
	}{
		{"active only", ExportInput{}, 1},
		{"with deleted", ExportInput{IncludeDeleted: true}, 2},
		{"github active", ExportInput{Source: &source}, 0},
		{"github with deleted", ExportInput{Source: &source, IncludeDeleted: true}, 1},
	}
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.Path = filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "-")+".jsonl")
			out, err := Export(ctx, database, exportConfig(dir), tc.input)
			if err != nil {
				t.Fatalf("case %d: Export failed: %v", i, err)
			}
			if out.Count != tc.want {
				t.Errorf("Count = %d, want %d", out.Count, tc.want)
			}
		})
	}
}

func TestExport_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	database := setupTestDB(t)
	mustStore(t, database, buildRecord(t, "chatgpt", capture.TypeConversation, time.Now()))

	source := "../chat/gpt"
	out, err := Export(context.Background(), database, config.DefaultConfig(), ExportInput{Source: &source})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	wantDir := filepath.Join(home, config.DirName, "exports")
	if filepath.Dir(out.Path) != wantDir {
		t.Errorf("dir = %q, want %q", filepath.Dir(out.Path), wantDir)
	}
	if base := filepath.Base(out.Path); !strings.HasPrefix(base, "chat-gpt-") || !strings.HasSuffix(base, ".jsonl") {
		t.Errorf("file name = %q, want chat-gpt-<timestamp>.jsonl", base)
	}
}

func TestExport_RejectsBadPath(t *testing.T) {
	database := setupTestDB(t)
	dir := t.TempDir()

	for _, p := range []string{filepath.Join(dir, "out.json"), filepath.Join(dir, "..", "out.jsonl")} {
		_, err := Export(context.Background(), database, exportConfig(dir), ExportInput{Path: p})
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Export(%q) error = %v, want INVALID_REQUEST", p, err)
		}
	}
}

func TestExport_Cancelled(t *testing.T) {
	database := setupTestDB(t)
	mustStore(t, database, buildRecord(t, "chatgpt", capture.TypeConversation, time.Now()))
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Export(ctx, database, exportConfig(dir), ExportInput{Path: filepath.Join(dir, "out.jsonl")})
	if err == nil {
		t.Fatal("Export succeeded with a cancelled context")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.jsonl")); !os.IsNotExist(statErr) {
		t.Error("cancelled export left a file behind")
	}
}
