package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/trawl/internal/config"
	"github.com/hpungsan/trawl/internal/errors"
)

func TestValidateExportPath_Rejected(t *testing.T) {
	unsafe := config.DefaultConfig()
	unsafe.AllowUnsafePaths = true

	tests := []struct {
		name string
		path string
		cfg  *config.Config
	}{
		{"empty", "", config.DefaultConfig()},
		{"parent traversal", "../backup.jsonl", config.DefaultConfig()},
		{"mid-path traversal", "/tmp/../etc/backup.jsonl", unsafe},
		{"no extension", "/tmp/backup", unsafe},
		{"wrong extension", "/tmp/backup.json", unsafe},
		{"outside allowed dirs", "/tmp/backup.jsonl", config.DefaultConfig()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateExportPath(tc.path, tc.cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("ValidateExportPath(%q) = %v, want INVALID_REQUEST", tc.path, err)
			}
		})
	}
}

func TestValidateExportPath_AllowedDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed, "relative/ignored"}

	ok := []string{
		filepath.Join(home, config.DirName, "exports", "all.jsonl"),
		filepath.Join(allowed, "out.jsonl"),
	}
	for _, p := range ok {
		if err := ValidateExportPath(p, cfg); err != nil {
			t.Errorf("ValidateExportPath(%q) = %v, want nil", p, err)
		}
	}

	nested := filepath.Join(allowed, "sub", "out.jsonl")
	if err := ValidateExportPath(nested, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("nested path: error = %v, want INVALID_REQUEST", err)
	}
	if err := ValidateExportPath(filepath.Join(t.TempDir(), "x.jsonl"), cfg); err == nil {
		t.Error("path outside allowed dirs accepted")
	}
}

func TestValidateExportPath_UnsafeAllowsAnyDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	if err := ValidateExportPath(filepath.Join(t.TempDir(), "sub", "out.jsonl"), cfg); err != nil {
		t.Errorf("error = %v, want nil with allow_unsafe_paths", err)
	}
}

func TestValidateExportPath_SymlinkRejected(t *testing.T) {
	allowed := t.TempDir()
	target := filepath.Join(t.TempDir(), "secret.jsonl")
	if err := os.WriteFile(target, []byte("{}"), 0600); err != nil {
		t.Fatalf("write target: %v", err)
	}
	link := filepath.Join(allowed, "out.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed}
	if err := ValidateExportPath(link, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}

	// Even with allow_unsafe_paths.
	cfg.AllowUnsafePaths = true
	if err := ValidateExportPath(link, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unsafe: error = %v, want INVALID_REQUEST", err)
	}
}

func TestValidateExportPath_SymlinkedAllowedDirResolved(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "exports-link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(real)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{link}
	if err := ValidateExportPath(filepath.Join(resolved, "out.jsonl"), cfg); err != nil {
		t.Errorf("file in resolved allowed dir: error = %v, want nil", err)
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.jsonl", false},
		{"../file.jsonl", true},
		{"/home/../etc/passwd", true},
		{"./file.jsonl", false},
		{"file..name.jsonl", false},
		{"/tmp/a/b/../c.jsonl", true},
	}
	for _, tc := range tests {
		if got := containsTraversal(tc.path); got != tc.contains {
			t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.contains)
		}
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"chatgpt", "chatgpt"},
		{"path/to/file", "path-to-file"},
		{"path\\to\\file", "path-to-file"},
		{"../../../etc/passwd", "etc-passwd"},
		{"foo\x00bar", "foobar"},
		{"../../..", "unnamed"},
		{"a---b", "a-b"},
	}
	for _, tc := range tests {
		if got := SanitizeForFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
