package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hpungsan/trawl/internal/errors"
)

// File re-reads an HTML snapshot from disk on every tick. A
// <link rel="canonical"> in the file overrides the configured URL, so
// rewriting the file with a different canonical link looks like navigation.
type File struct {
	Path string
	URL  string
}

// NewFile returns a file source.
func NewFile(path, url string) *File {
	return &File{Path: path, URL: url}
}

// Snapshot implements Source.
func (f *File) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewFileNotFound(f.Path)
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer fh.Close()

	snap, err := parse(fh, f.URL)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", f.Path, err)
	}
	return snap, nil
}

// Close implements Source.
func (f *File) Close() error { return nil }
