// Package source produces a fresh page tree for every scheduler tick.
package source

import (
	"context"
	"io"
	"strings"

	"github.com/hpungsan/trawl/internal/tree"
)

// Snapshot is one read of a page.
type Snapshot struct {
	URL   string
	Title string
	Tree  tree.Tree
}

// Source yields snapshots of a single page.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Navigator is implemented by sources that observe top-level navigation as
// it happens. fn is called with the new URL, never from inside Snapshot.
type Navigator interface {
	OnNavigate(fn func(url string))
}

// parse builds a snapshot from HTML. fallbackURL is used unless the document
// names its own canonical URL.
func parse(r io.Reader, fallbackURL string) (*Snapshot, error) {
	t, err := tree.Parse(r)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{URL: fallbackURL, Title: t.Title(), Tree: t}
	for _, n := range t.Query(`link[rel="canonical"]`) {
		if href := strings.TrimSpace(t.AttributesOf(n)["href"]); href != "" {
			snap.URL = href
			break
		}
	}
	return snap, nil
}
