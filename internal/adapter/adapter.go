// Package adapter bundles the per-site knowledge needed to capture a page:
// which hosts it serves, its extraction strategies in priority order, its
// polling defaults, and how to read titles and metadata off the page.
package adapter

import (
	"net/url"
	"strings"
	"time"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/extract"
	"github.com/hpungsan/trawl/internal/tree"
)

// Polling and length bounds shared by every adapter.
const (
	MinPollInterval = 2 * time.Second
	MaxPollInterval = 5 * time.Second
	MinLengthFloor  = 10
	MinLengthCeil   = 30
)

// Settings are the per-instance tunables of an adapter.
type Settings struct {
	PollInterval     time.Duration
	MinMessageLength int
}

// Clamped returns s with both fields forced into their allowed ranges.
// Zero fields are left for the caller to fill from defaults.
func (s Settings) Clamped() Settings {
	if s.PollInterval != 0 {
		s.PollInterval = min(max(s.PollInterval, MinPollInterval), MaxPollInterval)
	}
	if s.MinMessageLength != 0 {
		s.MinMessageLength = min(max(s.MinMessageLength, MinLengthFloor), MinLengthCeil)
	}
	return s
}

// Merge fills zero fields of s from def and clamps the result.
func (s Settings) Merge(def Settings) Settings {
	if s.PollInterval == 0 {
		s.PollInterval = def.PollInterval
	}
	if s.MinMessageLength == 0 {
		s.MinMessageLength = def.MinMessageLength
	}
	return s.Clamped()
}

// Adapter is one source site.
type Adapter interface {
	// Name is the source name used in tags, metadata, and config.
	Name() string

	// Hosts lists the URL hosts the adapter serves.
	Hosts() []string

	// Defaults returns the polling interval and minimum message length.
	Defaults() Settings

	// Strategies returns the extraction strategies, highest confidence first.
	Strategies() []extract.Strategy

	// Describe reads page-level facts (type, title, conversation id,
	// visibility, labels) that travel with the record.
	Describe(t tree.Tree, ctx extract.PageContext) capture.Page
}

// NewChain builds the extraction chain for a using the given minimum length.
func NewChain(a Adapter, minLength int) *extract.Chain {
	return extract.NewChain(minLength, a.Strategies()...)
}

// Host returns the lowercased host of rawURL without a "www." prefix.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// ServesURL reports whether a lists the host of rawURL.
func ServesURL(a Adapter, rawURL string) bool {
	h := Host(rawURL)
	if h == "" {
		return false
	}
	for _, host := range a.Hosts() {
		if host == h {
			return true
		}
	}
	return false
}

func trimTitle(title string, suffixes ...string) string {
	title = strings.TrimSpace(title)
	for _, s := range suffixes {
		title = strings.TrimSpace(strings.TrimSuffix(title, s))
	}
	return title
}
