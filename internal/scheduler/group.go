package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/trawl/internal/errors"
)

// Group is the set of watched pages addressed by the control surfaces.
type Group struct {
	mu       sync.RWMutex
	sessions map[string]*Scheduler
}

// NewGroup returns a group holding the given schedulers.
func NewGroup(schedulers ...*Scheduler) (*Group, error) {
	g := &Group{sessions: make(map[string]*Scheduler, len(schedulers))}
	for _, s := range schedulers {
		if err := g.Add(s); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add registers s under its session name. Names must be unique.
func (g *Group) Add(s *Scheduler) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[s.Name()]; ok {
		return errors.NewInvalidRequest(fmt.Sprintf("duplicate session name: %s", s.Name()))
	}
	g.sessions[s.Name()] = s
	return nil
}

// Get resolves a session. An empty name selects the only session when
// exactly one is watched.
func (g *Group) Get(name string) (*Scheduler, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	name = strings.TrimSpace(name)
	if name == "" {
		switch len(g.sessions) {
		case 0:
			return nil, errors.NewInvalidRequest("no pages are being watched")
		case 1:
			for _, s := range g.sessions {
				return s, nil
			}
		}
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("session is required when %d pages are watched; known: %s",
				len(g.sessions), strings.Join(g.namesLocked(), ", ")))
	}

	s, ok := g.sessions[name]
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown session: %s", name))
	}
	return s, nil
}

// All returns every scheduler sorted by session name.
func (g *Group) All() []*Scheduler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Scheduler, 0, len(g.sessions))
	for _, name := range g.namesLocked() {
		out = append(out, g.sessions[name])
	}
	return out
}

// Len returns the number of sessions.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Run drives every scheduler until ctx is done or one of them fails.
func (g *Group) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, s := range g.All() {
		eg.Go(func() error { return s.Run(ctx) })
	}
	return eg.Wait()
}

// Close releases every page source and returns the first error.
func (g *Group) Close() error {
	var first error
	for _, s := range g.All() {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (g *Group) namesLocked() []string {
	names := make([]string, 0, len(g.sessions))
	for name := range g.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
