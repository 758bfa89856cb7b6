package adapter

import (
	"sort"

	"github.com/hpungsan/trawl/internal/errors"
)

// Registry resolves adapters by name or by URL host.
type Registry struct {
	byName map[string]Adapter
	order  []Adapter
}

// NewRegistry returns a registry over the given adapters. Later adapters with
// a duplicate name replace earlier ones.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byName: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.byName[a.Name()]; !dup {
			r.order = append(r.order, a)
		} else {
			for i, existing := range r.order {
				if existing.Name() == a.Name() {
					r.order[i] = a
				}
			}
		}
		r.byName[a.Name()] = a
	}
	return r
}

// Default returns a registry with every built-in adapter.
func Default() *Registry {
	return NewRegistry(NewChatGPT(), NewClaude(), NewGemini(), NewGitHub())
}

// Get returns the adapter with the given name.
func (r *Registry) Get(name string) (Adapter, error) {
	if a, ok := r.byName[name]; ok {
		return a, nil
	}
	return nil, errors.NewUnknownSource(name)
}

// ForURL returns the adapter serving the host of rawURL.
func (r *Registry) ForURL(rawURL string) (Adapter, error) {
	for _, a := range r.order {
		if ServesURL(a, rawURL) {
			return a, nil
		}
	}
	return nil, errors.NewUnknownSource(Host(rawURL))
}

// Resolve prefers an explicit name and falls back to the URL host.
func (r *Registry) Resolve(name, rawURL string) (Adapter, error) {
	if name != "" {
		return r.Get(name)
	}
	return r.ForURL(rawURL)
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
