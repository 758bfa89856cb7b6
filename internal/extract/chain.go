package extract

import (
	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/tree"
)

// Chain evaluates strategies in priority order.
type Chain struct {
	strategies []Strategy
	minLength  int
}

// NewChain creates a Chain. Strategies are tried in the order given.
func NewChain(minLength int, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, minLength: minLength}
}

// Result is the outcome of one chain evaluation.
type Result struct {
	// Strategy is the kind that produced Candidates, empty when nothing did.
	Strategy Kind
	// Candidates passed the length filter and have inferred roles.
	Candidates []capture.Candidate
	// Discarded counts candidates dropped as too short across all strategies tried.
	Discarded int
}

// Empty reports whether no strategy produced anything.
func (r Result) Empty() bool { return len(r.Candidates) == 0 }

// Strategies returns the configured strategies in priority order.
func (c *Chain) Strategies() []Strategy {
	out := make([]Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}

// Extract returns the first strategy's result that is non-empty after length
// filtering. Lower-priority strategies are not consulted once one succeeds.
func (c *Chain) Extract(t tree.Tree, ctx PageContext) Result {
	var res Result
	for _, s := range c.strategies {
		if !s.Matches(ctx) {
			continue
		}
		kept := make([]capture.Candidate, 0)
		for _, cand := range s.Extract(t) {
			if capture.CountChars(capture.CollapseWhitespace(cand.RawText)) < c.minLength {
				res.Discarded++
				continue
			}
			kept = append(kept, cand)
		}
		if len(kept) > 0 {
			res.Strategy = s.Kind()
			res.Candidates = capture.InferRoles(kept)
			return res
		}
	}
	return res
}
