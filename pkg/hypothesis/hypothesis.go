// Package hypothesis implements the translation-hypothesis search graph:
// an arena of partial derivations reachable from the empty initial
// hypothesis by repeatedly attaching a non-conflicting source fragment
// and one of its translation options.
//
// Hypotheses are addressed by Handle, a stable index into an Arena,
// rather than by pointer. original_source/src/decoder.cpp builds this
// graph out of raw TranslationHypothesis* parent/child pointers with
// manual reference counting (Hypothesis::keep, ::children,
// ::deletable/::cleanup) to decide when a node can be freed; an
// arena-of-handles sidesteps that bookkeeping entirely; Go's garbage
// collector reclaims the backing slice's capacity when the decode
// finishes, so there is nothing to reference-count or explicitly free.
package hypothesis

import (
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/futurecost"
	"github.com/kittclouds/colibridec/pkg/lm"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Handle addresses a hypothesis within an Arena. Handles count up from 0
// in creation order (the initial hypothesis is normally 0); NoHandle
// marks "no parent".
type Handle int32

// NoHandle marks the absence of a parent (the initial hypothesis).
const NoHandle Handle = -1

// H is one node of the hypothesis search graph.
type H struct {
	parent Handle

	hasSource     bool
	sourcePattern pattern.Pattern
	sourceOffset  int

	targetPattern pattern.Pattern
	targetOffset  int
	targetGaps    []pattern.Gap

	coverage *bitset.BitSet
	history  *pattern.Pattern

	tScores []float64
	tScore  float64
	lmScore float64
	dScore  float64

	futureCost float64
}

// HasGaps reports whether h still has unresolved target-side gaps.
func (h *H) HasGaps() bool { return len(h.targetGaps) > 0 }

// InputCoverage returns the count of covered input positions.
func (h *H) InputCoverage() int { return int(h.coverage.Count()) }

// Config bundles the scoring parameters shared by every hypothesis in one
// decode.
type Config struct {
	TWeights   []float64
	DWeight    float64
	LWeight    float64
	DLimit     int // negative or >= 999 means unlimited, per decoder.cpp's "(dlimit >= 0 && dlimit < 999)" guard
	LM         *lm.Model
	FutureCost *futurecost.Table
	BeginClass pattern.Class
	EndClass   pattern.Class

	// UnknownClasses holds every synthetic target class this decode
	// allocated for an untranslatable source word (fragment.UnknownWordAllocator).
	// computeHistory resets the LM history whenever it crosses one, per
	// original_source/src/decoder.cpp's "we have an unknown unigram,
	// erase history and start over from this point on". May be nil,
	// meaning no class is ever treated as unknown.
	UnknownClasses map[pattern.Class]bool

	// GappyPenalty, if set, adds an extra cost to hypotheses that still
	// carry unresolved target gaps, beyond their raw t/lm/d scores. The
	// original decoder applies none; this is a hook for callers who want
	// one, defaulting to always-zero so behavior is unchanged unless a
	// caller opts in.
	GappyPenalty func(*H) float64
}

// Arena owns the hypothesis nodes for a single decode.
type Arena struct {
	nodes      []H
	cfg        Config
	inputLen   int
	discarded  int
	gapsFilled int
}

// NewArena creates an arena for an input of length inputLen.
func NewArena(inputLen int, cfg Config) *Arena {
	return &Arena{cfg: cfg, inputLen: inputLen}
}

// Discarded returns the number of candidate children rejected during
// Expand calls so far (infertile or non-progressing), for
// decoder.Stats.Discarded.
func (a *Arena) Discarded() int { return a.discarded }

// GapsFilled returns the number of target-gap fills accepted during
// Expand calls so far, for decoder.Stats.GapsFilled.
func (a *Arena) GapsFilled() int { return a.gapsFilled }

// Get returns the node at h. Panics on an invalid handle.
func (a *Arena) Get(h Handle) *H {
	return &a.nodes[h]
}

// Initial creates and returns the empty initial hypothesis: no source or
// target fragment, no input covered, future cost equal to the whole
// sentence's estimate.
func (a *Arena) Initial() Handle {
	cov := bitset.New(uint(a.inputLen))
	h := H{
		parent:   NoHandle,
		coverage: cov,
	}
	h.futureCost = a.uncoveredFutureCost(cov)
	a.nodes = append(a.nodes, h)
	return Handle(len(a.nodes) - 1)
}

// BaseScore sums the per-step (tScore+lmScore+dScore) contribution of
// every ancestor of h, not counting h itself.
func (a *Arena) BaseScore(h Handle) float64 {
	total := 0.0
	node := a.Get(h)
	p := node.parent
	for p != NoHandle {
		pn := a.Get(p)
		total += pn.tScore + pn.lmScore + pn.dScore
		p = pn.parent
	}
	return total
}

// Score returns h's total search score: BaseScore plus h's own
// contribution plus its future-cost estimate. Stacks order candidates by
// this value, highest first.
func (a *Arena) Score(h Handle) float64 {
	node := a.Get(h)
	score := a.BaseScore(h) + node.tScore + node.lmScore + node.dScore + node.futureCost
	if a.cfg.GappyPenalty != nil {
		score -= a.cfg.GappyPenalty(node)
	}
	return score
}

// Final reports whether h is a complete derivation: no remaining target
// gaps and every input position covered.
func (a *Arena) Final(h Handle) bool {
	node := a.Get(h)
	return !node.HasGaps() && node.InputCoverage() == a.inputLen
}

// RecombinationKey returns the key two hypotheses must share to be
// recombination candidates: identical input coverage and identical LM
// history, per original_source/src/decoder.cpp's recombinationhash
// (source coverage + history hash).
func (a *Arena) RecombinationKey(h Handle) uint64 {
	node := a.Get(h)
	var hk uint64 = 14695981039346656037 // FNV offset basis, mixed with coverage words below
	words := node.coverage.Bytes()
	for _, w := range words {
		hk ^= w
		hk *= 1099511628211
	}
	if node.history != nil {
		hk ^= node.history.Hash()
		hk *= 1099511628211
	}
	return hk
}

func (a *Arena) uncoveredFutureCost(cov *bitset.BitSet) float64 {
	total := 0.0
	begin := -1
	for i := 0; i <= a.inputLen; i++ {
		uncovered := i < a.inputLen && !cov.Test(uint(i))
		if uncovered && begin == -1 {
			begin = i
		} else if (!uncovered || i == a.inputLen) && begin != -1 {
			c, ok := a.cfg.FutureCost.Get(begin, i-begin)
			if !ok {
				// No fragment sequence reaches this span at all: treat it
				// as a very unattractive (but not search-halting) estimate
				// rather than the original's fatal InternalError.
				c = math.Inf(-1)
			}
			total += c
			begin = -1
		}
	}
	return total
}

// lookupToken walks from h up through its ancestors looking for the node
// whose own target span contains index, and returns the token at that
// position. It panics if no node on the chain covers index.
func (a *Arena) lookupToken(h Handle, index int) pattern.Class {
	for h != NoHandle {
		node := a.Get(h)
		if index >= node.targetOffset && index < node.targetOffset+node.targetPattern.N() {
			return node.targetPattern.Token(index - node.targetOffset)
		}
		h = node.parent
	}
	panic("hypothesis: history position not resolved by any ancestor")
}

// Output reconstructs the target sentence by forward-walking the winning
// derivation's fragments in target-position order.
func (a *Arena) Output(h Handle) pattern.Pattern {
	targetLen := a.targetLength(h)
	tokens := make([]pattern.Class, targetLen)
	filled := make([]bool, targetLen)
	cur := h
	for cur != NoHandle {
		node := a.Get(cur)
		if node.parent == NoHandle {
			break
		}
		for i := node.targetOffset; i < node.targetOffset+node.targetPattern.N(); i++ {
			if filled[i] {
				continue
			}
			tokens[i] = a.lookupToken(cur, i)
			filled[i] = true
		}
		cur = node.parent
	}
	return pattern.New(tokens...)
}

// UsageStats walks h's ancestor chain and tallies, by fragment length,
// how many source and target fragments were n-grams versus skip-grams,
// per TranslationHypothesis::stats.
func (a *Arena) UsageStats(h Handle) (sourceNgram, sourceSkipgram, targetNgram, targetSkipgram map[int]int) {
	sourceNgram = map[int]int{}
	sourceSkipgram = map[int]int{}
	targetNgram = map[int]int{}
	targetSkipgram = map[int]int{}

	cur := h
	for cur != NoHandle {
		node := a.Get(cur)
		if !node.hasSource {
			break
		}
		if node.sourcePattern.IsSkipgram() {
			sourceSkipgram[node.sourcePattern.N()]++
		} else {
			sourceNgram[node.sourcePattern.N()]++
		}
		if node.targetPattern.IsSkipgram() {
			targetSkipgram[node.targetPattern.N()]++
		} else {
			targetNgram[node.targetPattern.N()]++
		}
		cur = node.parent
	}
	return
}

func (a *Arena) targetLength(h Handle) int {
	maxLen := 0
	cur := h
	for cur != NoHandle {
		node := a.Get(cur)
		if node.parent == NoHandle {
			break
		}
		if end := node.targetOffset + node.targetPattern.N(); end > maxLen {
			maxLen = end
		}
		cur = node.parent
	}
	return maxLen
}
