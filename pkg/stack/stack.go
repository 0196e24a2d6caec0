// Package stack implements the bounded, score-ordered hypothesis stacks
// the decoder drains one coverage-count at a time, grounded on
// original_source/src/decoder.cpp's Stack class (add/prune/recombine).
package stack

import (
	"math"
	"sort"

	"github.com/kittclouds/colibridec/pkg/hypothesis"
)

// Stack holds every surviving hypothesis for one input-coverage count (or,
// for a gappy stack, one coverage-count-plus-gap-state), kept sorted by
// score descending.
type Stack struct {
	arena          *hypothesis.Arena
	index          int
	capacity       int
	pruneThreshold float64
	contents       []hypothesis.Handle
}

// New creates an empty stack. capacity <= 0 means unbounded (no histogram
// pruning). pruneThreshold is the fraction (0 < t < 1) of the best score's
// probability mass below which a hypothesis is dropped by Prune; 0 or 1
// disables threshold pruning, per Stack::prune's guard.
func New(arena *hypothesis.Arena, index, capacity int, pruneThreshold float64) *Stack {
	return &Stack{arena: arena, index: index, capacity: capacity, pruneThreshold: pruneThreshold}
}

// Len returns the number of hypotheses currently held.
func (s *Stack) Len() int { return len(s.contents) }

// Index returns the coverage count (or gap bucket) this stack was created
// for.
func (s *Stack) Index() int { return s.index }

// Pop removes and returns the best-scoring hypothesis, per Stack::pop.
func (s *Stack) Pop() (hypothesis.Handle, bool) {
	if len(s.contents) == 0 {
		return hypothesis.NoHandle, false
	}
	h := s.contents[0]
	s.contents = s.contents[1:]
	return h, true
}

// Clear empties the stack, per Stack::clear.
func (s *Stack) Clear() { s.contents = nil }

// Contents returns the stack's current hypotheses, best first.
func (s *Stack) Contents() []hypothesis.Handle { return s.contents }

// BestScore returns the top hypothesis' score, or a very low sentinel if
// the stack is empty, per Stack::bestscore.
func (s *Stack) BestScore() float64 {
	if len(s.contents) == 0 {
		return math.Inf(-1)
	}
	return s.arena.Score(s.contents[0])
}

// WorstScore returns the lowest-scoring hypothesis' score, or a very low
// sentinel if the stack is empty, per Stack::worstscore.
func (s *Stack) WorstScore() float64 {
	if len(s.contents) == 0 {
		return math.Inf(-1)
	}
	return s.arena.Score(s.contents[len(s.contents)-1])
}

// Add inserts candidate at its sorted position and enforces histogram
// pruning (dropping the single worst hypothesis when the stack would grow
// past capacity), per Stack::add. It reports whether candidate was kept.
func (s *Stack) Add(candidate hypothesis.Handle) bool {
	score := s.arena.Score(candidate)

	if len(s.contents) == 0 {
		s.contents = append(s.contents, candidate)
		return true
	}

	if s.capacity > 0 && len(s.contents) >= s.capacity && score < s.WorstScore() {
		return false
	}

	pos := sort.Search(len(s.contents), func(i int) bool {
		return s.arena.Score(s.contents[i]) <= score
	})
	s.contents = append(s.contents, hypothesis.NoHandle)
	copy(s.contents[pos+1:], s.contents[pos:])
	s.contents[pos] = candidate

	if s.capacity > 0 && len(s.contents) > s.capacity {
		s.contents = s.contents[:s.capacity]
	}
	return true
}

// Prune drops every hypothesis scoring below bestScore + log(threshold),
// i.e. outside the configured probability-mass cutoff of the best
// hypothesis, per Stack::prune. It returns the count removed.
func (s *Stack) Prune() int {
	if s.pruneThreshold == 0 || s.pruneThreshold == 1 || len(s.contents) == 0 {
		return 0
	}
	cutoff := s.BestScore() + math.Log(s.pruneThreshold)
	kept := s.contents[:0:0]
	pruned := 0
	for _, h := range s.contents {
		if s.arena.Score(h) < cutoff {
			pruned++
			continue
		}
		kept = append(kept, h)
	}
	s.contents = kept
	return pruned
}

// Recombine merges hypotheses that share a RecombinationKey (identical
// input coverage and LM history), keeping only the best-scoring
// representative of each group, per Stack::recombine. It returns the
// count removed. Since contents is already score-sorted, the first member
// of each group encountered is always the best.
func (s *Stack) Recombine() int {
	if len(s.contents) <= 1 {
		return 0
	}
	seen := make(map[uint64]bool, len(s.contents))
	kept := s.contents[:0:0]
	pruned := 0
	for _, h := range s.contents {
		key := s.arena.RecombinationKey(h)
		if seen[key] {
			pruned++
			continue
		}
		seen[key] = true
		kept = append(kept, h)
	}
	s.contents = kept
	return pruned
}

// Best returns the top-scoring hypothesis and true, or NoHandle and
// false if the stack is empty.
func (s *Stack) Best() (hypothesis.Handle, bool) {
	if len(s.contents) == 0 {
		return hypothesis.NoHandle, false
	}
	return s.contents[0], true
}
