// Package futurecost computes the admissible (optimistic) cost-to-go
// estimate used to rank partial hypotheses during stack decoding.
package futurecost

import (
	"math"

	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/lm"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Table holds the future-cost estimate for every span [start, start+length)
// of the input, computed once per decode.
//
// A span with no entry is not the same as a span whose best known score is
// a genuine -Inf (for example an option the language model scores at -Inf):
// reached tracks the former explicitly rather than overloading -Inf as a
// sentinel, so Get never confuses "nothing covers this span" with "the
// best option here scores -Inf".
type Table struct {
	n       int
	score   []float64
	reached []bool
}

func (t *Table) index(start, length int) int { return start*(t.n+1) + length }

// Get returns the future-cost score for [start, start+length) and whether
// any sequence of fragments reaches that span at all.
func (t *Table) Get(start, length int) (float64, bool) {
	if length <= 0 {
		return 0, true
	}
	i := t.index(start, length)
	return t.score[i], t.reached[i]
}

// Build computes the future-cost table for an input of length n, given
// the fragment index covering it, using the two-pass algorithm of
// original_source/src/decoder.cpp's computefuturecost: first the best
// single-fragment score per exact span, then a span-DP relaxation that
// considers splitting every span into two adjacent sub-spans.
//
// lmWeight scales each option's (history-free) language-model score;
// tweights scales the option's raw translation-probability features in
// the same order alignment.Target.Scores stores them.
func Build(n int, idx *fragment.Index, lmModel *lm.Model, tweights []float64, lmWeight float64) *Table {
	t := &Table{
		n:       n,
		score:   make([]float64, (n+1)*(n+1)),
		reached: make([]bool, (n+1)*(n+1)),
	}
	for i := range t.score {
		t.score[i] = math.Inf(-1)
	}

	type spanKey struct{ start, length int }
	best := make(map[spanKey]float64)

	for _, f := range idx.Fragments {
		span := spanKey{f.Offset, f.Pattern.N()}
		s := bestOptionScore(f, lmModel, tweights, lmWeight)
		if cur, ok := best[span]; !ok || s > cur {
			best[span] = s
		}
	}
	for span, s := range best {
		i := t.index(span.start, span.length)
		t.score[i] = s
		t.reached[i] = true
	}

	for length := 1; length <= n; length++ {
		for start := 0; start+length <= n; start++ {
			span := t.index(start, length)
			for l := 1; l < length; l++ {
				leftScore, leftOK := t.Get(start, l)
				rightScore, rightOK := t.Get(start+l, length-l)
				if !leftOK || !rightOK {
					continue
				}
				combined := leftScore + rightScore
				if !t.reached[span] || combined > t.score[span] {
					t.score[span] = combined
					t.reached[span] = true
				}
			}
		}
	}
	return t
}

func bestOptionScore(f fragment.Fragment, lmModel *lm.Model, tweights []float64, lmWeight float64) float64 {
	best := math.Inf(-1)
	for _, opt := range f.Options {
		score := 0.0
		for i, w := range tweights {
			if i >= len(opt.Scores) {
				break
			}
			p := opt.Scores[i]
			if p > 0 {
				p = math.Log(p)
			}
			score += w * p
		}
		score += lmWeight * lmScoreNoHistory(opt.Pattern, lmModel)
		if score > best {
			best = score
		}
	}
	return best
}

// lmScoreNoHistory scores a target pattern independent of any sentence
// context (the only thing knowable before search begins): for a
// skip-gram, each contiguous part is scored on its own.
func lmScoreNoHistory(p pattern.Pattern, lmModel *lm.Model) float64 {
	if !p.IsSkipgram() {
		return lmModel.Score(p, nil)
	}
	total := 0.0
	for _, part := range p.Parts() {
		total += lmModel.Score(part, nil)
	}
	return total
}
