package futurecost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/lm"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

func buildIndex(t *testing.T) (*fragment.Index, *lm.Model) {
	table := align.NewMapAlignmentTable()
	table.Put(pattern.New(1), []align.Target{{Pattern: pattern.New(100), Scores: []float64{0.5}}})
	table.Put(pattern.New(2), []align.Target{{Pattern: pattern.New(200), Scores: []float64{0.5}}})
	table.Put(pattern.New(1, 2), []align.Target{{Pattern: pattern.New(100, 200), Scores: []float64{0.9}}})

	model := lm.NewModel(1)
	model.SetUnk(-10)
	model.SetUnigram(100, -1)
	model.SetUnigram(200, -1)

	idx, err := fragment.Build([]pattern.Class{1, 2}, table, 0)
	require.NoError(t, err)
	return idx, model
}

func TestFutureCostMonotonicallyImproves(t *testing.T) {
	idx, model := buildIndex(t)
	table := Build(2, idx, model, []float64{1.0}, 1.0)

	full, ok := table.Get(0, 2)
	require.True(t, ok)

	left, _ := table.Get(0, 1)
	right, _ := table.Get(1, 1)
	sumParts := left + right

	// Future cost is the BEST (highest-score) way to cover the span: the
	// entry for [0:2] is the better of the one-fragment score and every
	// split, so it must score at least as well as [0:1]+[1:1].
	assert.GreaterOrEqual(t, full, sumParts-1e-9)
}

func TestFutureCostUnreachableSpan(t *testing.T) {
	idx, model := buildIndex(t)
	table := Build(3, idx, model, []float64{1.0}, 1.0)

	_, ok := table.Get(2, 1)
	assert.False(t, ok, "position 2 has no fragment covering it and cannot be decomposed")
}

func TestFutureCostZeroProbabilityOptionIsReachedAndFinite(t *testing.T) {
	table := align.NewMapAlignmentTable()
	table.Put(pattern.New(5), []align.Target{{Pattern: pattern.New(500), Scores: []float64{0.0}}}) // p=0 -> log stays 0, not -Inf by convention here since p<=0 skips the log() call

	model := lm.NewModel(1)
	model.SetUnk(-10)
	model.SetUnigram(500, -3)

	idx, err := fragment.Build([]pattern.Class{5}, table, 0)
	require.NoError(t, err)

	ft := Build(1, idx, model, []float64{1.0}, 1.0)
	score, ok := ft.Get(0, 1)
	require.True(t, ok)
	assert.False(t, math.IsInf(score, -1))
}
