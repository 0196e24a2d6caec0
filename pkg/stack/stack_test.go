package stack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/futurecost"
	"github.com/kittclouds/colibridec/pkg/hypothesis"
	"github.com/kittclouds/colibridec/pkg/lm"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

func newTestArena(t *testing.T) *hypothesis.Arena {
	table := align.NewMapAlignmentTable()
	table.Put(pattern.New(1), []align.Target{
		{Pattern: pattern.New(10), Scores: []float64{0.9}},
		{Pattern: pattern.New(20), Scores: []float64{0.1}},
	})

	model := lm.NewModel(1)
	model.SetUnk(-10)
	model.SetUnigram(10, -1)
	model.SetUnigram(20, -5)

	idx, err := fragment.Build([]pattern.Class{1}, table, 0)
	require.NoError(t, err)

	ft := futurecost.Build(1, idx, model, []float64{1.0}, 1.0)

	cfg := hypothesis.Config{
		TWeights:   []float64{1.0},
		DWeight:    0.1,
		LWeight:    1.0,
		DLimit:     999,
		LM:         model,
		FutureCost: ft,
		BeginClass: 1000,
		EndClass:   1001,
	}
	arena := hypothesis.NewArena(1, cfg)
	root := arena.Initial()
	children := arena.Expand(root, idx.Fragments)
	require.Len(t, children, 2)
	return arena
}

func TestAddKeepsSortedByScoreDescending(t *testing.T) {
	arena := newTestArena(t)
	s := New(arena, 0, 10, 0)
	// handles 1 and 2 were created by newTestArena's Expand call.
	s.Add(1)
	s.Add(2)
	require.Equal(t, 2, s.Len())
	assert.GreaterOrEqual(t, arena.Score(s.Contents()[0]), arena.Score(s.Contents()[1]))
}

func TestAddEnforcesCapacity(t *testing.T) {
	arena := newTestArena(t)
	s := New(arena, 0, 1, 0)
	s.Add(1)
	ok := s.Add(2)
	assert.Equal(t, 1, s.Len())
	if !ok {
		assert.Equal(t, hypothesis.Handle(1), s.Contents()[0])
	}
}

func TestPruneDropsBelowThreshold(t *testing.T) {
	arena := newTestArena(t)
	s := New(arena, 0, 10, 0.5)
	s.Add(1)
	s.Add(2)
	before := s.Len()
	s.Prune()
	assert.LessOrEqual(t, s.Len(), before)
	for _, h := range s.Contents() {
		assert.GreaterOrEqual(t, arena.Score(h), s.BestScore())
	}
}

func TestPruneDisabledAtZeroOrOne(t *testing.T) {
	arena := newTestArena(t)
	s := New(arena, 0, 10, 0)
	s.Add(1)
	s.Add(2)
	pruned := s.Prune()
	assert.Equal(t, 0, pruned)
	assert.Equal(t, 2, s.Len())

	s1 := New(arena, 0, 10, 1)
	s1.Add(1)
	s1.Add(2)
	assert.Equal(t, 0, s1.Prune())
	assert.Equal(t, 2, s1.Len())
}

func TestRecombineKeepsBestPerKey(t *testing.T) {
	arena := newTestArena(t)
	s := New(arena, 0, 10, 0)
	s.Add(1)
	s.Add(2)
	// Both handles cover the same single input position, and with a
	// unigram model both carry an empty LM history (the history is the
	// context before the target phrase, not the phrase itself), so they
	// share a recombination key and only the better one (handle 1) stays.
	pruned := s.Recombine()
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, hypothesis.Handle(1), s.Contents()[0])
}

func TestEmptyStackSentinelScores(t *testing.T) {
	arena := newTestArena(t)
	s := New(arena, 0, 10, 0)
	assert.True(t, math.IsInf(s.BestScore(), -1))
	_, ok := s.Best()
	assert.False(t, ok)
}
