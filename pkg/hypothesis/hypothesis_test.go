package hypothesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/futurecost"
	"github.com/kittclouds/colibridec/pkg/lm"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

const beginClass pattern.Class = 1
const endClass pattern.Class = 2

func buildDecodeFixture(t *testing.T, input []pattern.Class) (*Arena, []fragment.Fragment) {
	table := align.NewMapAlignmentTable()
	table.Put(pattern.New(10), []align.Target{{Pattern: pattern.New(100), Scores: []float64{0.9}}})
	table.Put(pattern.New(11), []align.Target{{Pattern: pattern.New(101), Scores: []float64{0.9}}})

	model := lm.NewModel(2)
	model.SetUnk(-10)
	model.AddNgram([]pattern.Class{100}, -1, nil)
	model.AddNgram([]pattern.Class{101}, -1, nil)
	model.AddNgram([]pattern.Class{beginClass, 100}, -0.5, nil)
	model.AddNgram([]pattern.Class{101, endClass}, -0.5, nil)

	idx, err := fragment.Build(input, table, 0)
	require.NoError(t, err)

	ft := futurecost.Build(len(input), idx, model, []float64{1.0}, 1.0)

	cfg := Config{
		TWeights:   []float64{1.0},
		DWeight:    0.1,
		LWeight:    1.0,
		DLimit:     999,
		LM:         model,
		FutureCost: ft,
		BeginClass: beginClass,
		EndClass:   endClass,
	}
	return NewArena(len(input), cfg), idx.Fragments
}

func TestInitialHypothesisHasNoCoverage(t *testing.T) {
	arena, _ := buildDecodeFixture(t, []pattern.Class{10, 11})
	h := arena.Initial()
	node := arena.Get(h)
	assert.Equal(t, 0, node.InputCoverage())
	assert.False(t, arena.Final(h))
}

func TestExpandGrowsCoverageAndReachesFinal(t *testing.T) {
	input := []pattern.Class{10, 11}
	arena, fragments := buildDecodeFixture(t, input)
	root := arena.Initial()

	children := arena.Expand(root, fragments)
	require.NotEmpty(t, children)

	var sawFullCoverage bool
	var finalHandle Handle
	frontier := children
	for i := 0; i < 5 && len(frontier) > 0; i++ {
		var next []Handle
		for _, c := range frontier {
			if arena.Get(c).InputCoverage() == 2 {
				sawFullCoverage = true
				finalHandle = c
				continue
			}
			next = append(next, arena.Expand(c, fragments)...)
		}
		frontier = next
	}
	require.True(t, sawFullCoverage, "expected some derivation to cover the whole input")
	assert.True(t, arena.Final(finalHandle))

	out := arena.Output(finalHandle)
	assert.Equal(t, 2, out.N())
}

func TestConflictsRejectsOverlappingSource(t *testing.T) {
	input := []pattern.Class{10, 11}
	arena, fragments := buildDecodeFixture(t, input)
	root := arena.Initial()

	firstHyp := NoHandle
	for _, c := range arena.Expand(root, fragments) {
		if arena.Get(c).sourceOffset == 0 {
			firstHyp = c
			break
		}
	}
	require.NotZero(t, int(firstHyp)+1)
	assert.True(t, arena.conflicts(firstHyp, pattern.New(10), 0))
}

func TestComputeHistoryResetsOnUnknownClass(t *testing.T) {
	const unknown pattern.Class = 999
	model := lm.NewModel(3)
	model.SetUnk(-10)

	cfg := Config{
		LM:             model,
		BeginClass:     beginClass,
		UnknownClasses: map[pattern.Class]bool{unknown: true},
	}
	arena := NewArena(3, cfg)
	root := arena.Initial()

	// ancestor chain: position 0 = known class 50, position 1 = unknown.
	arena.nodes = append(arena.nodes, H{parent: root, hasSource: true, targetPattern: pattern.New(50), targetOffset: 0})
	h1 := Handle(len(arena.nodes) - 1)
	arena.nodes = append(arena.nodes, H{parent: h1, hasSource: true, targetPattern: pattern.New(unknown), targetOffset: 1})
	h2 := Handle(len(arena.nodes) - 1)

	history := arena.computeHistory(h2, 2)
	assert.Nil(t, history, "history must be erased once the window crosses an unknown-class token")
}

func TestComputeHistoryRebuildsAfterUnknownClass(t *testing.T) {
	const unknown pattern.Class = 999
	model := lm.NewModel(3)
	model.SetUnk(-10)

	cfg := Config{
		LM:             model,
		BeginClass:     beginClass,
		UnknownClasses: map[pattern.Class]bool{unknown: true},
	}
	arena := NewArena(3, cfg)
	root := arena.Initial()

	// ancestor chain: position 0 = unknown, position 1 = known class 50.
	arena.nodes = append(arena.nodes, H{parent: root, hasSource: true, targetPattern: pattern.New(unknown), targetOffset: 0})
	h1 := Handle(len(arena.nodes) - 1)
	arena.nodes = append(arena.nodes, H{parent: h1, hasSource: true, targetPattern: pattern.New(50), targetOffset: 1})
	h2 := Handle(len(arena.nodes) - 1)

	history := arena.computeHistory(h2, 2)
	require.NotNil(t, history)
	assert.Equal(t, 1, history.N())
	assert.Equal(t, pattern.Class(50), history.Token(0))
}

func TestScoreAccumulatesAcrossAncestors(t *testing.T) {
	input := []pattern.Class{10}
	arena, fragments := buildDecodeFixture(t, input)
	root := arena.Initial()
	children := arena.Expand(root, fragments)
	require.NotEmpty(t, children)

	child := children[0]
	rootScore := arena.Score(root)
	childScore := arena.Score(child)
	assert.NotEqual(t, rootScore, childScore)
}
