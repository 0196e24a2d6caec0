package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/lm"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Source classes 1,2; target classes 100 ("hello"), 200 ("world").
func smallFixture() (*align.MapAlignmentTable, *lm.Model) {
	table := align.NewMapAlignmentTable()
	table.Put(pattern.New(1), []align.Target{{Pattern: pattern.New(100), Scores: []float64{0.9}}})
	table.Put(pattern.New(2), []align.Target{{Pattern: pattern.New(200), Scores: []float64{0.9}}})
	table.Put(pattern.New(1, 2), []align.Target{{Pattern: pattern.New(100, 200), Scores: []float64{0.95}}})

	model := lm.NewModel(2)
	model.SetUnk(-10)
	model.AddNgram([]pattern.Class{100}, -1, nil)
	model.AddNgram([]pattern.Class{200}, -1, nil)
	model.AddNgram([]pattern.Class{3, 100}, -0.5, nil)
	model.AddNgram([]pattern.Class{100, 200}, -0.2, nil)
	model.AddNgram([]pattern.Class{200, 4}, -0.5, nil)

	return table, model
}

func TestDecodeSimpleSentence(t *testing.T) {
	table, model := smallFixture()
	d := New(table, model, DefaultConfig())

	result, _, err := d.Decode([]pattern.Class{1, 2})
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, 2, result.Output.N())
	assert.Equal(t, pattern.Class(100), result.Output.Token(0))
	assert.Equal(t, pattern.Class(200), result.Output.Token(1))
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	table, model := smallFixture()
	d := New(table, model, DefaultConfig())

	_, _, err := d.Decode(nil)
	assert.ErrorIs(t, err, ErrInputError)
}

func TestDecodeHandlesUnknownWord(t *testing.T) {
	table, model := smallFixture()
	d := New(table, model, DefaultConfig())

	// Class 999 has no translation option at all: the unknown-word
	// allocator must carry it through untranslated rather than fail.
	result, _, err := d.Decode([]pattern.Class{1, 999})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Output.N())
	assert.Equal(t, pattern.Class(100), result.Output.Token(0))
}

func TestDecodeTracesProgress(t *testing.T) {
	table, model := smallFixture()
	cfg := DefaultConfig()
	var events []string
	cfg.Trace = func(event string, stackIndex int, detail string) {
		events = append(events, event)
	}
	d := New(table, model, cfg)

	_, _, err := d.Decode([]pattern.Class{1, 2})
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestHighestClassSkipsGapPositions(t *testing.T) {
	table := align.NewMapAlignmentTable()
	table.Put(
		pattern.NewSkipgram([]pattern.Class{7, 0, 9}, []pattern.Gap{{Offset: 1, Length: 1}}),
		[]align.Target{{
			Pattern: pattern.NewSkipgram([]pattern.Class{17, 0, 19}, []pattern.Gap{{Offset: 1, Length: 1}}),
			Scores:  []float64{0.9},
		}},
	)

	// Must not panic on the gap positions, and must still find 19 as the
	// highest non-gap class on either side of the table.
	assert.NotPanics(t, func() {
		got := highestClass(table)
		assert.Equal(t, pattern.Class(19), got)
	})
}

func TestDecodeHandlesSkipgramFragment(t *testing.T) {
	table := align.NewMapAlignmentTable()
	table.Put(
		pattern.NewSkipgram([]pattern.Class{7, 0, 9}, []pattern.Gap{{Offset: 1, Length: 1}}),
		[]align.Target{{
			Pattern: pattern.NewSkipgram([]pattern.Class{17, 0, 19}, []pattern.Gap{{Offset: 1, Length: 1}}),
			Scores:  []float64{0.9},
		}},
	)
	table.Put(pattern.New(50), []align.Target{{Pattern: pattern.New(20), Scores: []float64{0.9}}})

	model := lm.NewModel(2)
	model.SetUnk(-10)
	model.AddNgram([]pattern.Class{17}, -1, nil)
	model.AddNgram([]pattern.Class{20}, -1, nil)
	model.AddNgram([]pattern.Class{19}, -1, nil)
	model.AddNgram([]pattern.Class{3, 17}, -0.5, nil)
	model.AddNgram([]pattern.Class{19, 4}, -0.5, nil)

	d := New(table, model, DefaultConfig())

	// Spec scenario 5: skip-gram source [7 GAP(1) 9] with target
	// [17 GAP(1) 19], gap filled by [20] at the input's middle position.
	result, _, err := d.Decode([]pattern.Class{7, 50, 9})
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	require.Equal(t, 3, result.Output.N())
	assert.Equal(t, pattern.Class(17), result.Output.Token(0))
	assert.Equal(t, pattern.Class(20), result.Output.Token(1))
	assert.Equal(t, pattern.Class(19), result.Output.Token(2))
}

func TestDecodeRejectsMissingWeights(t *testing.T) {
	table, model := smallFixture()
	cfg := DefaultConfig()
	cfg.TWeights = nil
	d := New(table, model, cfg)

	_, _, err := d.Decode([]pattern.Class{1, 2})
	assert.ErrorIs(t, err, ErrDataError)
}
