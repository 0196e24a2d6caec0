package align

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

type mapEnc map[string]pattern.Class

func (e mapEnc) Encode(w string) (pattern.Class, bool) {
	c, ok := e[w]
	return c, ok
}

func TestMapAlignmentTablePutAndLookup(t *testing.T) {
	table := NewMapAlignmentTable()
	src := pattern.New(1, 2)
	targets := []Target{{Pattern: pattern.New(10, 11), Scores: []float64{0.5, 0.2}}}
	table.Put(src, targets)

	got, ok := table.Translations(src)
	require.True(t, ok)
	assert.Equal(t, targets, got)

	_, ok = table.Translations(pattern.New(9, 9))
	assert.False(t, ok)
}

func TestLoadMoses(t *testing.T) {
	const data = "le chat ||| the cat ||| 0.5 0.25\n" +
		"chien ||| dog ||| 0.9\n"
	src := mapEnc{"le": 1, "chat": 2, "chien": 3}
	tgt := mapEnc{"the": 10, "cat": 11, "dog": 12}

	table, err := LoadMoses(strings.NewReader(data), src, tgt)
	require.NoError(t, err)

	opts, ok := table.Translations(pattern.New(1, 2))
	require.True(t, ok)
	require.Len(t, opts, 1)
	assert.True(t, opts[0].Pattern.Equal(pattern.New(10, 11)))
	assert.Equal(t, []float64{0.5, 0.25}, opts[0].Scores)
}

func TestLoadMosesSkipsUnknownWords(t *testing.T) {
	const data = "oov word ||| target ||| 0.1\n"
	src := mapEnc{"word": 1}
	tgt := mapEnc{"target": 2}
	table, err := LoadMoses(strings.NewReader(data), src, tgt)
	require.NoError(t, err)
	assert.Empty(t, table.SourcePatterns())
}

func TestSnapshotRoundTrip(t *testing.T) {
	table := NewMapAlignmentTable()
	table.Put(pattern.New(1, 2, 3), []Target{{Pattern: pattern.New(9), Scores: []float64{1}}})
	table.Put(
		pattern.NewSkipgram([]pattern.Class{4, 0, 6}, []pattern.Gap{{Offset: 1, Length: 1}}),
		[]Target{{Pattern: pattern.New(20, 21), Scores: []float64{0.1, 0.2}}},
	)

	var buf bytes.Buffer
	require.NoError(t, Snapshot(table, &buf))

	loaded, err := LoadSnapshot(&buf)
	require.NoError(t, err)

	got, ok := loaded.Translations(pattern.New(1, 2, 3))
	require.True(t, ok)
	assert.True(t, got[0].Pattern.Equal(pattern.New(9)))

	skipgram := pattern.NewSkipgram([]pattern.Class{4, 99, 6}, []pattern.Gap{{Offset: 1, Length: 1}})
	got2, ok := loaded.Translations(skipgram)
	require.True(t, ok)
	assert.True(t, got2[0].Pattern.Equal(pattern.New(20, 21)))
}
