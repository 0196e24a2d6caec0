// Package align provides the source→target translation table (the
// "alignment model" of spec.md §3) backing the decoder's phrase lookup.
package align

import (
	"sync"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Target is one translation option for a source pattern: the target
// phrase plus its raw feature scores (e.g. p(t|s), p(s|t), lexical
// weights), in the same order the decoder's translation weight vector
// expects, per original_source/src/decoder.cpp's alignmatrix[source][target]
// = vector<double> scores.
type Target struct {
	Pattern pattern.Pattern
	Scores  []float64
}

// AlignmentTable is the read surface the decoder and the fragment index
// need: look up translation options for an exact source pattern, and
// enumerate every source pattern the table knows about (so the fragment
// index can build its matcher without duplicating the table's own
// storage).
type AlignmentTable interface {
	Translations(source pattern.Pattern) ([]Target, bool)
	SourcePatterns() []pattern.Pattern
}

// entry is one source pattern bucket; buckets guard against Pattern.Hash
// collisions between genuinely different patterns.
type entry struct {
	source  pattern.Pattern
	targets []Target
}

// MapAlignmentTable is an in-memory AlignmentTable, the implementation
// cmd/decode builds from its Moses table via LoadMoses.
type MapAlignmentTable struct {
	mu      sync.RWMutex
	buckets map[uint64][]entry
}

// NewMapAlignmentTable returns an empty table.
func NewMapAlignmentTable() *MapAlignmentTable {
	return &MapAlignmentTable{buckets: make(map[uint64][]entry)}
}

// Put registers (or replaces) the translation options for source.
func (t *MapAlignmentTable) Put(source pattern.Pattern, targets []Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := source.Hash()
	bucket := t.buckets[h]
	for i := range bucket {
		if bucket[i].source.Equal(source) {
			bucket[i].targets = targets
			return
		}
	}
	t.buckets[h] = append(bucket, entry{source: source, targets: targets})
}

// Translations implements AlignmentTable.
func (t *MapAlignmentTable) Translations(source pattern.Pattern) ([]Target, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.buckets[source.Hash()] {
		if e.source.Equal(source) {
			return e.targets, true
		}
	}
	return nil, false
}

// SourcePatterns implements AlignmentTable.
func (t *MapAlignmentTable) SourcePatterns() []pattern.Pattern {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]pattern.Pattern, 0, len(t.buckets))
	for _, bucket := range t.buckets {
		for _, e := range bucket {
			out = append(out, e.source)
		}
	}
	return out
}
