package fragment

import (
	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

// UnknownWordAllocator synthesizes pass-through fragments for input
// positions the alignment table cannot reach, per
// original_source/src/decoder.cpp's uncovered-word loop: the source word
// is carried through untranslated, under a freshly allocated target
// class, with a single translation option scored 1.0 (so after the ->
// log conversion it contributes zero to the weighted sum, exactly like
// the "scores will always be 1 (log(0))" comment in the original).
//
// The synthetic target class is never registered as a unigram anywhere:
// pkg/lm.Model.scoreWord already falls back to the model's <unk>
// log-probability on any unigram miss, so a class with no entry at all
// scores identically to one with an explicit copy of <unk> — without
// mutating the shared *lm.Model a concurrent decode might also be
// reading (spec.md §9's redesign note). Allocation is scoped to a single
// decode and never touches the shared Model or AlignmentTable.
type UnknownWordAllocator struct {
	next pattern.Class
}

// NewUnknownWordAllocator starts allocation above highestTargetClass
// (pkg/decoder passes the highest class its alignment table uses).
func NewUnknownWordAllocator(highestTargetClass pattern.Class) *UnknownWordAllocator {
	return &UnknownWordAllocator{next: highestTargetClass + 1}
}

// Allocate synthesizes a fragment carrying sourceWord through untranslated
// at the given input offset, scored with weightCount placeholder scores
// of 1.0 each (one per translation-weight dimension).
func (a *UnknownWordAllocator) Allocate(sourceWord pattern.Class, offset int, weightCount int) Fragment {
	targetClass := a.next
	a.next++

	scores := make([]float64, weightCount)
	for i := range scores {
		scores[i] = 1.0
	}

	return Fragment{
		Pattern: pattern.New(sourceWord),
		Offset:  offset,
		Options: []align.Target{{
			Pattern: pattern.New(targetClass),
			Scores:  scores,
		}},
	}
}
