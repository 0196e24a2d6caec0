package hypothesis

import (
	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

// conflicts reports whether attaching a fragment at (candidate, offset)
// would overlap a source span already used by h or any of its ancestors,
// or would reuse (by pattern hash) a source fragment already used
// anywhere in the chain, per TranslationHypothesis::conflicts. An overlap
// that falls entirely into one of an ancestor's own source gaps is not a
// conflict.
func (a *Arena) conflicts(h Handle, candidate pattern.Pattern, offset int) bool {
	if !a.Get(h).hasSource && a.Get(h).parent == NoHandle {
		return false // empty initial hypothesis: nothing to conflict with
	}
	candidateHash := candidate.Hash()
	cur := h
	for cur != NoHandle {
		node := a.Get(cur)
		if !node.hasSource {
			break
		}
		if node.sourcePattern.Hash() == candidateHash {
			return true
		}
		if overlaps(offset, candidate.N(), node.sourceOffset, node.sourcePattern.N()) {
			inGap := false
			if node.sourcePattern.IsSkipgram() {
				for _, g := range node.sourcePattern.Gaps() {
					if overlaps(offset, candidate.N(), node.sourceOffset+g.Offset, g.Length) {
						inGap = true
						break
					}
				}
			}
			if !inGap {
				return true
			}
		}
		cur = node.parent
	}
	return false
}

func overlaps(aOffset, aLen, bOffset, bLen int) bool {
	return aOffset+aLen > bOffset && aOffset < bOffset+bLen
}

// fertile reports whether every input position not yet covered by h can
// still be reached by some not-yet-used fragment, per
// TranslationHypothesis::fertile: a position with zero applicable
// fragments means this derivation is a dead end.
func (a *Arena) fertile(h Handle, fragments []fragment.Fragment) bool {
	node := a.Get(h)
	mask := make([]int, a.inputLen) // -1 = already covered, else count of applicable fragments
	for i := 0; i < a.inputLen; i++ {
		if node.coverage.Test(uint(i)) {
			mask[i] = -1
		}
	}

	for _, f := range fragments {
		if a.alreadyUsed(h, f.Pattern) {
			continue
		}
		applicable := true
		for i := f.Offset; i < f.Offset+f.Pattern.N(); i++ {
			if mask[i] < 0 {
				applicable = false
				break
			}
		}
		if applicable {
			for i := f.Offset; i < f.Offset+f.Pattern.N(); i++ {
				mask[i]++
			}
		}
	}

	for _, m := range mask {
		if m == 0 {
			return false
		}
	}
	return true
}

func (a *Arena) alreadyUsed(h Handle, candidate pattern.Pattern) bool {
	candidateHash := candidate.Hash()
	cur := h
	for cur != NoHandle {
		node := a.Get(cur)
		if node.hasSource && node.sourcePattern.Hash() == candidateHash {
			return true
		}
		cur = node.parent
	}
	return false
}

// fitsGap returns the begin offset of the first target gap, at or after
// gap index offset, that candidate fits into (variable-width gaps always
// fit; fixed-width gaps need candidate.N() <= gap.Length); -1 if none.
func (h *H) fitsGap(candidate pattern.Pattern, offset int) int {
	for i, g := range h.targetGaps {
		if i < offset {
			continue
		}
		if g.Variable() || candidate.N() <= g.Length {
			return g.Offset
		}
	}
	return -1
}
