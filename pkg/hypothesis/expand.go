package hypothesis

import (
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Expand attempts to attach every candidate fragment/translation-option
// pair in fragments to h, subject to the conflict, distortion-limit, and
// fertility checks of original_source/src/decoder.cpp's
// TranslationHypothesis::expand. It returns the handles of every fertile
// (or already-final) child created; it does not touch any Stack — the
// caller (pkg/decoder) is responsible for inserting each returned handle
// into the gapless or gappy stack matching its coverage count.
func (a *Arena) Expand(h Handle, fragments []fragment.Fragment) []Handle {
	var created []Handle
	parent := a.Get(h)

	for _, f := range fragments {
		if a.conflicts(h, f.Pattern, f.Offset) {
			continue
		}
		for _, opt := range f.Options {
			if a.cfg.DLimit >= 0 && a.cfg.DLimit < 999 {
				prevpos := 0
				if parent.hasSource {
					prevpos = parent.sourceOffset + parent.sourcePattern.N()
				}
				distance := abs(prevpos - f.Offset)
				if distance > a.cfg.DLimit {
					continue
				}
			}

			length := 0
			if parent.targetPattern.N() > 0 || parent.hasSource {
				length = parent.targetPattern.N()
			}
			newTargetOffset := parent.targetOffset + length

			gapOffset := 0
			for {
				fitsIdx := parent.fitsGap(opt.Pattern, gapOffset)
				gapOffset++
				if parent.HasGaps() {
					if fitsIdx == -1 {
						break
					}
					newTargetOffset = fitsIdx
				}

				child := a.construct(h, f.Pattern, f.Offset, opt.Pattern, newTargetOffset, opt.Scores)
				childNode := a.Get(child)
				if !a.fertile(child, fragments) && !a.Final(child) {
					a.nodes = a.nodes[:len(a.nodes)-1] // discard: never referenced, safe to pop
					a.discarded++
					if fitsIdx == -1 {
						break
					}
					continue
				}
				if childNode.InputCoverage() <= parent.InputCoverage() {
					// Defensive: a correctly built child always grows
					// coverage strictly. If it didn't, drop it rather than
					// feeding a non-progressing hypothesis into search.
					a.nodes = a.nodes[:len(a.nodes)-1]
					a.discarded++
					if fitsIdx == -1 {
						break
					}
					continue
				}
				created = append(created, child)
				if parent.HasGaps() {
					a.gapsFilled++
				}

				if fitsIdx == -1 {
					break
				}
			}
		}
	}
	return created
}

// construct builds a new hypothesis node as the child of parent, computing
// its target gaps, input coverage, LM history, and t/lm/d/future scores,
// per the TranslationHypothesis constructor.
func (a *Arena) construct(parent Handle, src pattern.Pattern, srcOffset int, tgt pattern.Pattern, tgtOffset int, tScores []float64) Handle {
	pnode := a.Get(parent)

	h := H{
		parent:        parent,
		hasSource:     true,
		sourcePattern: src,
		sourceOffset:  srcOffset,
		targetPattern: tgt,
		targetOffset:  tgtOffset,
		tScores:       tScores,
	}

	h.targetGaps = a.computeTargetGaps(parent, tgtOffset, tgt)

	h.coverage = pnode.coverage.Clone()
	markSourceCoverage(h.coverage, src, srcOffset)

	h.history = a.computeHistory(parent, tgtOffset)

	h.tScore = weightedLogSum(a.cfg.TWeights, tScores)
	h.lmScore = a.computeLMScore(parent, src, tgt, h.history)

	prevpos := 0
	if pnode.hasSource {
		prevpos = pnode.sourceOffset + pnode.sourcePattern.N()
	}
	h.dScore = a.cfg.DWeight * -float64(abs(prevpos-srcOffset))

	a.nodes = append(a.nodes, h)
	handle := Handle(len(a.nodes) - 1)

	node := a.Get(handle)
	node.futureCost = a.uncoveredFutureCost(node.coverage)
	if a.Final(handle) {
		node.lmScore += a.computeTerminatorScore(handle)
	}
	return handle
}

func markSourceCoverage(cov *bitset.BitSet, src pattern.Pattern, offset int) {
	gaps := src.Gaps()
	for i := 0; i < src.N(); i++ {
		if inGapList(gaps, i) {
			continue
		}
		cov.Set(uint(offset + i))
	}
}

func inGapList(gaps []pattern.Gap, i int) bool {
	for _, g := range gaps {
		if i >= g.Offset && i < g.Offset+g.Length {
			return true
		}
	}
	return false
}

// computeTargetGaps walks from the new node's own (offset, pattern)
// upward through its ancestors, accumulating target-side coverage, and
// returns the gaps (holes) left in that coverage.
func (a *Arena) computeTargetGaps(parent Handle, selfOffset int, selfPattern pattern.Pattern) []pattern.Gap {
	var covered []bool
	extend := func(offset int, p pattern.Pattern) {
		need := offset + p.N()
		for len(covered) < need {
			covered = append(covered, false)
		}
		if !p.IsSkipgram() {
			for i := offset; i < offset+p.N(); i++ {
				covered[i] = true
			}
			return
		}
		gaps := p.Gaps()
		for i := 0; i < p.N(); i++ {
			if !inGapList(gaps, i) {
				covered[offset+i] = true
			}
		}
	}

	extend(selfOffset, selfPattern)
	cur := parent
	for cur != NoHandle {
		node := a.Get(cur)
		if node.parent == NoHandle {
			break
		}
		extend(node.targetOffset, node.targetPattern)
		cur = node.parent
	}

	var gaps []pattern.Gap
	begin, length := 0, 0
	for i := 0; i <= len(covered); i++ {
		if i < len(covered) && !covered[i] {
			length++
			continue
		}
		if length > 0 {
			gaps = append(gaps, pattern.Gap{Offset: begin, Length: length})
		}
		begin = i + 1
		length = 0
	}
	return gaps
}

// computeHistory finds the up-to-(order-1)-token LM history immediately
// preceding tgtOffset, per the constructor's history-building loop: a
// run-in of BeginClass when tgtOffset is too close to the sentence start,
// reset to nil whenever the window crosses one of cfg.UnknownClasses (the
// unknown token itself contributes nothing; accumulation starts over from
// the position after it), exactly mirroring decoder.cpp's "we have an
// unknown unigram, erase history and start over from this point on".
func (a *Arena) computeHistory(parent Handle, tgtOffset int) *pattern.Pattern {
	order := a.cfg.LM.Order()
	begin := tgtOffset - (order - 1)
	var history *pattern.Pattern
	if begin < 0 {
		b := pattern.New(a.cfg.BeginClass)
		history = &b
		begin = 0
	}
	for i := begin; i < tgtOffset; i++ {
		tok := a.lookupToken(parent, i)
		if a.cfg.UnknownClasses[tok] {
			history = nil
			continue
		}
		unigram := pattern.New(tok)
		if history != nil {
			merged := history.Concat(unigram)
			history = &merged
		} else {
			history = &unigram
		}
	}
	return history
}

func (a *Arena) computeLMScore(parent Handle, src, tgt pattern.Pattern, history *pattern.Pattern) float64 {
	if !tgt.IsSkipgram() {
		return a.cfg.LWeight * a.cfg.LM.Score(tgt, history)
	}
	total := 0.0
	srcGaps := src.Gaps()
	firstPartGetsHistory := src.IsSkipgram() && len(srcGaps) > 0 && srcGaps[0].Offset != 0
	for i, part := range tgt.Parts() {
		if i == 0 && firstPartGetsHistory {
			total += a.cfg.LWeight * a.cfg.LM.Score(part, history)
		} else {
			total += a.cfg.LWeight * a.cfg.LM.Score(part, nil)
		}
	}
	return total
}

// computeTerminatorScore scores the sentence-end marker against the
// trailing up-to-(order-1) tokens of the finished derivation.
func (a *Arena) computeTerminatorScore(h Handle) float64 {
	order := a.cfg.LM.Order()
	targetLen := a.targetLength(h)
	var ctx []pattern.Class
	start := targetLen - (order - 1)
	if start < 0 {
		start = 0
	}
	for i := start; i < targetLen; i++ {
		ctx = append(ctx, a.lookupToken(h, i))
	}
	return a.cfg.LWeight * a.cfg.LM.ScoreWord(ctx, a.cfg.EndClass)
}

func weightedLogSum(weights, scores []float64) float64 {
	total := 0.0
	n := len(weights)
	if len(scores) < n {
		n = len(scores)
	}
	for i := 0; i < n; i++ {
		p := scores[i]
		if p > 0 {
			p = math.Log(p)
		}
		total += weights[i] * p
	}
	return total
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
