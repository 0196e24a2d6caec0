// Package pattern implements the immutable integer-encoded phrase type
// shared by the alignment table, language model, and hypothesis search.
// A Pattern is a fixed-width (n-gram) or gapped (skip-gram) sequence of
// token classes; it carries no notion of surface word forms.
package pattern

import (
	"fmt"
	"hash/maphash"
	"strings"
)

// Class is a source or target vocabulary token class, as produced by the
// (out of scope) class-encoder.
type Class uint32

// Gap marks a fixed-width (or, when Length == 0, variable-width) run of
// unspecified tokens within a Pattern, in the pattern's own coordinate
// space (offset 0 is the Pattern's first position).
type Gap struct {
	Offset int
	Length int // 0 means variable-width ("flexgram")
}

// Variable reports whether this gap accepts a fill of any width.
func (g Gap) Variable() bool { return g.Length == 0 }

var hashSeed = maphash.MakeSeed()

// Pattern is an ordered, immutable sequence of token classes, optionally
// interrupted by Gaps. Length n (see N) counts gap positions in their span
// width. Two Patterns constructed with equal tokens and equal gap layout
// compare Equal and Hash identically; positions that fall inside a gap do
// not participate in either the hash or equality check.
type Pattern struct {
	tokens []Class // len == n; entries at gap positions are unset (zero)
	gaps   []Gap   // sorted by Offset, non-overlapping
}

// New builds a contiguous n-gram pattern from tokens.
func New(tokens ...Class) Pattern {
	cp := make([]Class, len(tokens))
	copy(cp, tokens)
	return Pattern{tokens: cp}
}

// NewSkipgram builds a skip-gram: tokens gives the full positional width
// (gap positions are ignored and may be zero), gaps gives the gap runs.
// gaps must be sorted by Offset and non-overlapping; NewSkipgram does not
// re-sort or validate beyond a panic on overlap, since it is only ever
// called from within this package and pkg/align on trusted data.
func NewSkipgram(tokens []Class, gaps []Gap) Pattern {
	cp := make([]Class, len(tokens))
	copy(cp, tokens)
	gp := make([]Gap, len(gaps))
	copy(gp, gaps)
	for i := 1; i < len(gp); i++ {
		if gp[i].Offset < gp[i-1].Offset+gp[i-1].Length {
			panic("pattern: overlapping gaps")
		}
	}
	return Pattern{tokens: cp, gaps: gp}
}

// N returns the token count, gaps counted in their span width.
func (p Pattern) N() int { return len(p.tokens) }

// IsSkipgram reports whether p contains at least one gap.
func (p Pattern) IsSkipgram() bool { return len(p.gaps) > 0 }

// VariableWidth reports whether p has at least one variable-width gap.
func (p Pattern) VariableWidth() bool {
	for _, g := range p.gaps {
		if g.Variable() {
			return true
		}
	}
	return false
}

// Gaps returns a copy of p's gap runs.
func (p Pattern) Gaps() []Gap {
	out := make([]Gap, len(p.gaps))
	copy(out, p.gaps)
	return out
}

// inGap reports whether position i of p falls inside a gap.
func (p Pattern) inGap(i int) bool {
	for _, g := range p.gaps {
		if i >= g.Offset && i < g.Offset+g.Length {
			return true
		}
	}
	return false
}

// Token returns the token class at position i. Panics if i is inside a
// gap or out of range; callers should check IsSkipgram/Gaps first when
// the position might fall in a gap.
func (p Pattern) Token(i int) Class {
	if i < 0 || i >= len(p.tokens) || p.inGap(i) {
		panic("pattern: Token() on out-of-range or gap position")
	}
	return p.tokens[i]
}

// Equal reports surface-form equality: same length, same gap layout, and
// identical tokens at every non-gap position.
func (p Pattern) Equal(o Pattern) bool {
	if len(p.tokens) != len(o.tokens) || len(p.gaps) != len(o.gaps) {
		return false
	}
	for i := range p.gaps {
		if p.gaps[i] != o.gaps[i] {
			return false
		}
	}
	for i := range p.tokens {
		if p.inGap(i) {
			continue
		}
		if p.tokens[i] != o.tokens[i] {
			return false
		}
	}
	return true
}

// Hash returns a stable-within-process hash over p's non-gap tokens and
// gap layout. Used for recombination keys and conflict/duplicate checks.
func (p Pattern) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	for i, t := range p.tokens {
		if p.inGap(i) {
			h.WriteByte(0xFF)
			continue
		}
		var b [4]byte
		b[0] = byte(t)
		b[1] = byte(t >> 8)
		b[2] = byte(t >> 16)
		b[3] = byte(t >> 24)
		h.Write(b[:])
	}
	for _, g := range p.gaps {
		h.WriteByte(byte(g.Offset))
		h.WriteByte(byte(g.Length))
	}
	return h.Sum64()
}

// Concat returns p followed by o; o's gaps are shifted by p.N().
func (p Pattern) Concat(o Pattern) Pattern {
	tokens := make([]Class, 0, len(p.tokens)+len(o.tokens))
	tokens = append(tokens, p.tokens...)
	tokens = append(tokens, o.tokens...)
	gaps := make([]Gap, 0, len(p.gaps)+len(o.gaps))
	gaps = append(gaps, p.gaps...)
	for _, g := range o.gaps {
		gaps = append(gaps, Gap{Offset: g.Offset + len(p.tokens), Length: g.Length})
	}
	return Pattern{tokens: tokens, gaps: gaps}
}

// Slice returns the sub-pattern covering [offset, offset+length), with
// gaps clipped to the window and re-based to the new coordinate space.
func (p Pattern) Slice(offset, length int) Pattern {
	if offset < 0 || length < 0 || offset+length > len(p.tokens) {
		panic("pattern: Slice out of range")
	}
	tokens := make([]Class, length)
	copy(tokens, p.tokens[offset:offset+length])
	var gaps []Gap
	for _, g := range p.gaps {
		start := g.Offset
		end := g.Offset + g.Length
		if end <= offset || start >= offset+length {
			continue
		}
		if start < offset {
			start = offset
		}
		if end > offset+length {
			end = offset + length
		}
		gaps = append(gaps, Gap{Offset: start - offset, Length: end - start})
	}
	return Pattern{tokens: tokens, gaps: gaps}
}

// Parts returns the maximal contiguous non-gap sub-patterns of p, in
// left-to-right order. For an n-gram (no gaps) this is []Pattern{p}.
func (p Pattern) Parts() []Pattern {
	if !p.IsSkipgram() {
		return []Pattern{p}
	}
	var parts []Pattern
	begin := -1
	for i := 0; i <= len(p.tokens); i++ {
		gap := i < len(p.tokens) && p.inGap(i)
		if !gap && i < len(p.tokens) {
			if begin == -1 {
				begin = i
			}
		} else {
			if begin != -1 {
				parts = append(parts, p.Slice(begin, i-begin))
				begin = -1
			}
		}
	}
	return parts
}

// DebugString renders p using raw numeric classes, with gap runs shown as
// "*<length>". It carries no surface-form meaning; it exists for test
// failure messages and Trace output only.
func (p Pattern) DebugString() string {
	var b strings.Builder
	b.WriteByte('[')
	i := 0
	first := true
	for i < len(p.tokens) {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		if p.inGap(i) {
			g := p.gapAt(i)
			fmt.Fprintf(&b, "*%d", g.Length)
			i += g.Length
			continue
		}
		fmt.Fprintf(&b, "%d", p.tokens[i])
		i++
	}
	b.WriteByte(']')
	return b.String()
}

func (p Pattern) gapAt(i int) Gap {
	for _, g := range p.gaps {
		if i >= g.Offset && i < g.Offset+g.Length {
			return g
		}
	}
	panic("pattern: gapAt called on non-gap position")
}
