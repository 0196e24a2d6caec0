// Package lm implements the back-off n-gram language model contract used
// by the stack decoder: Score(pattern, history) in natural-log space,
// with Katz back-off recursion on cache miss.
package lm

import (
	"fmt"

	trie "github.com/derekparker/trie/v3"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Model holds n-gram log-probabilities and back-off weights, both in
// natural-log space, plus the reserved <unk> unigram value required by
// spec.md §4.1 ("a unigram that is absent must fall back to the model's
// <unk> entry; if the model has no <unk>, loading must fail").
//
// Entries are keyed in a trie over the *reverse* token order (most recent
// word first) rather than a plain map: Katz back-off always drops the
// oldest (leftmost) context token and keeps the word itself fixed, which
// is exactly a trim-from-the-tail operation on a reversed key — the same
// prefix-sharing a trie gives for free on forward keys, just rotated to
// match the direction this model actually walks.
type Model struct {
	order   int
	ngrams  *trie.Trie
	backoff *trie.Trie
	hasUnk  bool
	unkLog  float64
}

// Encoder maps a surface word to its target token class. It is the one
// touchpoint between the language model and the (out of scope)
// class-encoder/decoder subsystem named in spec.md §1; callers inject a
// concrete encoder rather than this package depending on one.
type Encoder interface {
	Encode(word string) (pattern.Class, bool)
}

// NewModel creates an empty model of the given n-gram order. Order must
// be >= 1.
func NewModel(order int) *Model {
	if order < 1 {
		panic("lm: order must be >= 1")
	}
	return &Model{
		order:   order,
		ngrams:  trie.New(),
		backoff: trie.New(),
	}
}

// Order returns the model's maximum n-gram order.
func (m *Model) Order() int { return m.order }

// HasUnk reports whether an <unk> unigram was loaded.
func (m *Model) HasUnk() bool { return m.hasUnk }

// UnkLogProb returns the reserved <unk> unigram log-probability.
func (m *Model) UnkLogProb() float64 { return m.unkLog }

// SetUnigram inserts a unigram log-probability directly, bypassing the
// ARPA loader, for building a small model by hand. Load itself goes
// through AddNgram, and the decoder's unknown-word path does not call it.
func (m *Model) SetUnigram(class pattern.Class, logProb float64) {
	m.ngrams.Add(encodeReverse([]pattern.Class{class}), logProb)
}

// SetUnk records the reserved <unk> log-probability.
func (m *Model) SetUnk(logProb float64) {
	m.hasUnk = true
	m.unkLog = logProb
}

// AddNgram inserts an n-gram log-probability (natural log) and, if
// present, its back-off weight.
func (m *Model) AddNgram(tokens []pattern.Class, logProb float64, backoff *float64) {
	key := encodeReverse(tokens)
	m.ngrams.Add(key, logProb)
	if backoff != nil {
		m.backoff.Add(key, *backoff)
	}
}

// lookupNgram returns the stored log-probability for the exact token
// sequence, if present.
func (m *Model) lookupNgram(tokens []pattern.Class) (float64, bool) {
	n, ok := m.ngrams.Find(encodeReverse(tokens))
	if !ok {
		return 0, false
	}
	return n.Meta().(float64), true
}

// lookupBackoff returns the stored back-off weight for the exact context,
// or 0 ("not all N-grams in the model file have backoff weights... the
// backoff weight is implicitly 1 (or 0 in log representation)", per
// original_source/src/lm.cpp).
func (m *Model) lookupBackoff(context []pattern.Class) float64 {
	if len(context) == 0 {
		return 0
	}
	n, ok := m.backoff.Find(encodeReverse(context))
	if !ok {
		return 0
	}
	return n.Meta().(float64)
}

// Score returns the natural-log probability of p given the conditioning
// history, per spec.md §4.1: for each position in p, the context is drawn
// first from the already-scored prefix of p, then from the tail of
// history.
func (m *Model) Score(p pattern.Pattern, history *pattern.Pattern) float64 {
	n := p.N()
	result := 0.0
	for i := 0; i < n; i++ {
		word := p.Token(i)
		ctx := m.contextFor(p, i, history)
		result += m.scoreWord(ctx, word)
	}
	return result
}

// contextFor builds the up-to-(order-1)-token context immediately
// preceding position i of p, drawn first from p[..i] then, if that is not
// enough, from the tail of history.
func (m *Model) contextFor(p pattern.Pattern, i int, history *pattern.Pattern) []pattern.Class {
	want := m.order - 1
	if want <= 0 {
		return nil
	}
	ctx := make([]pattern.Class, 0, want)
	begin := i - want
	if begin < 0 {
		begin = 0
	}
	for j := begin; j < i; j++ {
		ctx = append(ctx, p.Token(j))
	}
	if len(ctx) < want && history != nil {
		need := want - len(ctx)
		hn := history.N()
		hbegin := hn - need
		if hbegin < 0 {
			hbegin = 0
		}
		tail := make([]pattern.Class, 0, need)
		for j := hbegin; j < hn; j++ {
			tail = append(tail, history.Token(j))
		}
		ctx = append(tail, ctx...)
	}
	return ctx
}

// ScoreWord scores a single word given an explicit context, recursing
// through Katz back-off on a miss. Exported so pkg/hypothesis can score
// the sentence-end marker against a trailing context pattern directly
// (spec.md §4.3 step 7).
func (m *Model) ScoreWord(context []pattern.Class, word pattern.Class) float64 {
	return m.scoreWord(context, word)
}

func (m *Model) scoreWord(context []pattern.Class, word pattern.Class) float64 {
	lookup := append(append([]pattern.Class{}, context...), word)
	if p, ok := m.lookupNgram(lookup); ok {
		return p
	}
	if len(context) == 0 {
		// Unigram miss: fall back to <unk>. Load guarantees hasUnk.
		return m.unkLog
	}
	bow := m.lookupBackoff(context)
	return bow + m.scoreWord(context[1:], word)
}

// encodeReverse packs tokens into a trie key with the most recent token
// first, so that dropping the oldest (leftmost, i.e. last in the key)
// context token during back-off is a tail-trim on the key rather than a
// full rebuild in the opposite direction.
func encodeReverse(tokens []pattern.Class) string {
	buf := make([]byte, 0, len(tokens)*4)
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		buf = append(buf, byte(t>>24), byte(t>>16), byte(t>>8), byte(t))
	}
	return string(buf)
}

// ErrNoUnk is returned by Load when the ARPA model has no <unk> unigram.
var ErrNoUnk = fmt.Errorf("lm: language model has no <unk> entry")
