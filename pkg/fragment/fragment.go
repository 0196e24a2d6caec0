// Package fragment builds the closed set of source fragments (contiguous
// and gapped phrases with known translations) that cover an input
// sentence, and synthesizes pass-through fragments for input positions no
// real fragment reaches.
package fragment

import (
	roaring "github.com/RoaringBitmap/roaring/v2"
	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Fragment is one source phrase found in the input, together with the
// translation options the alignment table offers for it.
type Fragment struct {
	Pattern pattern.Pattern
	Offset  int
	Options []align.Target
}

// Index is the closed set of fragments covering an input sentence, built
// once per decode (spec.md §3's "source-fragment index").
type Index struct {
	Fragments []Fragment
	InputLen  int
	coverage  *roaring.Bitmap
}

// Uncovered returns input positions no fragment's span reaches.
func (idx *Index) Uncovered() []int {
	var out []int
	for i := 0; i < idx.InputLen; i++ {
		if !idx.coverage.Contains(uint32(i)) {
			out = append(out, i)
		}
	}
	return out
}

// Build scans input against table and returns the fragment index. maxN
// bounds the length (in tokens, gaps counted) of any fragment considered,
// mirroring decoder.cpp's maxn constructor parameter.
//
// Contiguous source patterns are matched with a single Aho-Corasick scan
// over the whole input (petar-dambovaliev/aho-corasick); gapped source
// patterns are checked one at a time against every aligned start offset,
// since they are never literal substrings of the input and so gain
// nothing from a string-automaton scan.
func Build(input []pattern.Class, table align.AlignmentTable, maxN int) (*Index, error) {
	idx := &Index{InputLen: len(input), coverage: roaring.New()}

	var ngrams, skipgrams []pattern.Pattern
	for _, p := range table.SourcePatterns() {
		if maxN > 0 && p.N() > maxN {
			continue
		}
		if p.IsSkipgram() {
			skipgrams = append(skipgrams, p)
		} else {
			ngrams = append(ngrams, p)
		}
	}

	if len(ngrams) > 0 {
		matches, err := matchNgrams(input, ngrams)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			opts, ok := table.Translations(match.Pattern)
			if !ok {
				continue
			}
			idx.add(match.Pattern, match.Offset, opts)
		}
	}

	for _, sg := range skipgrams {
		n := sg.N()
		for offset := 0; offset+n <= len(input); offset++ {
			if !matchesSkipgram(sg, input, offset) {
				continue
			}
			opts, ok := table.Translations(sg)
			if !ok {
				continue
			}
			idx.add(sg, offset, opts)
		}
	}

	return idx, nil
}

func (idx *Index) add(p pattern.Pattern, offset int, opts []align.Target) {
	idx.Fragments = append(idx.Fragments, Fragment{Pattern: p, Offset: offset, Options: opts})
	idx.coverage.AddRange(uint64(offset), uint64(offset+p.N()))
}

type ngramMatch struct {
	Pattern pattern.Pattern
	Offset  int
}

// matchNgrams runs a single Aho-Corasick scan over the input's byte
// encoding to find all occurrences of every contiguous ngram pattern.
// Classes are encoded 4 bytes wide so that matches can be validated to
// fall on a token boundary (start and length both multiples of 4),
// guarding against a spurious byte-level match that only happens to
// straddle two unrelated tokens.
func matchNgrams(input []pattern.Class, ngrams []pattern.Pattern) ([]ngramMatch, error) {
	inputBytes := encodeClasses(input)

	byKey := make(map[string]pattern.Pattern, len(ngrams))
	keys := make([]string, 0, len(ngrams))
	for _, p := range ngrams {
		tokens := make([]pattern.Class, p.N())
		for i := range tokens {
			tokens[i] = p.Token(i)
		}
		key := string(encodeClasses(tokens))
		if _, exists := byKey[key]; !exists {
			byKey[key] = p
			keys = append(keys, key)
		}
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.StandardMatch,
	})
	ac := builder.Build(keys)

	var out []ngramMatch
	for _, m := range ac.FindAll(string(inputBytes)) {
		start, end := m.Start(), m.End()
		if start%4 != 0 || (end-start)%4 != 0 {
			continue
		}
		p := byKey[keys[m.Pattern()]]
		out = append(out, ngramMatch{Pattern: p, Offset: start / 4})
	}
	return out, nil
}

func matchesSkipgram(p pattern.Pattern, input []pattern.Class, offset int) bool {
	n := p.N()
	gaps := p.Gaps()
	for i := 0; i < n; i++ {
		if inGaps(gaps, i) {
			continue
		}
		if offset+i >= len(input) || input[offset+i] != p.Token(i) {
			return false
		}
	}
	return true
}

func inGaps(gaps []pattern.Gap, i int) bool {
	for _, g := range gaps {
		if i >= g.Offset && i < g.Offset+g.Length {
			return true
		}
	}
	return false
}

func encodeClasses(tokens []pattern.Class) []byte {
	buf := make([]byte, len(tokens)*4)
	for i, t := range tokens {
		buf[i*4] = byte(t >> 24)
		buf[i*4+1] = byte(t >> 16)
		buf[i*4+2] = byte(t >> 8)
		buf[i*4+3] = byte(t)
	}
	return buf
}
