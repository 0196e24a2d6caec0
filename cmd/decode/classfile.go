package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

// classFile is a plain-text "id<TAB>surface-form" mapping, one entry per
// line, used to cross the boundary between surface words on stdin/stdout
// and the token classes pkg/align, pkg/lm, and pkg/decoder operate on.
// This is deliberately not a class-encoder/decoder subsystem: spec.md §1
// leaves that (mosesphrasetable2alignmodel's job in original_source) out
// of scope, so -S/-T only need the flat id<->word table a real class
// file already is.
type classFile struct {
	toClass  map[string]pattern.Class
	toWord   map[pattern.Class]string
	maxClass pattern.Class
	nextOOV  pattern.Class
}

// loadClassFile reads r's "id<TAB>word" lines into both directions of the
// mapping. A malformed line is an input error, not silently skipped,
// since a bad class file is an operator mistake worth failing loudly on.
func loadClassFile(r io.Reader) (*classFile, error) {
	cf := &classFile{toClass: map[string]pattern.Class{}, toWord: map[pattern.Class]string{}}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("classfile: line %d: expected \"id<TAB>word\", got %q", lineNo, line)
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("classfile: line %d: bad class id %q: %w", lineNo, fields[0], err)
		}
		class := pattern.Class(id)
		cf.toClass[fields[1]] = class
		cf.toWord[class] = fields[1]
		if class > cf.maxClass {
			cf.maxClass = class
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("classfile: %w", err)
	}
	cf.nextOOV = cf.maxClass + 1
	return cf, nil
}

// Encode implements both align.WordEncoder and lm.Encoder.
func (cf *classFile) Encode(word string) (pattern.Class, bool) {
	c, ok := cf.toClass[word]
	return c, ok
}

// Word returns the surface form for class, or "<unk>" if class has no
// entry in the target class file. This includes the synthetic target
// classes decoder.Decode allocates for untranslatable source words
// (fragment.UnknownWordAllocator) — those carry no surface form by
// construction, so the untranslated word's original spelling is lost on
// output. Recovering it would mean cmd/decode tracking which output
// positions came from an unknown-word fragment, which needs a decoder
// API surface spec.md §1 leaves out of scope for this class of tooling;
// "<unk>" is the honest answer instead of a guess.
func (cf *classFile) Word(class pattern.Class) string {
	if w, ok := cf.toWord[class]; ok {
		return w
	}
	return "<unk>"
}

// encodeLine splits a sentence into words and encodes each through cf. A
// word absent from the class file is given a fresh class strictly above
// every id the file defines (reused if the same out-of-vocabulary word
// repeats within the sentence), so it can never collide with a real
// source class and always reaches the decoder's unknown-word path via
// fragment.Index.Uncovered.
func encodeLine(cf *classFile, line string) []pattern.Class {
	words := strings.Fields(line)
	out := make([]pattern.Class, len(words))
	for i, w := range words {
		if c, ok := cf.toClass[w]; ok {
			out[i] = c
			continue
		}
		c := cf.nextOOV
		cf.toClass[w] = c
		cf.nextOOV++
		out[i] = c
	}
	return out
}

// decodeLine renders output token classes back to a surface sentence.
func decodeLine(cf *classFile, out pattern.Pattern) string {
	words := make([]string, out.N())
	for i := 0; i < out.N(); i++ {
		words[i] = cf.Word(out.Token(i))
	}
	return strings.Join(words, " ")
}
