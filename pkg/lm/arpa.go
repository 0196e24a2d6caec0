package lm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

// Load reads a standard ARPA-format back-off language model (the format
// produced by SRILM/IRSTLM and consumed by original_source/src/lm.cpp's
// LanguageModel constructor) and builds a Model from it.
//
// Only the \N-grams: sections are used; the \data\ section's "ngram N=count"
// lines are skipped, and any trailing \end\ marker is accepted but not
// required. Probabilities
// and back-off weights in the file are log10 as is conventional for ARPA
// files; Load converts them to natural log so Model.Score never has to.
//
// A line whose content contains a word the encoder does not recognize is
// skipped, mirroring the original loader's "if (!ngram.unknown())" guard.
// Load fails with ErrNoUnk if no "<unk>" unigram line is present, per
// spec.md §4.1.
func Load(r io.Reader, order int, enc Encoder) (*Model, error) {
	m := NewModel(order)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	section := 0 // 0 = preamble/data, N>0 = inside \N-grams:
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == "\\data\\" || line == "\\end\\" {
			continue
		}
		if strings.HasPrefix(line, "ngram ") {
			continue // "ngram N=count" capacity hint, not needed
		}
		if strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:") {
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, "\\"), "-grams:"))
			if err != nil {
				return nil, fmt.Errorf("lm: malformed section header %q: %w", line, err)
			}
			section = n
			continue
		}
		if section == 0 {
			continue
		}
		if err := loadNgramLine(m, line, section, enc); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lm: reading model: %w", err)
	}
	if !m.hasUnk {
		return nil, ErrNoUnk
	}
	return m, nil
}

func loadNgramLine(m *Model, line string, order int, enc Encoder) error {
	fields := strings.Fields(line)
	if len(fields) < 1+order {
		return fmt.Errorf("lm: malformed %d-gram line %q", order, line)
	}
	logProb10, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("lm: bad log-probability in %q: %w", line, err)
	}
	words := fields[1 : 1+order]
	var backoffLog *float64
	if len(fields) > 1+order {
		b10, err := strconv.ParseFloat(fields[1+order], 64)
		if err != nil {
			return fmt.Errorf("lm: bad back-off weight in %q: %w", line, err)
		}
		b := b10 * math.Ln10
		backoffLog = &b
	}
	logProb := logProb10 * math.Ln10

	if order == 1 && words[0] == "<unk>" {
		m.SetUnk(logProb)
		return nil
	}

	classes := make([]pattern.Class, order)
	for i, w := range words {
		c, ok := enc.Encode(w)
		if !ok {
			return nil // unknown word to the class encoder: skip the line
		}
		classes[i] = c
	}
	m.AddNgram(classes, logProb, backoffLog)
	return nil
}
