package align

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

// WordEncoder maps a surface word on one side of the table (source or
// target) to its token class.
type WordEncoder interface {
	Encode(word string) (pattern.Class, bool)
}

// LoadMoses reads a plain Moses phrase-table file:
//
//	source phrase ||| target phrase ||| score score ... [||| alignment] [||| counts]
//
// into a MapAlignmentTable. This is a convenience reader for the simple
// contiguous-phrase line grammar only; it is not the filtering
// mosesphrasetable2alignmodel conversion tool (spec.md §1 leaves that
// tool, and the on-disk pattern/alignment model it produces, out of
// scope) — LoadMoses exists so the rest of this repo is runnable against
// an ordinary Moses-format table without that external step.
//
// A line referencing a word either encoder does not recognize is
// skipped.
func LoadMoses(r io.Reader, src, tgt WordEncoder) (*MapAlignmentTable, error) {
	table := NewMapAlignmentTable()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	grouped := make(map[string]pattern.Pattern)
	pending := make(map[string][]Target)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "|||")
		if len(fields) < 3 {
			return nil, fmt.Errorf("align: line %d: expected at least 3 ||| separated fields, got %d", lineNo, len(fields))
		}
		sourcePat, ok := encodePhrase(strings.Fields(fields[0]), src)
		if !ok {
			continue
		}
		targetPat, ok := encodePhrase(strings.Fields(fields[1]), tgt)
		if !ok {
			continue
		}
		scoreFields := strings.Fields(fields[2])
		scores := make([]float64, len(scoreFields))
		for i, s := range scoreFields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("align: line %d: bad score %q: %w", lineNo, s, err)
			}
			scores[i] = v
		}
		k := sourcePat.DebugString()
		grouped[k] = sourcePat
		pending[k] = append(pending[k], Target{Pattern: targetPat, Scores: scores})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("align: reading moses table: %w", err)
	}
	for k, src := range grouped {
		table.Put(src, pending[k])
	}
	return table, nil
}

func encodePhrase(words []string, enc WordEncoder) (pattern.Pattern, bool) {
	if len(words) == 0 {
		return pattern.Pattern{}, false
	}
	classes := make([]pattern.Class, len(words))
	for i, w := range words {
		c, ok := enc.Encode(w)
		if !ok {
			return pattern.Pattern{}, false
		}
		classes[i] = c
	}
	return pattern.New(classes...), true
}
