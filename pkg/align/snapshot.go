package align

import (
	"io"

	"github.com/kelindar/binary"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

// gapDTO and patternDTO are the wire shapes kelindar/binary marshals;
// pattern.Pattern itself has no exported fields, so Snapshot/LoadSnapshot
// round-trip through these instead of the domain type directly.
type gapDTO struct {
	Offset int
	Length int
}

type patternDTO struct {
	Tokens []pattern.Class
	Gaps   []gapDTO
}

type targetDTO struct {
	Target patternDTO
	Scores []float64
}

type entryDTO struct {
	Source  patternDTO
	Targets []targetDTO
}

type snapshotDTO struct {
	Entries []entryDTO
}

// Snapshot serializes table to w in a compact binary form via
// kelindar/binary, suitable for caching a built alignment table across
// decoder runs without re-parsing the source Moses file.
func Snapshot(table *MapAlignmentTable, w io.Writer) error {
	table.mu.RLock()
	defer table.mu.RUnlock()

	var snap snapshotDTO
	for _, bucket := range table.buckets {
		for _, e := range bucket {
			entry := entryDTO{Source: patternToDTO(e.source)}
			for _, t := range e.targets {
				entry.Targets = append(entry.Targets, targetDTO{
					Target: patternToDTO(t.Pattern),
					Scores: t.Scores,
				})
			}
			snap.Entries = append(snap.Entries, entry)
		}
	}
	buf, err := binary.Marshal(&snap)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// LoadSnapshot reads back a table written by Snapshot.
func LoadSnapshot(r io.Reader) (*MapAlignmentTable, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var snap snapshotDTO
	if err := binary.Unmarshal(buf, &snap); err != nil {
		return nil, err
	}
	table := NewMapAlignmentTable()
	for _, e := range snap.Entries {
		targets := make([]Target, len(e.Targets))
		for i, t := range e.Targets {
			targets[i] = Target{Pattern: dtoToPattern(t.Target), Scores: t.Scores}
		}
		table.Put(dtoToPattern(e.Source), targets)
	}
	return table, nil
}

// patternToDTO encodes p's non-gap tokens at their absolute positions and
// leaves gap positions zero (Pattern.Token refuses to return them); it
// walks the raw gap layout directly so a round trip through DTO form
// reproduces an Equal (not necessarily byte-identical, since gap fillers
// are never semantically meaningful) Pattern.
func patternToDTO(p pattern.Pattern) patternDTO {
	gaps := p.Gaps()
	dto := patternDTO{Gaps: make([]gapDTO, len(gaps))}
	for i, g := range gaps {
		dto.Gaps[i] = gapDTO{Offset: g.Offset, Length: g.Length}
	}
	n := p.N()
	dto.Tokens = make([]pattern.Class, n)
	pos := 0
	for _, part := range p.Parts() {
		// Parts are returned left to right over non-gap runs; walk the
		// gap list to find where each part begins in absolute terms.
		for pos < n && inAnyGap(gaps, pos) {
			pos++
		}
		for i := 0; i < part.N(); i++ {
			dto.Tokens[pos+i] = part.Token(i)
		}
		pos += part.N()
	}
	return dto
}

func inAnyGap(gaps []gapDTO, pos int) bool {
	for _, g := range gaps {
		if pos >= g.Offset && pos < g.Offset+g.Length {
			return true
		}
	}
	return false
}

func dtoToPattern(dto patternDTO) pattern.Pattern {
	if len(dto.Gaps) == 0 {
		return pattern.New(dto.Tokens...)
	}
	gaps := make([]pattern.Gap, len(dto.Gaps))
	for i, g := range dto.Gaps {
		gaps[i] = pattern.Gap{Offset: g.Offset, Length: g.Length}
	}
	return pattern.NewSkipgram(dto.Tokens, gaps)
}
