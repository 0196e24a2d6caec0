package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kittclouds/colibridec/pkg/decoder"
)

// detectLMOrder scans an ARPA file's "\N-grams:" section headers for the
// highest N, since lm.Load needs the model order up front but an ARPA
// file only states it implicitly through its section headers.
func detectLMOrder(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening language model: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	order := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "\\") || !strings.HasSuffix(line, "-grams:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, "\\"), "-grams:"))
		if err != nil {
			continue
		}
		if n > order {
			order = n
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scanning language model: %w", err)
	}
	if order == 0 {
		return 0, fmt.Errorf("language model declares no \\N-grams: sections")
	}
	return order, nil
}

// printStats reports one decode's Stats to w, per the --stats flag.
func printStats(w io.Writer, lineNo int, st decoder.Stats) {
	fmt.Fprintf(w, "stats line %d: expanded=%d discarded=%d pruned=%d gaps-filled=%d\n",
		lineNo, st.Expanded, st.Discarded, st.Pruned, st.GapsFilled)
}

// globalStats accumulates Stats across every decoded line, per the
// --globalstats flag.
type globalStats struct {
	sentences  int
	fallbacks  int
	expanded   int
	discarded  int
	pruned     int
	gapsFilled int
}

func (g *globalStats) add(st decoder.Stats, fallback bool) {
	g.sentences++
	if fallback {
		g.fallbacks++
	}
	g.expanded += st.Expanded
	g.discarded += st.Discarded
	g.pruned += st.Pruned
	g.gapsFilled += st.GapsFilled
}

func (g *globalStats) print(w io.Writer) {
	fmt.Fprintf(w, "globalstats: sentences=%d fallbacks=%d expanded=%d discarded=%d pruned=%d gaps-filled=%d\n",
		g.sentences, g.fallbacks, g.expanded, g.discarded, g.pruned, g.gapsFilled)
}
