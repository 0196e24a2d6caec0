// Command decode is the stack-decoder driver: it reads one source
// sentence per line from stdin and writes one translated sentence per
// line to stdout, per spec.md §6's command-line surface.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/decoder"
	"github.com/kittclouds/colibridec/pkg/lm"
)

const (
	exitOK                = 0
	exitBadArgs           = 2
	exitMissingLMFeature  = 3
	exitInternalInvariant = 6
	exitNoSolution        = 12
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)

	tablePath := fs.String("t", "", "alignment table file, Moses phrase-table format (required)")
	lmPath := fs.String("l", "", "language model file, ARPA format (required)")
	srcClassPath := fs.String("S", "", "source class file, \"id<TAB>word\" lines (required)")
	tgtClassPath := fs.String("T", "", "target class file, \"id<TAB>word\" lines (required)")
	configPath := fs.String("c", "", "optional YAML file overriding decoder defaults")
	stackSize := fs.Int("s", 0, "stack size (0 = use default/config value)")
	pruneThreshold := fs.Float64("p", -1, "prune threshold, 0<t<1 (negative = use default/config value)")
	var weights weightsFlag
	fs.Var(&weights, "W", "translation feature weight (repeatable, one per feature)")
	lWeight := fs.Float64("L", -1, "LM weight (negative = use default/config value)")
	dWeight := fs.Float64("D", -1, "distortion weight (negative = use default/config value)")
	dLimit := fs.Int("M", -999, "distortion limit (-999 = use default/config value)")
	noSkipgrams := fs.Bool("N", false, "disable skip-gram source fragments")
	verbosity := fs.Int("v", 0, "verbosity level (0 = silent)")
	showStats := fs.Bool("stats", false, "print per-sentence decode statistics to stderr")
	showGlobalStats := fs.Bool("globalstats", false, "print aggregate decode statistics to stderr on exit")

	if err := fs.Parse(args); err != nil {
		return exitBadArgs
	}
	if *tablePath == "" || *lmPath == "" || *srcClassPath == "" || *tgtClassPath == "" {
		fmt.Fprintln(stderr, "decode: -t, -l, -S, and -T are all required")
		fs.Usage()
		return exitBadArgs
	}

	cfg := decoder.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "decode: opening config file: %v\n", err)
			return exitBadArgs
		}
		err = loadFileConfig(f, &cfg)
		f.Close()
		if err != nil {
			fmt.Fprintf(stderr, "decode: %v\n", err)
			return exitBadArgs
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "s":
			if *stackSize != 0 {
				cfg.StackSize = *stackSize
			}
		case "p":
			if *pruneThreshold >= 0 {
				cfg.PruneThreshold = *pruneThreshold
			}
		case "L":
			if *lWeight >= 0 {
				cfg.LWeight = *lWeight
			}
		case "D":
			if *dWeight >= 0 {
				cfg.DWeight = *dWeight
			}
		case "M":
			if *dLimit != -999 {
				cfg.DLimit = *dLimit
			}
		case "N":
			cfg.AllowSkipGrams = !*noSkipgrams
		}
	})
	if len(weights) > 0 {
		cfg.TWeights = weights
	}

	srcFile, err := os.Open(*srcClassPath)
	if err != nil {
		fmt.Fprintf(stderr, "decode: opening source class file: %v\n", err)
		return exitBadArgs
	}
	srcCF, err := loadClassFile(srcFile)
	srcFile.Close()
	if err != nil {
		fmt.Fprintf(stderr, "decode: %v\n", err)
		return exitBadArgs
	}

	tgtFile, err := os.Open(*tgtClassPath)
	if err != nil {
		fmt.Fprintf(stderr, "decode: opening target class file: %v\n", err)
		return exitBadArgs
	}
	tgtCF, err := loadClassFile(tgtFile)
	tgtFile.Close()
	if err != nil {
		fmt.Fprintf(stderr, "decode: %v\n", err)
		return exitBadArgs
	}

	tableFile, err := os.Open(*tablePath)
	if err != nil {
		fmt.Fprintf(stderr, "decode: opening alignment table: %v\n", err)
		return exitBadArgs
	}
	table, err := align.LoadMoses(tableFile, srcCF, tgtCF)
	tableFile.Close()
	if err != nil {
		fmt.Fprintf(stderr, "decode: loading alignment table: %v\n", err)
		return exitBadArgs
	}

	order, err := detectLMOrder(*lmPath)
	if err != nil {
		fmt.Fprintf(stderr, "decode: %v\n", err)
		return exitBadArgs
	}
	lmFile, err := os.Open(*lmPath)
	if err != nil {
		fmt.Fprintf(stderr, "decode: opening language model: %v\n", err)
		return exitBadArgs
	}
	model, err := lm.Load(lmFile, order, tgtCF)
	lmFile.Close()
	if err != nil {
		if errors.Is(err, lm.ErrNoUnk) {
			fmt.Fprintf(stderr, "decode: %v\n", err)
			return exitMissingLMFeature
		}
		fmt.Fprintf(stderr, "decode: loading language model: %v\n", err)
		return exitBadArgs
	}

	if *verbosity > 0 {
		cfg.Trace = func(event string, stackIndex int, detail string) {
			fmt.Fprintf(stderr, "[%s] stack=%d %s\n", event, stackIndex, detail)
		}
	}

	d := decoder.New(table, model, cfg)

	var agg globalStats
	sawFallback := false
	exit := exitOK

	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			fmt.Fprintln(stdout)
			continue
		}
		input := encodeLine(srcCF, line)

		result, stats, err := d.Decode(input)
		if err != nil {
			switch {
			case errors.Is(err, decoder.ErrInputError):
				fmt.Fprintf(stderr, "decode: line %d: %v\n", lineNo, err)
				return exitBadArgs
			case errors.Is(err, decoder.ErrDataError):
				fmt.Fprintf(stderr, "decode: line %d: %v\n", lineNo, err)
				return exitMissingLMFeature
			case errors.Is(err, decoder.ErrInternalInvariant):
				fmt.Fprintf(stderr, "decode: line %d: %v\n", lineNo, err)
				return exitInternalInvariant
			default:
				fmt.Fprintf(stderr, "decode: line %d: %v\n", lineNo, err)
				return exitInternalInvariant
			}
		}

		fmt.Fprintln(stdout, decodeLine(tgtCF, result.Output))

		if result.Fallback {
			sawFallback = true
			fmt.Fprintf(stderr, "decode: line %d: search fell back to a partial derivation\n", lineNo)
		}
		if *showStats {
			printStats(stderr, lineNo, stats)
		}
		if *showGlobalStats {
			agg.add(stats, result.Fallback)
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(stderr, "decode: reading input: %v\n", err)
		return exitBadArgs
	}

	if *showGlobalStats {
		agg.print(stderr)
	}
	if sawFallback {
		exit = exitNoSolution
	}
	return exit
}
