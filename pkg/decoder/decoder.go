// Package decoder orchestrates one phrase-based stack decode end to end:
// building the source-fragment index and future-cost table, draining the
// coverage-ordered hypothesis stacks, and reconstructing the winning
// target sentence, per original_source/src/decoder.cpp's StackDecoder.
package decoder

import (
	"fmt"

	"github.com/kittclouds/colibridec/pkg/align"
	"github.com/kittclouds/colibridec/pkg/fragment"
	"github.com/kittclouds/colibridec/pkg/futurecost"
	"github.com/kittclouds/colibridec/pkg/hypothesis"
	"github.com/kittclouds/colibridec/pkg/lm"
	"github.com/kittclouds/colibridec/pkg/pattern"
	"github.com/kittclouds/colibridec/pkg/stack"
)

// Config bundles every tunable parameter of one decode run, mirroring the
// StackDecoder constructor's parameter list.
type Config struct {
	StackSize      int
	PruneThreshold float64
	TWeights       []float64
	DWeight        float64
	LWeight        float64
	DLimit         int // negative means unlimited
	MaxN           int // 0 means unbounded fragment length
	AllowSkipGrams bool
	BeginClass     pattern.Class
	EndClass       pattern.Class
	Trace          Trace
}

// DefaultConfig returns the values cmd/decode starts from before any
// config file or flag is applied: stack size 100 (-s), prune threshold 0,
// i.e. no threshold pruning (-p), one translation weight of 1 (-W),
// distortion weight 0.1 (-D), LM weight 1 (-L), unlimited distortion (-M),
// unbounded fragment length, and skip-grams allowed (-N turns them off).
func DefaultConfig() Config {
	return Config{
		StackSize:      100,
		PruneThreshold: 0,
		TWeights:       []float64{1.0},
		DWeight:        0.1,
		LWeight:        1.0,
		DLimit:         -1,
		MaxN:           0,
		AllowSkipGrams: true,
		BeginClass:     3, // BOSCLASS in original_source
		EndClass:       4, // EOSCLASS in original_source
	}
}

// Trace receives progress notifications during Decode, replacing the
// original's cerr-based -v/--stats logging with a caller-supplied sink.
// event is a short tag ("unknown-word", "stack", "recombine", "dead",
// "fallback"); stackIndex is the coverage count being processed (for
// "unknown-word", the input position that got a synthetic fragment).
type Trace func(event string, stackIndex int, detail string)

// Stats summarizes one decode run, per StackDecoder::stats. The four
// usage maps are keyed by fragment length (n) and only populated for the
// winning (or fallback) derivation's own ancestor chain, per
// TranslationHypothesis::stats.
type Stats struct {
	Expanded        int
	Discarded       int
	Pruned          int
	GapsFilled      int
	StackSizes      []int
	GappyStackSizes []int

	SourceNgramUsage    map[int]int
	SourceSkipgramUsage map[int]int
	TargetNgramUsage    map[int]int
	TargetSkipgramUsage map[int]int
}

// Result is a completed decode's output.
type Result struct {
	Output   pattern.Pattern
	Score    float64
	Fallback bool
}

// Decoder runs multi-stack beam search over one alignment table and
// language model. A Decoder is reusable across many Decode calls; each
// call builds its own fragment index, future-cost table, and hypothesis
// arena, so concurrent Decode calls on the same Decoder are safe as long
// as the underlying AlignmentTable and Model are not concurrently
// written.
type Decoder struct {
	cfg   Config
	table align.AlignmentTable
	lm    *lm.Model
}

// New creates a Decoder over table and model with cfg.
func New(table align.AlignmentTable, model *lm.Model, cfg Config) *Decoder {
	return &Decoder{cfg: cfg, table: table, lm: model}
}

func (d *Decoder) trace(event string, stackIndex int, detail string) {
	if d.cfg.Trace != nil {
		d.cfg.Trace(event, stackIndex, detail)
	}
}

// Decode translates input. If the search reaches full input coverage it
// returns that best derivation; otherwise it returns the first
// hypothesis popped from the stack search died on, marked Fallback, per
// StackDecoder::decode's fallbackhyp mechanism. A search that ends with
// the final gapless stack empty and no fallback recorded is reported as
// ErrInternalInvariant. An empty input never reaches the search: it is
// rejected with ErrInputError.
func (d *Decoder) Decode(input []pattern.Class) (Result, Stats, error) {
	if len(input) == 0 {
		return Result{}, Stats{}, NewInputError("empty input sentence")
	}
	if len(d.cfg.TWeights) == 0 {
		return Result{}, Stats{}, fmt.Errorf("%w: no translation weights configured", ErrDataError)
	}

	idx, err := fragment.Build(input, d.table, d.cfg.MaxN)
	if err != nil {
		return Result{}, Stats{}, fmt.Errorf("%w: building fragment index: %v", ErrDataError, err)
	}
	if !d.cfg.AllowSkipGrams {
		idx.Fragments = dropSkipgrams(idx.Fragments)
	}

	alloc := fragment.NewUnknownWordAllocator(highestClass(d.table))
	uncovered := idx.Uncovered()
	unknownClasses := make(map[pattern.Class]bool, len(uncovered))
	for _, pos := range uncovered {
		d.trace("unknown-word", pos, "no translation option covers this position")
		f := alloc.Allocate(input[pos], pos, len(d.cfg.TWeights))
		idx.Fragments = append(idx.Fragments, f)
		unknownClasses[f.Options[0].Pattern.Token(0)] = true
	}

	ft := futurecost.Build(len(input), idx, d.lm, d.cfg.TWeights, d.cfg.LWeight)

	hcfg := hypothesis.Config{
		TWeights:       d.cfg.TWeights,
		DWeight:        d.cfg.DWeight,
		LWeight:        d.cfg.LWeight,
		DLimit:         d.cfg.DLimit,
		LM:             d.lm,
		FutureCost:     ft,
		BeginClass:     d.cfg.BeginClass,
		EndClass:       d.cfg.EndClass,
		UnknownClasses: unknownClasses,
	}
	arena := hypothesis.NewArena(len(input), hcfg)

	n := len(input)
	gapless := make([]*stack.Stack, n+1)
	gappy := make([]*stack.Stack, n+1)
	for i := 0; i <= n; i++ {
		gapless[i] = stack.New(arena, i, d.cfg.StackSize, d.cfg.PruneThreshold)
		gappy[i] = stack.New(arena, i, d.cfg.StackSize, d.cfg.PruneThreshold)
	}
	gapless[0].Add(arena.Initial())

	st := Stats{StackSizes: make([]int, n+1), GappyStackSizes: make([]int, n+1)}

	var fallback hypothesis.Handle
	haveFallback := false

	for i := 0; i <= n-1 && !haveFallback; i++ {
		st.StackSizes[i] = gapless[i].Len()
		d.trace("stack", i, "decoding gapless stack")
		fallback, haveFallback = d.decodeOneStack(arena, idx, gapless[i], gapless, gappy, n, &st)
		if haveFallback {
			break
		}

		st.GappyStackSizes[i] = gappy[i].Len()
		d.trace("stack", i, "decoding gappy stack")
		fallback, haveFallback = d.decodeOneStack(arena, idx, gappy[i], gapless, gappy, n, &st)
	}

	st.Discarded = arena.Discarded()
	st.GapsFilled = arena.GapsFilled()

	if gapless[n].Len() > 0 {
		solution, _ := gapless[n].Pop()
		st.SourceNgramUsage, st.SourceSkipgramUsage, st.TargetNgramUsage, st.TargetSkipgramUsage = arena.UsageStats(solution)
		return Result{Output: arena.Output(solution), Score: arena.Score(solution)}, st, nil
	}
	if haveFallback {
		d.trace("fallback", n, "search died before reaching full coverage")
		st.SourceNgramUsage, st.SourceSkipgramUsage, st.TargetNgramUsage, st.TargetSkipgramUsage = arena.UsageStats(fallback)
		return Result{Output: arena.Output(fallback), Score: arena.Score(fallback), Fallback: true}, st, nil
	}
	return Result{}, st, fmt.Errorf("%w: no hypothesis reached the final stack and no fallback was recorded", ErrInternalInvariant)
}

// decodeOneStack drains s, expanding every hypothesis and routing its
// children into the gapless or gappy stack matching their new coverage,
// per StackDecoder::decodestack. The first hypothesis popped is kept as
// the fallback candidate; if nothing at all expands and every
// higher-coverage stack is empty, the search is dead and that fallback is
// returned.
func (d *Decoder) decodeOneStack(arena *hypothesis.Arena, idx *fragment.Index, s *stack.Stack, gapless, gappy []*stack.Stack, n int, st *Stats) (hypothesis.Handle, bool) {
	totalExpanded := 0
	first := true
	var fallback hypothesis.Handle

	for {
		hyp, ok := s.Pop()
		if !ok {
			break
		}
		if first {
			fallback = hyp
			first = false
		}

		children := arena.Expand(hyp, idx.Fragments)
		totalExpanded += len(children)
		for _, c := range children {
			node := arena.Get(c)
			cov := node.InputCoverage()
			if node.HasGaps() {
				gappy[cov].Add(c)
			} else {
				gapless[cov].Add(c)
			}
		}
	}

	dead := false
	if totalExpanded == 0 && s.Index() != n {
		dead = true
		for j := s.Index() + 1; j <= n; j++ {
			if gapless[j].Len() > 0 || gappy[j].Len() > 0 {
				dead = false
				break
			}
		}
	}

	for j := n; j > s.Index(); j-- {
		recombined := gapless[j].Recombine()
		if recombined > 0 {
			d.trace("recombine", j, fmt.Sprintf("%d hypotheses merged in gapless stack", recombined))
		}
		pruned := gapless[j].Prune()
		st.Pruned += pruned
		pruned = gappy[j].Prune()
		st.Pruned += pruned
	}
	st.Expanded += totalExpanded

	if !dead {
		s.Clear()
		return hypothesis.NoHandle, false
	}
	d.trace("dead", s.Index(), "no further expansions possible from this stack onward")
	return fallback, !first
}

// dropSkipgrams filters out every discontiguous source fragment, for the
// -N "disable skip-grams" command-line flag (Config.AllowSkipGrams false).
func dropSkipgrams(fragments []fragment.Fragment) []fragment.Fragment {
	kept := fragments[:0:0]
	for _, f := range fragments {
		if f.Pattern.IsSkipgram() {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// highestClass returns the highest token class appearing as either a
// source or a target pattern token in table, used to seed unknown-word
// target class allocation above any class the table already uses. The
// language model is not scanned: a class that appears only in the LM is
// not taken into account.
// Gap positions are skipped (pattern.Token panics on one) since a
// skip-gram source or target carries no token there at all.
func highestClass(table align.AlignmentTable) pattern.Class {
	var highest pattern.Class
	scan := func(p pattern.Pattern) {
		gaps := p.Gaps()
		for i := 0; i < p.N(); i++ {
			if inGap(gaps, i) {
				continue
			}
			if t := p.Token(i); t > highest {
				highest = t
			}
		}
	}
	for _, src := range table.SourcePatterns() {
		scan(src)
		targets, _ := table.Translations(src)
		for _, tgt := range targets {
			scan(tgt.Pattern)
		}
	}
	return highest
}

// inGap reports whether position i of a pattern falls within one of gaps,
// mirroring pkg/hypothesis's inGapList (unexported there, so duplicated
// here rather than exported across a package boundary for one helper).
func inGap(gaps []pattern.Gap, i int) bool {
	for _, g := range gaps {
		if i >= g.Offset && i < g.Offset+g.Length {
			return true
		}
	}
	return false
}
