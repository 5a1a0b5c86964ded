// loom-bench is a benchmark and stress test for the loom library. It
// builds synthetic documents and measures typing, structure churn,
// transformation, and history rebasing throughput.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loomdoc/loom"
)

const (
	typingChars    = 200_000
	structureOps   = 20_000
	transformPairs = 100_000
	historyDepth   = 5_000
)

type BenchResult struct {
	Name     string
	Duration time.Duration
	Ops      int
	Extra    string
}

func (r BenchResult) String() string {
	if r.Ops > 0 {
		opsPerSec := float64(r.Ops) / r.Duration.Seconds()
		if r.Extra != "" {
			return fmt.Sprintf("%-40s %12v  (%s ops, %s ops/sec) %s", r.Name, r.Duration.Round(time.Millisecond), humanize.Comma(int64(r.Ops)), humanize.CommafWithDigits(opsPerSec, 0), r.Extra)
		}
		return fmt.Sprintf("%-40s %12v  (%s ops, %s ops/sec)", r.Name, r.Duration.Round(time.Millisecond), humanize.Comma(int64(r.Ops)), humanize.CommafWithDigits(opsPerSec, 0))
	}
	if r.Extra != "" {
		return fmt.Sprintf("%-40s %12v  %s", r.Name, r.Duration.Round(time.Millisecond), r.Extra)
	}
	return fmt.Sprintf("%-40s %12v", r.Name, r.Duration.Round(time.Millisecond))
}

func main() {
	var seed int64
	root := &cobra.Command{
		Use:   "loom-bench",
		Short: "Benchmark and stress test for the loom library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(seed)
		},
	}
	root.Flags().Int64Var(&seed, "seed", 1, "random seed for synthetic workloads")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(seed int64) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fmt.Println("Loom Benchmark and Stress Test")
	fmt.Println("==============================")
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()

	rng := rand.New(rand.NewSource(seed))
	log.Info("starting benchmarks", "seed", seed)

	var results []BenchResult
	runBench := func(fn func() (BenchResult, error)) error {
		result, err := fn()
		if err != nil {
			return err
		}
		fmt.Println(result)
		results = append(results, result)
		return nil
	}

	benches := []func() (BenchResult, error){
		benchTyping,
		func() (BenchResult, error) { return benchStructure(rng) },
		func() (BenchResult, error) { return benchTransform(rng) },
		benchRebase,
		benchWalker,
	}
	for _, b := range benches {
		if err := runBench(b); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println("Summary:")
	for _, r := range results {
		fmt.Println("  " + r.String())
	}
	return nil
}

// benchTyping simulates a user typing into one paragraph, one character
// per delta.
func benchTyping() (BenchResult, error) {
	doc := loom.NewDocument()
	if _, err := doc.CreateRoot("main"); err != nil {
		return BenchResult{}, err
	}
	batch := doc.Batch()
	if _, err := batch.Insert(loom.NewPosition("main", 0), loom.NewElement("paragraph", nil)); err != nil {
		return BenchResult{}, err
	}
	start := time.Now()
	for i := 0; i < typingChars; i++ {
		if _, err := batch.InsertText(loom.NewPosition("main", 0, i), "x", nil); err != nil {
			return BenchResult{}, err
		}
	}
	return BenchResult{
		Name:     "Typing (1 char per delta)",
		Duration: time.Since(start),
		Ops:      typingChars,
		Extra:    fmt.Sprintf("version %s", humanize.Comma(int64(doc.Version()))),
	}, nil
}

// benchStructure alternates splits and merges inside one root.
func benchStructure(rng *rand.Rand) (BenchResult, error) {
	doc := loom.NewDocument()
	if _, err := doc.CreateRoot("main"); err != nil {
		return BenchResult{}, err
	}
	batch := doc.Batch()
	if _, err := batch.Insert(loom.NewPosition("main", 0), loom.NewElement("paragraph", nil, loom.NewText("some benchmark paragraph text", nil))); err != nil {
		return BenchResult{}, err
	}
	start := time.Now()
	for i := 0; i < structureOps; i++ {
		at := 1 + rng.Intn(10)
		if _, err := batch.Split(loom.NewPosition("main", 0, at)); err != nil {
			return BenchResult{}, err
		}
		if _, err := batch.Merge(loom.NewPosition("main", 1)); err != nil {
			return BenchResult{}, err
		}
	}
	return BenchResult{
		Name:     "Structure churn (split+merge)",
		Duration: time.Since(start),
		Ops:      structureOps * 2,
	}, nil
}

// benchTransform transforms random concurrent operation pairs both ways.
func benchTransform(rng *rand.Rand) (BenchResult, error) {
	ops := make([]loom.Operation, 0, 4)
	ops = append(ops,
		loom.NewInsertOperation(loom.NewPosition("main", 0, 3), []loom.Node{loom.NewText("abc", nil)}, 0),
		loom.NewRemoveOperation(loom.NewPosition("main", 0, 1), 4, 0),
		loom.NewMoveOperation(loom.NewPosition("main", 0, 2), 3, loom.NewPosition("main", 1, 0), 0),
		loom.NewAttributeOperation(loom.NewFlatRange(loom.NewPosition("main", 0, 0), 6), "bold", nil, true, 0),
	)
	start := time.Now()
	for i := 0; i < transformPairs; i++ {
		a := ops[rng.Intn(len(ops))]
		b := ops[rng.Intn(len(ops))]
		loom.TransformOperation(a, b, true)
		loom.TransformOperation(b, a, false)
	}
	return BenchResult{
		Name:     "Operation transform (both ways)",
		Duration: time.Since(start),
		Ops:      transformPairs * 2,
	}, nil
}

// benchRebase rebases one stale delta through a deep history.
func benchRebase() (BenchResult, error) {
	doc := loom.NewDocument()
	if _, err := doc.CreateRoot("main"); err != nil {
		return BenchResult{}, err
	}
	batch := doc.Batch()
	if _, err := batch.Insert(loom.NewPosition("main", 0), loom.NewElement("paragraph", nil)); err != nil {
		return BenchResult{}, err
	}
	stale := loom.NewDelta(loom.DeltaWeakInsert)
	stale.AddOperation(loom.NewInsertOperation(loom.NewPosition("main", 0, 0), []loom.Node{loom.NewText("stale", nil)}, doc.Version()))
	for i := 0; i < historyDepth; i++ {
		if _, err := batch.InsertText(loom.NewPosition("main", 0, i), "y", nil); err != nil {
			return BenchResult{}, err
		}
	}
	start := time.Now()
	rebased, err := doc.History().GetTransformedDelta(stale)
	if err != nil {
		return BenchResult{}, err
	}
	elapsed := time.Since(start)
	return BenchResult{
		Name:     "Rebase through history",
		Duration: elapsed,
		Ops:      historyDepth,
		Extra:    fmt.Sprintf("rebased to version %d", rebased[0].BaseVersion()),
	}, nil
}

// benchWalker scans a wide document character by character.
func benchWalker() (BenchResult, error) {
	doc := loom.NewDocument()
	if _, err := doc.CreateRoot("main"); err != nil {
		return BenchResult{}, err
	}
	batch := doc.Batch()
	for i := 0; i < 500; i++ {
		if _, err := batch.Insert(loom.NewPosition("main", i), loom.NewElement("paragraph", nil, loom.NewText("walker benchmark paragraph content", nil))); err != nil {
			return BenchResult{}, err
		}
	}
	start := time.Now()
	pos := loom.NewPosition("main", 0)
	w, err := loom.NewTreeWalker(doc, loom.TreeWalkerOptions{
		StartPosition:    &pos,
		SingleCharacters: true,
		IgnoreElementEnd: true,
	})
	if err != nil {
		return BenchResult{}, err
	}
	steps := 0
	for {
		if _, ok := w.Next(); !ok {
			break
		}
		steps++
	}
	return BenchResult{
		Name:     "Tree walk (single characters)",
		Duration: time.Since(start),
		Ops:      steps,
	}, nil
}
