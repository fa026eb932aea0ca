// Command pevm generates synthetic blocks, executes them serially or in
// parallel, and benchmarks the two against each other (spec.md §6).
//
// Usage:
//
//	pevm generate -n-tx 1000 -key-space 10000 -conflict-ratio 0.2 -cold-ratio 0.3 -seed 42 -output block.json
//	pevm execute -input block.json -mode parallel
//	pevm benchmark -preset medium -output results.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bchyl/pevm-opt-2/blockio"
	"github.com/bchyl/pevm-opt-2/executor"
	"github.com/bchyl/pevm-opt-2/generator"
	"github.com/bchyl/pevm-opt-2/log"
	"github.com/bchyl/pevm-opt-2/oracle"
	"github.com/bchyl/pevm-opt-2/storage"
	"github.com/bchyl/pevm-opt-2/types"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code so the binary
// can be exercised from tests without calling os.Exit directly.
func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "generate":
		return runGenerate(args[1:])
	case "execute":
		return runExecute(args[1:])
	case "benchmark":
		return runBenchmark(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "pevm: unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: pevm <generate|execute|benchmark> [flags]")
}

func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	nTx := fs.Int("n-tx", 1000, "number of transactions to generate")
	keySpace := fs.Int("key-space", 10000, "size of the shared key pool")
	conflictRatio := fs.Float64("conflict-ratio", 0.2, "probability a key is drawn from the shared pool")
	coldRatio := fs.Float64("cold-ratio", 0.3, "reserved cold-key ratio parameter")
	seed := fs.Uint64("seed", 42, "PRNG seed; same seed reproduces the same block")
	output := fs.String("output", "block.json", "output file path")
	fs.Parse(args)

	gen := generator.New(*nTx, *keySpace, *conflictRatio, *coldRatio, *seed)
	block := gen.Generate()

	if err := blockio.WriteFile(*output, block); err != nil {
		log.Error("failed to write block", "err", err)
		return 1
	}
	log.Info("generated block", "n_tx", len(block.Transactions), "output", *output)
	return 0
}

func runExecute(args []string) int {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	input := fs.String("input", "", "input block JSON file")
	mode := fs.String("mode", "parallel", "execution mode: serial or parallel")
	fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "pevm execute: -input is required")
		return 1
	}

	block, err := blockio.ReadFile(*input)
	if err != nil {
		log.Error("failed to read block", "err", err)
		return 1
	}

	store := storage.NewMemoryStore()

	switch *mode {
	case "serial":
		start := time.Now()
		res := executor.ExecuteSerial(block, store, nil)
		elapsed := time.Since(start)
		log.Info("serial execution complete",
			"elapsed_ms", float64(elapsed.Microseconds())/1000.0,
			"n_tx", len(res.Results), "gas", res.TotalGas)

	case "parallel":
		exec := executor.New(store, nil, nil, nil)
		start := time.Now()
		res, err := exec.ExecuteParallel(block)
		if err != nil {
			log.Error("parallel execution failed", "err", err)
			return 1
		}
		elapsed := time.Since(start)
		log.Info("parallel execution complete",
			"elapsed_ms", float64(elapsed.Microseconds())/1000.0,
			"n_tx", len(res.Results), "waves", len(res.ActualWaves))

	default:
		fmt.Fprintf(os.Stderr, "pevm execute: unknown mode %q\n", *mode)
		return 1
	}

	return 0
}

func runBenchmark(args []string) int {
	fs := flag.NewFlagSet("benchmark", flag.ExitOnError)
	input := fs.String("input", "", "input block JSON file (overrides -preset)")
	preset := fs.String("preset", "", "generator preset: small, medium, large")
	output := fs.String("output", "results.json", "metrics output file path")
	fs.Parse(args)

	block, err := resolveBenchmarkBlock(*input, *preset)
	if err != nil {
		log.Error("failed to resolve benchmark block", "err", err)
		return 1
	}

	serialStore := storage.NewMemoryStore()
	start := time.Now()
	serialRes := executor.ExecuteSerial(block, serialStore, nil)
	serialTimeMs := float64(time.Since(start).Microseconds()) / 1000.0

	o := oracle.NewDeterministic()
	parallelStore := storage.NewMemoryStore()
	exec := executor.New(parallelStore, o, nil, nil)
	start = time.Now()
	parallelRes, err := exec.ExecuteParallel(block)
	if err != nil {
		log.Error("parallel execution failed", "err", err)
		return 1
	}
	parallelTimeMs := float64(time.Since(start).Microseconds()) / 1000.0

	if ok, err := blockio.VerifyStates(serialStore, parallelStore); !ok {
		log.Error("state verification failed", "err", err)
		return 1
	}

	metrics := executor.CollectMetrics(block, o, serialRes, serialTimeMs, parallelRes, parallelTimeMs)
	printMetrics(metrics)

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		log.Error("failed to marshal metrics", "err", err)
		return 1
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Error("failed to write metrics", "err", err)
		return 1
	}
	log.Info("exported metrics", "output", *output)

	return 0
}

func resolveBenchmarkBlock(input, preset string) (types.Block, error) {
	switch {
	case input != "":
		return blockio.ReadFile(input)
	case preset != "":
		switch preset {
		case "small":
			return generator.Small().Generate(), nil
		case "medium":
			return generator.Medium().Generate(), nil
		case "large":
			return generator.Large().Generate(), nil
		default:
			return types.Block{}, fmt.Errorf("unknown preset %q", preset)
		}
	default:
		return generator.Medium().Generate(), nil
	}
}

func printMetrics(m types.Metrics) {
	fmt.Println()
	fmt.Println("Parallelism:")
	fmt.Printf("  waves:              %d\n", m.Waves)
	fmt.Printf("  avg wave size:      %.1f\n", m.AvgWaveSize)
	fmt.Printf("  max wave size:      %d\n", m.MaxWaveSize)
	fmt.Printf("  min wave size:      %d\n", m.MinWaveSize)
	fmt.Println("Performance:")
	fmt.Printf("  speedup:            %.2fx\n", m.SpeedupVsSerial)
	fmt.Printf("  serial time:        %.2f ms\n", m.SerialTimeMs)
	fmt.Printf("  parallel time:      %.2f ms\n", m.ParallelTimeMs)
	fmt.Println("Conflicts:")
	fmt.Printf("  conflict rate:      %.1f%%\n", m.ConflictRate*100)
	fmt.Printf("  total conflicts:    %d\n", m.TotalConflicts)
	fmt.Printf("  runtime conflicts:  %d\n", m.RuntimeConflicts)
	fmt.Println("Estimator accuracy:")
	fmt.Printf("  precision:          %.1f%%\n", m.PreexecPrecision*100)
	fmt.Printf("  recall:             %.1f%%\n", m.PreexecRecall*100)
	fmt.Println()
}
