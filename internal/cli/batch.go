package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/quizrunner/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency int
	batchOutput string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Solve many quiz chains from a file in parallel",
	Long: `Batch reads start URLs from a file (one per line, '#' starts a comment,
duplicates are dropped) and solves each as an isolated chain. Every chain
gets its own browser, HTTP client and deadline.

A JSON summary per chain is written to stdout, or to --output.

Example:
  quizrunner batch urls.txt
  quizrunner batch urls.txt --concurrency 4 --output runs.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "concurrent chains (default: concurrency.max_chains)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write summaries to this file instead of stdout")
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]

	cfg, err := loadValidConfig()
	if err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.MaxChains
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Budget:       %v per chain\n", cfg.Chain.Budget)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(engine, workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := os.Stdout
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		out = f
	}

	enc := json.NewEncoder(out)
	skipped := 0
	for _, result := range results {
		if result.Error != nil {
			skipped++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.URL, result.Error)
			continue
		}
		if err := enc.Encode(result.Summary); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Chains run:   %d\n", len(results)-skipped)
	fmt.Fprintf(os.Stderr, "  Failed:       %d\n", skipped)
	fmt.Fprintf(os.Stderr, "\n")
	return nil
}
