package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve <url>",
	Short: "Solve one quiz chain in the foreground",
	Long: `Solve runs a single chain starting at the given quiz URL, with the same
engine the server uses. The configured email and secret are submitted with
every answer.

The chain ends when an answer is accepted without a next URL, when a step
cannot proceed, or when the time budget runs out. How it ended is logged;
the exit status does not distinguish these cases.

Example:
  QUIZ_EMAIL=me@example.com QUIZ_SECRET=s3cret quizrunner solve https://quiz.example/quiz/1
  quizrunner solve https://quiz.example/quiz/1 --budget 2m --headless=false -v`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	startURL := args[0]

	cfg, err := loadValidConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}

	summary := engine.Run(ctx, startURL)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Chain:    %s\n", summary.ChainID)
	fmt.Fprintf(os.Stderr, "  Start:    %s\n", summary.StartURL)
	fmt.Fprintf(os.Stderr, "  Last:     %s\n", summary.LastURL)
	fmt.Fprintf(os.Stderr, "  Steps:    %d\n", summary.Steps)
	fmt.Fprintf(os.Stderr, "  Elapsed:  %s\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")
	return nil
}
