package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/quizrunner/internal/model"
)

// ChainRunner solves one chain starting at startURL
type ChainRunner interface {
	Run(ctx context.Context, startURL string) model.RunSummary
}

// ErrChainPanic marks a chain that ended in a panic instead of a summary
var ErrChainPanic = errors.New("chain panicked")

// ChainJob runs one chain on a pool worker
type ChainJob struct {
	URL    string
	Runner ChainRunner
}

// Execute executes the chain job
func (j *ChainJob) Execute(ctx context.Context) (result Result) {
	if err := ctx.Err(); err != nil {
		return &ChainResult{URL: j.URL, Error: err}
	}
	defer func() {
		if r := recover(); r != nil {
			result = &ChainResult{URL: j.URL, Error: fmt.Errorf("%w: %v", ErrChainPanic, r)}
		}
	}()
	return &ChainResult{
		URL:     j.URL,
		Summary: j.Runner.Run(ctx, j.URL),
	}
}

// ChainResult is the result of one chain job. Error is set only when the
// chain never started or panicked.
type ChainResult struct {
	URL     string
	Summary model.RunSummary
	Error   error
}

// GetError returns the error from the chain result
func (r *ChainResult) GetError() error {
	return r.Error
}

// BatchProcessor solves many independent chains concurrently
type BatchProcessor struct {
	runner      ChainRunner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner ChainRunner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessURLs runs one chain per start URL and returns their results in
// completion order
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*ChainResult {
	if len(urls) == 0 {
		return []*ChainResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	var skipped []*ChainResult
	for _, url := range urls {
		if !pool.Submit(&ChainJob{URL: url, Runner: b.runner}) {
			skipped = append(skipped, &ChainResult{URL: url, Error: ctx.Err()})
		}
	}

	results := pool.Wait()

	chainResults := make([]*ChainResult, 0, len(results)+len(skipped))
	for _, result := range results {
		chainResults = append(chainResults, result.(*ChainResult))
	}
	return append(chainResults, skipped...)
}

// ProcessFile reads start URLs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ChainResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line). Blank lines and
// lines starting with '#' are skipped; duplicates are dropped.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
