package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/quizrunner/internal/model"
)

type mockRunner struct {
	runs atomic.Int32
}

func (m *mockRunner) Run(ctx context.Context, startURL string) model.RunSummary {
	m.runs.Add(1)
	time.Sleep(5 * time.Millisecond)
	return model.RunSummary{StartURL: startURL, LastURL: startURL, Steps: 1}
}

func TestBatchProcessor_ProcessURLs(t *testing.T) {
	runner := &mockRunner{}
	processor := NewBatchProcessor(runner, 2)

	urls := []string{"https://a.example/quiz/1", "https://b.example/quiz/1", "https://c.example/quiz/1"}
	results := processor.ProcessURLs(context.Background(), urls)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	var got []string
	for _, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.URL, res.Error)
		}
		if res.Summary.StartURL != res.URL {
			t.Errorf("summary start URL %s does not match job URL %s", res.Summary.StartURL, res.URL)
		}
		got = append(got, res.URL)
	}
	sort.Strings(got)

	if diff := cmp.Diff(urls, got); diff != "" {
		t.Errorf("processed URLs mismatch (-want +got):\n%s", diff)
	}
	if runner.runs.Load() != 3 {
		t.Errorf("expected 3 runs, got %d", runner.runs.Load())
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 2)
	if results := processor.ProcessURLs(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	runner := &mockRunner{}
	processor := NewBatchProcessor(runner, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessURLs(ctx, []string{"https://a.example/quiz/1", "https://b.example/quiz/1"})
	if len(results) != 2 {
		t.Fatalf("expected a result per URL, got %d", len(results))
	}
	for _, res := range results {
		if res.Error == nil {
			t.Errorf("expected cancellation error for %s", res.URL)
		}
	}
	if runner.runs.Load() != 0 {
		t.Errorf("expected no runs after cancellation, got %d", runner.runs.Load())
	}
}

type panickingRunner struct{}

func (panickingRunner) Run(ctx context.Context, startURL string) model.RunSummary {
	panic("renderer exploded")
}

func TestBatchProcessor_PanicContained(t *testing.T) {
	processor := NewBatchProcessor(panickingRunner{}, 2)

	results := processor.ProcessURLs(context.Background(), []string{"https://a.example/quiz/1", "https://b.example/quiz/1"})
	if len(results) != 2 {
		t.Fatalf("expected a result per URL, got %d", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Error, ErrChainPanic) {
			t.Errorf("expected ErrChainPanic for %s, got %v", res.URL, res.Error)
		}
	}
}

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# start pages\nhttps://a.example/quiz/1\n\nhttps://b.example/quiz/1\nhttps://a.example/quiz/1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile: %v", err)
	}

	want := []string{"https://a.example/quiz/1", "https://b.example/quiz/1"}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("urls mismatch (-want +got):\n%s", diff)
	}
}

func TestReadURLsFromFile_Missing(t *testing.T) {
	if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
