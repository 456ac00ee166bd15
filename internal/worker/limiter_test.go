package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://q.example/quiz/1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://files.example/data.csv"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	url := "http://q.example/data.csv"

	if !limiter.Allow(url) {
		t.Fatal("first request should pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail once the context ends")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "http://q.example", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", elapsed)
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "http://q.example/data.csv"

	if !limiter.Allow(url) {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://Q.EXAMPLE/other.csv") {
		t.Error("same host in different case should share the exhausted bucket")
	}
	if !limiter.Allow("http://other.example") {
		t.Error("other host should be allowed")
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetDomainRate("slow.example", 0.1, 1)

	if !limiter.Allow("http://slow.example") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.example") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("http://fast.example") {
		t.Error("other host should pass")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://Q.Example:8080/foo")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "q.example:8080" {
		t.Errorf("expected q.example:8080, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
