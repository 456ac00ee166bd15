package model

import (
	"time"

	"github.com/google/uuid"
)

// ChainSession is the run-scoped state for solving one chain.
// It is owned by a single driver goroutine and never shared.
type ChainSession struct {
	ID          string        // Correlates log lines of one run
	Email       string        // Caller identity sent with every submission
	Secret      string        // Caller secret sent with every submission
	StartURL    string        // First quiz page
	CurrentURL  string        // Page the next step will render
	Deadline    time.Time     // Absolute budget for the whole chain
	StepTimeout time.Duration // Configured upper bound for one render
	MinTimeout  time.Duration // Floor for one render, even close to the deadline
	Steps       int           // Steps started so far
}

// NewChainSession creates a session starting at startURL with a deadline of
// now + cfg.Chain.Budget.
func NewChainSession(cfg *Config, startURL string, now time.Time) *ChainSession {
	minTimeout := cfg.Chain.MinStepTimeout
	if minTimeout <= 0 {
		minTimeout = 5 * time.Second
	}
	return &ChainSession{
		ID:          uuid.NewString(),
		Email:       cfg.Quiz.Email,
		Secret:      cfg.Quiz.Secret,
		StartURL:    startURL,
		CurrentURL:  startURL,
		Deadline:    now.Add(cfg.Chain.Budget),
		StepTimeout: cfg.Chain.RequestTimeout,
		MinTimeout:  minTimeout,
	}
}

// Expired reports whether the deadline has been reached at now
func (s *ChainSession) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// RenderTimeout returns min(StepTimeout, max(MinTimeout, Deadline-now)).
func (s *ChainSession) RenderTimeout(now time.Time) time.Duration {
	remaining := s.Deadline.Sub(now)
	if remaining < s.MinTimeout {
		remaining = s.MinTimeout
	}
	if s.StepTimeout > 0 && remaining > s.StepTimeout {
		return s.StepTimeout
	}
	return remaining
}

// RunSummary describes a finished chain run for logs and batch listings.
// It has no success flag: a solved chain and an abandoned one look alike.
type RunSummary struct {
	ChainID  string        `json:"chain_id"`
	StartURL string        `json:"start_url"`
	LastURL  string        `json:"last_url"`
	Steps    int           `json:"steps"`
	Elapsed  time.Duration `json:"elapsed"`
}
