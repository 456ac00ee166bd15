package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/quizrunner/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Answer asks the model for the numeric answer to a quiz page
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AnswerRequest contains the input for one question
type AnswerRequest struct {
	// PageText is the visible text of the quiz page
	PageText string

	// Prompt overrides the default prompt when set
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// AnswerResponse contains the model output and the number parsed from it
type AnswerResponse struct {
	// Text is the raw completion
	Text string

	// Answer is the first number in Text, absent when there is none
	Answer model.Answer

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI-compatible endpoints
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 64,
	}
}

const (
	systemPrompt   = "You answer quiz questions. Reply with the numeric answer only."
	maxPromptChars = 8000
)

// BuildPrompt constructs the default prompt for a quiz page
func BuildPrompt(pageText string) string {
	text := strings.TrimSpace(pageText)
	text = truncateUTF8(text, maxPromptChars)

	return fmt.Sprintf(`The following is the text of a quiz page.

RULES:
1. Reply with a single number and nothing else.
2. If the page does not ask a numeric question, reply with "none".

Page:
%s`, text)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// call is one request with every default filled in
type call struct {
	prompt    string
	model     string
	maxTokens int
	timeout   time.Duration
}

// resolve merges req over the provider config and the given fallbacks
func (c Config) resolve(req AnswerRequest, fallbackModel string, fallbackTimeout time.Duration) call {
	out := call{
		prompt:    req.Prompt,
		model:     firstNonEmpty(req.Model, c.Model, fallbackModel),
		maxTokens: req.MaxTokens,
		timeout:   time.Duration(c.Timeout) * time.Second,
	}
	if out.prompt == "" {
		out.prompt = BuildPrompt(req.PageText)
	}
	if out.maxTokens == 0 {
		out.maxTokens = c.MaxTokens
	}
	if out.maxTokens == 0 {
		out.maxTokens = DefaultConfig().MaxTokens
	}
	if out.timeout == 0 {
		out.timeout = fallbackTimeout
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseAnswer extracts the first number in text
func ParseAnswer(text string) model.Answer {
	match := numberPattern.FindString(text)
	if match == "" {
		return model.NoAnswer
	}
	if n, err := strconv.ParseInt(match, 10, 64); err == nil {
		return model.IntAnswer(n)
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return model.NoAnswer
	}
	return model.NumberAnswer(f)
}
