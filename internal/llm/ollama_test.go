package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestOllamaProvider_Answer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3.1:8b" || req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Content != systemPrompt {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Options.NumPredict != 64 {
			t.Errorf("expected default token limit, got %d", req.Options.NumPredict)
		}

		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:           "llama3.1:8b",
			Message:         chatMessage{Role: "assistant", Content: "The answer is 12.5"},
			Done:            true,
			PromptEvalCount: 20,
			EvalCount:       5,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "llama3.1:8b", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Answer(context.Background(), AnswerRequest{PageText: "Sum the numbers."})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if resp.Answer.IsInt() || resp.Answer.Float() != 12.5 {
		t.Errorf("Unexpected answer: %s", resp.Answer)
	}
	if resp.TokensUsed != 25 {
		t.Errorf("Unexpected token count: %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Answer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Answer(context.Background(), AnswerRequest{PageText: "q"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if got := err.Error(); got != "ollama API error: API error (404): model not found" {
		t.Errorf("Unexpected error: %s", got)
	}
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	if _, err := NewOllamaProvider(Config{}); err == nil {
		t.Error("Expected error without a model")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "m"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"42", "42"},
		{"The answer is -7.", "-7"},
		{"about 3.25 units", "3.25"},
		{"2.0", "2"},
		{"none", "<none>"},
		{"", "<none>"},
	}

	for _, tt := range tests {
		if got := ParseAnswer(tt.text).String(); got != tt.want {
			t.Errorf("ParseAnswer(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("empty provider should disable the LLM, got %v %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "anthropic"}); err == nil {
		t.Error("Expected error for unsupported provider")
	}

	p, err = NewProvider(Config{Provider: "Ollama", Model: "m"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Unexpected provider: %s", p.Name())
	}
}

func TestConfigResolve(t *testing.T) {
	cfg := Config{Model: "cfg-model", Timeout: 2, MaxTokens: 16}

	c := cfg.resolve(AnswerRequest{PageText: "Q?"}, "fallback", time.Minute)
	if c.model != "cfg-model" || c.maxTokens != 16 || c.timeout != 2*time.Second {
		t.Errorf("config values not applied: %+v", c)
	}
	if !strings.Contains(c.prompt, "Q?") {
		t.Errorf("page text missing from prompt: %q", c.prompt)
	}

	c = Config{}.resolve(AnswerRequest{Prompt: "custom", Model: "req-model"}, "fallback", time.Minute)
	if c.prompt != "custom" || c.model != "req-model" || c.timeout != time.Minute || c.maxTokens != 64 {
		t.Errorf("request values and fallbacks not applied: %+v", c)
	}

	if got := (Config{}).resolve(AnswerRequest{}, "fallback", time.Minute).model; got != "fallback" {
		t.Errorf("expected fallback model, got %q", got)
	}
}

func TestBuildPrompt_TruncatesOnRuneBoundary(t *testing.T) {
	page := strings.Repeat("a", maxPromptChars-1) + "€ tail"

	prompt := BuildPrompt(page)
	if !utf8.ValidString(prompt) {
		t.Fatal("prompt contains a split rune")
	}
	if strings.Contains(prompt, "€") || strings.Contains(prompt, "tail") {
		t.Error("text beyond the limit should be dropped")
	}
	if !strings.Contains(prompt, strings.Repeat("a", maxPromptChars-1)) {
		t.Error("text within the limit should be kept")
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abc", 2, "ab"},
		{"a€", 2, "a"},
		{"a€", 4, "a€"},
		{"€", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateUTF8(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
