package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIProvider_Answer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "What is 6 times 7?") {
			t.Errorf("page text missing from prompt: %+v", req.Messages)
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: " 42 ",
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 12},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Answer(context.Background(), AnswerRequest{PageText: "What is 6 times 7?"})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if resp.Text != "42" {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if !resp.Answer.IsInt() || resp.Answer.Int() != 42 {
		t.Errorf("Unexpected answer: %s", resp.Answer)
	}
	if resp.TokensUsed != 12 {
		t.Errorf("Unexpected token count: %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Answer_APIError(t *testing.T) {
	for name, status := range map[string]int{
		"server error": http.StatusInternalServerError,
		"rate limit":   http.StatusTooManyRequests,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "server_error"}}`))
			}))
			defer server.Close()

			provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
			if err != nil {
				t.Fatalf("Failed to create provider: %v", err)
			}

			if _, err := provider.Answer(context.Background(), AnswerRequest{PageText: "q"}); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

func TestOpenAIProvider_Answer_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Answer(context.Background(), AnswerRequest{PageText: "q"}); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOpenAIProvider_Answer_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := provider.Answer(ctx, AnswerRequest{PageText: "q"}); err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
