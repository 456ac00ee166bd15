package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/quizrunner/internal/util"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider answers through a local Ollama daemon's chat API
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

// NewOllamaProvider creates a provider; a model name is required because
// Ollama has no default
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	if config.Model == "" {
		return nil, errors.New("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	baseURL := strings.TrimSuffix(firstNonEmpty(config.BaseURL, defaultOllamaURL), "/")

	// Local models are slow to load; the per-call timeout comes from Answer
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	return &OllamaProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: transport},
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable reports whether the daemon lists its models
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Answer sends the page as a two-message chat at temperature 0
func (p *OllamaProvider) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	c := p.config.resolve(req, "", 60*time.Second)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := p.chat(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.prompt},
		},
		Options: chatOptions{NumPredict: c.maxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	text := strings.TrimSpace(resp.Message.Content)
	return &AnswerResponse{
		Text:       text,
		Answer:     ParseAnswer(text),
		Model:      resp.Model,
		TokensUsed: resp.PromptEvalCount + resp.EvalCount,
	}, nil
}

func (p *OllamaProvider) chat(ctx context.Context, body chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(data))
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}
