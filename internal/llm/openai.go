package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider answers through an OpenAI-compatible chat completions API
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a provider; BaseURL points it at any compatible
// server
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai: API key is required (OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable reports whether the models endpoint accepts the key
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Answer sends the page to the chat completions endpoint at temperature 0
func (p *OpenAIProvider) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	c := p.config.resolve(req, openai.GPT4oMini, 30*time.Second)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: c.prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	return &AnswerResponse{
		Text:       text,
		Answer:     ParseAnswer(text),
		Model:      c.model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
