// Package generator writes new ideas with a chat-completion model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"ideas-feedback/internal/models"
)

const (
	DefaultModel    = "gpt-4o-mini"
	maxOutputTokens = 1000
	temperature     = 1.0
)

// Generator produces the text of one new idea for a category.
type Generator interface {
	Generate(ctx context.Context, cat Category, previous []models.Idea) (string, error)
}

type OpenAIGenerator struct {
	client *openai.Client
	model  string
	now    func() time.Time
	log    zerolog.Logger
}

type options struct {
	baseURL string
	now     func() time.Time
}

type Option func(*options)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewOpenAIGenerator fails when apiKey is empty.
func NewOpenAIGenerator(apiKey, model string, log zerolog.Logger, opts ...Option) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required to generate ideas")
	}
	if model == "" {
		model = DefaultModel
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}

	log.Info().Str("model", model).Msg("initializing OpenAI client")
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		now:    o.now,
		log:    log,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, cat Category, previous []models.Idea) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: cat.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(cat, g.now(), previous)},
		},
		MaxCompletionTokens: maxOutputTokens,
		Temperature:         temperature,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate %s idea: %w", cat.Key, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate %s idea: model returned no choices", cat.Key)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("generate %s idea: model returned empty content", cat.Key)
	}
	g.log.Debug().
		Str("category", cat.Key).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("idea generated")
	return text, nil
}
