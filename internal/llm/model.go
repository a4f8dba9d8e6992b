// Package llm talks to the external text model and interprets its replies.
package llm

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

const systemPrompt = "You are an expert real estate analyst for the Salt Lake Valley. Base every statement on the listing data you are given and answer with a single JSON object when asked for one."

// Model is the text-in, text-out contract the analysis pipeline depends on.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicModel struct {
	messages  AnthropicMessager
	model     string
	maxTokens int64
}

func NewAnthropicModel(apiKey, model string) (*AnthropicModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicModel{messages: newAnthropicClient(apiKey), model: model, maxTokens: DefaultMaxTokens}, nil
}

func NewAnthropicModelFromEnv(model string) (*AnthropicModel, error) {
	return NewAnthropicModel(os.Getenv("ANTHROPIC_API_KEY"), model)
}

func (a *AnthropicModel) ModelName() string { return a.model }

func (a *AnthropicModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("model returned an empty reply")
	}
	return sb.String(), nil
}

type timeoutModel struct {
	next Model
	d    time.Duration
}

// WithTimeout bounds every Generate call on m to d. A non-positive d returns m
// unchanged.
func WithTimeout(m Model, d time.Duration) Model {
	if d <= 0 {
		return m
	}
	return timeoutModel{next: m, d: d}
}

func (t timeoutModel) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Generate(ctx, prompt)
}
