// Package anthropic implements the Completer interface using the Anthropic
// Messages API. The system instruction travels in the dedicated system field
// rather than as a message.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nadzzz/mediai/internal/completion"
	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/message"
)

// Completer sends conversations through the Anthropic SDK.
type Completer struct {
	client anthropic.Client
	params completion.Params
}

// New creates an Anthropic completer from config.
func New(cfg config.CompletionConfig) *Completer {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.Anthropic.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.Anthropic.APIKey))
	}
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}

	return &Completer{
		client: anthropic.NewClient(opts...),
		params: completion.Params{
			Model:       cfg.Anthropic.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

// Name returns the backend identifier.
func (c *Completer) Name() string { return "anthropic" }

// Complete sends the messages and returns the concatenated text blocks.
func (c *Completer) Complete(ctx context.Context, messages []message.ChatMessage) (string, error) {
	system, rest := completion.SplitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.params.Model),
		MaxTokens:   int64(c.params.MaxTokens),
		Temperature: anthropic.Float(c.params.Temperature),
		Messages:    toAnthropic(completion.Alternate(rest)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		sb.WriteString(block.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content returned from messages API")
	}

	content := sb.String()
	slog.Debug("anthropic completion complete",
		"model", c.params.Model,
		"messages", len(messages),
		"content_length", len(content),
		"duration", time.Since(start))
	return content, nil
}

// Close is a no-op for the Anthropic completer.
func (c *Completer) Close() error { return nil }

func toAnthropic(messages []message.ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == message.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	return out
}
