// Package openai implements the Completer interface using the OpenAI
// Chat Completions API via the official openai-go SDK.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nadzzz/mediai/internal/completion"
	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/message"
)

// Completer sends chat completions through the OpenAI SDK.
type Completer struct {
	client openai.Client
	params completion.Params
}

// New creates an OpenAI completer from config. SDK retries are disabled so a
// failed turn surfaces once, within the configured timeout.
func New(cfg config.CompletionConfig) *Completer {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.OpenAI.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.OpenAI.APIKey))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}

	return &Completer{
		client: openai.NewClient(opts...),
		params: completion.Params{
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

// Name returns the backend identifier.
func (c *Completer) Name() string { return "openai" }

// Complete sends the messages and returns the first choice's content.
func (c *Completer) Complete(ctx context.Context, messages []message.ChatMessage) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.params.Model),
		Messages:    toOpenAI(messages),
		Temperature: openai.Float(c.params.Temperature),
		MaxTokens:   openai.Int(int64(c.params.MaxTokens)),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("openai completion complete",
		"model", c.params.Model,
		"messages", len(messages),
		"content_length", len(content),
		"duration", time.Since(start))
	return content, nil
}

// Close is a no-op for the OpenAI completer.
func (c *Completer) Close() error { return nil }

func toOpenAI(messages []message.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case message.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case message.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
