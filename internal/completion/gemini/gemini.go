// Package gemini implements the Completer interface using the Google Gemini
// API through the genai SDK.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/nadzzz/mediai/internal/completion"
	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/message"
)

// Completer generates content through the Gemini API. The SDK client is
// created on first use since genai refuses to build one without a key.
type Completer struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	params  completion.Params

	mu     sync.Mutex
	client *genai.Client
}

// New creates a Gemini completer from config.
func New(cfg config.CompletionConfig) *Completer {
	return &Completer{
		apiKey:  cfg.Gemini.APIKey,
		baseURL: cfg.Gemini.BaseURL,
		timeout: cfg.Timeout,
		params: completion.Params{
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

// Name returns the backend identifier.
func (c *Completer) Name() string { return "gemini" }

func (c *Completer) clientFor(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	cc := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: c.timeout},
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	c.client = client
	return client, nil
}

// Complete sends the conversation and returns the text parts of the first
// candidate.
func (c *Completer) Complete(ctx context.Context, messages []message.ChatMessage) (string, error) {
	client, err := c.clientFor(ctx)
	if err != nil {
		return "", err
	}

	system, rest := completion.SplitSystem(messages)
	temperature := float32(c.params.Temperature)
	gc := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(c.params.MaxTokens),
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, c.params.Model, toGemini(completion.Alternate(rest)), gc)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content returned from gemini")
	}

	content := sb.String()
	slog.Debug("gemini completion complete",
		"model", c.params.Model,
		"messages", len(messages),
		"content_length", len(content),
		"duration", time.Since(start))
	return content, nil
}

// Close is a no-op; the genai client holds no long-lived connections.
func (c *Completer) Close() error { return nil }

// toGemini maps chat messages onto genai contents; Gemini names the
// assistant role "model".
func toGemini(messages []message.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == message.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	return out
}
