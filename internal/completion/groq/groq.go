// Package groq implements the Completer interface against Groq's
// OpenAI-compatible Chat Completions endpoint.
//
// The request body is exactly {model, messages, temperature, max_tokens,
// stream}, so any server speaking the same dialect (vLLM, llama.cpp,
// Ollama's /v1 API) can be targeted by overriding the endpoint.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nadzzz/mediai/internal/completion"
	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/message"
)

// DefaultEndpoint is Groq's chat completions URL.
const DefaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Completer calls an OpenAI-compatible chat completions endpoint.
type Completer struct {
	endpoint string
	apiKey   string
	params   completion.Params
	client   *http.Client
}

// New creates a Groq completer from config.
func New(cfg config.CompletionConfig) *Completer {
	endpoint := cfg.Groq.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Completer{
		endpoint: endpoint,
		apiKey:   cfg.Groq.APIKey,
		params: completion.Params{
			Model:       cfg.Groq.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (c *Completer) Name() string { return "groq" }

// Complete posts the messages and returns the first choice's content.
func (c *Completer) Complete(ctx context.Context, messages []message.ChatMessage) (string, error) {
	reqBody := chatRequest{
		Model:       c.params.Model,
		Messages:    messages,
		Temperature: c.params.Temperature,
		MaxTokens:   c.params.MaxTokens,
		Stream:      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	// Without a key the request goes out unauthenticated and the endpoint
	// answers 401, which surfaces as a completion failure.
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("chat failed (status %d): %s", resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}

	content := chatResp.Choices[0].Message.Content
	slog.Debug("groq completion complete",
		"model", c.params.Model,
		"messages", len(messages),
		"content_length", len(content),
		"duration", time.Since(start))
	return content, nil
}

// Close is a no-op for the Groq completer.
func (c *Completer) Close() error { return nil }

type chatRequest struct {
	Model       string                `json:"model"`
	Messages    []message.ChatMessage `json:"messages"`
	Temperature float64               `json:"temperature"`
	MaxTokens   int                   `json:"max_tokens"`
	Stream      bool                  `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
