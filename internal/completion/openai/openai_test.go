package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/message"
)

func newTestCompleter(baseURL string) *Completer {
	return New(config.CompletionConfig{
		Temperature: 0.5,
		MaxTokens:   350,
		Timeout:     2 * time.Second,
		OpenAI:      config.OpenAIConfig{APIKey: "sk-test", BaseURL: baseURL, Model: "gpt-4o-mini"},
	})
}

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ANSWER: Rest."}}]}`))
	}))
	defer srv.Close()

	content, err := newTestCompleter(srv.URL).Complete(context.Background(), []message.ChatMessage{
		{Role: message.RoleSystem, Content: "be brief"},
		{Role: message.RoleAssistant, Content: "hello"},
		{Role: message.RoleUser, Content: "I have a headache"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ANSWER: Rest.", content)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.InDelta(t, 0.5, got["temperature"], 1e-9)
	assert.EqualValues(t, 350, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[2].(map[string]any)["role"])
}

func TestComplete_ErrorStatusIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), []message.ChatMessage{
		{Role: message.RoleUser, Content: "hi"},
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), []message.ChatMessage{
		{Role: message.RoleUser, Content: "hi"},
	})
	assert.ErrorContains(t, err, "no choices")
}
