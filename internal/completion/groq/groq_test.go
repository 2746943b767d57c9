package groq

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

func testConfig(endpoint, key string) config.CompletionConfig {
	return config.CompletionConfig{
		Backend:     "groq",
		Temperature: 0.5,
		MaxTokens:   350,
		Timeout:     2 * time.Second,
		Groq:        config.GroqConfig{Endpoint: endpoint, APIKey: key, Model: "llama3-70b-8192"},
	}
}

var testMessages = []message.ChatMessage{
	{Role: message.RoleSystem, Content: "be brief"},
	{Role: message.RoleUser, Content: "I have a headache"},
}

func TestComplete_RequestShape(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ANSWER: Rest."}}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL, "gsk-123"))
	content, err := c.Complete(context.Background(), testMessages)
	require.NoError(t, err)

	assert.Equal(t, "ANSWER: Rest.", content)
	assert.Equal(t, "Bearer gsk-123", auth)
	assert.Equal(t, "llama3-70b-8192", got["model"])
	assert.InDelta(t, 0.5, got["temperature"], 1e-9)
	assert.EqualValues(t, 350, got["max_tokens"])
	assert.Equal(t, false, got["stream"])

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be brief", first["content"])
}

func TestComplete_NoKeySendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL, "")).Complete(context.Background(), testMessages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API Key")
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"malformed body", http.StatusOK, "not json", "decoding chat response"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(testConfig(srv.URL, "k")).Complete(context.Background(), testMessages)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL, "k")
	cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := New(cfg).Complete(context.Background(), testMessages)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNew_DefaultEndpoint(t *testing.T) {
	c := New(testConfig("", ""))
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Equal(t, "groq", c.Name())
	assert.NoError(t, c.Close())
}
