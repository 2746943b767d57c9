package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/stt"
)

func newTranscriber(baseURL string) *Transcriber {
	return New(config.STTConfig{
		Language: "en",
		Timeout:  2 * time.Second,
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", BaseURL: baseURL, Model: "whisper-1"},
	})
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "audio.ogg", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"I feel dizzy"}`))
	}))
	defer srv.Close()

	res, err := newTranscriber(srv.URL).Transcribe(context.Background(), []byte("ogg"), "audio/ogg")
	require.NoError(t, err)
	assert.Equal(t, "I feel dizzy", res.Text)
}

func TestTranscribe_Silence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	_, err := newTranscriber(srv.URL).Transcribe(context.Background(), []byte("ogg"), "audio/ogg")
	assert.ErrorIs(t, err, stt.ErrNoSpeech)
}
