package gtts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/tts"
)

func TestChunk(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		assert.Equal(t, []string{"Drink water"}, Chunk("  Drink   water ", MaxChunk))
	})

	t.Run("sentences close chunks", func(t *testing.T) {
		assert.Equal(t, []string{"Rest.", "Any fever?"}, Chunk("Rest. Any fever?", MaxChunk))
	})

	t.Run("long text respects the limit", func(t *testing.T) {
		text := strings.Repeat("headache ", 40)
		chunks := Chunk(text, MaxChunk)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), MaxChunk)
		}
		assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	})

	t.Run("oversized word is cut", func(t *testing.T) {
		chunks := Chunk(strings.Repeat("é", 250), MaxChunk)
		require.Len(t, chunks, 3)
		assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
		assert.Equal(t, 50, utf8.RuneCountInString(chunks[2]))
	})

	t.Run("exact multiple of the limit", func(t *testing.T) {
		assert.Len(t, Chunk(strings.Repeat("a", 200), MaxChunk), 2)
	})

	t.Run("blank", func(t *testing.T) {
		assert.Empty(t, Chunk(" \n\t", MaxChunk))
	})
}

func TestSynthesize_ConcatenatesChunks(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		queries = append(queries, q.Get("q"))
		mu.Unlock()

		assert.Equal(t, "fr", q.Get("tl"))
		assert.Equal(t, "tw-ob", q.Get("client"))
		assert.Equal(t, "2", q.Get("total"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3[" + q.Get("idx") + "]"))
	}))
	defer srv.Close()

	s := New(config.TTSConfig{Language: "en", Timeout: 2 * time.Second, GTTS: config.GTTSConfig{Endpoint: srv.URL}})
	res, err := s.Synthesize(context.Background(), "Reposez-vous. Avez-vous de la fièvre?", tts.SynthesizeOpts{Language: "fr"})
	require.NoError(t, err)

	assert.Equal(t, "audio/mpeg", res.ContentType)
	assert.Equal(t, "mp3[0]mp3[1]", string(res.Audio))
	assert.Equal(t, []string{"Reposez-vous.", "Avez-vous de la fièvre?"}, queries)
}

func TestSynthesize_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(config.TTSConfig{GTTS: config.GTTSConfig{Endpoint: srv.URL}})
	_, err := s.Synthesize(context.Background(), "Rest.", tts.SynthesizeOpts{})
	assert.ErrorContains(t, err, "status 429")

	_, err = s.Synthesize(context.Background(), "   ", tts.SynthesizeOpts{})
	assert.ErrorIs(t, err, tts.ErrEmptyText)
}

func TestNew_Defaults(t *testing.T) {
	s := New(config.TTSConfig{})
	assert.Equal(t, DefaultEndpoint, s.endpoint)
	assert.Equal(t, "en", s.language)
	assert.Equal(t, "gtts", s.Name())
}
