// Package gtts implements the TTS Synthesizer against Google Translate's
// speech endpoint, the service behind the gTTS library.
//
// The endpoint accepts at most 100 characters per request, so text is split
// into chunks on sentence and word boundaries. Each chunk comes back as an
// MP3 stream and the streams are concatenated, which MP3 decoders play as a
// single clip.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/tts"
)

const (
	// DefaultEndpoint is the Google Translate speech URL.
	DefaultEndpoint = "https://translate.google.com/translate_tts"

	// MaxChunk is the per-request character limit of the endpoint.
	MaxChunk = 100

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) mediai"
)

// Synthesizer fetches MP3 speech from Google Translate.
type Synthesizer struct {
	endpoint string
	language string
	slow     bool
	client   *http.Client
}

// New creates a gTTS synthesizer from config.
func New(cfg config.TTSConfig) *Synthesizer {
	endpoint := cfg.GTTS.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &Synthesizer{
		endpoint: endpoint,
		language: lang,
		slow:     cfg.GTTS.Slow,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "gtts" }

// Synthesize speaks text and returns one MP3 clip.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	chunks := Chunk(text, MaxChunk)
	if len(chunks) == 0 {
		return nil, tts.ErrEmptyText
	}

	lang := opts.Language
	if lang == "" {
		lang = s.language
	}

	var audio bytes.Buffer
	for idx, chunk := range chunks {
		if err := s.fetch(ctx, &audio, chunk, lang, idx, len(chunks)); err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", idx+1, len(chunks), err)
		}
	}

	slog.Debug("gtts synthesize", "language", lang, "chunks", len(chunks), "audio_bytes", audio.Len())
	return &tts.SynthesizeResult{
		Audio:       audio.Bytes(),
		ContentType: "audio/mpeg",
	}, nil
}

func (s *Synthesizer) fetch(ctx context.Context, dst *bytes.Buffer, chunk, lang string, idx, total int) error {
	speed := "1"
	if s.slow {
		speed = "0.3"
	}
	q := url.Values{
		"ie":       {"UTF-8"},
		"client":   {"tw-ob"},
		"q":        {chunk},
		"tl":       {lang},
		"total":    {strconv.Itoa(total)},
		"idx":      {strconv.Itoa(idx)},
		"textlen":  {strconv.Itoa(utf8.RuneCountInString(chunk))},
		"ttsspeed": {speed},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gtts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gtts failed (status %d): %s", resp.StatusCode, body)
	}

	n, err := dst.ReadFrom(resp.Body)
	if err != nil {
		return fmt.Errorf("reading audio: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("gtts returned no audio")
	}
	return nil
}

// Close is a no-op for the gTTS synthesizer.
func (s *Synthesizer) Close() error { return nil }

// Chunk splits text into pieces of at most limit runes. Words are packed
// greedily, a chunk closes after sentence punctuation, and words longer than
// limit are cut.
func Chunk(text string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > limit {
			flush()
			runes := []rune(word)
			chunks = append(chunks, string(runes[:limit]))
			word = string(runes[limit:])
		}

		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n

		if last, _ := utf8.DecodeLastRuneInString(word); strings.ContainsRune(".!?;:", last) {
			flush()
		}
	}
	flush()
	return chunks
}
