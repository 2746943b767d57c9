// Package openai implements the TTS Synthesizer using the OpenAI Audio
// Speech API.
package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/tts"
)

// Synthesizer requests MP3 speech through the OpenAI SDK.
type Synthesizer struct {
	client openai.Client
	model  string
	voice  string
}

// New creates an OpenAI synthesizer from config.
func New(cfg config.TTSConfig) *Synthesizer {
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
	voice := cfg.OpenAI.Voice
	if voice == "" {
		voice = "alloy"
	}
	return &Synthesizer{
		client: openai.NewClient(opts...),
		model:  cfg.OpenAI.Model,
		voice:  voice,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "openai" }

// Synthesize speaks text with the configured voice. OpenAI voices are
// multilingual, so the language option is ignored.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai returned no audio")
	}

	slog.Debug("openai synthesize", "model", s.model, "voice", voice, "audio_bytes", len(audio))
	return &tts.SynthesizeResult{Audio: audio, ContentType: "audio/mpeg"}, nil
}

// Close is a no-op for the OpenAI synthesizer.
func (s *Synthesizer) Close() error { return nil }
