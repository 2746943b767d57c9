// Package openai implements the Transcriber interface using the OpenAI Audio
// Transcription API (whisper-1, gpt-4o-transcribe).
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/stt"
)

// Transcriber sends recordings through the OpenAI SDK.
type Transcriber struct {
	client   openai.Client
	model    string
	language string
}

// New creates an OpenAI transcriber from config.
func New(cfg config.STTConfig) *Transcriber {
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
	return &Transcriber{
		client:   openai.NewClient(opts...),
		model:    cfg.OpenAI.Model,
		language: cfg.Language,
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "openai" }

// Transcribe uploads the recording and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string) (*stt.Result, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio"+stt.ExtFromContentType(contentType), contentType),
		Model: openai.AudioModel(t.model),
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription request: %w", err)
	}

	slog.Debug("openai transcription complete", "model", t.model, "text_length", len(resp.Text))
	return stt.Finish(resp.Text, t.language)
}

// Close is a no-op for the OpenAI transcriber.
func (t *Transcriber) Close() error { return nil }
