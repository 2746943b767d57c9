// Package whisper implements the Transcriber interface against self-hosted
// Whisper servers.
//
// Two flavors are supported:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper, speaches)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/stt"
)

// Transcriber posts recordings to a Whisper-compatible endpoint.
type Transcriber struct {
	endpoint  string
	flavor    string
	model     string
	language  string
	vadFilter bool
	client    *http.Client
}

// New creates a Whisper transcriber from config.
func New(cfg config.STTConfig) *Transcriber {
	flavor := cfg.Whisper.Type
	if flavor == "" {
		flavor = "openai"
	}
	return &Transcriber{
		endpoint:  cfg.Whisper.Endpoint,
		flavor:    flavor,
		model:     cfg.Whisper.Model,
		language:  cfg.Language,
		vadFilter: cfg.Whisper.VADFilter,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "whisper" }

// Transcribe sends audio to the configured endpoint.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string) (*stt.Result, error) {
	if t.flavor == "asr" {
		return t.transcribeASR(ctx, audio, contentType)
	}
	return t.transcribeOpenAI(ctx, audio, contentType)
}

// transcribeASR handles the ahmetoner/whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=en&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (t *Transcriber) transcribeASR(ctx context.Context, audio []byte, contentType string) (*stt.Result, error) {
	body, formType, err := multipartAudio("audio_file", audio, contentType, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if t.language != "" {
		q.Set("language", t.language)
	}
	if t.vadFilter {
		q.Set("vad_filter", "true")
	}

	reqURL := t.endpoint + "?" + q.Encode()
	slog.Debug("whisper-asr request", "url", reqURL)
	return t.post(ctx, reqURL, body, formType)
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (t *Transcriber) transcribeOpenAI(ctx context.Context, audio []byte, contentType string) (*stt.Result, error) {
	fields := map[string]string{"response_format": "json"}
	if t.model != "" {
		fields["model"] = t.model
	}
	if t.language != "" {
		fields["language"] = t.language
	}

	body, formType, err := multipartAudio("file", audio, contentType, fields)
	if err != nil {
		return nil, err
	}
	return t.post(ctx, t.endpoint, body, formType)
}

func (t *Transcriber) post(ctx context.Context, reqURL string, body *bytes.Buffer, formType string) (*stt.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("whisper transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	slog.Debug("whisper transcription complete", "flavor", t.flavor, "text_length", len(result.Text), "language", result.Language)
	lang := result.Language
	if lang == "" {
		lang = t.language
	}
	return stt.Finish(result.Text, lang)
}

// Close is a no-op for the Whisper transcriber.
func (t *Transcriber) Close() error { return nil }

func multipartAudio(field string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, "audio"+stt.ExtFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
