// Package stt defines the interface for speech-to-text backends.
//
// A Transcriber turns one recorded utterance into text. Backends share the
// ErrNoSpeech sentinel so callers can tell silence apart from a failure.
package stt

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSpeech is returned when the recording contained no recognizable speech.
var ErrNoSpeech = errors.New("no speech recognized")

// ErrDisabled is returned by the Disabled transcriber.
var ErrDisabled = errors.New("speech recognition is disabled")

// Transcriber is the interface for speech-to-text backends.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "whisper", "openai").
	Name() string

	// Transcribe converts audio to text. contentType is the MIME type of the
	// recording (e.g., "audio/webm", "audio/wav").
	Transcribe(ctx context.Context, audio []byte, contentType string) (*Result, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Result holds the output of a transcription.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"` // ISO-639-1 when known
}

// Disabled rejects every recording. It backs the "none" backend.
type Disabled struct{}

// Name returns the backend identifier.
func (Disabled) Name() string { return "none" }

// Transcribe always fails with ErrDisabled.
func (Disabled) Transcribe(context.Context, []byte, string) (*Result, error) {
	return nil, ErrDisabled
}

// Close is a no-op.
func (Disabled) Close() error { return nil }

// Finish trims the transcript and maps an empty one to ErrNoSpeech.
func Finish(text, language string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoSpeech
	}
	return &Result{Text: text, Language: NormalizeLanguage(language)}, nil
}

// ExtFromContentType maps an audio MIME type to a file extension the
// transcription servers use to pick a decoder.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "mp4"), strings.Contains(ct, "m4a"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// NormalizeLanguage maps full language names ("english") to ISO-639-1.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) == 2 {
		return lang
	}
	if code, ok := languageCodes[lang]; ok {
		return code
	}
	return lang
}

var languageCodes = map[string]string{
	"english":    "en",
	"french":     "fr",
	"spanish":    "es",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"polish":     "pl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"hindi":      "hi",
	"turkish":    "tr",
}
