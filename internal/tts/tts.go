// Package tts defines the interface for text-to-speech synthesis.
//
// MediAI voices every assistant reply. The answer clip autoplays and the
// follow-up question clip waits for the user to press play.
package tts

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("empty text for synthesis")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en", "fr", "es") to select the voice.
	Language string

	// Voice overrides automatic language-based voice selection.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "gtts", "piper").
	Name() string

	// Synthesize generates a playable audio clip from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is a complete audio file (MP3 or WAV).
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/mpeg").
	ContentType string

	// SampleRate is the audio sample rate in Hz when known.
	SampleRate int

	// Channels is the number of audio channels when known.
	Channels int
}
