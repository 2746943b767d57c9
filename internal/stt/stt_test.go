package stt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinish(t *testing.T) {
	res, err := Finish("  I have a headache \n", "English")
	require.NoError(t, err)
	assert.Equal(t, "I have a headache", res.Text)
	assert.Equal(t, "en", res.Language)

	_, err = Finish(" \t\n", "en")
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestExtFromContentType(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": ".webm",
		"audio/ogg":              ".ogg",
		"audio/mpeg":             ".mp3",
		"audio/x-wav":            ".wav",
		"audio/flac":             ".flac",
		"audio/mp4":              ".m4a",
		"":                       ".wav",
	}
	for ct, want := range tests {
		assert.Equal(t, want, ExtFromContentType(ct), ct)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "fr", NormalizeLanguage("French"))
	assert.Equal(t, "de", NormalizeLanguage("DE"))
	assert.Equal(t, "klingon", NormalizeLanguage("Klingon"))
	assert.Empty(t, NormalizeLanguage(""))
}

func TestDisabled(t *testing.T) {
	var tr Transcriber = Disabled{}
	_, err := tr.Transcribe(context.Background(), []byte("x"), "audio/wav")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Equal(t, "none", tr.Name())
}
