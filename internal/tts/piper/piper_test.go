package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/tts"
)

// fakePiper accepts one connection, records the synthesize request and
// replies with the given events.
func fakePiper(t *testing.T, reply func(c net.Conn)) (string, <-chan event) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan event, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		evt, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		got <- evt
		reply(conn)
	}()
	return ln.Addr().String(), got
}

func TestSynthesize(t *testing.T) {
	addr, got := fakePiper(t, func(c net.Conn) {
		_ = writeEvent(c, event{Type: "audio-start", Data: map[string]any{"rate": 16000, "width": 2, "channels": 1}}, nil)
		_ = writeEvent(c, event{Type: "audio-chunk"}, []byte{1, 2, 3, 4})
		_ = writeEvent(c, event{Type: "audio-chunk"}, []byte{5, 6})
		_ = writeEvent(c, event{Type: "audio-stop"}, nil)
	})

	s := New(config.TTSConfig{Timeout: 2 * time.Second, Piper: config.PiperConfig{Endpoint: "tcp://" + addr}})
	res, err := s.Synthesize(context.Background(), "Rest and hydrate.", tts.SynthesizeOpts{Language: "fr"})
	require.NoError(t, err)

	req := <-got
	assert.Equal(t, "synthesize", req.Type)
	assert.Equal(t, "Rest and hydrate.", req.Data["text"])
	assert.Equal(t, "fr_FR-siwis-medium", req.Data["voice"].(map[string]any)["name"])

	assert.Equal(t, "audio/wav", res.ContentType)
	assert.Equal(t, 16000, res.SampleRate)
	require.Len(t, res.Audio, 44+6)
	assert.Equal(t, []byte("RIFF"), res.Audio[:4])
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(res.Audio[24:28]))
	assert.True(t, bytes.HasSuffix(res.Audio, []byte{1, 2, 3, 4, 5, 6}))
}

func TestSynthesize_ServerError(t *testing.T) {
	addr, _ := fakePiper(t, func(c net.Conn) {
		_ = writeEvent(c, event{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})

	s := New(config.TTSConfig{Piper: config.PiperConfig{Endpoint: addr}})
	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{})
	assert.ErrorContains(t, err, "voice not found")
}

func TestSynthesize_Validation(t *testing.T) {
	s := New(config.TTSConfig{})
	_, err := s.Synthesize(context.Background(), "  ", tts.SynthesizeOpts{})
	assert.ErrorIs(t, err, tts.ErrEmptyText)

	_, err = s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en"})
	assert.ErrorContains(t, err, "no piper endpoint")
}

func TestSynthesize_PerLanguageEndpointAndVoiceOverride(t *testing.T) {
	s := New(config.TTSConfig{Piper: config.PiperConfig{
		Endpoint:  "fallback:10200",
		Endpoints: map[string]string{"de": "tcp://piper-de:10200"},
		Voices:    map[string]string{"en": "en_GB-alan-low"},
	}})
	assert.Equal(t, "piper-de:10200", s.endpoints["de"])
	assert.Equal(t, "en_GB-alan-low", s.voices["en"])
	assert.Equal(t, "de_DE-thorsten-medium", s.voices["de"])
}

func TestReadEvent_RejectsBadHeader(t *testing.T) {
	_, _, err := readEvent(bufio.NewReader(bytes.NewBufferString("nonsense\n")))
	assert.ErrorContains(t, err, "invalid wyoming header")
}
