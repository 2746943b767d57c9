package piper

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wyoming protocol framing (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt event, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	frame := make([]byte, 0, len(body)+len(payload)+24)
	frame = fmt.Appendf(frame, "%d %d\n", len(body), len(payload))
	frame = append(frame, body...)
	frame = append(frame, '\n')
	frame = append(frame, payload...)

	_, err = w.Write(frame)
	return err
}

func readEvent(r *bufio.Reader) (event, []byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return event{}, nil, fmt.Errorf("reading header: %w", err)
	}

	jsonField, payloadField, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return event{}, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(jsonField)
	if err != nil {
		return event{}, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(payloadField)
	if err != nil {
		return event{}, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	body := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(r, body); err != nil {
		return event{}, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt event
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return event{}, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return event{}, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return evt, payload, nil
}

// intField reads a numeric event field, which JSON decodes as float64.
func intField(data map[string]any, key string, fallback int) int {
	if v, ok := data[key].(float64); ok {
		return int(v)
	}
	return fallback
}

// wavFile wraps raw PCM in a canonical 44-byte RIFF header.
func wavFile(pcm []byte, sampleRate, channels, width int) []byte {
	le := binary.LittleEndian
	out := make([]byte, 0, 44+len(pcm))

	out = append(out, "RIFF"...)
	out = le.AppendUint32(out, uint32(36+len(pcm)))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = le.AppendUint32(out, 16)
	out = le.AppendUint16(out, 1) // PCM
	out = le.AppendUint16(out, uint16(channels))
	out = le.AppendUint32(out, uint32(sampleRate))
	out = le.AppendUint32(out, uint32(sampleRate*channels*width))
	out = le.AppendUint16(out, uint16(channels*width))
	out = le.AppendUint16(out, uint16(width*8))

	out = append(out, "data"...)
	out = le.AppendUint32(out, uint32(len(pcm)))
	return append(out, pcm...)
}
