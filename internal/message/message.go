// Package message defines the data types that cross package and process
// boundaries: the chat messages sent to completion backends and the JSON
// views of the conversation served to presentation clients.
package message

import (
	"encoding/base64"
	"time"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the message list sent to a completion backend.
// It carries only what the model sees: audio and display metadata are
// stripped before a turn becomes a ChatMessage.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnView is the presentation form of a conversation turn.
type TurnView struct {
	// ID is the turn's UUID; clients use it to render each turn once.
	ID string `json:"id"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Kind is one of "text", "voice", "answer", "question".
	Kind string `json:"kind"`

	// Autoplay is true only for answer turns.
	Autoplay bool `json:"autoplay"`

	// Audio is the synthesized clip, base64-encoded. Empty for turns
	// without audio.
	Audio string `json:"audio,omitempty"`

	// AudioContentType is the MIME type of Audio (e.g., "audio/mpeg").
	AudioContentType string `json:"audio_content_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SetAudioBytes base64-encodes raw audio into Audio.
func (v *TurnView) SetAudioBytes(audio []byte, contentType string) {
	if len(audio) == 0 {
		return
	}
	v.Audio = base64.StdEncoding.EncodeToString(audio)
	v.AudioContentType = contentType
}

// AudioSrc returns the clip as a data URI usable as an <audio> source, or
// "" when the turn has no audio.
func (v TurnView) AudioSrc() string {
	if v.Audio == "" {
		return ""
	}
	return "data:" + v.AudioContentType + ";base64," + v.Audio
}

// SessionView is the presentation form of the whole conversation.
type SessionView struct {
	ID string `json:"id"`

	// Step is "awaiting_input" or "processing". Input controls are only
	// offered while awaiting input.
	Step string `json:"step"`

	// Notice is the last turn failure surfaced to the user, if any.
	Notice string `json:"notice,omitempty"`

	// Version increases on every change to the session.
	Version uint64 `json:"version"`

	Turns []TurnView `json:"turns"`
}

// SubmitTextRequest is the body of a typed user turn.
type SubmitTextRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is returned by transports when a request fails. Session is
// populated when the failure happened after the turn was accepted.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Kind    string       `json:"kind,omitempty"`
	Session *SessionView `json:"session,omitempty"`
}
