// Package conversation holds the conversation state and the turn-taking
// protocol: how a completion request is built from the transcript, how a
// raw model reply is split into an answer and an optional follow-up
// question, and which turns a parsed reply produces.
//
// The protocol functions are pure. Session is the only stateful type and
// is owned by whoever constructs it; nothing in this package is global.
package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/mediai/internal/message"
)

// Kind records where a turn came from or what it is for. It is used for
// display only.
type Kind string

const (
	KindText     Kind = "text"
	KindVoice    Kind = "voice"
	KindAnswer   Kind = "answer"
	KindQuestion Kind = "question"
)

// Turn is one message of the conversation.
//
// Audio is present if and only if Kind is KindAnswer or KindQuestion, and
// Autoplay is only ever set on answers. The constructors below are the
// only way this package builds turns, which keeps both rules true.
type Turn struct {
	ID        string
	Role      message.Role
	Content   string
	Kind      Kind
	Autoplay  bool
	Audio     []byte
	AudioType string
	CreatedAt time.Time
}

// HasAudio reports whether the turn carries a synthesized clip.
func (t Turn) HasAudio() bool { return len(t.Audio) > 0 }

// NewUserTurn returns a user turn. kind should be KindText or KindVoice.
func NewUserTurn(content string, kind Kind) Turn {
	if kind != KindVoice {
		kind = KindText
	}
	return Turn{
		ID:        uuid.NewString(),
		Role:      message.RoleUser,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// NewGreetingTurn returns the assistant turn a session is seeded with.
func NewGreetingTurn(content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      message.RoleAssistant,
		Content:   content,
		Kind:      KindText,
		CreatedAt: time.Now().UTC(),
	}
}

// Clip is a synthesized audio clip.
type Clip struct {
	Audio       []byte
	ContentType string
}

func newReplyTurn(content string, kind Kind, clip Clip) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      message.RoleAssistant,
		Content:   content,
		Kind:      kind,
		Autoplay:  kind == KindAnswer,
		Audio:     clip.Audio,
		AudioType: clip.ContentType,
		CreatedAt: time.Now().UTC(),
	}
}

// View converts the turn to its presentation form.
func (t Turn) View() message.TurnView {
	v := message.TurnView{
		ID:        t.ID,
		Role:      t.Role,
		Content:   t.Content,
		Kind:      string(t.Kind),
		Autoplay:  t.Autoplay,
		CreatedAt: t.CreatedAt,
	}
	v.SetAudioBytes(t.Audio, t.AudioType)
	return v
}
