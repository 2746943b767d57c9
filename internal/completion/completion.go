// Package completion defines the interface for chat-completion backends.
//
// A Completer sends one message list to a hosted model and returns the text
// of the first completion. MediAI ships with four backends: Groq (the
// default, an OpenAI-compatible endpoint spoken over plain HTTP), OpenAI,
// Anthropic and Gemini.
package completion

import (
	"context"

	"github.com/nadzzz/mediai/internal/message"
)

// Completer is the interface for chat-completion backends.
type Completer interface {
	// Name returns the backend identifier (e.g., "groq", "openai").
	Name() string

	// Complete sends the messages in one non-streaming request and returns
	// the text of the first completion. Network errors, non-2xx statuses,
	// malformed bodies, empty replies and deadline expiry are all errors.
	// Implementations do not retry.
	Complete(ctx context.Context, messages []message.ChatMessage) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Params are the sampling parameters shared by every backend.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// SplitSystem separates system messages from the conversation for backends
// that take the instruction as a dedicated field. Multiple system messages
// are joined with a blank line.
func SplitSystem(messages []message.ChatMessage) (string, []message.ChatMessage) {
	var system string
	rest := make([]message.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == message.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// Alternate reshapes a system-free history for backends that require the
// conversation to open with a user message and alternate roles. Leading
// assistant messages such as the greeting are dropped, and consecutive
// messages of the same role are joined with a blank line.
func Alternate(messages []message.ChatMessage) []message.ChatMessage {
	out := make([]message.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if len(out) == 0 && m.Role == message.RoleAssistant {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}
