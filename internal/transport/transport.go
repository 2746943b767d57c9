// Package transport defines the interface for pluggable presentation
// transports.
//
// Each transport (HTTP/WebSocket, gRPC) exposes the same Conversation
// surface to its clients. Transports don't care whether the conversation
// runs in-process or behind another server; they only work with the
// Conversation contract.
package transport

import (
	"context"

	"github.com/nadzzz/mediai/internal/message"
)

// Conversation is the surface a presentation layer drives. Every method
// returns the session view after the operation, including on failure, so
// the caller can render the notice that explains it.
type Conversation interface {
	// Session returns the current view.
	Session(ctx context.Context) (message.SessionView, error)

	// SubmitText runs one turn for typed input.
	SubmitText(ctx context.Context, text string) (message.SessionView, error)

	// SubmitVoice transcribes a recording and runs one turn with the result.
	SubmitVoice(ctx context.Context, audio []byte, contentType string) (message.SessionView, error)

	// Reset discards the transcript.
	Reset(ctx context.Context) (message.SessionView, error)

	// Watch streams a view after every change, starting with the current
	// one, until ctx is cancelled. Slow readers only see the latest view.
	Watch(ctx context.Context) (<-chan message.SessionView, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts serving the conversation. It blocks until the context
	// is cancelled.
	Listen(ctx context.Context, conv Conversation) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
