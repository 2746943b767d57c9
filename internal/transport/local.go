package transport

import (
	"context"

	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/dispatch"
	"github.com/nadzzz/mediai/internal/message"
)

// Local serves a Conversation from an in-process dispatcher.
type Local struct {
	d *dispatch.Dispatcher
}

// NewLocal wraps a dispatcher.
func NewLocal(d *dispatch.Dispatcher) *Local {
	return &Local{d: d}
}

// Session returns the current view.
func (l *Local) Session(context.Context) (message.SessionView, error) {
	return l.d.Session().Snapshot().View(), nil
}

// SubmitText runs one turn for typed input.
func (l *Local) SubmitText(ctx context.Context, text string) (message.SessionView, error) {
	snap, err := l.d.SubmitText(ctx, text)
	return snap.View(), err
}

// SubmitVoice runs one turn for a recording.
func (l *Local) SubmitVoice(ctx context.Context, audio []byte, contentType string) (message.SessionView, error) {
	snap, err := l.d.SubmitVoice(ctx, audio, contentType)
	return snap.View(), err
}

// Reset discards the transcript.
func (l *Local) Reset(context.Context) (message.SessionView, error) {
	return l.d.Reset().View(), nil
}

// Watch relays session snapshots as views until ctx is done.
func (l *Local) Watch(ctx context.Context) (<-chan message.SessionView, error) {
	snaps, cancel := l.d.Session().Subscribe()
	out := make(chan message.SessionView, 1)

	go func() {
		defer close(out)
		defer cancel()
		for {
			var snap conversation.Snapshot
			select {
			case <-ctx.Done():
				return
			case s, ok := <-snaps:
				if !ok {
					return
				}
				snap = s
			}
			// Keep only the newest view when the reader lags.
			select {
			case <-out:
			default:
			}
			select {
			case out <- snap.View():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
