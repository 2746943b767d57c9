// Package dispatch implements the turn pipeline.
//
// The dispatcher receives user input from a presentation transport, appends
// it to the session, builds the completion request from the recent turns,
// parses the reply, voices it, and appends the assistant turns. A failed
// round trip always hands control back to the user: the session returns to
// awaiting input with a notice, and the caller receives a *TurnError.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/mediai/internal/completion"
	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/stt"
	"github.com/nadzzz/mediai/internal/tts"
)

// ErrorKind classifies why a turn failed.
type ErrorKind string

const (
	KindRecognition ErrorKind = "recognition"
	KindCompletion  ErrorKind = "completion"
	KindUnparseable ErrorKind = "unparseable"
	KindSynthesis   ErrorKind = "synthesis"
)

var notices = map[ErrorKind]string{
	KindRecognition: "Sorry, I couldn't understand the recording. Please try again.",
	KindCompletion:  "The assistant could not be reached. Please try again.",
	KindUnparseable: "The assistant's reply was not in the expected format. Please try again.",
	KindSynthesis:   "The reply could not be turned into speech. Please try again.",
}

// TurnError is returned when a stage of the pipeline fails.
type TurnError struct {
	Kind ErrorKind
	Err  error
}

func (e *TurnError) Error() string { return fmt.Sprintf("%s failed: %v", e.Kind, e.Err) }

func (e *TurnError) Unwrap() error { return e.Err }

// Notice is the user-facing message for the failure.
func (e *TurnError) Notice() string { return notices[e.Kind] }

// KindOf returns the ErrorKind of a *TurnError in err's chain, or "" if
// there is none.
func KindOf(err error) ErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// Options tune the pipeline.
type Options struct {
	// Instruction is the standing system instruction sent with every request.
	Instruction string

	// Window is how many recent turns accompany the instruction.
	Window int

	// Language selects the synthesis voice.
	Language string

	// Timeout bounds the completion call.
	Timeout time.Duration
}

// Dispatcher runs turns against one session.
type Dispatcher struct {
	session     *conversation.Session
	completer   completion.Completer
	synthesizer tts.Synthesizer
	transcriber stt.Transcriber
	opts        Options
}

// New creates a Dispatcher. transcriber may be nil, in which case voice
// input is rejected as a recognition failure.
func New(session *conversation.Session, completer completion.Completer, synthesizer tts.Synthesizer, transcriber stt.Transcriber, opts Options) *Dispatcher {
	if opts.Window <= 0 {
		opts.Window = conversation.RecencyWindow
	}
	if opts.Instruction == "" {
		opts.Instruction = conversation.SequentialInstruction
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if transcriber == nil {
		transcriber = stt.Disabled{}
	}
	return &Dispatcher{
		session:     session,
		completer:   completer,
		synthesizer: synthesizer,
		transcriber: transcriber,
		opts:        opts,
	}
}

// Session returns the session the dispatcher drives.
func (d *Dispatcher) Session() *conversation.Session { return d.session }

// Backends names the configured backend of each stage.
func (d *Dispatcher) Backends() map[string]string {
	return map[string]string{
		"completion": d.completer.Name(),
		"tts":        d.synthesizer.Name(),
		"stt":        d.transcriber.Name(),
	}
}

// SubmitText runs one turn for typed input. The text is taken verbatim.
func (d *Dispatcher) SubmitText(ctx context.Context, text string) (conversation.Snapshot, error) {
	return d.run(ctx, conversation.NewUserTurn(text, conversation.KindText))
}

// SubmitVoice transcribes a recording and runs one turn with the result.
// A recognition failure appends nothing and leaves the step unchanged.
func (d *Dispatcher) SubmitVoice(ctx context.Context, audio []byte, contentType string) (conversation.Snapshot, error) {
	logger := slog.With("session_id", d.session.ID())

	if d.session.Step() != conversation.StepAwaitingInput {
		return d.session.Snapshot(), conversation.ErrBusy
	}

	res, err := d.transcriber.Transcribe(ctx, audio, contentType)
	if err != nil {
		te := &TurnError{Kind: KindRecognition, Err: err}
		logger.Warn("turn failed", "kind", te.Kind, "error", err, "audio_bytes", len(audio))
		d.session.Notify(te.Notice())
		return d.session.Snapshot(), te
	}
	logger.Debug("transcription complete", "text_length", len(res.Text), "language", res.Language)

	return d.run(ctx, conversation.NewUserTurn(res.Text, conversation.KindVoice))
}

// Reset discards the transcript and returns the reseeded session.
func (d *Dispatcher) Reset() conversation.Snapshot {
	d.session.Reset()
	slog.Info("session reset", "session_id", d.session.ID())
	return d.session.Snapshot()
}

func (d *Dispatcher) run(ctx context.Context, user conversation.Turn) (conversation.Snapshot, error) {
	start := time.Now()
	logger := slog.With("session_id", d.session.ID(), "input", user.Kind)

	ticket, transcript, err := d.session.Begin(user)
	if err != nil {
		return d.session.Snapshot(), err
	}
	logger.Info("turn started", "turns", len(transcript))

	turns, te := d.process(ctx, transcript)
	if te != nil {
		logger.Error("turn failed", "kind", te.Kind, "error", te.Err, "duration", time.Since(start))
		if ferr := d.session.Fail(ticket, te.Notice()); ferr != nil {
			logger.Info("dropping failed turn", "reason", ferr)
			return d.session.Snapshot(), ferr
		}
		return d.session.Snapshot(), te
	}

	if err := d.session.Complete(ticket, turns...); err != nil {
		logger.Info("dropping completed turn", "reason", err)
		return d.session.Snapshot(), err
	}
	logger.Info("turn complete", "appended", len(turns), "duration", time.Since(start))
	return d.session.Snapshot(), nil
}

// process performs the round trip for a transcript ending in the user turn
// and returns the assistant turns to append. Both clips are synthesized
// before anything is returned, so a failure leaves the transcript untouched.
func (d *Dispatcher) process(ctx context.Context, transcript []conversation.Turn) ([]conversation.Turn, *TurnError) {
	req := conversation.BuildRequest(d.opts.Instruction, transcript, d.opts.Window)

	cctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	raw, err := d.completer.Complete(cctx, req)
	cancel()
	if err != nil {
		return nil, &TurnError{Kind: KindCompletion, Err: err}
	}

	reply, err := conversation.ParseReply(raw)
	if err != nil {
		return nil, &TurnError{Kind: KindUnparseable, Err: fmt.Errorf("%w: %.200q", err, raw)}
	}

	answerClip, te := d.synthesize(ctx, reply.Answer)
	if te != nil {
		return nil, te
	}
	var questionClip conversation.Clip
	if reply.HasFollowUp() {
		if questionClip, te = d.synthesize(ctx, reply.FollowUp); te != nil {
			return nil, te
		}
	}

	return conversation.ReplyTurns(reply, answerClip, questionClip), nil
}

func (d *Dispatcher) synthesize(ctx context.Context, text string) (conversation.Clip, *TurnError) {
	res, err := d.synthesizer.Synthesize(ctx, text, tts.SynthesizeOpts{Language: d.opts.Language})
	if err != nil {
		return conversation.Clip{}, &TurnError{Kind: KindSynthesis, Err: err}
	}
	return conversation.Clip{Audio: res.Audio, ContentType: res.ContentType}, nil
}
