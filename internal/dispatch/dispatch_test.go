package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/message"
	"github.com/nadzzz/mediai/internal/stt"
	"github.com/nadzzz/mediai/internal/tts"
)

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	block    chan struct{} // when set, Complete waits for it or ctx
	started  chan struct{}
	requests [][]message.ChatMessage
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, msgs []message.ChatMessage) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, msgs)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeCompleter) Close() error { return nil }

type fakeSynth struct {
	failOn int // 1-based call number that fails; 0 never fails
	calls  []string
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	f.calls = append(f.calls, text)
	if len(f.calls) == f.failOn {
		return nil, errors.New("tts backend down")
	}
	return &tts.SynthesizeResult{Audio: []byte("mp3:" + text), ContentType: "audio/mpeg"}, nil
}

func (f *fakeSynth) Close() error { return nil }

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Name() string { return "fake" }

func (f fakeTranscriber) Transcribe(context.Context, []byte, string) (*stt.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stt.Result{Text: f.text}, nil
}

func (f fakeTranscriber) Close() error { return nil }

// gatedTranscriber signals when transcription starts and fails once
// release is closed.
type gatedTranscriber struct {
	started chan struct{}
	release chan struct{}
}

func (g gatedTranscriber) Name() string { return "gated" }

func (g gatedTranscriber) Transcribe(context.Context, []byte, string) (*stt.Result, error) {
	close(g.started)
	<-g.release
	return nil, stt.ErrNoSpeech
}

func (g gatedTranscriber) Close() error { return nil }

const headacheReply = "ANSWER: Try resting and hydrating. FOLLOW-UP: How long have you had this headache?"

func newDispatcher(c *fakeCompleter, s *fakeSynth, tr stt.Transcriber) *Dispatcher {
	return New(conversation.NewSession(conversation.Greeting), c, s, tr, Options{Timeout: time.Second})
}

func TestSubmitText_AnswerAndFollowUp(t *testing.T) {
	synth := &fakeSynth{}
	d := newDispatcher(&fakeCompleter{reply: headacheReply}, synth, nil)

	require.Equal(t, conversation.StepAwaitingInput, d.Session().Step())
	require.Len(t, d.Session().Turns(), 1)

	snap, err := d.SubmitText(context.Background(), "I have a headache")
	require.NoError(t, err)

	require.Len(t, snap.Turns, 4)
	assert.Equal(t, conversation.StepAwaitingInput, snap.Step)
	assert.Empty(t, snap.Notice)

	user, answer, question := snap.Turns[1], snap.Turns[2], snap.Turns[3]
	assert.Equal(t, message.RoleUser, user.Role)
	assert.Equal(t, conversation.KindText, user.Kind)
	assert.Equal(t, "I have a headache", user.Content)

	assert.Equal(t, conversation.KindAnswer, answer.Kind)
	assert.True(t, answer.Autoplay)
	assert.Equal(t, "Try resting and hydrating.", answer.Content)
	assert.Equal(t, []byte("mp3:Try resting and hydrating."), answer.Audio)

	assert.Equal(t, conversation.KindQuestion, question.Kind)
	assert.False(t, question.Autoplay)
	assert.Equal(t, "How long have you had this headache?", question.Content)
	assert.True(t, question.HasAudio())

	assert.Equal(t, []string{"Try resting and hydrating.", "How long have you had this headache?"}, synth.calls)
}

func TestSubmitText_AnswerOnly(t *testing.T) {
	d := newDispatcher(&fakeCompleter{reply: "ANSWER: Drink water."}, &fakeSynth{}, nil)

	snap, err := d.SubmitText(context.Background(), "I feel dizzy")
	require.NoError(t, err)
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, conversation.KindAnswer, snap.Turns[2].Kind)
}

func TestSubmitText_RequestCarriesInstructionAndRecentTurns(t *testing.T) {
	c := &fakeCompleter{reply: "ANSWER: ok."}
	d := newDispatcher(c, &fakeSynth{}, nil)

	_, err := d.SubmitText(context.Background(), "first")
	require.NoError(t, err)
	_, err = d.SubmitText(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, c.requests, 2)
	last := c.requests[1]
	require.Len(t, last, 4)
	assert.Equal(t, message.ChatMessage{Role: message.RoleSystem, Content: conversation.SequentialInstruction}, last[0])
	assert.Equal(t, "first", last[1].Content)
	assert.Equal(t, "ok.", last[2].Content)
	assert.Equal(t, "second", last[3].Content)
}

// A failed round trip returns the session to awaiting input with a notice.
// This is a deliberate deviation: previously a failure left the step at
// processing and the user could not submit again without a reset.
func TestSubmitText_CompletionTimeoutRecoversToAwaitingInput(t *testing.T) {
	c := &fakeCompleter{block: make(chan struct{})}
	d := New(conversation.NewSession(conversation.Greeting), c, &fakeSynth{}, nil, Options{Timeout: 20 * time.Millisecond})

	snap, err := d.SubmitText(context.Background(), "I have a headache")
	require.Error(t, err)
	assert.Equal(t, KindCompletion, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.Len(t, snap.Turns, 2, "no assistant turns appended")
	assert.Equal(t, message.RoleUser, snap.Turns[1].Role)
	assert.Equal(t, notices[KindCompletion], snap.Notice)
	assert.Equal(t, conversation.StepAwaitingInput, snap.Step)

	c.block = nil
	c.reply = "ANSWER: Rest."
	_, err = d.SubmitText(context.Background(), "again")
	require.NoError(t, err)
	assert.Empty(t, d.Session().Snapshot().Notice)
}

func TestSubmitText_Unparseable(t *testing.T) {
	synth := &fakeSynth{}
	d := newDispatcher(&fakeCompleter{reply: "Try resting."}, synth, nil)

	snap, err := d.SubmitText(context.Background(), "hi")
	assert.Equal(t, KindUnparseable, KindOf(err))
	assert.ErrorIs(t, err, conversation.ErrUnparseable)
	assert.Len(t, snap.Turns, 2)
	assert.Equal(t, conversation.StepAwaitingInput, snap.Step)
	assert.Empty(t, synth.calls)
}

func TestSubmitText_FollowUpSynthesisFailureAppendsNothing(t *testing.T) {
	d := newDispatcher(&fakeCompleter{reply: headacheReply}, &fakeSynth{failOn: 2}, nil)

	snap, err := d.SubmitText(context.Background(), "I have a headache")
	assert.Equal(t, KindSynthesis, KindOf(err))
	assert.Len(t, snap.Turns, 2)
	assert.Equal(t, notices[KindSynthesis], snap.Notice)
	assert.Equal(t, conversation.StepAwaitingInput, snap.Step)
}

func TestSubmitText_BusyWhileProcessing(t *testing.T) {
	c := &fakeCompleter{reply: "ANSWER: Rest.", block: make(chan struct{}), started: make(chan struct{})}
	d := newDispatcher(c, &fakeSynth{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := d.SubmitText(context.Background(), "first")
		done <- err
	}()
	<-c.started

	snap, err := d.SubmitText(context.Background(), "second")
	assert.ErrorIs(t, err, conversation.ErrBusy)
	assert.Equal(t, conversation.StepProcessing, snap.Step)

	_, err = d.SubmitVoice(context.Background(), []byte("x"), "audio/wav")
	assert.ErrorIs(t, err, conversation.ErrBusy)

	close(c.block)
	require.NoError(t, <-done)
	assert.Len(t, d.Session().Turns(), 3)
}

func TestReset_DropsInFlightTurn(t *testing.T) {
	c := &fakeCompleter{reply: "ANSWER: Rest.", block: make(chan struct{}), started: make(chan struct{})}
	d := newDispatcher(c, &fakeSynth{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := d.SubmitText(context.Background(), "first")
		done <- err
	}()
	<-c.started

	snap := d.Reset()
	assert.Len(t, snap.Turns, 1)
	close(c.block)

	assert.ErrorIs(t, <-done, conversation.ErrStale)
	assert.Len(t, d.Session().Turns(), 1)
	assert.Equal(t, conversation.StepAwaitingInput, d.Session().Step())
}

func TestSubmitVoice(t *testing.T) {
	d := newDispatcher(&fakeCompleter{reply: "ANSWER: Ice it."}, &fakeSynth{}, fakeTranscriber{text: "my ankle is swollen"})

	snap, err := d.SubmitVoice(context.Background(), []byte("webm"), "audio/webm")
	require.NoError(t, err)
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, conversation.KindVoice, snap.Turns[1].Kind)
	assert.Equal(t, "my ankle is swollen", snap.Turns[1].Content)
	assert.False(t, snap.Turns[1].HasAudio())
}

func TestSubmitVoice_RecognitionFailure(t *testing.T) {
	for _, tr := range []stt.Transcriber{
		fakeTranscriber{err: stt.ErrNoSpeech},
		fakeTranscriber{err: fmt.Errorf("whisper: %w", errors.New("connection refused"))},
		nil,
	} {
		c := &fakeCompleter{reply: "ANSWER: x"}
		d := newDispatcher(c, &fakeSynth{}, tr)

		snap, err := d.SubmitVoice(context.Background(), []byte("webm"), "audio/webm")
		assert.Equal(t, KindRecognition, KindOf(err))
		assert.Len(t, snap.Turns, 1)
		assert.Equal(t, conversation.StepAwaitingInput, snap.Step)
		assert.Equal(t, notices[KindRecognition], snap.Notice)
		assert.Empty(t, c.requests)
	}
}

func TestSubmitVoice_RecognitionFailureDuringTextTurnDoesNotOutliveReply(t *testing.T) {
	tr := gatedTranscriber{started: make(chan struct{}), release: make(chan struct{})}
	c := &fakeCompleter{reply: "ANSWER: Rest.", block: make(chan struct{}), started: make(chan struct{})}
	d := newDispatcher(c, &fakeSynth{}, tr)

	voiceDone := make(chan error, 1)
	go func() {
		_, err := d.SubmitVoice(context.Background(), []byte("webm"), "audio/webm")
		voiceDone <- err
	}()
	<-tr.started

	textDone := make(chan error, 1)
	go func() {
		_, err := d.SubmitText(context.Background(), "I have a headache")
		textDone <- err
	}()
	<-c.started

	close(tr.release)
	assert.Equal(t, KindRecognition, KindOf(<-voiceDone))
	assert.Equal(t, notices[KindRecognition], d.Session().Snapshot().Notice)

	close(c.block)
	require.NoError(t, <-textDone)

	snap := d.Session().Snapshot()
	assert.Equal(t, conversation.StepAwaitingInput, snap.Step)
	assert.Len(t, snap.Turns, 3)
	assert.Empty(t, snap.Notice)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, ErrorKind(""), KindOf(conversation.ErrBusy))
	wrapped := fmt.Errorf("http: %w", &TurnError{Kind: KindSynthesis, Err: errors.New("x")})
	assert.Equal(t, KindSynthesis, KindOf(wrapped))
}

func TestBackends(t *testing.T) {
	d := newDispatcher(&fakeCompleter{}, &fakeSynth{}, nil)
	assert.Equal(t, map[string]string{"completion": "fake", "tts": "fake", "stt": "none"}, d.Backends())
}
