package conversation

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/nadzzz/mediai/internal/message"
)

// Step gates whether the session accepts new user input.
type Step string

const (
	StepAwaitingInput Step = "awaiting_input"
	StepProcessing    Step = "processing"
)

var (
	// ErrBusy is returned by Begin while a reply is still pending.
	ErrBusy = errors.New("conversation: a reply is still pending")

	// ErrStale is returned when a ticket outlived a Reset.
	ErrStale = errors.New("conversation: session was reset while the turn was in flight")

	// ErrNotProcessing is returned by Complete and Fail when no turn is pending.
	ErrNotProcessing = errors.New("conversation: no turn is pending")
)

// Ticket identifies the in-flight turn started by Begin.
type Ticket struct {
	generation uint64
}

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	ID      string
	Step    Step
	Notice  string
	Version uint64
	Turns   []Turn
}

// View converts the snapshot to its presentation form.
func (s Snapshot) View() message.SessionView {
	turns := make([]message.TurnView, 0, len(s.Turns))
	for _, t := range s.Turns {
		turns = append(turns, t.View())
	}
	return message.SessionView{
		ID:      s.ID,
		Step:    string(s.Step),
		Notice:  s.Notice,
		Version: s.Version,
		Turns:   turns,
	}
}

// Session is a single conversation: its transcript and its step flag.
//
// All mutations go through Begin, Complete, Fail and Reset. Every mutation
// publishes a Snapshot to subscribers.
type Session struct {
	mu         sync.Mutex
	id         string
	greeting   string
	turns      []Turn
	step       Step
	notice     string
	version    uint64
	generation uint64
	subs       map[int]chan Snapshot
	nextSub    int
}

// NewSession returns a session seeded with a single assistant greeting turn
// and ready for input.
func NewSession(greeting string) *Session {
	s := &Session{
		id:       uuid.NewString(),
		greeting: greeting,
		subs:     make(map[int]chan Snapshot),
	}
	s.seedLocked()
	return s
}

func (s *Session) seedLocked() {
	s.turns = []Turn{NewGreetingTurn(s.greeting)}
	s.step = StepAwaitingInput
	s.notice = ""
	s.version++
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:      s.id,
		Step:    s.step,
		Notice:  s.notice,
		Version: s.version,
		Turns:   append([]Turn(nil), s.turns...),
	}
}

// Begin appends a user turn and moves the session to StepProcessing.
// It returns the transcript the request must be built from.
func (s *Session) Begin(user Turn) (Ticket, []Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepAwaitingInput {
		return Ticket{}, nil, ErrBusy
	}
	s.turns = append(s.turns, user)
	s.step = StepProcessing
	s.notice = ""
	s.version++
	s.publishLocked()
	return Ticket{generation: s.generation}, append([]Turn(nil), s.turns...), nil
}

// Complete appends the assistant turns of a successful reply, clears any
// notice and returns the session to StepAwaitingInput.
func (s *Session) Complete(t Ticket, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(t); err != nil {
		return err
	}
	s.turns = append(s.turns, turns...)
	s.step = StepAwaitingInput
	s.notice = ""
	s.version++
	s.publishLocked()
	return nil
}

// Fail records a turn failure: no turns are appended, the notice is set and
// the session returns to StepAwaitingInput so the user can try again.
func (s *Session) Fail(t Ticket, notice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(t); err != nil {
		return err
	}
	s.step = StepAwaitingInput
	s.notice = notice
	s.version++
	s.publishLocked()
	return nil
}

// Notify surfaces a notice without changing the step. It is used for
// failures that happen before a turn is accepted.
func (s *Session) Notify(notice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = notice
	s.version++
	s.publishLocked()
}

// Reset discards the transcript and reseeds the greeting. A turn in flight
// at the time of the reset is dropped when it completes.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.seedLocked()
	s.publishLocked()
}

func (s *Session) checkLocked(t Ticket) error {
	if t.generation != s.generation {
		return ErrStale
	}
	if s.step != StepProcessing {
		return ErrNotProcessing
	}
	return nil
}

// Subscribe returns a channel that receives the latest snapshot after each
// change, starting with the current one. Slow readers only ever see the
// most recent snapshot. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	ch <- s.snapshotLocked()
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
