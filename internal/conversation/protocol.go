package conversation

import (
	"errors"
	"strings"

	"github.com/nadzzz/mediai/internal/message"
)

// RecencyWindow is the number of most recent turns sent with each request.
const RecencyWindow = 3

const (
	answerMarker   = "ANSWER:"
	followUpMarker = "FOLLOW-UP:"
)

// ErrUnparseable is returned by ParseReply when the reply does not follow
// the "ANSWER: ... FOLLOW-UP: ..." template.
var ErrUnparseable = errors.New("reply does not contain an ANSWER: section")

// ParsedReply is a model reply split into its two parts. An empty FollowUp
// means the model asked no question.
type ParsedReply struct {
	Answer   string
	FollowUp string
}

// HasFollowUp reports whether the reply carries a follow-up question.
func (p ParsedReply) HasFollowUp() bool { return p.FollowUp != "" }

// BuildRequest returns the message list for one completion call: the
// standing instruction as a system message followed by the last window
// turns of the transcript, oldest first.
func BuildRequest(instruction string, turns []Turn, window int) []message.ChatMessage {
	if window < 0 {
		window = 0
	}
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	msgs := make([]message.ChatMessage, 0, len(turns)+1)
	msgs = append(msgs, message.ChatMessage{Role: message.RoleSystem, Content: instruction})
	for _, t := range turns {
		msgs = append(msgs, message.ChatMessage{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// ParseReply splits a raw reply on the first FOLLOW-UP: marker. Any later
// occurrence of the marker is kept verbatim in the follow-up text.
func ParseReply(raw string) (ParsedReply, error) {
	if !strings.Contains(raw, answerMarker) {
		return ParsedReply{}, ErrUnparseable
	}
	head, tail, _ := strings.Cut(raw, followUpMarker)

	answer := strings.TrimSpace(strings.ReplaceAll(head, answerMarker, ""))
	if answer == "" {
		return ParsedReply{}, ErrUnparseable
	}
	return ParsedReply{
		Answer:   answer,
		FollowUp: strings.TrimSpace(tail),
	}, nil
}

// ReplyTurns returns the assistant turns for a parsed reply: the answer,
// then the follow-up question when there is one. followUp is ignored when
// the reply has no question.
func ReplyTurns(p ParsedReply, answer, followUp Clip) []Turn {
	turns := []Turn{newReplyTurn(p.Answer, KindAnswer, answer)}
	if p.HasFollowUp() {
		turns = append(turns, newReplyTurn(p.FollowUp, KindQuestion, followUp))
	}
	return turns
}
