// Package console is the terminal presentation of a conversation.
//
// It reads lines with readline, sends them as typed turns, and prints each
// new turn once. Assistant text is rendered as markdown with glamour. When a
// player command is configured, answer audio is piped to it as soon as the
// answer arrives; follow-up question audio plays on /play.
package console

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"

	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/message"
	"github.com/nadzzz/mediai/internal/transport"
)

const help = `Commands:
  /voice <file>  send a recording (wav, webm, ogg, mp3)
  /play          play the last follow-up question
  /reset         start over
  /help          show this help
  /quit          leave`

// LineReader is the input side of the console. *readline.Instance
// satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// NewReadline returns a LineReader with line editing and history.
func NewReadline(historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          promptStyle.Render("you> "),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
}

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	assistStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	emergency     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).
			Render("If you think you may have a medical emergency, call your local emergency number immediately.")
	footer = dimStyle.Render("MediAI provides general information only and is not a substitute for professional care.")
)

// Console drives a conversation from a terminal.
type Console struct {
	conv   transport.Conversation
	in     LineReader
	out    io.Writer
	player Player
	md     *glamour.TermRenderer

	seen     map[string]bool
	lastClip []byte
	lastType string
}

// New creates a console. player may be nil, in which case audio is not
// played.
func New(conv transport.Conversation, in LineReader, out io.Writer, player Player) (*Console, error) {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Console{
		conv:   conv,
		in:     in,
		out:    out,
		player: player,
		md:     md,
		seen:   make(map[string]bool),
	}, nil
}

// Run prints the conversation and reads turns until /quit, EOF, interrupt
// or ctx cancellation.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, emergency)
	fmt.Fprintln(c.out, footer)
	fmt.Fprintln(c.out, dimStyle.Render("Type /help for commands."))

	view, err := c.conv.Session(ctx)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	// Answers already in the transcript do not autoplay.
	c.render(ctx, view, false)

	for ctx.Err() == nil {
		line, err := c.in.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := c.handle(ctx, line); quit {
			return nil
		}
	}
	return nil
}

// handle runs one input line and reports whether the user asked to leave.
func (c *Console) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(c.out, help)
	case "/reset":
		view, err := c.conv.Reset(ctx)
		if err != nil {
			c.fail(err, view)
			return false
		}
		c.seen = make(map[string]bool)
		c.lastClip = nil
		fmt.Fprintln(c.out, dimStyle.Render("--- new conversation ---"))
		c.render(ctx, view, false)
	case "/play":
		if c.lastClip == nil {
			fmt.Fprintln(c.out, noticeStyle.Render("No follow-up question to play."))
			return false
		}
		c.play(ctx, c.lastClip, c.lastType)
	case "/voice":
		c.submitVoice(ctx, strings.TrimSpace(arg))
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Fprintln(c.out, noticeStyle.Render("Unknown command "+cmd+". Type /help."))
			return false
		}
		view, err := c.conv.SubmitText(ctx, line)
		c.after(ctx, view, err)
	}
	return false
}

func (c *Console) submitVoice(ctx context.Context, path string) {
	if path == "" {
		fmt.Fprintln(c.out, noticeStyle.Render("Usage: /voice <file>"))
		return
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.out, noticeStyle.Render("Cannot read recording: "+err.Error()))
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	view, err := c.conv.SubmitVoice(ctx, audio, contentType)
	c.after(ctx, view, err)
}

func (c *Console) after(ctx context.Context, view message.SessionView, err error) {
	if err != nil {
		c.fail(err, view)
		if view.ID != "" {
			c.render(ctx, view, false)
		}
		return
	}
	c.render(ctx, view, true)
}

func (c *Console) fail(err error, view message.SessionView) {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		fmt.Fprintln(c.out, noticeStyle.Render("Still waiting for the previous reply."))
	case view.Notice != "":
		fmt.Fprintln(c.out, noticeStyle.Render(view.Notice))
	default:
		fmt.Fprintln(c.out, noticeStyle.Render("Error: "+err.Error()))
	}
}

// render prints every turn of view not printed before. live is true when
// the view is the result of the user's own submission.
func (c *Console) render(ctx context.Context, view message.SessionView, live bool) {
	for _, turn := range view.Turns {
		if c.seen[turn.ID] {
			continue
		}
		c.seen[turn.ID] = true
		c.renderTurn(ctx, turn, live)
	}
}

func (c *Console) renderTurn(ctx context.Context, turn message.TurnView, live bool) {
	if turn.Role == message.RoleUser {
		label := "you"
		if turn.Kind == string(conversation.KindVoice) {
			label = "you (spoken)"
		}
		fmt.Fprintln(c.out, userStyle.Render(label+": ")+turn.Content)
		return
	}

	label := assistStyle.Render("MediAI")
	if turn.Kind == string(conversation.KindQuestion) {
		label = questionStyle.Render("MediAI asks")
	}
	fmt.Fprintln(c.out, label)

	body, err := c.md.Render(turn.Content)
	if err != nil {
		body = turn.Content + "\n"
	}
	fmt.Fprint(c.out, body)

	if turn.Audio == "" {
		return
	}
	audio, err := base64.StdEncoding.DecodeString(turn.Audio)
	if err != nil {
		return
	}
	switch {
	case turn.Autoplay && live:
		c.play(ctx, audio, turn.AudioContentType)
	case turn.Kind == string(conversation.KindQuestion):
		c.lastClip, c.lastType = audio, turn.AudioContentType
		if c.player != nil {
			fmt.Fprintln(c.out, dimStyle.Render("(/play to hear the question)"))
		}
	}
}

func (c *Console) play(ctx context.Context, audio []byte, contentType string) {
	if c.player == nil {
		return
	}
	if err := c.player.Play(ctx, audio, contentType); err != nil {
		fmt.Fprintln(c.out, noticeStyle.Render("Playback failed: "+err.Error()))
	}
}
