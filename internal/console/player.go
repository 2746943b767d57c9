package console

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays an audio clip.
type Player interface {
	Play(ctx context.Context, audio []byte, contentType string) error
}

// CommandPlayer pipes the clip to an external program on stdin, for
// example "mpv --no-video -" or "ffplay -nodisp -autoexit -".
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer parses a command line. It returns nil for a blank one.
func NewCommandPlayer(command string) *CommandPlayer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}
}

// Play runs the command and waits for it to exit.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte, _ string) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
