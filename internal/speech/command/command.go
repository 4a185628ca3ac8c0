// Package command speaks text by running an external TTS program such as
// espeak or say.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Placeholder in Args is replaced with the text to speak. When no argument
// contains it, the text is appended as the last argument.
const Placeholder = "{text}"

// Synthesizer runs Program once per utterance.
type Synthesizer struct {
	program string
	args    []string
}

// New returns a Synthesizer for program and args.
func New(program string, args ...string) (*Synthesizer, error) {
	if strings.TrimSpace(program) == "" {
		return nil, errors.New("speech command: program is empty")
	}
	return &Synthesizer{program: program, args: args}, nil
}

// Args returns the arguments passed for text.
func (s *Synthesizer) Args(text string) []string {
	out := make([]string, 0, len(s.args)+1)
	replaced := false
	for _, a := range s.args {
		if strings.Contains(a, Placeholder) {
			a = strings.ReplaceAll(a, Placeholder, text)
			replaced = true
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, text)
	}
	return out
}

// Speak runs the program and waits for it to exit or ctx to expire.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.program, s.Args(text)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("speech command timeout: %w", ctx.Err())
	}

	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speech command failed: %w, stderr: %s", err, msg)
		}
		return fmt.Errorf("speech command failed: %w", err)
	}
	return nil
}
