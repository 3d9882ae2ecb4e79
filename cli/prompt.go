package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

var (
	ErrEmptyInput    = errors.New("you must enter something")
	ErrNoChoices     = errors.New("nothing to choose from")
	ErrBadAssignment = errors.New("expected key=value")
)

// Prompter runs interactive prompts against the given streams.
type Prompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// NewPrompter returns a Prompter bound to the process terminal.
func NewPrompter() *Prompter {
	return &Prompter{Stdin: os.Stdin, Stdout: os.Stdout}
}

// Confirm asks a yes/no question. An abort counts as "no".
func (p *Prompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.Stdin,
		Stdout:    p.Stdout,
	}

	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// String asks for a non-empty string.
func (p *Prompter) String(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: nonEmpty,
		Stdin:    p.Stdin,
		Stdout:   p.Stdout,
	}

	return prompt.Run()
}

// Assignment asks for a key=value pair.
func (p *Prompter) Assignment(label string) (string, string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			_, _, err := ParseAssignment(s)

			return err
		},
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}

	txt, err := prompt.Run()
	if err != nil {
		return "", "", err
	}

	return ParseAssignment(txt)
}

// ParseAssignment splits "key=value". The key must be non-empty.
func ParseAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)

	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadAssignment, s)
	}

	return key, strings.TrimSpace(value), nil
}

func nonEmpty(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return ErrEmptyInput
	}

	return nil
}
