package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fieldingest/internal/workflow"
)

const maxListedCollisions = 10

// prompter answers folder and overwrite questions on the terminal. With
// assumeYes every question takes its default without reading input.
type prompter struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

var _ workflow.Picker = (*prompter)(nil)

func newPrompter(cmd *cobra.Command, assumeYes bool) *prompter {
	return &prompter{
		in:        bufio.NewReader(cmd.InOrStdin()),
		out:       cmd.ErrOrStderr(),
		assumeYes: assumeYes,
	}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// SelectPath asks for a path, offering defaultPath. An empty answer with no
// default cancels.
func (p *prompter) SelectPath(_ context.Context, kind workflow.PathKind, defaultPath string) (string, error) {
	if p.assumeYes {
		return defaultPath, nil
	}
	question := titleLabel(string(kind))
	if defaultPath != "" {
		question += " [" + defaultPath + "]"
	}
	answer, err := p.ask(question + ": ")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return defaultPath, nil
	}
	return answer, nil
}

// Confirm asks whether existing output files may be overwritten.
func (p *prompter) Confirm(_ context.Context, existing []string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	fmt.Fprintf(p.out, "%d output files already exist:\n", len(existing))
	for i, path := range existing {
		if i == maxListedCollisions {
			fmt.Fprintf(p.out, "  ... and %d more\n", len(existing)-i)
			break
		}
		fmt.Fprintf(p.out, "  %s\n", path)
	}
	answer, err := p.ask("Overwrite them? [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
