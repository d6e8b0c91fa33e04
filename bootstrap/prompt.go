package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// AssumeYes confirms every question.
type AssumeYes struct{}

func (AssumeYes) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

// FormPrompter asks with an interactive huh form.
type FormPrompter struct{}

func (FormPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	ok := true
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// LinePrompter reads a y/n answer from In. Anything but y or yes, including
// end of input, is a no.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	fmt.Fprintf(p.Out, "%s [y/N] ", question)
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// NewPrompter picks AssumeYes, a huh form when stdin is a terminal, or a
// line reader otherwise.
func NewPrompter(assumeYes bool, in *os.File, out io.Writer) Prompter {
	if assumeYes {
		return AssumeYes{}
	}
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return FormPrompter{}
	}
	return &LinePrompter{In: in, Out: out}
}
