// Package console prints styled messages for the provctl commands.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorInfo    = lipgloss.Color("#20B9B4")
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles are the message styles.
var Styles = struct {
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Command lipgloss.Style
}{
	Info:    lipgloss.NewStyle().Foreground(ColorInfo),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Command: lipgloss.NewStyle().Bold(true),
}

// Console writes styled lines to Out. It is safe for concurrent use.
type Console struct {
	Out   io.Writer
	Plain bool // no styling, for tests and pipes

	mu sync.Mutex
}

// New returns a console writing to w.
func New(w io.Writer) *Console {
	return &Console{Out: w}
}

var std = New(os.Stdout)

// Default is the console writing to stdout.
func Default() *Console {
	return std
}

func (c *Console) print(style lipgloss.Style, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !c.Plain {
		msg = style.Render(msg)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, msg)
}

func (c *Console) Info(format string, args ...interface{}) {
	c.print(Styles.Info, format, args...)
}

func (c *Console) Success(format string, args ...interface{}) {
	c.print(Styles.Success, format, args...)
}

func (c *Console) Warning(format string, args ...interface{}) {
	c.print(Styles.Warning, format, args...)
}

func (c *Console) Error(format string, args ...interface{}) {
	c.print(Styles.Error, format, args...)
}

func (c *Console) Muted(format string, args ...interface{}) {
	c.print(Styles.Muted, format, args...)
}

// Command prints a shell command so that it can be copied and run.
func (c *Console) Command(cmd string) {
	c.print(Styles.Command, "%s", cmd)
}

// Println writes text without styling.
func (c *Console) Println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, text)
}
