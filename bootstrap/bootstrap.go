// Package bootstrap installs the command line tools a development checkout
// needs: uv, then breeze through uv.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/console"
	"github.com/sardine-ai/provider-registry/runner"
)

// ErrRestartShell is returned after a successful install: the new binary is
// only on PATH in a new shell.
var ErrRestartShell = errors.New("tool installed, restart your shell and run the command again")

// Tool is a binary that must be on PATH.
type Tool struct {
	Name    string
	Binary  string
	Install []string
	Hint    string // how to install it by hand

	MinVersion string // optional, an older installed version counts as missing
}

// MissingToolError is returned when the user declines an install.
type MissingToolError struct {
	Tool Tool
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("%s is not installed, install it with: %s", e.Tool.Name, e.Tool.Hint)
}

// DefaultTools are uv and breeze, installed from breezeDir.
func DefaultTools(breezeDir string) []Tool {
	uvInstall := "curl -LsSf https://astral.sh/uv/install.sh | sh"
	breezeInstall := []string{"uv", "tool", "install", "-e", breezeDir}
	return []Tool{
		{
			Name:    "uv",
			Binary:  "uv",
			Install: []string{"sh", "-c", uvInstall},
			Hint:    uvInstall,
		},
		{
			Name:    "breeze",
			Binary:  "breeze",
			Install: breezeInstall,
			Hint:    strings.Join(breezeInstall, " "),
		},
	}
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Bootstrapper checks Tools in order and offers to install the first one
// missing.
type Bootstrapper struct {
	Tools    []Tool
	LookPath func(file string) (string, error)
	Prompter Prompter
	Runner   func(ctx context.Context, cmd []string) error
	Console  *console.Console

	// CheckVersion is called for found tools with a MinVersion.
	CheckVersion func(ctx context.Context, binary, min string) (string, error)
}

// New returns a bootstrapper for the default tools that runs installers
// through the runner package.
func New(breezeDir string, prompter Prompter, out *console.Console) *Bootstrapper {
	return &Bootstrapper{
		Tools:    DefaultTools(breezeDir),
		LookPath: exec.LookPath,
		Prompter: prompter,
		Runner: func(ctx context.Context, cmd []string) error {
			_, err := runner.Run(ctx, cmd, runner.Options{Check: true, Verbose: true, Console: out})
			return err
		},
		Console:      out,
		CheckVersion: runner.CheckMinimumVersion,
	}
}

// Run returns nil when every tool is present. Otherwise it stops at the
// first missing tool: a declined install is a *MissingToolError, a failed
// one is wrapped, and a successful one is ErrRestartShell.
func (b *Bootstrapper) Run(ctx context.Context) error {
	out := b.Console
	if out == nil {
		out = console.Default()
	}
	for _, tool := range b.Tools {
		path, err := b.LookPath(tool.Binary)
		if err == nil {
			logrus.WithFields(logrus.Fields{"tool": tool.Name, "path": path}).Debug("found tool")
			if b.recentEnough(ctx, out, tool) {
				continue
			}
		} else {
			out.Warning("%s is not installed.", tool.Name)
		}
		ok, err := b.Prompter.Confirm(ctx, fmt.Sprintf("Do you want to install %s now?", tool.Name))
		if err != nil {
			return fmt.Errorf("asking to install %s: %w", tool.Name, err)
		}
		if !ok {
			out.Error("%s is required. Install it with:", tool.Name)
			out.Command(tool.Hint)
			return &MissingToolError{Tool: tool}
		}

		out.Info("Installing %s", tool.Name)
		if err := b.Runner(ctx, tool.Install); err != nil {
			return fmt.Errorf("installing %s: %w", tool.Name, err)
		}
		out.Success("%s installed.", tool.Name)
		out.Warning("Restart your shell so that %s is on your PATH, then run this command again.", tool.Name)
		return ErrRestartShell
	}

	names := make([]string, 0, len(b.Tools))
	for _, tool := range b.Tools {
		names = append(names, tool.Name)
	}
	out.Success("All tools are installed: %s", strings.Join(names, ", "))
	return nil
}

// recentEnough reports whether a found tool satisfies its MinVersion. Only
// a version known to be too old fails the check.
func (b *Bootstrapper) recentEnough(ctx context.Context, out *console.Console, tool Tool) bool {
	if tool.MinVersion == "" || b.CheckVersion == nil {
		return true
	}
	version, err := b.CheckVersion(ctx, tool.Binary, tool.MinVersion)
	switch {
	case err == nil:
		out.Success("%s %s is installed (>= %s).", tool.Name, version, tool.MinVersion)
		return true
	case errors.Is(err, runner.ErrVersionTooOld):
		out.Warning("%s %s is older than %s.", tool.Name, version, tool.MinVersion)
		return false
	default:
		logrus.WithError(err).WithField("tool", tool.Name).Warn("could not check version")
		out.Warning("Could not determine the version of %s. You might need to update it.", tool.Name)
		return true
	}
}
