package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sardine-ai/provider-registry/console"
	"github.com/sardine-ai/provider-registry/runner"
)

type fakePrompter struct {
	answer    bool
	err       error
	questions []string
}

func (f *fakePrompter) Confirm(_ context.Context, question string) (bool, error) {
	f.questions = append(f.questions, question)
	return f.answer, f.err
}

type fixture struct {
	b        *Bootstrapper
	prompter *fakePrompter
	ran      [][]string
	out      *bytes.Buffer
}

func newFixture(installed map[string]bool, answer bool, installErr error) *fixture {
	f := &fixture{prompter: &fakePrompter{answer: answer}, out: &bytes.Buffer{}}
	out := console.New(f.out)
	out.Plain = true
	f.b = &Bootstrapper{
		Tools: DefaultTools("./dev/breeze"),
		LookPath: func(file string) (string, error) {
			if installed[file] {
				return "/usr/local/bin/" + file, nil
			}
			return "", exec.ErrNotFound
		},
		Prompter: f.prompter,
		Runner: func(_ context.Context, cmd []string) error {
			f.ran = append(f.ran, cmd)
			return installErr
		},
		Console: out,
	}
	return f
}

func TestAllToolsPresent(t *testing.T) {
	f := newFixture(map[string]bool{"uv": true, "breeze": true}, false, nil)
	require.NoError(t, f.b.Run(context.Background()))
	assert.Empty(t, f.prompter.questions)
	assert.Empty(t, f.ran)
	assert.Contains(t, f.out.String(), "All tools are installed: uv, breeze")
}

func TestInstallFirstMissingTool(t *testing.T) {
	f := newFixture(map[string]bool{}, true, nil)
	err := f.b.Run(context.Background())
	assert.ErrorIs(t, err, ErrRestartShell)
	// breeze is not checked until uv is on PATH
	assert.Equal(t, []string{"Do you want to install uv now?"}, f.prompter.questions)
	require.Len(t, f.ran, 1)
	assert.Equal(t, []string{"sh", "-c", "curl -LsSf https://astral.sh/uv/install.sh | sh"}, f.ran[0])
	assert.Contains(t, f.out.String(), "Restart your shell")
}

func TestInstallBreeze(t *testing.T) {
	f := newFixture(map[string]bool{"uv": true}, true, nil)
	assert.ErrorIs(t, f.b.Run(context.Background()), ErrRestartShell)
	assert.Equal(t, [][]string{{"uv", "tool", "install", "-e", "./dev/breeze"}}, f.ran)
}

func TestDeclineInstall(t *testing.T) {
	f := newFixture(map[string]bool{"uv": true}, false, nil)
	err := f.b.Run(context.Background())
	var missing *MissingToolError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "breeze", missing.Tool.Name)
	assert.Empty(t, f.ran)
	assert.Contains(t, f.out.String(), "uv tool install -e ./dev/breeze")
}

func TestInstallFails(t *testing.T) {
	boom := errors.New("boom")
	f := newFixture(map[string]bool{}, true, boom)
	err := f.b.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrRestartShell)
	assert.Contains(t, err.Error(), "installing uv")
}

func TestPromptError(t *testing.T) {
	f := newFixture(map[string]bool{}, false, nil)
	f.prompter.err = context.Canceled
	assert.ErrorIs(t, f.b.Run(context.Background()), context.Canceled)
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := &LinePrompter{In: strings.NewReader("y\nno\nYES\n"), Out: &out}
	ctx := context.Background()

	for _, want := range []bool{true, false, true, false} {
		got, err := p.Confirm(ctx, "Install?")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, strings.Repeat("Install? [y/N] ", 4), out.String())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := p.Confirm(cancelled, "Install?")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPrompter(t *testing.T) {
	assert.IsType(t, AssumeYes{}, NewPrompter(true, os.Stdin, os.Stdout))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.IsType(t, &LinePrompter{}, NewPrompter(false, r, os.Stdout))
}

func TestMinVersion(t *testing.T) {
	f := newFixture(map[string]bool{"uv": true, "breeze": true}, true, nil)
	f.b.Tools[0].MinVersion = "0.5.0"
	f.b.CheckVersion = func(_ context.Context, binary, min string) (string, error) {
		assert.Equal(t, "uv", binary)
		return "0.4.0", runner.ErrVersionTooOld
	}
	assert.ErrorIs(t, f.b.Run(context.Background()), ErrRestartShell)
	assert.Equal(t, []string{"Do you want to install uv now?"}, f.prompter.questions)
	assert.Contains(t, f.out.String(), "uv 0.4.0 is older than 0.5.0")
}

func TestMinVersionUnknown(t *testing.T) {
	f := newFixture(map[string]bool{"uv": true, "breeze": true}, true, nil)
	f.b.Tools[0].MinVersion = "0.5.0"
	f.b.CheckVersion = func(context.Context, string, string) (string, error) {
		return "", runner.ErrUnknownVersion
	}
	require.NoError(t, f.b.Run(context.Background()))
	assert.Empty(t, f.ran)
	assert.Contains(t, f.out.String(), "Could not determine the version of uv")
}
