// Package runner runs external commands with optional dry-run and verbose
// output that can be copied and pasted into a shell.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/console"
)

var envAssignment = regexp.MustCompile(`^[A-Z_]*=.*$`)

// Options control a single Run.
type Options struct {
	Title   string            // shown in verbose mode, derived from the command when empty
	Env     map[string]string // added to the current environment
	Dir     string            // working directory, current one when empty
	Input   string            // written to stdin
	Capture bool              // collect stdout and stderr into the Result
	Check   bool              // a non-zero exit is an *ExitError
	DryRun  bool              // print the command without running it
	Verbose bool              // print working directory, environment and command
	Quiet   bool              // print nothing and discard output unless captured

	Stdout  io.Writer
	Stderr  io.Writer
	Console *console.Console
}

// Result is the outcome of a command.
type Result struct {
	Cmd      []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError is returned by Run with Check set when the command exits non-zero.
type ExitError struct {
	Cmd      []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %s exited with status %d", Title(e.Cmd), e.ExitCode)
}

// Run executes cmd.
func Run(ctx context.Context, cmd []string, opts Options) (*Result, error) {
	if len(cmd) == 0 {
		return nil, errors.New("empty command")
	}
	out := opts.Console
	if out == nil {
		out = console.Default()
	}
	title := opts.Title
	if title == "" {
		title = Title(cmd)
	}
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}

	printing := (opts.Verbose || opts.DryRun) && !opts.Quiet
	if printing {
		out.Info("Running command: %s", title)
		out.Info("Working directory %s", dir)
		if opts.Input != "" {
			out.Info("Input:")
			out.Println(opts.Input)
		}
		out.Info("%s%s", EnvToPrint(opts.Env), quoteCommand(cmd))
	}
	if opts.DryRun {
		return &Result{Cmd: cmd}, nil
	}

	logrus.WithFields(logrus.Fields{"command": title, "dir": dir}).Debug("running command")
	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	c.Dir = dir
	c.Env = environ(opts.Env)
	if opts.Input != "" {
		c.Stdin = strings.NewReader(opts.Input)
	}
	var stdout, stderr bytes.Buffer
	switch {
	case opts.Capture:
		c.Stdout = &stdout
		c.Stderr = &stderr
	case opts.Quiet:
		c.Stdout = io.Discard
		c.Stderr = io.Discard
	default:
		c.Stdout = writerOr(opts.Stdout, os.Stdout)
		c.Stderr = writerOr(opts.Stderr, os.Stderr)
	}

	err := c.Run()
	result := &Result{Cmd: cmd, Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		return nil, err
	}
	if result.ExitCode == 0 || !opts.Check {
		return result, nil
	}

	if printing {
		dumpOutput(out, result)
	}
	return result, &ExitError{Cmd: cmd, ExitCode: result.ExitCode, Stdout: result.Stdout, Stderr: result.Stderr}
}

func dumpOutput(out *console.Console, r *Result) {
	if r.Stdout != "" {
		out.Info("========================= OUTPUT start ============================")
		out.Println(r.Stdout)
		out.Info("========================= OUTPUT end ==============================")
	}
	if r.Stderr != "" {
		out.Error("========================= STDERR start ============================")
		out.Println(r.Stderr)
		out.Error("========================= STDERR end ==============================")
	}
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

// environ is the current environment with HOME defaulted and env applied.
func environ(env map[string]string) []string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	if _, ok := vars["HOME"]; !ok {
		if home, err := os.UserHomeDir(); err == nil {
			vars["HOME"] = home
		}
	}
	for k, v := range env {
		vars[k] = v
	}
	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Title derives a short title from a command: the program followed by at
// most four of its arguments, skipping flags, empty and absolute path
// arguments, "never" and KEY=VALUE assignments.
func Title(cmd []string) string {
	var parts []string
	for i, arg := range cmd {
		if i > 0 && skipInTitle(arg) {
			continue
		}
		if strings.HasPrefix(arg, "/") {
			arg = arg[strings.LastIndex(arg, "/")+1:]
		}
		parts = append(parts, Quote(arg))
	}
	if len(parts) > 5 {
		parts = parts[:5]
	}
	return "<" + strings.Join(parts, " ") + ">"
}

func skipInTitle(arg string) bool {
	switch {
	case arg == "", arg == "never":
		return true
	case strings.HasPrefix(arg, "-"), strings.HasPrefix(arg, "/"):
		return true
	}
	return envAssignment.MatchString(arg)
}

// EnvToPrint renders env as shell assignments: values equal to the current
// environment first, then the command's own, each group sorted.
func EnvToPrint(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	var system, own []string
	for k, v := range env {
		line := fmt.Sprintf("%s=%q \\\n", k, v)
		if current, ok := os.LookupEnv(k); ok && current == v {
			system = append(system, line)
		} else {
			own = append(own, line)
		}
	}
	sort.Strings(system)
	sort.Strings(own)
	return strings.Join(system, "") + "\\\n" + strings.Join(own, "")
}

func quoteCommand(cmd []string) string {
	quoted := make([]string, len(cmd))
	for i, arg := range cmd {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}

// Quote returns arg quoted for a POSIX shell when it needs to be.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !isSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("@%+=:,./-_", r)
}
