package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sardine-ai/provider-registry/bootstrap"
	"github.com/sardine-ai/provider-registry/console"
)

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitRestartShell = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], console.Default())
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out *console.Console) int {
	cmd := newRootCmd(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return exitCode(err, out)
}

func exitCode(err error, out *console.Console) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, bootstrap.ErrRestartShell):
		return exitRestartShell
	default:
		out.Error("Error: %v", err)
		return exitError
	}
}
