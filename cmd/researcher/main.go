package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shpitdev/entity-research/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError carries the process exit code for a command failure:
// 2 for configuration and usage errors, 1 for run failures.
type exitError struct {
	code   int
	prefix string
	err    error
}

func (e *exitError) Error() string { return e.prefix + ": " + e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configError(err error) error {
	return &exitError{code: 2, prefix: "config error", err: err}
}

func runError(what string, err error) error {
	return &exitError{code: 1, prefix: what + " failed", err: err}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	_, _ = fmt.Fprintf(stderr, "%s\n", util.RedactSecrets(err.Error()))
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Flag parsing, unknown commands and argument validation.
	return 2
}
