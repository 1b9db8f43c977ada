package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/gibbed/Gibbed.DXM/pkg/texentry"
	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

const version = "1.0.0"

func getBuilderTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and maps the outcome to a process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "💥 panic: %v\n%s", r, debug.Stack())
			code = texentry.ExitPanic
		}
	}()

	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return texentry.ExitSuccess
	}

	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	if errors.Is(err, dxmerrors.ErrUsage) {
		cmd.SetOut(stderr)
		_ = cmd.Usage()
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return texentry.ExitSuccess
	case errors.Is(err, dxmerrors.ErrUsage),
		errors.Is(err, dxmerrors.ErrIdentifierFormat),
		errors.Is(err, dxmerrors.ErrIdentifierRange):
		return texentry.ExitInvalidArgs
	case errors.Is(err, dxmerrors.ErrInvariantViolation),
		errors.Is(err, dxmerrors.ErrPlanOrder),
		errors.Is(err, dxmerrors.ErrFieldOutOfBounds),
		errors.Is(err, dxmerrors.ErrTemplateChecksum),
		errors.Is(err, dxmerrors.ErrUnknownSegment),
		errors.Is(err, dxmerrors.ErrUnknownField),
		errors.Is(err, dxmerrors.ErrDigestMismatch),
		errors.Is(err, dxmerrors.ErrIdentifierMismatch),
		errors.Is(err, dxmerrors.ErrLayoutMismatch),
		errors.Is(err, dxmerrors.ErrEntrySize):
		return texentry.ExitFormatError
	default:
		return texentry.ExitIOError
	}
}
