// Command studentperf trains the student performance model and serves the
// prediction form.
//
//	$ studentperf synth -rows 1000 -out notebook/data/stud.csv
//	$ studentperf train -config studentperf.yaml
//	$ studentperf serve
//
// Exit status is 2 when training finished but no model reached the minimum
// r2 score, and 1 for any other failure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func newRootCommand(ctx context.Context) *commander.Command {
	return &commander.Command{
		UsageLine: os.Args[0],
		Short:     "student exam performance training and prediction",
		Subcommands: []*commander.Command{
			ingestCmd(ctx),
			trainCmd(ctx),
			serveCmd(ctx),
			predictCmd(ctx),
			synthCmd(),
		},
		Flag: *flag.NewFlagSet("studentperf", flag.ExitOnError),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	if err := newRootCommand(ctx).Dispatch(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("**err**:"), err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsBusinessRuleViolation(err):
		return 2
	default:
		return 1
	}
}
