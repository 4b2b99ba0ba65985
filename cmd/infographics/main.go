package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/infographics/internal/cli"
	"github.com/matzehuels/infographics/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if stderrors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		report(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}

// report prints err for the user. Invalid input gets a pointer to the
// command help; upstream and configuration errors get their code.
func report(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", errors.UserMessage(err))
	if errors.IsValidation(err) {
		fmt.Fprintln(w, "Run 'infographics <command> --help' for usage.")
		return
	}
	if code := errors.GetCode(err); code != "" {
		fmt.Fprintf(w, "  (%s)\n", code)
	}
}
