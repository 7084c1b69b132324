package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/moby/sys/reexec"

	"topozoo/internal/cli"
)

func main() {
	// attach re-executes this binary to enter a namespace
	if reexec.Init() {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(os.Stdout, os.Stderr)
	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		c.Logger.Error(err)
		os.Exit(1)
	}
}
