// Package main provides the leapstore command.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/leapstack-labs/leapstore/internal/cli"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit status: 1 on any
// error, including usage errors.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cli.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
