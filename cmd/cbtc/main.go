// Command cbtc distributes, consolidates, splits and settles CBTC holdings on
// Canton and serves the ops API over the recorded runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainsafe/canton-cbtc/cmd/cbtc/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
