// Package app defines the runtime contract of long-running cbtc components
// started by cmd/cbtc.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Runner represents a runnable application component.
// Run blocks until ctx is canceled or the component fails.
type Runner interface {
	Run(ctx context.Context) error
}

// RunUntilSignal runs r until SIGINT or SIGTERM is received.
func RunUntilSignal(ctx context.Context, r Runner) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Run(ctx)
}
