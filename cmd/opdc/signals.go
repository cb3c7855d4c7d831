package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// CancelOnSigintSigterm returns a context that is cancelled on reception of a SIGINT or SIGTERM signal.
func CancelOnSigintSigterm(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(ch)

		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
