package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// signalContext returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal terminates the process. stop releases the handler.
func signalContext(ctx context.Context, logger *zap.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case s := <-sig:
			logger.Warn("Cancelling, send another signal to terminate immediately", zap.Stringer("signal", s))
			signal.Stop(sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sig)
		cancel()
	}
}
