package main

import (
	"context"
	"log/slog"
	"time"
)

// Switcher drives the remote relay.
type Switcher interface {
	Switch(ctx context.Context, on bool) error
}

// switchHandler turns MQTT switch commands into relay requests. The request
// runs on its own goroutine so the MQTT client is never blocked. A nil sw
// only logs the command.
func switchHandler(ctx context.Context, sw Switcher, timeout time.Duration, logger *slog.Logger) func(on bool) {
	return func(on bool) {
		if sw == nil {
			logger.Info("switch command ignored, no relay configured", slog.Bool("on", on))
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := sw.Switch(ctx, on); err != nil {
				logger.Warn("switch", slog.Bool("on", on), slog.Any("err", err))
				return
			}
			logger.Info("switched", slog.Bool("on", on))
		}()
	}
}
