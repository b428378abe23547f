// Command meetingsweep marks scheduled meetings whose end time has passed as
// completed. It runs once, or every -interval until interrupted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/meeting-booking/internal/bootstrap"
	"github.com/example/meeting-booking/internal/config"
	"github.com/example/meeting-booking/internal/logging"
)

type completer interface {
	CompleteEndedMeetings(ctx context.Context) (int, error)
}

func main() {
	interval := flag.Duration("interval", 0, "repeat the sweep at this interval; 0 runs once")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel).With("component", "meetingsweep")

	rt, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	err = sweep(ctx, rt.Meetings, *interval, logger)
	if cerr := rt.Close(); cerr != nil {
		logger.Error("failed to release resources", "error", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// sweep completes ended meetings once, then every interval when it is
// positive. Context cancellation ends a repeating sweep cleanly.
func sweep(ctx context.Context, meetings completer, interval time.Duration, logger *slog.Logger) error {
	if err := sweepOnce(ctx, meetings, logger); err != nil && interval <= 0 {
		return err
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Failures are retried on the next tick.
			_ = sweepOnce(ctx, meetings, logger)
		}
	}
}

func sweepOnce(ctx context.Context, meetings completer, logger *slog.Logger) error {
	completed, err := meetings.CompleteEndedMeetings(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "sweep failed", "error", err, "completed", completed)
		return err
	}
	logger.InfoContext(ctx, "sweep finished", "completed", completed)
	return nil
}
