// Package scheduler owns the wall-clock tick of a running session.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidInterval = errors.New("scheduler: interval must be at least one second")

// Scheduler runs one job on a fixed interval. Overlapping runs are skipped,
// so a slow job never stacks ticks.
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
}

// New registers job to run every interval. cron's @every has one-second
// resolution, hence the lower bound.
func New(interval time.Duration, job func()) (*Scheduler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	logger := slogLogger{}
	// Recover must sit inside SkipIfStillRunning: the skip wrapper returns its
	// run token only when the job returns normally.
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
	)
	if _, err := c.AddFunc("@every "+interval.String(), job); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, interval: interval}, nil
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "interval", s.interval.String())
}

// Stop halts the schedule and waits for a running job to finish, or for ctx
// to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slogLogger adapts cron's logger to the process slog default.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
