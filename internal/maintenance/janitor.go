package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/robfig/cron/v3"
)

// runTimeout bounds one cleanup, including one that outlives shutdown.
const runTimeout = 30 * time.Second

type resetCleaner interface {
	ClearExpiredResets(ctx context.Context, cutoff time.Time) (int, error)
}

// Janitor periodically wipes password reset tokens that can no longer be used.
type Janitor struct {
	users    resetCleaner
	schedule cron.Schedule
	now      func() time.Time
	logger   *slog.Logger
}

// NewJanitor parses spec with cron.ParseStandard, so both five-field
// expressions and descriptors like "@every 10m" are accepted.
func NewJanitor(users resetCleaner, spec string, logger *slog.Logger) (*Janitor, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", spec, err)
	}
	return &Janitor{
		users:    users,
		schedule: schedule,
		now:      time.Now,
		logger:   logger.With("component", "janitor"),
	}, nil
}

// Start blocks until ctx is cancelled. A run in progress at cancellation
// is finished, not aborted, before Start returns.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started")

	for {
		next := j.schedule.Next(j.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor shut down")
			return
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)
			j.RunOnce(runCtx)
			cancel()
		}
	}
}

// RunOnce clears every reset token that expired before now.
func (j *Janitor) RunOnce(ctx context.Context) int {
	start := time.Now()
	defer func() { metrics.JanitorRunDuration.Observe(time.Since(start).Seconds()) }()

	cleared, err := j.users.ClearExpiredResets(ctx, j.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "clear expired resets", "error", err)
		return 0
	}
	if cleared > 0 {
		metrics.ResetsClearedTotal.Add(float64(cleared))
		j.logger.InfoContext(ctx, "cleared expired reset tokens", "count", cleared)
	}
	return cleared
}
