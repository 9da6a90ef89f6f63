package cleanup

import (
	"context"
	"errors"
	"time"

	"checkin/internal/logging"
)

// DefaultInterval is how often the background sweep runs.
const DefaultInterval = time.Hour

// Runner drives a Janitor on a fixed interval until its context is canceled.
type Runner struct {
	Janitor  *Janitor
	Interval time.Duration
	Logger   logging.Logger
}

// Run sweeps once immediately, then on every interval tick. It returns nil
// when the context is canceled; sweep errors are logged and the loop keeps
// going.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.Janitor == nil {
		return errors.New("cleanup runner requires janitor")
	}
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := logging.OrNop(r.Logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Janitor.Sweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logger.Error("Scheduled cleanup failed: %v", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("Background cleanup stopped")
			return nil
		case <-ticker.C:
		}
	}
}
