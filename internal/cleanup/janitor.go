// Package cleanup removes abandoned temporary work updates and their linked
// follow-up sessions once they outlive the retention window.
package cleanup

import (
	"context"
	"errors"
	"time"

	"checkin/internal/logging"
	"checkin/internal/metrics"
	"checkin/internal/store"
)

// DefaultRetention matches the window interns have to finish a follow-up
// before their temporary update is considered abandoned.
const DefaultRetention = 24 * time.Hour

// Janitor sweeps abandoned temporary updates and their sessions.
type Janitor struct {
	Store     store.Store
	Retention time.Duration
	Observer  metrics.Observer
	Logger    logging.Logger
	Now       func() time.Time
}

// Sweep executes a single cleanup pass and reports how many records were
// removed.
func (j *Janitor) Sweep(ctx context.Context) (store.SweepResult, error) {
	if j == nil || j.Store == nil {
		return store.SweepResult{}, errors.New("cleanup janitor requires store")
	}
	retention := j.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := time.Now().UTC()
	if j.Now != nil {
		now = j.Now()
	}

	result, err := j.Store.SweepAbandoned(ctx, now.Add(-retention))
	if err != nil {
		return store.SweepResult{}, err
	}

	logger := logging.OrNop(j.Logger)
	if result.TempUpdates > 0 || result.Sessions > 0 {
		logger.Info("Cleanup removed %d temp updates and %d sessions", result.TempUpdates, result.Sessions)
	} else {
		logger.Info("Cleanup found no abandoned items")
	}
	if j.Observer != nil {
		j.Observer.RecordSweep(result.TempUpdates, result.Sessions)
	}
	return result, nil
}
