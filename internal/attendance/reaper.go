package attendance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"presentsmart/internal/metrics"
)

// CodePurger deletes codes created before a cutoff.
type CodePurger interface {
	PurgeCodes(ctx context.Context, createdBefore time.Time) (int64, error)
}

// Reaper removes attendance codes older than the retention window on a
// cron schedule. It only bounds storage; validity is decided by IsValid.
type Reaper struct {
	store     CodePurger
	retention time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	cron      *cron.Cron
}

// NewReaper creates a reaper for codes older than retention.
func NewReaper(store CodePurger, retention time.Duration, log *zap.Logger, m *metrics.Metrics) *Reaper {
	return &Reaper{
		store:     store,
		retention: retention,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// PurgeOnce runs a single pass.
func (r *Reaper) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.retention)
	n, err := r.store.PurgeCodes(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	r.metrics.CodesPurged(n)
	if n > 0 {
		r.log.Info("attendance codes purged", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// Start schedules PurgeOnce. Overlapping runs are skipped.
func (r *Reaper) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := r.PurgeOnce(ctx); err != nil {
			r.log.Error("attendance code purge failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	r.cron = c
	c.Start()
	r.log.Info("code reaper started", zap.String("schedule", schedule), zap.Duration("retention", r.retention))
	return nil
}

// Stop halts scheduling and returns a context done when a running pass ends.
func (r *Reaper) Stop() context.Context {
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return r.cron.Stop()
}
