package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/warden/pkg/observability"
)

// RetentionRunner periodically applies the retention policy: optionally
// archiving expired entries, then deleting them. Deployments that purge
// through an external batch job simply never start one.
type RetentionRunner struct {
	store    *Store
	policy   RetentionPolicy
	archiver Archiver
	schedule string
	logger   *observability.Logger
	cron     *cron.Cron
}

// NewRetentionRunner creates a runner. schedule is a cron expression; empty
// means daily at 03:00. archiver may be nil when the policy has archiving
// disabled; logger may be nil.
func NewRetentionRunner(store *Store, policy RetentionPolicy, archiver Archiver, schedule string, logger *observability.Logger) (*RetentionRunner, error) {
	if policy.ArchiveEnabled && archiver == nil {
		return nil, fmt.Errorf("retention policy enables archiving but no archiver is configured")
	}
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	return &RetentionRunner{
		store:    store,
		policy:   policy,
		archiver: archiver,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start schedules the retention job. Call Stop to halt it.
func (r *RetentionRunner) Start() error {
	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := r.Run(ctx); err != nil && r.logger != nil {
			r.logger.WithError(err).Error("access log retention job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", r.schedule, err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Stop halts the schedule, waiting for a running job to finish.
func (r *RetentionRunner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Run applies the retention policy once.
func (r *RetentionRunner) Run(ctx context.Context) error {
	if r.policy.ArchiveEnabled {
		batchSize := r.policy.ArchiveBatchSize
		if batchSize <= 0 {
			batchSize = DefaultRetentionPolicy().ArchiveBatchSize
		}
		for {
			batch, err := r.store.ExpiredBatch(ctx, r.policy, batchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				break
			}
			if err := r.archiver.Archive(ctx, batch); err != nil {
				// Do not delete what has not been archived.
				return fmt.Errorf("failed to archive expired entries: %w", err)
			}
			// Delete the archived batch before querying the next one;
			// ExpiredBatch always reads the oldest rows, so leaving them in
			// place would re-archive the same batch forever.
			ids := make([]string, len(batch))
			for i, e := range batch {
				ids[i] = e.ID
			}
			if _, err := r.store.DeleteByIDs(ctx, ids); err != nil {
				return err
			}
			if len(batch) < batchSize {
				break
			}
		}
	}

	removed, err := r.store.Cleanup(ctx, r.policy)
	if err != nil {
		return err
	}
	if r.logger != nil && removed > 0 {
		r.logger.WithField("removed", removed).Info("access log retention applied")
	}
	return nil
}
