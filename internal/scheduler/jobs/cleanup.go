package jobs

import (
	"context"
	"time"

	"github.com/wonny/kassandra/pkg/logger"
)

// Pruner deletes exported files older than a cutoff
type Pruner interface {
	Prune(cutoff time.Time) (int, error)
}

// ExportCleanupJob removes stale CSV exports from the output directory
type ExportCleanupJob struct {
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// NewExportCleanupJob creates a new export cleanup job
func NewExportCleanupJob(pruner Pruner, retention time.Duration, log *logger.Logger) *ExportCleanupJob {
	return &ExportCleanupJob{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *ExportCleanupJob) Name() string {
	return "export_cleanup"
}

// Schedule returns the cron schedule (daily at 03:00)
func (j *ExportCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the cleanup
func (j *ExportCleanupJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if j.retention <= 0 {
		j.logger.Debug("Export retention disabled, skipping cleanup")
		return nil
	}

	count, err := j.pruner.Prune(j.now().Add(-j.retention))
	if err != nil {
		return err
	}
	if count > 0 {
		j.logger.WithField("removed", count).Info("Export cleanup completed")
	}
	return nil
}
