package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// backupRunner is the slice of the backup service the job needs.
type backupRunner interface {
	Backup(ctx context.Context) error
}

// BackupJob uploads database snapshots to remote storage.
type BackupJob struct {
	runner  backupRunner
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates the nightly backup job.
func NewBackupJob(runner backupRunner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		runner:  runner,
		timeout: 30 * time.Minute,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run performs one backup cycle within the job timeout.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.runner.Backup(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}

	j.log.Info().Msg("Backup completed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *BackupJob) Name() string {
	return "backup"
}
