package scheduler

import (
	"github.com/rs/zerolog"
)

// expiredDeleter is the slice of the cache repository the job needs.
type expiredDeleter interface {
	DeleteExpired() (int64, error)
}

// CacheCleanupJob removes expired calculation cache entries.
type CacheCleanupJob struct {
	repo expiredDeleter
	log  zerolog.Logger
}

// NewCacheCleanupJob creates the daily cache cleanup job.
func NewCacheCleanupJob(repo expiredDeleter, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run deletes all expired cache rows.
func (j *CacheCleanupJob) Run() error {
	deleted, err := j.repo.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired cache entries")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cache cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}
