package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// priceSyncer is the slice of the sync service the job needs.
type priceSyncer interface {
	SyncAll(ctx context.Context, tickers []string, windowDays int) (int, error)
}

// PriceSyncJob refreshes the trailing price window for every catalogue
// instrument.
type PriceSyncJob struct {
	syncer     priceSyncer
	tickers    []string
	windowDays int
	timeout    time.Duration
	log        zerolog.Logger
}

// NewPriceSyncJob creates the daily price sync job.
func NewPriceSyncJob(syncer priceSyncer, tickers []string, windowDays int, log zerolog.Logger) *PriceSyncJob {
	return &PriceSyncJob{
		syncer:     syncer,
		tickers:    tickers,
		windowDays: windowDays,
		timeout:    10 * time.Minute,
		log:        log.With().Str("job", "price_sync").Logger(),
	}
}

// Run syncs all tickers within the job timeout.
func (j *PriceSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	written, err := j.syncer.SyncAll(ctx, j.tickers, j.windowDays)
	if err != nil {
		j.log.Error().Err(err).Int("written", written).Msg("Price sync finished with errors")
		return err
	}

	j.log.Info().Int("written", written).Msg("Price sync completed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}
