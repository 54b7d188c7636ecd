package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fincalc/internal/domain"
)

// SyncService fetches historical prices from the external market-data
// source and upserts them into the local store.
type SyncService struct {
	fetcher domain.PriceFetcher
	store   domain.PriceStore
	log     zerolog.Logger
}

// NewSyncService creates a new price sync service.
func NewSyncService(fetcher domain.PriceFetcher, store domain.PriceStore, log zerolog.Logger) *SyncService {
	return &SyncService{
		fetcher: fetcher,
		store:   store,
		log:     log.With().Str("service", "price_sync").Logger(),
	}
}

// Refresh fetches the range for one ticker and upserts it, returning the
// number of records written. Satisfies the calculator's Refresher contract.
func (s *SyncService) Refresh(ctx context.Context, ticker string, start, end time.Time) (int, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Str("ticker", ticker).Logger()

	log.Info().
		Str("from", start.Format(dateLayout)).
		Str("to", end.Format(dateLayout)).
		Msg("Syncing historical data")

	points, err := s.fetcher.FetchHistory(ctx, ticker, start, end)
	if err != nil {
		return 0, fmt.Errorf("fetch failed: %w", err)
	}

	if len(points) == 0 {
		log.Warn().Msg("No price data returned by source")
		return 0, nil
	}

	written, err := s.store.UpsertPrices(points)
	if err != nil {
		return 0, fmt.Errorf("failed to store fetched prices: %w", err)
	}

	log.Info().Int("written", written).Msg("Sync complete")
	return written, nil
}

// SyncAll refreshes the trailing window for every given ticker.
// Individual ticker failures are logged and skipped so one unavailable
// instrument does not stall the rest; the first error is returned after
// all tickers were attempted.
func (s *SyncService) SyncAll(ctx context.Context, tickers []string, windowDays int) (int, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -windowDays)

	var (
		total    int
		firstErr error
	)
	for _, ticker := range tickers {
		written, err := s.Refresh(ctx, ticker, start, end)
		if err != nil {
			s.log.Error().Err(err).Str("ticker", ticker).Msg("Ticker sync failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("sync failed for %s: %w", ticker, err)
			}
			continue
		}
		total += written
	}

	s.log.Info().Int("tickers", len(tickers)).Int("total_written", total).Msg("Sync cycle finished")
	return total, firstErr
}
