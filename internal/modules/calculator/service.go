package calculator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fincalc/internal/domain"
)

// Refresher triggers a refresh of local price data from the external
// market-data source. Implemented by history.SyncService.
type Refresher interface {
	Refresh(ctx context.Context, ticker string, start, end time.Time) (int, error)
}

// ResultCache stores computed payloads with a TTL.
// Implemented by clientdata.CalculationCache. Optional; nil disables caching.
type ResultCache interface {
	Get(key string, out interface{}) (bool, error)
	Store(key string, v interface{}) error
}

// Request holds the parameters of one strategy calculation.
type Request struct {
	Ticker    string
	Amount    float64
	Frequency string
	StartDate time.Time
	EndDate   time.Time
}

// Service orchestrates the full calculation: cache lookup, freshness
// gating with refresh, partitioning, the five evaluators and payload
// assembly.
type Service struct {
	store       domain.PriceStore
	rates       domain.RateProvider
	refresher   Refresher
	cache       ResultCache
	instruments []domain.Instrument
	log         zerolog.Logger
}

// NewService creates a calculation service. refresher and cache may be nil:
// without a refresher stale data is used as-is, without a cache every call
// recomputes.
func NewService(
	store domain.PriceStore,
	rates domain.RateProvider,
	refresher Refresher,
	cache ResultCache,
	instruments []domain.Instrument,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:       store,
		rates:       rates,
		refresher:   refresher,
		cache:       cache,
		instruments: instruments,
		log:         log.With().Str("service", "calculator").Logger(),
	}
}

// CalculateAllStrategies computes the five comparable strategies for one
// instrument. Fails with domain.InvalidFrequencyError before touching any
// data, with domain.DataFetchFailedError when the refresh collaborator
// errors, and with domain.NoDataAvailableError when no series exists even
// after a refresh.
func (s *Service) CalculateAllStrategies(ctx context.Context, req Request) (*ComparisonPayload, error) {
	freq, err := domain.ParseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(req)
	if s.cache != nil {
		var cached ComparisonPayload
		if hit, err := s.cache.Get(key, &cached); err == nil && hit {
			s.log.Debug().Str("ticker", req.Ticker).Msg("Calculation cache hit")
			return &cached, nil
		}
	}

	series, err := s.store.PricesBetween(req.Ticker, req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to read local price series: %w", err)
	}

	if NeedsRefresh(series, req.StartDate, req.EndDate) && s.refresher != nil {
		s.log.Info().
			Str("ticker", req.Ticker).
			Int("local_points", len(series)).
			Msg("Local data insufficient, refreshing from source")

		written, err := s.refresher.Refresh(ctx, req.Ticker, req.StartDate, req.EndDate)
		if err != nil {
			return nil, &domain.DataFetchFailedError{Ticker: req.Ticker, Err: err}
		}
		s.log.Info().Str("ticker", req.Ticker).Int("written", written).Msg("Refresh complete")

		series, err = s.store.PricesBetween(req.Ticker, req.StartDate, req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read price series after refresh: %w", err)
		}
	}

	if len(series) == 0 {
		return nil, &domain.NoDataAvailableError{
			Ticker:    req.Ticker,
			StartDate: req.StartDate.Format("2006-01-02"),
			EndDate:   req.EndDate.Format("2006-01-02"),
		}
	}

	periods, err := Partition(series, freq)
	if err != nil {
		return nil, err
	}

	finalClose := FinalClose(periods)

	perfect := EvaluateStrategy(periods, req.Amount, finalClose, PerfectTimingPolicy)
	firstDay := EvaluateStrategy(periods, req.Amount, finalClose, FirstDayPolicy)
	dca := EvaluateStrategy(periods, req.Amount, finalClose, DCAPolicy)
	worst := EvaluateStrategy(periods, req.Amount, finalClose, WorstTimingPolicy)
	deposit := EvaluateDeposit(req.Amount, len(periods), req.StartDate, req.EndDate, s.rates)

	payload := &ComparisonPayload{
		PerfectTiming: &perfect,
		FirstDay:      &firstDay,
		DCA:           &dca,
		WorstTiming:   &worst,
		Deposit:       &deposit,
		Metadata: CalculationMetadata{
			CalculationID:   uuid.NewString(),
			Ticker:          req.Ticker,
			AmountPerPeriod: req.Amount,
			Frequency:       string(freq),
			StartDate:       req.StartDate.Format("2006-01-02"),
			EndDate:         req.EndDate.Format("2006-01-02"),
			TotalPeriods:    len(periods),
			CurrentPrice:    finalClose,
		},
	}

	if s.cache != nil {
		if err := s.cache.Store(key, payload); err != nil {
			s.log.Warn().Err(err).Str("ticker", req.Ticker).Msg("Failed to cache calculation")
		}
	}

	return payload, nil
}

// ComparisonEntry is one instrument's slice of a multi-ticker comparison.
// Failed tickers carry an inline error instead of failing the whole call.
type ComparisonEntry struct {
	Name     string               `json:"name"`
	DCA      *StrategyResult      `json:"dca,omitempty"`
	Metadata *CalculationMetadata `json:"metadata,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// MultiComparison is the result of comparing several instruments under the
// DCA strategy with shared parameters.
type MultiComparison struct {
	Comparison map[string]ComparisonEntry `json:"comparison"`
	Parameters map[string]interface{}     `json:"parameters"`
}

// CompareDCA runs the full calculation for each ticker and projects the DCA
// result, the strategy used for cross-instrument comparison.
func (s *Service) CompareDCA(ctx context.Context, tickers []string, amount float64, frequency string, start, end time.Time) (*MultiComparison, error) {
	if _, err := domain.ParseFrequency(frequency); err != nil {
		return nil, err
	}

	results := make(map[string]ComparisonEntry, len(tickers))

	for _, ticker := range tickers {
		entry := ComparisonEntry{Name: s.instrumentName(ticker)}

		payload, err := s.CalculateAllStrategies(ctx, Request{
			Ticker:    ticker,
			Amount:    amount,
			Frequency: frequency,
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("Comparison ticker failed")
			entry.Error = err.Error()
		} else {
			entry.DCA = payload.DCA
			entry.Metadata = &payload.Metadata
		}

		results[ticker] = entry
	}

	return &MultiComparison{
		Comparison: results,
		Parameters: map[string]interface{}{
			"amount":     amount,
			"frequency":  frequency,
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
		},
	}, nil
}

func (s *Service) instrumentName(ticker string) string {
	for _, inst := range s.instruments {
		if inst.Ticker == ticker {
			return inst.Name
		}
	}
	return ticker
}

// cacheKey builds a deterministic key from the calculation parameters.
func (s *Service) cacheKey(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.4f|%s|%s|%s",
		req.Ticker,
		req.Amount,
		req.Frequency,
		req.StartDate.Format("2006-01-02"),
		req.EndDate.Format("2006-01-02"),
	)
	return hex.EncodeToString(h.Sum(nil))[:32]
}
