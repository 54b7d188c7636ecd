package history

import (
	"github.com/markcheno/go-talib"

	"github.com/aristath/fincalc/internal/domain"
)

// smaPeriod is the moving-average window shown in instrument summaries.
const smaPeriod = 200

// SMA returns the latest simple moving average of the stored closes, or nil
// when fewer than period values are stored.
func (r *Repository) SMA(ticker string, period int) (*float64, error) {
	// Twice the window is plenty; talib only needs period values for the
	// final data point.
	closes, err := r.RecentCloses(ticker, period*2)
	if err != nil {
		return nil, err
	}
	if len(closes) < period {
		return nil, nil
	}

	sma := talib.Sma(closes, period)
	last := sma[len(sma)-1]
	return &last, nil
}

// InstrumentStatuses assembles the coverage summary for every catalogue
// instrument: stored date range, last price and the trend average.
func (r *Repository) InstrumentStatuses(catalogue []domain.Instrument) ([]domain.InstrumentStatus, error) {
	statuses := make([]domain.InstrumentStatus, 0, len(catalogue))

	for _, inst := range catalogue {
		status := domain.InstrumentStatus{
			Ticker: inst.Ticker,
			Name:   inst.Name,
		}

		coverage, err := r.Coverage(inst.Ticker)
		if err != nil {
			return nil, err
		}
		if coverage != nil {
			status.MinDate = coverage.MinDate
			status.MaxDate = coverage.MaxDate
			status.LastUpdated = coverage.MaxDate
			lastPrice := coverage.LastClose
			status.LastPrice = &lastPrice

			sma, err := r.SMA(inst.Ticker, smaPeriod)
			if err != nil {
				r.log.Warn().Err(err).Str("ticker", inst.Ticker).Msg("Failed to compute SMA")
			} else {
				status.SMA200 = sma
			}
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
