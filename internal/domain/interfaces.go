package domain

import (
	"context"
	"time"
)

// PriceStore is the local price series provider.
// Implemented by history.Repository.
type PriceStore interface {
	// PricesBetween returns the stored series for a ticker within the
	// inclusive range, ordered by trade date ascending. Empty slice when
	// nothing is stored.
	PricesBetween(ticker string, start, end time.Time) ([]PricePoint, error)

	// UpsertPrices inserts or replaces points keyed by (ticker, trade_date)
	// and returns the number of records written.
	UpsertPrices(points []PricePoint) (int, error)
}

// PriceFetcher fetches historical prices from an external market-data source.
// Implemented by the MOEX ISS client.
type PriceFetcher interface {
	FetchHistory(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error)
}

// RateProvider looks up the annual deposit rate for a year.
// The second return is false when no rate is recorded for that year, in
// which case callers substitute the default rate.
type RateProvider interface {
	RateForYear(year int) (float64, bool, error)
}
