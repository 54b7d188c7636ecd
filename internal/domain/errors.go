package domain

import (
	"errors"
	"fmt"
)

// ErrEmptySeries is returned by the period partitioner when given zero
// points. Callers are expected to have rejected empty series upstream.
var ErrEmptySeries = errors.New("empty price series")

// NoDataAvailableError means no local price data exists for the requested
// range, even after a refresh attempt. Terminal for the calculation.
type NoDataAvailableError struct {
	Ticker    string
	StartDate string
	EndDate   string
}

func (e *NoDataAvailableError) Error() string {
	return fmt.Sprintf("no historical data found for %s between %s and %s", e.Ticker, e.StartDate, e.EndDate)
}

// DataFetchFailedError wraps a refresh collaborator failure with ticker
// context. Not retried; surfaced verbatim to the caller.
type DataFetchFailedError struct {
	Ticker string
	Err    error
}

func (e *DataFetchFailedError) Error() string {
	return fmt.Sprintf("failed to fetch price data for %s: %v", e.Ticker, e.Err)
}

func (e *DataFetchFailedError) Unwrap() error {
	return e.Err
}

// InvalidFrequencyError means the cadence string is not one of
// monthly/quarterly/yearly.
type InvalidFrequencyError struct {
	Value string
}

func (e *InvalidFrequencyError) Error() string {
	return fmt.Sprintf("invalid frequency %q (expected monthly, quarterly or yearly)", e.Value)
}
