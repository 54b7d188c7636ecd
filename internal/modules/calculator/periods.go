package calculator

import (
	"time"

	"github.com/aristath/fincalc/internal/domain"
)

// Period is a contiguous run of price points sharing the same calendar
// bucket under a cadence rule. Never empty.
type Period []domain.PricePoint

// First returns the chronologically first point of the period.
func (p Period) First() domain.PricePoint {
	return p[0]
}

// Last returns the chronologically last point of the period.
func (p Period) Last() domain.PricePoint {
	return p[len(p)-1]
}

// quarterOf returns the calendar quarter (1-4) of a date.
func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// sameBucket reports whether two dates fall into the same cadence bucket.
// Buckets compare only the cadence-relevant component (month number,
// quarter number, calendar year), matching the boundary rule of the
// original data source.
func sameBucket(a, b time.Time, freq domain.Frequency) bool {
	switch freq {
	case domain.FrequencyMonthly:
		return a.Month() == b.Month()
	case domain.FrequencyQuarterly:
		return quarterOf(a) == quarterOf(b)
	case domain.FrequencyYearly:
		return a.Year() == b.Year()
	}
	return false
}

// Partition splits a chronologically ordered series into contiguous
// non-overlapping periods. Every input point lands in exactly one period,
// input order is preserved and no period is empty.
//
// Returns domain.ErrEmptySeries for an empty input; callers are expected to
// have validated non-emptiness upstream.
func Partition(series []domain.PricePoint, freq domain.Frequency) ([]Period, error) {
	if len(series) == 0 {
		return nil, domain.ErrEmptySeries
	}

	var periods []Period
	current := Period{series[0]}
	last := series[0].TradeDate

	for _, point := range series[1:] {
		if !sameBucket(point.TradeDate, last, freq) {
			periods = append(periods, current)
			current = Period{}
		}
		current = append(current, point)
		last = point.TradeDate
	}

	// Close the in-progress period at end of input
	periods = append(periods, current)

	return periods, nil
}

// FinalClose returns the close of the last point of the last period.
// Computed once up front and passed into every evaluator run.
func FinalClose(periods []Period) float64 {
	return periods[len(periods)-1].Last().Close
}
