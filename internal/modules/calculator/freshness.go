package calculator

import (
	"time"

	"github.com/aristath/fincalc/internal/domain"
)

// Tunable freshness policy constants. The values are empirically chosen:
// the edge tolerance absorbs market-holiday misalignment at the range
// boundaries, the gap tolerance flags a missed sync window inside the
// series.
const (
	FreshnessEdgeToleranceDays = 30
	FreshnessGapToleranceDays  = 60
)

// NeedsRefresh decides whether the locally available series is sufficient
// for the requested range or a refresh from the external source must be
// triggered first. First match wins:
//
//  1. empty local series,
//  2. either series edge further than the edge tolerance from the
//     requested boundary,
//  3. any two adjacent points further apart than the gap tolerance.
func NeedsRefresh(series []domain.PricePoint, requestedStart, requestedEnd time.Time) bool {
	if len(series) == 0 {
		return true
	}

	edge := FreshnessEdgeToleranceDays * 24 * time.Hour
	if absDuration(series[0].TradeDate.Sub(requestedStart)) > edge {
		return true
	}
	if absDuration(series[len(series)-1].TradeDate.Sub(requestedEnd)) > edge {
		return true
	}

	gap := FreshnessGapToleranceDays * 24 * time.Hour
	for i := 1; i < len(series); i++ {
		if series[i].TradeDate.Sub(series[i-1].TradeDate) > gap {
			return true
		}
	}

	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
