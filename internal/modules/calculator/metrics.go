package calculator

import (
	"math"
	"time"
)

const hoursPerYear = 24 * 365.25

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// CAGR computes the compound annual growth rate as a percentage, rounded to
// two decimals. Defined as 0 for a non-positive time span or initial value.
func CAGR(initial, final float64, start, end time.Time) float64 {
	years := end.Sub(start).Hours() / hoursPerYear
	if years <= 0 || initial <= 0 {
		return 0
	}
	return round2((math.Pow(final/initial, 1/years) - 1) * 100)
}

// formatResult normalizes a strategy run into a StrategyResult: monetary
// figures rounded to 2 decimals, shares to 4, percentage return guarded
// against a zero invested amount, CAGR spanning the first and last purchase
// dates. With no purchases at all the span is empty and CAGR is 0.
func formatResult(totalInvested, finalValue, totalShares float64, purchases []Purchase, firstDate, lastDate time.Time) StrategyResult {
	percentage := 0.0
	if totalInvested > 0 {
		percentage = round2((finalValue - totalInvested) / totalInvested * 100)
	}

	return StrategyResult{
		TotalInvested:    round2(totalInvested),
		FinalValue:       round2(finalValue),
		TotalShares:      round4(totalShares),
		AbsoluteReturn:   round2(finalValue - totalInvested),
		PercentageReturn: percentage,
		CAGR:             CAGR(totalInvested, finalValue, firstDate, lastDate),
		Purchases:        purchases,
	}
}
