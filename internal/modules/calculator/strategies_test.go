package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fincalc/internal/domain"
)

func TestPerfectTimingPolicy(t *testing.T) {
	period := Period{
		pp(t, "2024-03-01", 101, 105, 99, 103),
		pp(t, "2024-03-04", 103, 104, 97, 98),
		pp(t, "2024-03-05", 98, 102, 98, 101),
	}

	price, date, _ := PerfectTimingPolicy(period)
	assert.Equal(t, 97.0, price)
	assert.Equal(t, d(t, "2024-03-04"), date)
}

// Index instruments publish only a close; the policy must fall back to the
// lowest close and attribute the date of the point achieving it.
func TestPerfectTimingPolicy_CloseFallback(t *testing.T) {
	period := Period{
		closeOnly(t, "2024-03-01", 105),
		closeOnly(t, "2024-03-04", 100),
		closeOnly(t, "2024-03-05", 102),
	}

	price, date, _ := PerfectTimingPolicy(period)
	assert.Equal(t, 100.0, price)
	assert.Equal(t, d(t, "2024-03-04"), date)
}

func TestFirstDayPolicy(t *testing.T) {
	t.Run("uses open when present", func(t *testing.T) {
		period := Period{
			pp(t, "2024-03-01", 101, 105, 99, 103),
			pp(t, "2024-03-04", 103, 104, 97, 98),
		}
		price, date, _ := FirstDayPolicy(period)
		assert.Equal(t, 101.0, price)
		assert.Equal(t, d(t, "2024-03-01"), date)
	})

	t.Run("falls back to close without open", func(t *testing.T) {
		period := Period{closeOnly(t, "2024-03-01", 103)}
		price, _, _ := FirstDayPolicy(period)
		assert.Equal(t, 103.0, price)
	})
}

func TestDCAPolicy(t *testing.T) {
	period := Period{
		pp(t, "2024-03-01", 0, 0, 0, 100),
		pp(t, "2024-03-04", 0, 0, 0, 110),
		pp(t, "2024-03-05", 0, 0, 0, 90),
	}

	price, date, note := DCAPolicy(period)
	assert.InDelta(t, 100.0, price, 1e-9)
	assert.Equal(t, d(t, "2024-03-05"), date, "attributed to the period's last point")
	assert.NotEmpty(t, note)
}

func TestWorstTimingPolicy(t *testing.T) {
	period := Period{
		pp(t, "2024-03-01", 101, 105, 99, 103),
		pp(t, "2024-03-04", 103, 108, 97, 98),
		pp(t, "2024-03-05", 98, 102, 98, 101),
	}

	price, date, _ := WorstTimingPolicy(period)
	assert.Equal(t, 108.0, price)
	assert.Equal(t, d(t, "2024-03-04"), date)

	t.Run("close fallback", func(t *testing.T) {
		period := Period{
			closeOnly(t, "2024-03-01", 105),
			closeOnly(t, "2024-03-04", 100),
		}
		price, date, _ := WorstTimingPolicy(period)
		assert.Equal(t, 105.0, price)
		assert.Equal(t, d(t, "2024-03-01"), date)
	})
}

// Shares identity and conservation: shares == invested / price for every
// entry, and total_invested == amount * count(non-skipped periods).
func TestEvaluateStrategy_Accounting(t *testing.T) {
	series := []domain.PricePoint{
		pp(t, "2024-01-10", 100, 105, 95, 102),
		pp(t, "2024-01-25", 102, 107, 99, 104),
		pp(t, "2024-02-05", 104, 110, 101, 108),
		pp(t, "2024-03-11", 108, 112, 103, 106),
	}
	periods, err := Partition(series, domain.FrequencyMonthly)
	require.NoError(t, err)
	finalClose := FinalClose(periods)

	for name, policy := range map[string]PricingPolicy{
		"perfect":   PerfectTimingPolicy,
		"first_day": FirstDayPolicy,
		"dca":       DCAPolicy,
		"worst":     WorstTimingPolicy,
	} {
		t.Run(name, func(t *testing.T) {
			result := EvaluateStrategy(periods, 1000, finalClose, policy)

			assert.Equal(t, 3000.0, result.TotalInvested)
			require.Len(t, result.Purchases, 3)

			var shares float64
			for _, p := range result.Purchases {
				assert.InDelta(t, p.Invested/p.Price, p.Shares, 1e-3, "shares identity")
				shares += p.Shares
			}
			assert.InDelta(t, shares, result.TotalShares, 1e-3)
			assert.InDelta(t, result.TotalShares*finalClose, result.FinalValue, 0.5)
			assert.InDelta(t, result.FinalValue-result.TotalInvested, result.AbsoluteReturn, 1e-9)
		})
	}
}

// A period where even the close fallback yields a non-positive price is
// skipped entirely: no ledger entry and no contribution.
func TestEvaluateStrategy_SkipsDegeneratePeriods(t *testing.T) {
	periods := []Period{
		{pp(t, "2024-01-10", 0, 0, 0, 100)},
		{pp(t, "2024-02-12", 0, 0, 0, 0)}, // fully missing data
		{pp(t, "2024-03-11", 0, 0, 0, 110)},
	}
	finalClose := FinalClose(periods)

	result := EvaluateStrategy(periods, 500, finalClose, PerfectTimingPolicy)

	assert.Equal(t, 1000.0, result.TotalInvested, "skipped period contributes nothing")
	assert.Len(t, result.Purchases, 2)
}

func TestEvaluateStrategy_AllPeriodsSkipped(t *testing.T) {
	periods := []Period{
		{pp(t, "2024-01-10", 0, 0, 0, 0)},
		{pp(t, "2024-02-12", 0, 0, 0, 0)},
	}

	result := EvaluateStrategy(periods, 500, 0, PerfectTimingPolicy)

	assert.Zero(t, result.TotalInvested)
	assert.Zero(t, result.PercentageReturn, "guarded against division by zero")
	assert.Zero(t, result.CAGR)
	assert.Empty(t, result.Purchases)
}

// End-to-end example: one close-only point per monthly period, first-day
// strategy prices at the close fallback.
func TestEvaluateStrategy_FirstDayExample(t *testing.T) {
	series := []domain.PricePoint{
		closeOnly(t, "2024-01-15", 100),
		closeOnly(t, "2024-02-15", 110),
		closeOnly(t, "2024-03-15", 90),
	}
	periods, err := Partition(series, domain.FrequencyMonthly)
	require.NoError(t, err)
	require.Len(t, periods, 3)

	result := EvaluateStrategy(periods, 1000, FinalClose(periods), FirstDayPolicy)

	assert.Equal(t, 3000.0, result.TotalInvested)
	assert.InDelta(t, 30.202, result.TotalShares, 0.005)
	assert.InDelta(t, 2718.2, result.FinalValue, 0.5)
	assert.InDelta(t, -9.4, result.PercentageReturn, 0.05)
}

// The mark-to-latest value of each ledger entry uses the run's final close,
// fixed up front, not the close of the entry's own period.
func TestEvaluateStrategy_CurrentValueUsesFinalClose(t *testing.T) {
	series := []domain.PricePoint{
		closeOnly(t, "2024-01-15", 100),
		closeOnly(t, "2024-02-15", 200),
	}
	periods, err := Partition(series, domain.FrequencyMonthly)
	require.NoError(t, err)

	result := EvaluateStrategy(periods, 1000, FinalClose(periods), FirstDayPolicy)

	require.Len(t, result.Purchases, 2)
	// 10 shares marked at the final close of 200
	assert.InDelta(t, 2000.0, result.Purchases[0].CurrentValue, 1e-9)
	assert.InDelta(t, 3000.0, result.Purchases[1].CurrentValue, 1e-9)
}
