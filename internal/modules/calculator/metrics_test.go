package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCAGR(t *testing.T) {
	t.Run("zero span", func(t *testing.T) {
		day := d(t, "2024-05-01")
		assert.Zero(t, CAGR(100, 150, day, day))
	})

	t.Run("zero initial", func(t *testing.T) {
		assert.Zero(t, CAGR(0, 150, d(t, "2020-01-01"), d(t, "2024-01-01")))
	})

	t.Run("negative span", func(t *testing.T) {
		assert.Zero(t, CAGR(100, 150, d(t, "2024-01-01"), d(t, "2020-01-01")))
	})

	t.Run("two year doubling of 21 percent", func(t *testing.T) {
		// 1.21 over ~2 years annualizes to ~10%
		got := CAGR(100, 121, d(t, "2020-01-01"), d(t, "2022-01-01"))
		assert.InDelta(t, 10.0, got, 0.05)
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		got := CAGR(100, 137, d(t, "2020-01-01"), d(t, "2023-01-01"))
		assert.Equal(t, got, round2(got))
	})
}

func TestFormatResult_Rounding(t *testing.T) {
	purchases := []Purchase{{Date: "2020-01-01", Price: 3, Shares: 111.1111, Invested: 333.333}}

	result := formatResult(333.333, 444.4444, 111.11111, purchases, d(t, "2020-01-01"), d(t, "2021-01-01"))

	assert.Equal(t, 333.33, result.TotalInvested)
	assert.Equal(t, 444.44, result.FinalValue)
	assert.Equal(t, 111.1111, result.TotalShares)
	assert.Equal(t, 111.11, result.AbsoluteReturn)
	assert.Equal(t, 33.33, result.PercentageReturn)
}

func TestFormatResult_ZeroInvestedGuard(t *testing.T) {
	result := formatResult(0, 0, 0, nil, d(t, "2020-01-01"), d(t, "2021-01-01"))

	assert.Zero(t, result.PercentageReturn)
	assert.Zero(t, result.CAGR)
}
