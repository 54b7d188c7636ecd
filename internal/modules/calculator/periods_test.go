package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fincalc/internal/domain"
)

func d(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return parsed
}

func pp(t *testing.T, date string, open, high, low, close float64) domain.PricePoint {
	t.Helper()
	return domain.PricePoint{
		Ticker:    "TEST",
		TradeDate: d(t, date),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
	}
}

// closeOnly builds an index-style point without open/high/low data.
func closeOnly(t *testing.T, date string, close float64) domain.PricePoint {
	t.Helper()
	return pp(t, date, 0, 0, 0, close)
}

func TestPartition_EmptySeries(t *testing.T) {
	_, err := Partition(nil, domain.FrequencyMonthly)
	assert.ErrorIs(t, err, domain.ErrEmptySeries)
}

func TestPartition_Boundaries(t *testing.T) {
	series := []domain.PricePoint{
		pp(t, "2023-01-30", 10, 11, 9, 10),
		pp(t, "2023-01-31", 10, 11, 9, 10),
		pp(t, "2023-02-01", 10, 11, 9, 10),
		pp(t, "2023-03-31", 10, 11, 9, 10),
		pp(t, "2023-04-03", 10, 11, 9, 10),
		pp(t, "2023-12-29", 10, 11, 9, 10),
		pp(t, "2024-01-02", 10, 11, 9, 10),
	}

	tests := []struct {
		name        string
		freq        domain.Frequency
		wantPeriods int
		wantSizes   []int
	}{
		{
			name:        "monthly splits at month change",
			freq:        domain.FrequencyMonthly,
			wantPeriods: 6,
			wantSizes:   []int{2, 1, 1, 1, 1, 1},
		},
		{
			name:        "quarterly splits at quarter change",
			freq:        domain.FrequencyQuarterly,
			wantPeriods: 4,
			wantSizes:   []int{4, 1, 1, 1},
		},
		{
			name:        "yearly splits at year change",
			freq:        domain.FrequencyYearly,
			wantPeriods: 2,
			wantSizes:   []int{6, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := Partition(series, tt.freq)
			require.NoError(t, err)
			require.Len(t, periods, tt.wantPeriods)
			for i, p := range periods {
				assert.Len(t, p, tt.wantSizes[i], "period %d", i)
			}
		})
	}
}

// Concatenating all periods must reproduce the input exactly, in order,
// with nothing duplicated or dropped.
func TestPartition_Completeness(t *testing.T) {
	var series []domain.PricePoint
	date := d(t, "2021-11-15")
	for i := 0; i < 300; i++ {
		series = append(series, domain.PricePoint{
			Ticker:    "TEST",
			TradeDate: date,
			Close:     100 + float64(i%7),
		})
		// Skip weekends to mimic trading days
		date = date.AddDate(0, 0, 1)
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
	}

	for _, freq := range []domain.Frequency{domain.FrequencyMonthly, domain.FrequencyQuarterly, domain.FrequencyYearly} {
		t.Run(string(freq), func(t *testing.T) {
			periods, err := Partition(series, freq)
			require.NoError(t, err)

			var rebuilt []domain.PricePoint
			for _, p := range periods {
				require.NotEmpty(t, p)
				rebuilt = append(rebuilt, p...)
			}
			assert.Equal(t, series, rebuilt)
		})
	}
}

func TestPartition_SinglePoint(t *testing.T) {
	series := []domain.PricePoint{pp(t, "2024-06-03", 10, 11, 9, 10)}

	periods, err := Partition(series, domain.FrequencyMonthly)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, series[0], periods[0].First())
	assert.Equal(t, series[0], periods[0].Last())
}

func TestFinalClose(t *testing.T) {
	periods, err := Partition([]domain.PricePoint{
		pp(t, "2024-01-10", 10, 11, 9, 100),
		pp(t, "2024-02-12", 10, 11, 9, 110),
		pp(t, "2024-02-13", 10, 11, 9, 95),
	}, domain.FrequencyMonthly)
	require.NoError(t, err)

	assert.Equal(t, 95.0, FinalClose(periods))
}
