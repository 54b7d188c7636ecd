package calculator

import (
	"time"

	"github.com/aristath/fincalc/internal/domain"
)

// DefaultAnnualRate is the deposit rate substituted for years absent from
// the rate table.
const DefaultAnnualRate = 7.0

// EvaluateDeposit simulates a savings account receiving the same periodic
// contributions: monthly steps, interest accrued each month on the balance
// as it stood before that month's deposit, capitalized annually (December)
// and at the final step. Deposits therefore never earn interest in the
// month they are made, and accrued interest does not itself earn interest
// until capitalized.
//
// The rate table is year-indexed; missing years use DefaultAnnualRate.
// The CAGR spans the full requested range, not the deposit dates.
func EvaluateDeposit(amount float64, periodCount int, start, end time.Time, rates domain.RateProvider) DepositResult {
	var (
		balance  float64
		accrued  float64
		deposits []DepositEntry
	)

	for i := 0; i < periodCount; i++ {
		stepDate := start.AddDate(0, i, 0)

		rate := DefaultAnnualRate
		if rates != nil {
			if r, ok, err := rates.RateForYear(stepDate.Year()); err == nil && ok {
				rate = r
			}
		}
		monthlyRate := rate / 100 / 12

		// Interest on the pre-deposit balance, held back until capitalization
		accrued += balance * monthlyRate

		balance += amount

		if stepDate.Month() == time.December || i == periodCount-1 {
			balance += accrued
			accrued = 0
		}

		deposits = append(deposits, DepositEntry{
			Date:    stepDate.Format("2006-01-02"),
			Deposit: amount,
			Rate:    rate,
			Balance: round2(balance),
		})
	}

	totalInvested := amount * float64(periodCount)
	finalValue := balance

	percentage := 0.0
	if totalInvested > 0 {
		percentage = round2((finalValue - totalInvested) / totalInvested * 100)
	}

	return DepositResult{
		TotalInvested:    round2(totalInvested),
		FinalValue:       round2(finalValue),
		AbsoluteReturn:   round2(finalValue - totalInvested),
		PercentageReturn: percentage,
		CAGR:             CAGR(totalInvested, finalValue, start, end),
		Deposits:         deposits,
	}
}
