package calculator

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// PricingPolicy resolves the execution price and attributed date for one
// period. A note may be attached to the resulting ledger entry.
//
// The four strategies differ only in this function; the evaluator itself is
// shared.
type PricingPolicy func(p Period) (price float64, date time.Time, note string)

// PerfectTimingPolicy buys at the lowest low of the period. When the lows
// are missing or zero (index instruments publish close-only data) it falls
// back to the lowest close. The date is that of the point achieving the
// minimum.
func PerfectTimingPolicy(p Period) (float64, time.Time, string) {
	best := 0
	for i, point := range p {
		if point.Low < p[best].Low {
			best = i
		}
	}
	if p[best].Low > 0 {
		return p[best].Low, p[best].TradeDate, ""
	}

	// Fallback: lowest close
	best = 0
	for i, point := range p {
		if point.Close < p[best].Close {
			best = i
		}
	}
	return p[best].Close, p[best].TradeDate, ""
}

// FirstDayPolicy buys at the open of the period's first trading day, or its
// close when no open is published.
func FirstDayPolicy(p Period) (float64, time.Time, string) {
	first := p.First()
	price := first.Open
	if price <= 0 {
		price = first.Close
	}
	return price, first.TradeDate, ""
}

// DCAPolicy approximates regular intra-period purchases with the arithmetic
// mean of the period's closes, attributed to the period's last day.
func DCAPolicy(p Period) (float64, time.Time, string) {
	closes := make([]float64, len(p))
	for i, point := range p {
		closes[i] = point.Close
	}
	avg := stat.Mean(closes, nil)
	return avg, p.Last().TradeDate, "Average price for period"
}

// WorstTimingPolicy buys at the highest high of the period, falling back to
// the highest close when highs are missing or zero.
func WorstTimingPolicy(p Period) (float64, time.Time, string) {
	worst := 0
	for i, point := range p {
		if point.High > p[worst].High {
			worst = i
		}
	}
	if p[worst].High > 0 {
		return p[worst].High, p[worst].TradeDate, ""
	}

	// Fallback: highest close
	worst = 0
	for i, point := range p {
		if point.Close > p[worst].Close {
			worst = i
		}
	}
	return p[worst].Close, p[worst].TradeDate, ""
}

// EvaluateStrategy runs one pricing policy over the partitioned periods,
// contributing amount per period. Periods whose resolved price is still
// non-positive after the policy's fallback are skipped entirely: no shares,
// no ledger entry, no contribution counted.
//
// finalClose is the close of the last point of the last period, fixed for
// the whole run (see FinalClose).
func EvaluateStrategy(periods []Period, amount, finalClose float64, policy PricingPolicy) StrategyResult {
	var (
		totalShares   float64
		totalInvested float64
		purchases     []Purchase
		firstDate     time.Time
		lastDate      time.Time
	)

	for _, period := range periods {
		price, date, note := policy(period)
		if price <= 0 {
			// Instrument with fully-missing OHLC fields; even the
			// fallback is unusable for this period.
			continue
		}

		shares := amount / price
		totalShares += shares
		totalInvested += amount

		if firstDate.IsZero() {
			firstDate = date
		}
		lastDate = date

		entryPrice := price
		if note != "" {
			// The averaged price is synthetic; the ledger shows it rounded
			entryPrice = round2(price)
		}

		purchases = append(purchases, Purchase{
			Date:         date.Format("2006-01-02"),
			Price:        entryPrice,
			Shares:       round4(shares),
			Invested:     amount,
			CurrentValue: round2(totalShares * finalClose),
			Note:         note,
		})
	}

	finalValue := totalShares * finalClose

	return formatResult(totalInvested, finalValue, totalShares, purchases, firstDate, lastDate)
}
