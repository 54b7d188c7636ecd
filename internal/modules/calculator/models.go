// Package calculator implements the investment strategy simulation engine:
// period partitioning, the four timing strategies, the savings-deposit
// benchmark and the derived performance metrics.
package calculator

// Purchase is one simulated contribution event within a strategy.
// Date is the policy-attributed date in YYYY-MM-DD form.
type Purchase struct {
	Date         string  `json:"date" msgpack:"date"`
	Price        float64 `json:"price" msgpack:"price"`
	Shares       float64 `json:"shares" msgpack:"shares"`
	Invested     float64 `json:"invested" msgpack:"invested"`
	CurrentValue float64 `json:"current_value" msgpack:"current_value"`
	Note         string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// StrategyResult is the normalized output of one strategy evaluator.
type StrategyResult struct {
	TotalInvested    float64    `json:"total_invested" msgpack:"total_invested"`
	FinalValue       float64    `json:"final_value" msgpack:"final_value"`
	TotalShares      float64    `json:"total_shares" msgpack:"total_shares"`
	AbsoluteReturn   float64    `json:"absolute_return" msgpack:"absolute_return"`
	PercentageReturn float64    `json:"percentage_return" msgpack:"percentage_return"`
	CAGR             float64    `json:"cagr" msgpack:"cagr"`
	Purchases        []Purchase `json:"purchases" msgpack:"purchases"`
}

// DepositEntry is one monthly step of the deposit benchmark ledger.
type DepositEntry struct {
	Date    string  `json:"date" msgpack:"date"`
	Deposit float64 `json:"deposit" msgpack:"deposit"`
	Rate    float64 `json:"rate" msgpack:"rate"`
	Balance float64 `json:"balance" msgpack:"balance"`
}

// DepositResult mirrors StrategyResult for the savings-deposit benchmark,
// with a deposits ledger instead of purchases.
type DepositResult struct {
	TotalInvested    float64        `json:"total_invested" msgpack:"total_invested"`
	FinalValue       float64        `json:"final_value" msgpack:"final_value"`
	AbsoluteReturn   float64        `json:"absolute_return" msgpack:"absolute_return"`
	PercentageReturn float64        `json:"percentage_return" msgpack:"percentage_return"`
	CAGR             float64        `json:"cagr" msgpack:"cagr"`
	Deposits         []DepositEntry `json:"deposits" msgpack:"deposits"`
}

// CalculationMetadata describes the parameters a payload was computed for.
type CalculationMetadata struct {
	CalculationID   string  `json:"calculation_id" msgpack:"calculation_id"`
	Ticker          string  `json:"ticker" msgpack:"ticker"`
	AmountPerPeriod float64 `json:"amount_per_period" msgpack:"amount_per_period"`
	Frequency       string  `json:"frequency" msgpack:"frequency"`
	StartDate       string  `json:"start_date" msgpack:"start_date"`
	EndDate         string  `json:"end_date" msgpack:"end_date"`
	TotalPeriods    int     `json:"total_periods" msgpack:"total_periods"`
	CurrentPrice    float64 `json:"current_price" msgpack:"current_price"`
}

// ComparisonPayload is the aggregate of all five strategies plus metadata.
// Read-side projection only, never persisted (the cache keeps it with a TTL).
type ComparisonPayload struct {
	PerfectTiming *StrategyResult     `json:"perfect_timing" msgpack:"perfect_timing"`
	FirstDay      *StrategyResult     `json:"first_day" msgpack:"first_day"`
	DCA           *StrategyResult     `json:"dca" msgpack:"dca"`
	WorstTiming   *StrategyResult     `json:"worst_timing" msgpack:"worst_timing"`
	Deposit       *DepositResult      `json:"deposit" msgpack:"deposit"`
	Metadata      CalculationMetadata `json:"metadata" msgpack:"metadata"`
}
