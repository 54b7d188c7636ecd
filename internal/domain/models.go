// Package domain contains the core domain models shared across modules.
// This package has no infrastructure dependencies.
package domain

import "time"

// PricePoint is one trading day for one instrument.
// Open/High/Low may be zero for index-type instruments that only publish a
// close value; Close is always present and positive for stored points.
type PricePoint struct {
	Ticker    string    `json:"ticker"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    *int64    `json:"volume,omitempty"`
	Value     *float64  `json:"value,omitempty"` // traded turnover
}

// Frequency is the rebalancing cadence for strategy calculations.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// ParseFrequency validates a cadence string.
// Unrecognized values are rejected before any partitioning happens.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return Frequency(s), nil
	default:
		return "", &InvalidFrequencyError{Value: s}
	}
}

// Instrument is one entry of the tradable catalogue.
type Instrument struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// InstrumentStatus describes local data coverage for one instrument.
type InstrumentStatus struct {
	Ticker      string   `json:"ticker"`
	Name        string   `json:"name"`
	MinDate     string   `json:"min_date,omitempty"`
	MaxDate     string   `json:"max_date,omitempty"`
	LastPrice   *float64 `json:"last_price,omitempty"`
	SMA200      *float64 `json:"sma_200,omitempty"`
	LastUpdated string   `json:"last_updated,omitempty"`
}
