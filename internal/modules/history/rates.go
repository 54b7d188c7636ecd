package history

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// defaultDepositRates are the historical average annual deposit rates used
// to seed an empty table. Year keys can be overwritten by imports later.
var defaultDepositRates = map[int]float64{
	2010: 9.0,
	2011: 9.0,
	2012: 9.0,
	2013: 9.0,
	2014: 9.0,
	2015: 11.0,
	2016: 11.0,
	2017: 7.0,
	2018: 7.0,
	2019: 7.0,
	2020: 5.0,
	2021: 4.5,
	2022: 8.0,
	2023: 12.0,
	2024: 16.0,
	2025: 20.0,
}

// RateRepository provides access to the year-indexed deposit rate table.
type RateRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRateRepository creates a deposit rate repository.
func NewRateRepository(db *sql.DB, log zerolog.Logger) *RateRepository {
	return &RateRepository{
		db:  db,
		log: log.With().Str("component", "rate_repo").Logger(),
	}
}

// RateForYear returns the annual percentage rate for a year. The second
// return is false when the year is absent; callers substitute the default.
func (r *RateRepository) RateForYear(year int) (float64, bool, error) {
	var rate float64
	err := r.db.QueryRow(`SELECT rate FROM deposit_rates WHERE year = ?`, year).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query deposit rate for %d: %w", year, err)
	}
	return rate, true, nil
}

// UpsertRate inserts or updates the rate for a year.
func (r *RateRepository) UpsertRate(year int, rate float64) error {
	_, err := r.db.Exec(`
		INSERT INTO deposit_rates (year, rate) VALUES (?, ?)
		ON CONFLICT (year) DO UPDATE SET rate = excluded.rate
	`, year, rate)
	if err != nil {
		return fmt.Errorf("failed to upsert deposit rate for %d: %w", year, err)
	}
	return nil
}

// SeedDefaults fills in the default rates for years not already present.
// Existing rows are left untouched, so re-running is safe.
func (r *RateRepository) SeedDefaults() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for year, rate := range defaultDepositRates {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO deposit_rates (year, rate) VALUES (?, ?)`,
			year, rate,
		); err != nil {
			return fmt.Errorf("failed to seed rate for %d: %w", year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	r.log.Info().Int("years", len(defaultDepositRates)).Msg("Deposit rates seeded")
	return nil
}
