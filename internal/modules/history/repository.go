// Package history provides persistence and synchronization of historical
// price data and deposit rates.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fincalc/internal/domain"
)

const dateLayout = "2006-01-02"

// Repository provides access to the historical_prices table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new historical price repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "history_repo").Logger(),
	}
}

// PricesBetween returns the stored series for a ticker within the inclusive
// range, ordered by trade date ascending.
func (r *Repository) PricesBetween(ticker string, start, end time.Time) ([]domain.PricePoint, error) {
	query := `
		SELECT ticker, trade_date, open, high, low, close, volume, value
		FROM historical_prices
		WHERE ticker = ? AND trade_date BETWEEN ? AND ?
		ORDER BY trade_date ASC
	`

	rows, err := r.db.Query(query, ticker, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// UpsertPrices inserts or replaces points keyed by (ticker, trade_date).
// Reimports replace open/high/low/close/volume/value and refresh the update
// timestamp. Returns the number of records written.
func (r *Repository) UpsertPrices(points []domain.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO historical_prices (ticker, trade_date, open, high, low, close, volume, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			value = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, p := range points {
		var volume sql.NullInt64
		if p.Volume != nil {
			volume = sql.NullInt64{Int64: *p.Volume, Valid: true}
		}
		var value sql.NullFloat64
		if p.Value != nil {
			value = sql.NullFloat64{Float64: *p.Value, Valid: true}
		}

		if _, err := stmt.Exec(
			p.Ticker,
			p.TradeDate.Format(dateLayout),
			p.Open, p.High, p.Low, p.Close,
			volume, value,
			now, now,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert price %s/%s: %w", p.Ticker, p.TradeDate.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return len(points), nil
}

// Coverage describes the stored date range for one ticker.
type Coverage struct {
	MinDate   string
	MaxDate   string
	LastClose float64
	Count     int
}

// Coverage returns the stored range summary for a ticker, or nil when
// nothing is stored.
func (r *Repository) Coverage(ticker string) (*Coverage, error) {
	query := `
		SELECT MIN(trade_date), MAX(trade_date), COUNT(*)
		FROM historical_prices
		WHERE ticker = ?
	`

	var minDate, maxDate sql.NullString
	var count int
	if err := r.db.QueryRow(query, ticker).Scan(&minDate, &maxDate, &count); err != nil {
		return nil, fmt.Errorf("failed to query coverage: %w", err)
	}
	if count == 0 || !minDate.Valid || !maxDate.Valid {
		return nil, nil
	}

	var lastClose float64
	err := r.db.QueryRow(
		`SELECT close FROM historical_prices WHERE ticker = ? ORDER BY trade_date DESC LIMIT 1`,
		ticker,
	).Scan(&lastClose)
	if err != nil {
		return nil, fmt.Errorf("failed to query last close: %w", err)
	}

	return &Coverage{
		MinDate:   minDate.String,
		MaxDate:   maxDate.String,
		LastClose: lastClose,
		Count:     count,
	}, nil
}

// RecentCloses returns the most recent closes for a ticker in ascending
// date order, at most limit values.
func (r *Repository) RecentCloses(ticker string, limit int) ([]float64, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT close FROM (
			SELECT trade_date, close
			FROM historical_prices
			WHERE ticker = ?
			ORDER BY trade_date DESC
			LIMIT ?
		) ORDER BY trade_date ASC
	`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent closes: %w", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan close: %w", err)
		}
		closes = append(closes, c)
	}
	return closes, rows.Err()
}

func scanPricePoints(rows *sql.Rows) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	for rows.Next() {
		var (
			p       domain.PricePoint
			dateStr string
			volume  sql.NullInt64
			value   sql.NullFloat64
		)
		if err := rows.Scan(&p.Ticker, &dateStr, &p.Open, &p.High, &p.Low, &p.Close, &volume, &value); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}

		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid trade date %q: %w", dateStr, err)
		}
		p.TradeDate = date

		if volume.Valid {
			p.Volume = &volume.Int64
		}
		if value.Valid {
			p.Value = &value.Float64
		}

		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}
	return points, nil
}
