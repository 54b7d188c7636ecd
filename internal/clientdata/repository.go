// Package clientdata provides persistent caching of computed calculation
// payloads. Entries are stored as MessagePack blobs with expiration
// timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTTL keeps a calculation fresh for a trading day; historical series
// only gain at most one new point per day.
const DefaultTTL = 24 * time.Hour

// Repository provides cache operations over the calculations table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new calculation cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves a value with expiration = now + ttl. Existing keys are
// replaced.
func (r *Repository) Store(key string, value interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO calculations (cache_key, data, expires_at) VALUES (?, ?, ?)`,
		key, blob, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// GetIfFresh decodes the entry into out only when it has not expired.
// Returns false when the key is absent or stale.
func (r *Repository) GetIfFresh(key string, out interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow(
		`SELECT data FROM calculations WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if err := msgpack.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM calculations WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteExpired removes all rows past their expiration. Returns the number
// of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM calculations WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
