package clientdata

import "time"

// CalculationCache binds the repository to a fixed TTL so the calculator
// service does not deal in expirations.
type CalculationCache struct {
	repo *Repository
	ttl  time.Duration
}

// NewCalculationCache wraps a repository with a TTL. A zero ttl falls back
// to DefaultTTL.
func NewCalculationCache(repo *Repository, ttl time.Duration) *CalculationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CalculationCache{repo: repo, ttl: ttl}
}

// Get decodes a fresh entry into out, reporting whether one was found.
func (c *CalculationCache) Get(key string, out interface{}) (bool, error) {
	return c.repo.GetIfFresh(key, out)
}

// Store saves a value under the configured TTL.
func (c *CalculationCache) Store(key string, value interface{}) error {
	return c.repo.Store(key, value, c.ttl)
}
