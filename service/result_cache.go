package service

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
)

// CachedCheck is a stored two-gate outcome
type CachedCheck struct {
	Primary   *domain.ConstraintResult
	Secondary *domain.ConstraintResult
}

// ResultCache memoizes check results keyed by source content and the
// constraints applied to it. Safe for concurrent use.
type ResultCache struct {
	entries *lru.Cache[string, CachedCheck]
}

// NewResultCache creates a cache holding up to size entries. A non-positive
// size uses the default.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = constants.DefaultCacheSize
	}
	entries, err := lru.New[string, CachedCheck](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{entries: entries}, nil
}

// CacheKey derives the cache key for a source and its task constraints: the
// sha256 of the source and both gate fingerprints, NUL-separated
func CacheKey(source []byte, tc domain.TaskConstraints) string {
	h := sha256.New()
	for i, part := range [][]byte{source, []byte(tc.Primary.Fingerprint()), []byte(tc.Secondary.Fingerprint())} {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached outcome
func (c *ResultCache) Get(key string) (CachedCheck, bool) {
	return c.entries.Get(key)
}

// Add stores an outcome
func (c *ResultCache) Add(key string, check CachedCheck) {
	c.entries.Add(key, check)
}

// Len reports the number of cached entries
func (c *ResultCache) Len() int {
	return c.entries.Len()
}
