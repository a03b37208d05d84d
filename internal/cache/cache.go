// Package cache stores qualification results so repeated identical requests
// against the same rate sheet skip the filter chain.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/loan-qualifier/internal/qualifier"
	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
	"go.uber.org/zap"
)

// Cache is a byte-valued store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryCache is an in-process Cache, used when redis is unreachable. Expired
// entries are swept on every write, and once maxEntries live entries are held
// the one closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	data       map[string]memoryEntry
	maxEntries int
	clock      func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache holding at most
// constants.DefaultMemoryCacheEntries entries.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithLimit(constants.DefaultMemoryCacheEntries)
}

// NewMemoryCacheWithLimit creates an empty in-memory cache holding at most
// maxEntries entries. A non-positive limit uses the default.
func NewMemoryCacheWithLimit(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = constants.DefaultMemoryCacheEntries
	}
	return &MemoryCache{
		data:       make(map[string]memoryEntry),
		maxEntries: maxEntries,
		clock:      time.Now,
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Get returns the value for key if present and not expired.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(m.clock()) {
		delete(m.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key. A non-positive ttl never expires.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
		}
	}
	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxEntries {
		m.evictOne()
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.data[key] = entry
	return nil
}

// evictOne drops the entry that would expire first. Entries without expiry
// go last. Callers hold m.mu.
func (m *MemoryCache) evictOne() {
	var victim string
	var victimExpiry time.Time
	found := false
	for k, e := range m.data {
		switch {
		case !found:
		case e.expiresAt.IsZero():
			continue
		case !victimExpiry.IsZero() && !e.expiresAt.Before(victimExpiry):
			continue
		}
		victim, victimExpiry, found = k, e.expiresAt, true
	}
	if found {
		delete(m.data, victim)
	}
}

// Fingerprint identifies a rate sheet by content.
func Fingerprint(offers []ratesheet.Offer) string {
	h := sha256.New()
	for _, offer := range offers {
		for _, field := range ratesheet.Record(offer) {
			_, _ = h.Write([]byte(field))
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Key builds the cache key for an applicant against a rate sheet fingerprint.
func Key(fingerprint string, applicant qualifier.Applicant) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s|%d|%g|%g|%g|%g", fingerprint,
		applicant.CreditScore, applicant.MonthlyDebt, applicant.MonthlyIncome,
		applicant.LoanAmount, applicant.HomeValue)
	return constants.CacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// ResultCache stores qualifier results as JSON. Backend failures are logged
// and reported as misses so the caller recomputes.
type ResultCache struct {
	backend Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResultCache wraps backend with result encoding.
func NewResultCache(logger *zap.Logger, backend Cache, ttl time.Duration) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{backend: backend, ttl: ttl, logger: logger}
}

// Lookup returns the cached result for key.
func (c *ResultCache) Lookup(ctx context.Context, key string) (qualifier.Result, bool) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("failed to read cached result",
			zap.String("op", "cache.Lookup"),
			zap.String("key", key),
			zap.Error(err),
		)
		return qualifier.Result{}, false
	}
	if !ok {
		return qualifier.Result{}, false
	}

	var result qualifier.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("discarding undecodable cached result",
			zap.String("op", "cache.Lookup"),
			zap.String("key", key),
			zap.Error(err),
		)
		return qualifier.Result{}, false
	}
	if result.Offers == nil {
		result.Offers = []ratesheet.Offer{}
	}
	return result, true
}

// Store caches result under key.
func (c *ResultCache) Store(ctx context.Context, key string, result qualifier.Result) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("failed to encode result for cache",
			zap.String("op", "cache.Store"),
			zap.Error(err),
		)
		return
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("failed to cache result",
			zap.String("op", "cache.Store"),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
