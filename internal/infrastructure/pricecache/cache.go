package pricecache

import (
	"strings"
	"sync"
	"time"

	"dipwatch/internal/domain/model"
)

// DefaultTTL is the freshness window for a sample. A sample older than the
// TTL is never handed to readers.
const DefaultTTL = 5 * time.Minute

type key struct {
	asset  model.AssetType
	symbol string
}

// Cache holds the latest sample per (assetType, symbol). One writer path per
// symbol (stream or poller), many readers.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	samples map[key]model.PriceSample

	now func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		samples: make(map[key]model.PriceSample),
		now:     time.Now,
	}
}

// Put overwrites the previous sample for the symbol and resets its TTL.
func (c *Cache) Put(s model.PriceSample) {
	if s.Price <= 0 || strings.TrimSpace(s.Symbol) == "" {
		return
	}
	k := key{asset: s.AssetType, symbol: strings.ToUpper(s.Symbol)}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = c.now()
	}

	c.mu.Lock()
	c.samples[k] = s
	c.mu.Unlock()
}

// Latest returns the current sample if it is within the TTL. ok is false
// for unknown symbols and for expired entries.
func (c *Cache) Latest(asset model.AssetType, symbol string) (model.PriceSample, bool) {
	k := key{asset: asset, symbol: strings.ToUpper(strings.TrimSpace(symbol))}

	c.mu.RLock()
	s, ok := c.samples[k]
	c.mu.RUnlock()

	if !ok || c.now().Sub(s.ObservedAt) > c.ttl {
		return model.PriceSample{}, false
	}
	return s, true
}

// Len reports how many samples are resident, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples)
}
