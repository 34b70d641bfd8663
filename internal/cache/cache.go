// Package cache implements the two-tier content cache.
//
// Tier 1 is a bounded in-process LRU with per-entry expiry. Tier 2 is an
// optional shared store (Redis). Reads check tier 1 first and promote tier 2
// hits; writes go to both. A failing tier 2 is logged and treated as a miss,
// never returned to the caller.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
	"github.com/sam02425/Document-Portal/internal/logging"
)

// Namespace partitions cache keys by content type.
type Namespace string

const (
	NamespaceOCR        Namespace = "ocr-text"
	NamespaceVision     Namespace = "vision-result"
	NamespaceExtraction Namespace = "extraction-result"
)

// DefaultTTLs are the namespace lifetimes used when Options.TTLs has no entry.
var DefaultTTLs = map[Namespace]time.Duration{
	NamespaceOCR:        24 * time.Hour,
	NamespaceVision:     30 * 24 * time.Hour,
	NamespaceExtraction: 7 * 24 * time.Hour,
}

// fallbackTTL applies to namespaces without a configured lifetime.
const fallbackTTL = time.Hour

// OCRKey builds the ocr-text key for an image hash and recognition mode.
func OCRKey(hash, mode string) string {
	return hash + ":" + mode
}

// ExtractionKey builds the extraction-result key. The caller id keeps one
// tenant's results from being served to another.
func ExtractionKey(docType, callerID, hash string) string {
	return docType + ":" + callerID + ":" + hash
}

// Options configure a Cache.
type Options struct {
	// L1Size is the maximum number of in-process entries. Default 100.
	L1Size int

	// TTLs override DefaultTTLs per namespace.
	TTLs map[Namespace]time.Duration

	// Tier is the shared tier. Nil means in-process only.
	Tier Tier

	Logger *slog.Logger

	// Now is the clock used for tier-1 expiry. Default time.Now.
	Now func() time.Time
}

// Stats are cumulative hit and miss counters.
type Stats struct {
	L1Hits   uint64 `json:"l1_hits"`
	L1Misses uint64 `json:"l1_misses"`
	L2Hits   uint64 `json:"l2_hits"`
	L2Misses uint64 `json:"l2_misses"`
	L2Errors uint64 `json:"l2_errors"`
	L1Len    int    `json:"l1_len"`
}

type entry struct {
	value   []byte
	expires time.Time
}

// Cache is a two-tier content cache. It is safe for concurrent use.
type Cache struct {
	l1     *lru.Cache[string, entry]
	l2     Tier
	ttls   map[Namespace]time.Duration
	now    func() time.Time
	logger *slog.Logger

	l1Hits, l1Misses         atomic.Uint64
	l2Hits, l2Misses, l2Errs atomic.Uint64
}

// New creates a Cache.
func New(opts Options) (*Cache, error) {
	size := opts.L1Size
	if size <= 0 {
		size = 100
	}
	l1, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}

	ttls := make(map[Namespace]time.Duration, len(DefaultTTLs))
	for ns, ttl := range DefaultTTLs {
		ttls[ns] = ttl
	}
	for ns, ttl := range opts.TTLs {
		if ttl > 0 {
			ttls[ns] = ttl
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Cache{
		l1:     l1,
		l2:     opts.Tier,
		ttls:   ttls,
		now:    now,
		logger: logging.OrNop(opts.Logger),
	}, nil
}

// TTL returns the default lifetime of ns.
func (c *Cache) TTL(ns Namespace) time.Duration {
	if ttl, ok := c.ttls[ns]; ok {
		return ttl
	}
	return fallbackTTL
}

// Get returns the value stored under ns and key.
func (c *Cache) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool) {
	full := fullKey(ns, key)

	if e, ok := c.l1.Get(full); ok {
		if c.now().Before(e.expires) {
			c.l1Hits.Add(1)
			return clone(e.value), true
		}
		c.l1.Remove(full)
	}
	c.l1Misses.Add(1)

	if c.l2 == nil {
		return nil, false
	}

	value, ttl, found, err := c.l2.Get(ctx, full)
	if err != nil {
		c.l2Errs.Add(1)
		c.unavailable("get", full, err)
		return nil, false
	}
	if !found {
		c.l2Misses.Add(1)
		return nil, false
	}
	c.l2Hits.Add(1)

	if ttl <= 0 {
		ttl = c.TTL(ns)
	}
	c.l1.Add(full, entry{value: clone(value), expires: c.now().Add(ttl)})
	return value, true
}

// Set stores value under ns and key in both tiers. A zero ttl uses the
// namespace default.
func (c *Cache) Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.TTL(ns)
	}
	full := fullKey(ns, key)
	c.l1.Add(full, entry{value: clone(value), expires: c.now().Add(ttl)})

	if c.l2 == nil {
		return
	}
	if err := c.l2.Set(ctx, full, value, ttl); err != nil {
		c.l2Errs.Add(1)
		c.unavailable("set", full, err)
	}
}

// Invalidate removes the entry from both tiers.
func (c *Cache) Invalidate(ctx context.Context, ns Namespace, key string) {
	full := fullKey(ns, key)
	c.l1.Remove(full)

	if c.l2 == nil {
		return
	}
	if err := c.l2.Delete(ctx, full); err != nil {
		c.l2Errs.Add(1)
		c.unavailable("delete", full, err)
	}
}

// GetJSON decodes a cached JSON value into v. Undecodable entries count as
// misses and are invalidated.
func (c *Cache) GetJSON(ctx context.Context, ns Namespace, key string, v interface{}) bool {
	data, ok := c.Get(ctx, ns, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Warn("cache.decode.failed", "namespace", string(ns), "key", key, "error", err)
		c.Invalidate(ctx, ns, key)
		return false
	}
	return true
}

// SetJSON stores v encoded as JSON.
func (c *Cache) SetJSON(ctx context.Context, ns Namespace, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	c.Set(ctx, ns, key, data, ttl)
	return nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		L1Hits:   c.l1Hits.Load(),
		L1Misses: c.l1Misses.Load(),
		L2Hits:   c.l2Hits.Load(),
		L2Misses: c.l2Misses.Load(),
		L2Errors: c.l2Errs.Load(),
		L1Len:    c.l1.Len(),
	}
}

// Close releases the shared tier.
func (c *Cache) Close() error {
	if c.l2 == nil {
		return nil
	}
	return c.l2.Close()
}

func (c *Cache) unavailable(op, key string, err error) {
	c.logger.Warn("cache.l2.unavailable",
		"op", op,
		"key", key,
		"error", perrors.NewCacheUnavailableError("cache."+op, "l2", err))
}

func fullKey(ns Namespace, key string) string {
	return string(ns) + ":" + key
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
