package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisTier) {
	t.Helper()
	s := miniredis.RunT(t)
	tier := NewRedisTierFromClient(redis.NewClient(&redis.Options{Addr: s.Addr()}), time.Second)
	t.Cleanup(func() { tier.Close() })
	return s, tier
}

func TestKeys(t *testing.T) {
	if got := OCRKey("abc", "block"); got != "abc:block" {
		t.Errorf("OCRKey = %q", got)
	}
	if got := ExtractionKey("invoice", "tenant-1", "abc"); got != "invoice:tenant-1:abc" {
		t.Errorf("ExtractionKey = %q", got)
	}
}

func TestCache_L1Only(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c, err := New(Options{L1Size: 10, Now: clock.Now})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, ok := c.Get(ctx, NamespaceOCR, "k"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set(ctx, NamespaceOCR, "k", []byte("hello"), 0)
	got, ok := c.Get(ctx, NamespaceOCR, "k")
	if !ok || string(got) != "hello" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	// Namespaces are disjoint.
	if _, ok := c.Get(ctx, NamespaceVision, "k"); ok {
		t.Error("vision namespace should miss")
	}

	clock.Advance(DefaultTTLs[NamespaceOCR] + time.Second)
	if _, ok := c.Get(ctx, NamespaceOCR, "k"); ok {
		t.Error("expired entry should miss")
	}

	st := c.Stats()
	if st.L1Hits != 1 || st.L1Misses != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCache_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	c, _ := New(Options{})

	value := []byte("abc")
	c.Set(ctx, NamespaceOCR, "k", value, 0)
	value[0] = 'x'

	got, _ := c.Get(ctx, NamespaceOCR, "k")
	got[1] = 'y'

	again, _ := c.Get(ctx, NamespaceOCR, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c, _ := New(Options{L1Size: 2})

	c.Set(ctx, NamespaceOCR, "a", []byte("1"), 0)
	c.Set(ctx, NamespaceOCR, "b", []byte("2"), 0)
	c.Get(ctx, NamespaceOCR, "a")
	c.Set(ctx, NamespaceOCR, "c", []byte("3"), 0)

	if _, ok := c.Get(ctx, NamespaceOCR, "b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Get(ctx, NamespaceOCR, "a"); !ok {
		t.Error("recently used entry should survive")
	}
}

func TestCache_TTLOverride(t *testing.T) {
	c, _ := New(Options{TTLs: map[Namespace]time.Duration{NamespaceOCR: time.Minute}})
	if c.TTL(NamespaceOCR) != time.Minute {
		t.Errorf("ocr ttl = %v", c.TTL(NamespaceOCR))
	}
	if c.TTL(NamespaceVision) != 30*24*time.Hour {
		t.Errorf("vision ttl = %v", c.TTL(NamespaceVision))
	}
	if c.TTL("other") != time.Hour {
		t.Errorf("fallback ttl = %v", c.TTL("other"))
	}
}

func TestCache_WritesThroughToRedis(t *testing.T) {
	ctx := context.Background()
	s, tier := newRedis(t)
	c, _ := New(Options{Tier: tier})

	c.Set(ctx, NamespaceVision, "h1", []byte(`{"a":1}`), 0)

	got, err := s.Get("vision-result:h1")
	if err != nil {
		t.Fatalf("redis key missing: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("redis value = %q", got)
	}
	if ttl := s.TTL("vision-result:h1"); ttl != 30*24*time.Hour {
		t.Errorf("redis ttl = %v", ttl)
	}
}

func TestCache_PromotesFromRedis(t *testing.T) {
	ctx := context.Background()
	s, tier := newRedis(t)
	clock := newFakeClock()
	c, _ := New(Options{Tier: tier, Now: clock.Now})

	s.Set("ocr-text:h2:block", "INVOICE")
	s.SetTTL("ocr-text:h2:block", 10*time.Minute)

	got, ok := c.Get(ctx, NamespaceOCR, OCRKey("h2", "block"))
	if !ok || string(got) != "INVOICE" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	st := c.Stats()
	if st.L2Hits != 1 || st.L1Len != 1 {
		t.Errorf("stats after promotion = %+v", st)
	}

	// Served from L1 now, even with Redis gone.
	s.Close()
	if _, ok := c.Get(ctx, NamespaceOCR, OCRKey("h2", "block")); !ok {
		t.Error("promoted entry should be served from L1")
	}

	// Promotion keeps the remaining Redis TTL, not the namespace default.
	clock.Advance(11 * time.Minute)
	if _, ok := c.Get(ctx, NamespaceOCR, OCRKey("h2", "block")); ok {
		t.Error("promoted entry should expire with the redis ttl")
	}
}

func TestCache_RedisUnavailable(t *testing.T) {
	ctx := context.Background()
	s, tier := newRedis(t)
	c, _ := New(Options{Tier: tier})
	s.Close()

	// Writes still land in L1 and reads are served from it.
	c.Set(ctx, NamespaceOCR, "k", []byte("v"), 0)
	if got, ok := c.Get(ctx, NamespaceOCR, "k"); !ok || string(got) != "v" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	if _, ok := c.Get(ctx, NamespaceOCR, "missing"); ok {
		t.Error("unreachable redis should be a miss")
	}
	if c.Stats().L2Errors < 2 {
		t.Errorf("L2Errors = %d, want >= 2", c.Stats().L2Errors)
	}
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	s, tier := newRedis(t)
	c, _ := New(Options{Tier: tier})

	c.Set(ctx, NamespaceExtraction, "k", []byte("v"), 0)
	c.Invalidate(ctx, NamespaceExtraction, "k")

	if _, ok := c.Get(ctx, NamespaceExtraction, "k"); ok {
		t.Error("invalidated entry should miss")
	}
	if s.Exists("extraction-result:k") {
		t.Error("redis key should be deleted")
	}
}

func TestCache_JSON(t *testing.T) {
	ctx := context.Background()
	c, _ := New(Options{})

	type payload struct {
		Text string `json:"text"`
		N    int    `json:"n"`
	}
	if err := c.SetJSON(ctx, NamespaceVision, "k", payload{Text: "x", N: 3}, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	var got payload
	if !c.GetJSON(ctx, NamespaceVision, "k", &got) {
		t.Fatal("GetJSON missed")
	}
	if got.Text != "x" || got.N != 3 {
		t.Errorf("got %+v", got)
	}

	c.Set(ctx, NamespaceVision, "bad", []byte("{"), 0)
	if c.GetJSON(ctx, NamespaceVision, "bad", &got) {
		t.Error("corrupt entry should miss")
	}
	if _, ok := c.Get(ctx, NamespaceVision, "bad"); ok {
		t.Error("corrupt entry should be invalidated")
	}
}

type errTier struct{ err error }

func (e errTier) Get(context.Context, string) ([]byte, time.Duration, bool, error) {
	return nil, 0, false, e.err
}
func (e errTier) Set(context.Context, string, []byte, time.Duration) error { return e.err }
func (e errTier) Delete(context.Context, string) error                   { return e.err }
func (e errTier) Close() error                                           { return nil }

func TestCache_TierErrorsNeverSurface(t *testing.T) {
	ctx := context.Background()
	c, _ := New(Options{Tier: errTier{err: errors.New("boom")}})

	c.Set(ctx, NamespaceOCR, "k", []byte("v"), 0)
	c.Invalidate(ctx, NamespaceOCR, "k")
	if _, ok := c.Get(ctx, NamespaceOCR, "k"); ok {
		t.Error("expected miss")
	}
	if c.Stats().L2Errors != 3 {
		t.Errorf("L2Errors = %d, want 3", c.Stats().L2Errors)
	}
}

func TestNewRedisTier_BadURL(t *testing.T) {
	if _, err := NewRedisTier("not-a-url://", time.Second); err == nil {
		t.Error("expected parse error")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	_, tier := newRedis(t)
	c, err := New(Options{L1Size: 8, Tier: tier})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := keys[(w+i)%len(keys)]
				switch i % 3 {
				case 0:
					c.Set(ctx, NamespaceOCR, key, []byte(key+"-value"), 0)
				case 1:
					if got, ok := c.Get(ctx, NamespaceOCR, key); ok && string(got) != key+"-value" {
						t.Errorf("Get(%s) = %q", key, got)
					}
				default:
					c.Invalidate(ctx, NamespaceOCR, key)
				}
			}
		}(w)
	}
	wg.Wait()

	st := c.Stats()
	if st.L1Hits+st.L1Misses != 8*17 {
		t.Errorf("counted %d lookups, want %d", st.L1Hits+st.L1Misses, 8*17)
	}
}
