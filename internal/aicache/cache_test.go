package aicache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(maxSize int) (*Cache, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(Config{MaxSize: maxSize, DefaultTTL: time.Hour, Clock: clock.Now}), clock
}

func TestSetThenGet(t *testing.T) {
	c, _ := newTestCache(10)
	c.Set("k", []byte("v"), time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestGetAfterTTLRemovesEntry(t *testing.T) {
	c, clock := newTestCache(10)
	c.Set("k", []byte("v"), time.Minute)

	clock.Advance(time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry is still valid at exactly expiresAt")

	clock.Advance(time.Second)
	assert.Equal(t, 1, c.Stats().ExpiredEntries)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestDefaultTTLUsedForNonPositiveTTL(t *testing.T) {
	c, clock := newTestCache(10)
	c.Set("k", []byte("v"), 0)
	clock.Advance(59 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)
	clock.Advance(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyAccessed(t *testing.T) {
	c, clock := newTestCache(3)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, []byte(k), time.Hour)
		clock.Advance(time.Second)
	}

	// refresh a and c so b becomes the least recently accessed entry.
	_, ok := c.Get("a")
	require.True(t, ok)
	clock.Advance(time.Second)
	_, ok = c.Get("c")
	require.True(t, ok)
	clock.Advance(time.Second)

	c.Set("d", []byte("d"), time.Hour)

	assert.Equal(t, 3, c.Stats().Size)
	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should remain", k)
	}
}

func TestOverwriteExistingKeyDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(2)
	c.Set("a", []byte("1"), time.Hour)
	c.Set("b", []byte("2"), time.Hour)
	c.Set("a", []byte("3"), time.Hour)

	assert.Equal(t, 2, c.Stats().Size)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("3"), got)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestExpiryAndEvictionAreIndependent(t *testing.T) {
	c, clock := newTestCache(2)
	c.Set("hot", []byte("h"), 10*time.Second)
	c.Set("cold", []byte("c"), time.Hour)

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		_, ok := c.Get("hot")
		require.True(t, ok)
	}
	clock.Advance(10 * time.Second)

	_, ok := c.Get("hot")
	assert.False(t, ok, "frequently read entry still expires on its TTL")
	_, ok = c.Get("cold")
	assert.True(t, ok)
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(10)
	c.Set("k", []byte("v"), time.Hour)
	assert.True(t, c.Invalidate("k"))
	assert.False(t, c.Invalidate("k"))
}

func TestInvalidatePatternMatchesAllSegmentsUnordered(t *testing.T) {
	c, _ := newTestCache(10)
	c.Set("ai:summary:111", []byte("1"), time.Hour)
	c.Set("ai:summary:222", []byte("2"), time.Hour)
	c.Set("ai:compare:333", []byte("3"), time.Hour)
	c.Set("333:other", []byte("4"), time.Hour)

	assert.Equal(t, 2, c.InvalidatePattern("ai:summary:*"))
	assert.Equal(t, 2, c.Stats().Size)

	// literal segments need not appear in pattern order.
	assert.Equal(t, 1, c.InvalidatePattern("333*compare"))
	_, ok := c.Get("333:other")
	assert.True(t, ok)
}

func TestClearAndStats(t *testing.T) {
	c, _ := newTestCache(4)
	c.Set("a", []byte("1"), time.Hour)
	c.Set("b", []byte("2"), time.Hour)
	s := c.Stats()
	assert.Equal(t, Stats{Size: 2, MaxSize: 4, ExpiredEntries: 0, Utilization: 0.5}, s)

	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
}

func TestGetReturnsCopy(t *testing.T) {
	c, _ := newTestCache(4)
	c.Set("a", []byte("abc"), time.Hour)
	got, _ := c.Get("a")
	got[0] = 'x'
	again, _ := c.Get("a")
	assert.Equal(t, []byte("abc"), again)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(Config{MaxSize: 16})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%32)
				c.Set(key, []byte(key), time.Minute)
				if v, ok := c.Get(key); ok {
					assert.Equal(t, key, string(v))
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Size, 16)
}

func TestKeyIsStableAcrossFieldOrder(t *testing.T) {
	a, err := Key("summary", map[string]any{"filters": map[string]any{"city": "Sandy", "price_max": 500000}, "max_properties": 50})
	require.NoError(t, err)
	b, err := Key("summary", struct {
		MaxProperties int            `json:"max_properties"`
		Filters       map[string]any `json:"filters"`
	}{50, map[string]any{"price_max": 500000, "city": "Sandy"}})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Regexp(t, `^ai:summary:[0-9a-f]{64}$`, a)

	other, err := Key("recommend", map[string]any{"filters": map[string]any{"city": "Sandy", "price_max": 500000}, "max_properties": 50})
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}
