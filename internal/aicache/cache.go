package aicache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxSize = 500
	DefaultTTL     = time.Hour
)

type Config struct {
	MaxSize    int
	DefaultTTL time.Duration
	Clock      func() time.Time
}

type entry struct {
	key            string
	value          []byte
	createdAt      time.Time
	lastAccessedAt time.Time
	expiresAt      time.Time
}

type Stats struct {
	Size           int     `json:"size"`
	MaxSize        int     `json:"max_size"`
	ExpiredEntries int     `json:"expired_entries"`
	Utilization    float64 `json:"utilization"`
}

// Cache is a bounded in-memory store of model results. Entries expire after
// their TTL and the least recently accessed entry is evicted when a new key
// is inserted into a full cache. The two removal paths are independent.
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*list.Element
	// recency holds *entry values, most recently accessed at the front.
	recency *list.List
}

func New(cfg Config) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Cache{
		cfg:     cfg,
		entries: map[string]*list.Element{},
		recency: list.New(),
	}
}

// Get returns a copy of the stored value. Expired entries are dropped on read.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	now := c.cfg.Clock()
	if now.After(e.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	e.lastAccessedAt = now
	c.recency.MoveToFront(el)
	return append([]byte(nil), e.value...), true
}

func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Clock()
	e := &entry{
		key:            key,
		value:          append([]byte(nil), value...),
		createdAt:      now,
		lastAccessedAt: now,
		expiresAt:      now.Add(ttl),
	}
	if el, ok := c.entries[key]; ok {
		el.Value = e
		c.recency.MoveToFront(el)
		return
	}
	if len(c.entries) >= c.cfg.MaxSize {
		c.evictLRU()
	}
	c.entries[key] = c.recency.PushFront(e)
}

func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// InvalidatePattern removes every key containing all literal segments of
// pattern, where segments are separated by '*'. Segment order is not
// enforced, so "ai:*:abc" also matches "abc:ai:x".
func (c *Cache) InvalidatePattern(pattern string) int {
	parts := strings.Split(pattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.entries {
		if containsAll(key, parts) {
			c.removeElement(el)
			removed++
		}
	}
	return removed
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*list.Element{}
	c.recency.Init()
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Clock()
	expired := 0
	for _, el := range c.entries {
		if now.After(el.Value.(*entry).expiresAt) {
			expired++
		}
	}
	return Stats{
		Size:           len(c.entries),
		MaxSize:        c.cfg.MaxSize,
		ExpiredEntries: expired,
		Utilization:    float64(len(c.entries)) / float64(c.cfg.MaxSize),
	}
}

func (c *Cache) evictLRU() {
	if el := c.recency.Back(); el != nil {
		c.removeElement(el)
	}
}

func (c *Cache) removeElement(el *list.Element) {
	c.recency.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}

func containsAll(key string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(key, p) {
			return false
		}
	}
	return true
}
