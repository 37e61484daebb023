package storage

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pth-in/cprn/internal/logger"
)

// ProcessedURLCache remembers which article URLs a previous run already
// handled, so restarts do not re-query the store for every entry. Entries
// expire after the configured TTL.
type ProcessedURLCache struct {
	path string
	ttl  time.Duration

	mu    sync.Mutex
	items map[string]time.Time
}

func NewProcessedURLCache(path string, ttlHours int) *ProcessedURLCache {
	return &ProcessedURLCache{
		path:  path,
		ttl:   time.Duration(ttlHours) * time.Hour,
		items: make(map[string]time.Time),
	}
}

// Load reads the cache file if it exists, dropping expired entries. A missing
// or corrupt file starts empty.
func (c *ProcessedURLCache) Load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("url cache read failed", "path", c.path, "error", err)
		}
		return
	}

	var items map[string]time.Time
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("url cache corrupt, starting fresh", "path", c.path, "error", err)
		return
	}

	cutoff := time.Now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, seen := range items {
		if seen.After(cutoff) {
			c.items[url] = seen
		}
	}
	logger.Debug("url cache loaded", "entries", len(c.items))
}

// Save writes the cache back to disk.
func (c *ProcessedURLCache) Save() {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.items, "", "  ")
	c.mu.Unlock()
	if err != nil {
		logger.Warn("url cache encode failed", "error", err)
		return
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		logger.Warn("url cache write failed", "path", c.path, "error", err)
	}
}

// Seen reports whether url was processed within the TTL.
func (c *ProcessedURLCache) Seen(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen, ok := c.items[url]
	return ok && time.Since(seen) < c.ttl
}

// Mark records url as processed now.
func (c *ProcessedURLCache) Mark(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[url] = time.Now()
}
