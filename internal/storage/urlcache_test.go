package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pth-in/cprn/internal/logger"
)

func init() {
	logger.Init()
}

func TestProcessedURLCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.json")

	c := NewProcessedURLCache(path, 24)
	c.Mark("https://example.com/a")
	c.Mark("https://example.com/b")
	c.Save()

	reloaded := NewProcessedURLCache(path, 24)
	reloaded.Load()
	assert.True(t, reloaded.Seen("https://example.com/a"))
	assert.True(t, reloaded.Seen("https://example.com/b"))
	assert.False(t, reloaded.Seen("https://example.com/c"))
}

func TestProcessedURLCacheExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.json")

	c := NewProcessedURLCache(path, 1)
	c.mu.Lock()
	c.items["https://example.com/old"] = time.Now().Add(-2 * time.Hour)
	c.items["https://example.com/fresh"] = time.Now()
	c.mu.Unlock()

	assert.False(t, c.Seen("https://example.com/old"))
	assert.True(t, c.Seen("https://example.com/fresh"))

	// Expired entries are dropped on reload
	c.Save()
	reloaded := NewProcessedURLCache(path, 1)
	reloaded.Load()
	reloaded.mu.Lock()
	_, hasOld := reloaded.items["https://example.com/old"]
	reloaded.mu.Unlock()
	assert.False(t, hasOld)
}

func TestProcessedURLCacheMissingAndCorruptFiles(t *testing.T) {
	c := NewProcessedURLCache(filepath.Join(t.TempDir(), "absent.json"), 24)
	c.Load()
	assert.False(t, c.Seen("anything"))

	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	c = NewProcessedURLCache(path, 24)
	c.Load()
	c.Mark("https://example.com/a")
	assert.True(t, c.Seen("https://example.com/a"))
}
