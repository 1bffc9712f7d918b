// Package cache holds parsed file results keyed by path, so repeated
// loads of unchanged files skip re-parsing.
package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"envlens/internal/parser"
)

// Entry is one file's cached parse result. Sum is the content digest
// used as a second change signal alongside ModTime, for filesystems
// whose timestamp granularity can hide a rewrite. Config is the
// fingerprint of the options the entry was parsed under.
type Entry struct {
	ModTime   time.Time
	Sum       string
	Config    string
	Variables map[string]parser.Variable
}

// Cache is a path-keyed store of parse results, safe for concurrent
// use. Entries are replaced whole, so readers never observe a
// partially written entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	config  string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Get returns the entry for path, if present.
func (c *Cache) Get(path string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	return e, ok
}

// Put stores an entry for path, replacing any previous one.
func (c *Cache) Put(path string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = e
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// EnsureConfig records the parse configuration fingerprint the
// entries were built under and clears them all when it changes.
// Results parsed under different options must never be served.
func (c *Cache) EnsureConfig(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == fingerprint {
		return
	}
	if c.config != "" {
		log.Debug().Int("dropped", len(c.entries)).Msg("Parse options changed, clearing cache")
		c.entries = make(map[string]Entry)
	}
	c.config = fingerprint
}
