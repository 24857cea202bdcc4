package ocr

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
)

// Cache is a bounded in-memory map from document content hash to OCR result.
// Insertions past capacity evict the oldest entry (FIFO). Results are stored
// as DocumentOCR values; the copy is shallow, so the Pages slice is shared
// between the cached entry and every caller that reads it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]DocumentOCR
	order   []string
	maxSize int
}

// NewCache creates a cache holding at most maxSize documents.
func NewCache(maxSize int) *Cache {
	return &Cache{
		entries: make(map[string]DocumentOCR, maxSize),
		maxSize: maxSize,
	}
}

// Key returns the cache key for a document's raw bytes.
func Key(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for a key.
func (c *Cache) Get(key string) (DocumentOCR, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.entries[key]
	return doc, ok
}

// Set stores a result, evicting the oldest entry when full.
func (c *Cache) Set(key string, doc DocumentOCR) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = doc
		return
	}

	if len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = doc
	c.order = append(c.order, key)
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
