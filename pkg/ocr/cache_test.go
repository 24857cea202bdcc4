package ocr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func docWithText(text string) DocumentOCR {
	page := PageOCR{PageNumber: 1, Blocks: []TextBlock{{Text: text, Confidence: 0.9}}}
	page.Finalize()
	return DocumentOCR{Pages: []PageOCR{page}, TotalPages: 1, SourceType: SourceTypeImage}
}

func TestCache_SetAndGet(t *testing.T) {
	cache := NewCache(4)
	key := Key([]byte("file-bytes"))

	cache.Set(key, docWithText("Hemoglobin 13.2 g/dL"))

	doc, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "Hemoglobin 13.2 g/dL", doc.Pages[0].Text)
}

func TestCache_Miss(t *testing.T) {
	cache := NewCache(4)
	_, ok := cache.Get(Key([]byte("never seen")))
	assert.False(t, ok)
}

func TestCache_FIFOEviction(t *testing.T) {
	cache := NewCache(3)
	keys := make([]string, 5)
	for i := range keys {
		keys[i] = Key([]byte(fmt.Sprintf("file-%d", i)))
		cache.Set(keys[i], docWithText(fmt.Sprintf("doc %d", i)))
	}

	// Capacity 3: the two oldest entries are gone, the three newest remain.
	assert.Equal(t, 3, cache.Len())
	_, ok := cache.Get(keys[0])
	assert.False(t, ok)
	_, ok = cache.Get(keys[1])
	assert.False(t, ok)
	for _, k := range keys[2:] {
		_, ok := cache.Get(k)
		assert.True(t, ok)
	}
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	cache := NewCache(2)
	k1 := Key([]byte("a"))
	k2 := Key([]byte("b"))
	cache.Set(k1, docWithText("one"))
	cache.Set(k2, docWithText("two"))
	cache.Set(k1, docWithText("one-updated"))

	assert.Equal(t, 2, cache.Len())
	doc, ok := cache.Get(k1)
	assert.True(t, ok)
	assert.Equal(t, "one-updated", doc.Pages[0].Text)
	_, ok = cache.Get(k2)
	assert.True(t, ok)
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key([]byte("same")), Key([]byte("same")))
	assert.NotEqual(t, Key([]byte("a")), Key([]byte("b")))
}
