package cache

import (
	"testing"
	"time"

	"slidecast/internal/feed"
)

func TestMemoryCache(t *testing.T) {
	t.Run("SetAndGet", func(t *testing.T) {
		c := NewMemoryCache(time.Minute)
		c.Set("key", "value")

		got, ok := c.Get("key")
		if !ok {
			t.Fatal("Expected cache hit")
		}
		if got != "value" {
			t.Errorf("Expected value, got %v", got)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		c := NewMemoryCache(time.Minute)
		if _, ok := c.Get("nope"); ok {
			t.Error("Expected cache miss")
		}
	})

	t.Run("Expiration", func(t *testing.T) {
		c := NewMemoryCache(10 * time.Millisecond)
		c.Set("key", "value")
		time.Sleep(20 * time.Millisecond)

		if _, ok := c.Get("key"); ok {
			t.Error("Expected entry to expire")
		}
	})

	t.Run("DeleteAndClear", func(t *testing.T) {
		c := NewMemoryCache(time.Minute)
		c.Set("a", 1)
		c.Set("b", 2)

		c.Delete("a")
		if _, ok := c.Get("a"); ok {
			t.Error("Expected deleted key to miss")
		}
		if c.Size() != 1 {
			t.Errorf("Expected size 1, got %d", c.Size())
		}

		c.Clear()
		if c.Size() != 0 {
			t.Errorf("Expected empty cache, got %d", c.Size())
		}
	})
}

func TestFeedCache(t *testing.T) {
	items := []feed.Item{
		{MediaID: 1, Type: "image", URL: "/media/raw/1", Duration: 10},
		{MediaID: 2, Type: "video", URL: "/media/raw/2", Duration: 30},
	}

	t.Run("SetAndGet", func(t *testing.T) {
		fc := NewFeedCache()
		fc.SetFeed(items, "abc123")

		got, fingerprint, ok := fc.GetFeed()
		if !ok {
			t.Fatal("Expected cached feed")
		}
		if fingerprint != "abc123" {
			t.Errorf("Expected fingerprint abc123, got %s", fingerprint)
		}
		if len(got) != 2 || got[0].MediaID != 1 {
			t.Errorf("Unexpected cached items: %+v", got)
		}
	})

	t.Run("EmptyCache", func(t *testing.T) {
		fc := NewFeedCache()
		if _, _, ok := fc.GetFeed(); ok {
			t.Error("Expected miss on fresh cache")
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		fc := NewFeedCache()
		fc.SetFeed(items, "abc123")
		fc.Invalidate()

		if _, _, ok := fc.GetFeed(); ok {
			t.Error("Expected miss after invalidation")
		}
	})
}
