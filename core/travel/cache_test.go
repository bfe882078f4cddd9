package travel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/blockplan/core/model"
)

func TestCachesAnyModeOrder(t *testing.T) {
	for name, c := range map[string]Cache{
		"memory": NewMemoryCache(),
		"lru":    NewLRUCache(16, 0),
	} {
		t.Run(name, func(t *testing.T) {
			c.Set(Key{"a", "b", model.TravelWalking}, 50)
			c.Set(Key{"a", "b", model.TravelTransit}, 20)

			m, mode, ok := c.GetAnyMode("a", "b")
			assert.True(t, ok)
			assert.Equal(t, model.TravelTransit, mode)
			assert.Equal(t, 20, m)

			_, _, ok = c.GetAnyMode("b", "a")
			assert.False(t, ok, "routes are directed")
		})
	}
}

func TestLRUCacheBoundedAndExpiring(t *testing.T) {
	c := NewLRUCache(2, 0)
	c.Set(Key{"a", "b", model.TravelDriving}, 1)
	c.Set(Key{"a", "c", model.TravelDriving}, 2)
	c.Set(Key{"a", "d", model.TravelDriving}, 3)
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(Key{"a", "b", model.TravelDriving})
	assert.False(t, ok)

	exp := NewLRUCache(4, 10*time.Millisecond)
	exp.Set(Key{"x", "y", model.TravelWalking}, 7)
	time.Sleep(30 * time.Millisecond)
	_, ok = exp.Get(Key{"x", "y", model.TravelWalking})
	assert.False(t, ok)
}

func TestNewCacheKind(t *testing.T) {
	assert.IsType(t, &MemoryCache{}, NewCache(CacheConfig{Kind: "memory"}))
	assert.IsType(t, &LRUCache{}, NewCache(CacheConfig{}))
}
