package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLocalCache(size int) (*LocalCache, *time.Time) {
	now := time.Unix(1700000000, 0)
	lc := NewLocalCache(size)
	lc.now = func() time.Time { return now }
	return lc, &now
}

func TestLocalCache_GetSet(t *testing.T) {
	lc, _ := newTestLocalCache(10)

	_, ok := lc.Get("missing")
	assert.False(t, ok)

	lc.Set("a", "1", time.Minute)
	v, ok := lc.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	lc.Set("a", "2", time.Minute)
	v, _ = lc.Get("a")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, lc.Size())

	lc.Delete("a")
	_, ok = lc.Get("a")
	assert.False(t, ok)
}

func TestLocalCache_Expiry(t *testing.T) {
	lc, now := newTestLocalCache(10)
	lc.Set("a", "1", time.Minute)
	lc.Set("b", "2", time.Hour)

	*now = now.Add(time.Minute)

	_, ok := lc.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, lc.Size())

	*now = now.Add(time.Hour)
	assert.Equal(t, 1, lc.CleanupExpired())
	assert.Equal(t, 0, lc.Size())
}

func TestLocalCache_EvictsLeastRecentlyUsed(t *testing.T) {
	lc, _ := newTestLocalCache(2)
	lc.Set("a", "1", time.Minute)
	lc.Set("b", "2", time.Minute)

	_, _ = lc.Get("a")
	lc.Set("c", "3", time.Minute)

	_, okA := lc.Get("a")
	_, okB := lc.Get("b")
	_, okC := lc.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, lc.Size())
}

func TestNewLocalCache_DefaultSize(t *testing.T) {
	assert.Equal(t, 1000, NewLocalCache(0).maxSize)
}
