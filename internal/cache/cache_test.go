package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type recordingObserver struct {
	lookups map[string][2]int
	mu      sync.Mutex
}

func (r *recordingObserver) ObserveCacheLookup(namespace string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookups == nil {
		r.lookups = make(map[string][2]int)
	}
	counts := r.lookups[namespace]
	if hit {
		counts[0]++
	} else {
		counts[1]++
	}
	r.lookups[namespace] = counts
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithCleanupInterval(0)}, opts...)
	c := New(DefaultTTL, opts...)
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		c, _ := newTestCache(t)

		_, found := c.Get("non-existent")
		assert.False(t, found)

		c.Set("transactions", []string{"a", "b"}, 0)
		value, found := c.Get("transactions")
		assert.True(t, found)
		assert.Equal(t, []string{"a", "b"}, value)
		assert.Equal(t, 1, c.Len())

		c.Clear()
		assert.Equal(t, 0, c.Len())
		_, found = c.Get("transactions")
		assert.False(t, found)
	})

	t.Run("expiration", func(t *testing.T) {
		c, clock := newTestCache(t)

		c.Set("tags", 3, time.Minute)
		_, found := c.Get("tags")
		assert.True(t, found)

		clock.Advance(59 * time.Second)
		_, found = c.Get("tags")
		assert.True(t, found)

		clock.Advance(time.Second)
		_, found = c.Get("tags")
		assert.False(t, found, "entry should expire exactly at its TTL")
		assert.Equal(t, 0, c.Len(), "expired entry is removed on lookup")
	})

	t.Run("default ttl applies when none given", func(t *testing.T) {
		c, clock := newTestCache(t)

		c.Set("uploaded_files", "x", 0)
		clock.Advance(DefaultTTL - time.Second)
		_, found := c.Get("uploaded_files")
		assert.True(t, found)

		clock.Advance(time.Second)
		_, found = c.Get("uploaded_files")
		assert.False(t, found)
	})
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("transactions", 1, 0)
	c.Set("transactions:sort=amount", 2, 0)
	c.Set("transactions:sort=date:q=coffee", 3, 0)
	c.Set("transactionsx", 4, 0)
	c.Set("tags", 5, 0)

	c.Invalidate("transactions")

	for _, key := range []string{"transactions", "transactions:sort=amount", "transactions:sort=date:q=coffee"} {
		_, found := c.Get(key)
		assert.False(t, found, "key %q should be invalidated", key)
	}
	for _, key := range []string{"transactionsx", "tags"} {
		_, found := c.Get(key)
		assert.True(t, found, "key %q should survive", key)
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("transactions", 1, 0)
	c.Set("transactions:sort=amount", 2, 0)
	c.Set("tags", 3, 0)

	c.InvalidatePrefix("transactions:")

	_, found := c.Get("transactions")
	assert.True(t, found)
	_, found = c.Get("transactions:sort=amount")
	assert.False(t, found)
	_, found = c.Get("tags")
	assert.True(t, found)
}

func TestCache_GetOrCompute(t *testing.T) {
	t.Run("loads once then hits", func(t *testing.T) {
		c, _ := newTestCache(t)
		calls := 0
		loader := func() (any, error) {
			calls++
			return "loaded", nil
		}

		v, err := c.GetOrCompute("transactions", 0, loader)
		require.NoError(t, err)
		assert.Equal(t, "loaded", v)

		v, err = c.GetOrCompute("transactions", 0, loader)
		require.NoError(t, err)
		assert.Equal(t, "loaded", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("loader error is not cached", func(t *testing.T) {
		c, _ := newTestCache(t)
		boom := errors.New("boom")

		_, err := c.GetOrCompute("transactions", 0, func() (any, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("reload after expiry", func(t *testing.T) {
		c, clock := newTestCache(t)
		calls := 0
		loader := func() (any, error) {
			calls++
			return calls, nil
		}

		_, err := c.GetOrCompute("tags", time.Minute, loader)
		require.NoError(t, err)
		clock.Advance(time.Minute)
		v, err := c.GetOrCompute("tags", time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("no stale publish after invalidation", func(t *testing.T) {
		c, _ := newTestCache(t)

		v, err := c.GetOrCompute("transactions", 0, func() (any, error) {
			// A write lands while the read is in flight.
			c.Invalidate("transactions")
			return "stale", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "stale", v, "the caller still gets its result")

		_, found := c.Get("transactions")
		assert.False(t, found, "the stale result must not be stored")
	})
}

func TestCache_Observer(t *testing.T) {
	obs := &recordingObserver{}
	c, _ := newTestCache(t, WithObserver(obs))

	_, _ = c.Get("transactions:sort=amount")
	c.Set("transactions:sort=amount", 1, 0)
	_, _ = c.Get("transactions:sort=amount")
	_, _ = c.Get("tags")

	assert.Equal(t, [2]int{1, 1}, obs.lookups["transactions"])
	assert.Equal(t, [2]int{0, 1}, obs.lookups["tags"])
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("transactions:sort=%d", j%5)
				_, err := c.GetOrCompute(key, 0, func() (any, error) { return n, nil })
				assert.NoError(t, err)
				if j%10 == 0 {
					c.Invalidate("transactions")
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 5)
}

func TestCache_CleanupSweepsExpired(t *testing.T) {
	c := New(20*time.Millisecond, WithCleanupInterval(10*time.Millisecond))
	defer c.Close()

	c.Set("transactions", 1, 0)
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	c.Close()
	assert.NotPanics(t, c.Close)
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "transactions", Namespace("transactions"))
	assert.Equal(t, "transactions", Namespace("transactions:sort=amount:desc"))
	assert.Equal(t, "tags", Namespace("tags"))
}

func TestLoad(t *testing.T) {
	t.Run("nil cache runs uncached", func(t *testing.T) {
		calls := 0
		for i := 0; i < 2; i++ {
			v, err := Load(nil, "tags", 0, func() ([]string, error) {
				calls++
				return []string{"Groceries"}, nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"Groceries"}, v)
		}
		assert.Equal(t, 2, calls)
	})

	t.Run("typed hit", func(t *testing.T) {
		c, _ := newTestCache(t)
		calls := 0
		loader := func() (int, error) {
			calls++
			return 42, nil
		}

		v, err := Load(c, "count", 0, loader)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		v, err = Load(c, "count", 0, loader)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 1, calls)
	})

	t.Run("foreign value recomputes", func(t *testing.T) {
		c, _ := newTestCache(t)
		c.Set("count", "not an int", 0)

		v, err := Load(c, "count", 0, func() (int, error) { return 7, nil })
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})
}
