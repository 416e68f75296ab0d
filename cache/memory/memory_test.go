package memory

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johtso/http-caching/cache"
)

func testEntry(body string) *cache.Entry {
	header := http.Header{}
	header.Set("Content-Type", "text/plain")
	return &cache.Entry{
		Method:      "GET",
		URL:         "https://example.com/resource",
		StatusCode:  http.StatusOK,
		Header:      header,
		Body:        []byte(body),
		RequestedAt: time.Now(),
		ReceivedAt:  time.Now(),
	}
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := New()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, c.Set(ctx, "key", testEntry("hello")))
	assert.Equal(t, 1, c.Len())

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Body)

	require.NoError(t, c.Set(ctx, "key", testEntry("replaced")))
	got, err = c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), got.Body)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "key"))
	_, err = c.Get(ctx, "key")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	// deleting a nonexistent key is a no-op
	require.NoError(t, c.Delete(ctx, "key"))
}

func TestMutationIsolation(t *testing.T) {
	ctx := context.Background()
	c := New()

	entry := testEntry("hello")
	require.NoError(t, c.Set(ctx, "key", entry))

	// neither the stored entry nor a retrieved one aliases caller state
	entry.Body[0] = 'X'
	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Body)

	got.Header.Set("Age", "10")
	again, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Empty(t, again.Header.Get("Age"))
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, "key", testEntry("hello"))
				if entry, err := c.Get(ctx, "key"); err == nil {
					_ = entry.Body
				}
				_ = c.Delete(ctx, "key")
			}
		}()
	}
	wg.Wait()
}
