package manifestcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kenneth/tiered-segment-store/internal/chunkindex"
	"github.com/kenneth/tiered-segment-store/internal/manifest"
)

func testManifest() *manifest.Manifest {
	idx := chunkindex.FixedSize{
		OriginalChunkSize:    4,
		OriginalTotal:        4,
		TransformedChunkSize: 4,
		TransformedTotal:     4,
	}
	return manifest.New(idx, false, nil, nil)
}

func TestCache_MissThenHit(t *testing.T) {
	var calls int64
	fetch := func(ctx context.Context, key string) (*manifest.Manifest, error) {
		atomic.AddInt64(&calls, 1)
		return testManifest(), nil
	}
	c := New(fetch, 0, 0)

	m1, err := c.Get(context.Background(), "seg-a")
	require.NoError(t, err)
	require.NotNil(t, m1)

	m2, err := c.Get(context.Background(), "seg-a")
	require.NoError(t, err)
	require.Same(t, m1, m2)

	require.Equal(t, int64(1), atomic.LoadInt64(&calls))
	snap := c.Snapshot()
	require.Equal(t, int64(1), snap.Misses)
	require.Equal(t, int64(1), snap.Hits)
	require.Equal(t, int64(1), snap.LoadSuccesses)
}

func TestCache_ConcurrentMissesCollapseToOneFetch(t *testing.T) {
	var calls int64
	start := make(chan struct{})
	fetch := func(ctx context.Context, key string) (*manifest.Manifest, error) {
		<-start
		atomic.AddInt64(&calls, 1)
		time.Sleep(5 * time.Millisecond)
		return testManifest(), nil
	}
	c := New(fetch, 0, 0)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "seg-shared")
			require.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestCache_FetchFailureIsNeverCached(t *testing.T) {
	var calls int64
	boom := errors.New("fetch failed")
	fetch := func(ctx context.Context, key string) (*manifest.Manifest, error) {
		atomic.AddInt64(&calls, 1)
		return nil, boom
	}
	c := New(fetch, 0, 0)

	_, err := c.Get(context.Background(), "seg-a")
	require.Error(t, err)
	_, err = c.Get(context.Background(), "seg-a")
	require.Error(t, err)

	require.Equal(t, int64(2), atomic.LoadInt64(&calls))
	require.Equal(t, int64(2), c.Snapshot().LoadFailures)
}

func TestCache_Invalidate(t *testing.T) {
	fetch := func(ctx context.Context, key string) (*manifest.Manifest, error) {
		return testManifest(), nil
	}
	c := New(fetch, 0, 0)

	_, err := c.Get(context.Background(), "seg-a")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Invalidate("seg-a")
	require.Equal(t, 0, c.Len())
	require.Equal(t, int64(1), c.Snapshot().EvictionsManual)
}

func TestCache_TTLExpiry(t *testing.T) {
	fetch := func(ctx context.Context, key string) (*manifest.Manifest, error) {
		return testManifest(), nil
	}
	c := New(fetch, 0, 20*time.Millisecond)

	_, err := c.Get(context.Background(), "seg-a")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 5*time.Millisecond)

	require.GreaterOrEqual(t, c.Snapshot().EvictionsExpired, int64(1))
}
