package rangeassembler

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kenneth/tiered-segment-store/internal/chunkcache"
	"github.com/kenneth/tiered-segment-store/internal/chunkindex"
	"github.com/kenneth/tiered-segment-store/internal/chunkmanager"
	"github.com/kenneth/tiered-segment-store/internal/manifest"
	"github.com/kenneth/tiered-segment-store/internal/objectstore/memstore"
	"github.com/kenneth/tiered-segment-store/internal/transform"
)

// countingFetcher wraps a chunkmanager.Manager and counts GetChunk calls
// per ordinal, to assert single-flight collapsing through the cache.
type countingFetcher struct {
	mgr   *chunkmanager.Manager
	calls map[uint32]*int64
}

func (f *countingFetcher) GetChunk(ctx context.Context, ordinal uint32) (io.ReadCloser, error) {
	if c, ok := f.calls[ordinal]; ok {
		atomic.AddInt64(c, 1)
	}
	return f.mgr.GetChunk(ctx, ordinal)
}

func setup(t *testing.T, plaintext []byte, chunkSize uint32) (*Assembler, map[uint32]*int64) {
	t.Helper()
	store := memstore.New()

	stage := transform.NewBaseChunker(bytes.NewReader(plaintext), chunkSize)
	finisher := transform.NewFinisher(stage)
	var buf bytes.Buffer
	require.NoError(t, finisher.Finish(&buf))
	require.NoError(t, store.Upload(context.Background(), "seg.log", &buf))
	idx, err := finisher.ChunkIndex()
	require.NoError(t, err)
	mf := manifest.New(idx, false, nil, nil)

	mgr := chunkmanager.New(store, "seg.log", mf, nil, nil)
	calls := make(map[uint32]*int64)
	for o := uint32(0); o < uint32(idx.Count()); o++ {
		var c int64
		calls[o] = &c
	}
	fetcher := &countingFetcher{mgr: mgr, calls: calls}

	cache := chunkcache.New(chunkcache.Options{})
	t.Cleanup(func() { cache.Close() })

	return New(idx, "seg.log", cache, fetcher), calls
}

func TestAssembleRange_FullSegment(t *testing.T) {
	a, _ := setup(t, []byte("01234567891011121314"), 10)
	r, err := a.AssembleRange(context.Background(), chunkindex.BytesRange{From: 0, To: 19})
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "01234567891011121314", string(b))
}

func TestAssembleRange_MidSegment(t *testing.T) {
	a, _ := setup(t, []byte("01234567891011121314"), 10)
	r, err := a.AssembleRange(context.Background(), chunkindex.BytesRange{From: 5, To: 14})
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "5678910111", string(b))
}

func TestAssembleRange_ConcurrentColdCacheSingleFetch(t *testing.T) {
	a, calls := setup(t, []byte("0123456789"), 10)

	const n = 10
	results := make([]string, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			r, err := a.AssembleRange(context.Background(), chunkindex.BytesRange{From: 0, To: 9})
			require.NoError(t, err)
			b, _ := io.ReadAll(r)
			r.Close()
			results[i] = string(b)
			done <- i
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	for _, got := range results {
		require.Equal(t, "0123456789", got)
	}
	require.Equal(t, int64(1), atomic.LoadInt64(calls[0]))
}
