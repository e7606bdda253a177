package centralcache

import "sync"
import "testing"
import "unsafe"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/bnclabs/tcmalloc/internal/flnode"
import "github.com/bnclabs/tcmalloc/pagecache"
import "github.com/bnclabs/tcmalloc/sizeclass"

func TestFetchCarvesFreshSpan(t *testing.T) {
	cc := New(pagecache.New())
	idx := sizeclass.IndexOf(32)

	chain, err := cc.FetchRange(idx)
	require.NoError(t, err)
	require.NotNil(t, chain)

	spans, _ := cc.Stats(idx)
	assert.Equal(t, int64(1), spans, "first fetch for an empty class should carve exactly one span")
}

func TestFetchThenReturnRoundTrips(t *testing.T) {
	cc := New(pagecache.New())
	idx := sizeclass.IndexOf(64)
	classBytes := sizeclass.ClassSize(idx)

	chain, err := cc.FetchRange(idx)
	require.NoError(t, err)
	n := flnode.Count(chain)
	require.True(t, n >= 1)

	cc.ReturnRange(chain, n*classBytes, idx)

	chain2, err := cc.FetchRange(idx)
	require.NoError(t, err)
	spans, _ := cc.Stats(idx)
	assert.Equal(t, int64(1), spans, "returned nodes should be reused before a second span is carved")
	assert.True(t, flnode.Count(chain2) >= 1)
}

func TestFetchNeverHandsOutOverlappingChains(t *testing.T) {
	cc := New(pagecache.New())
	idx := sizeclass.IndexOf(16)

	seen := map[unsafe.Pointer]bool{}
	for i := 0; i < 20; i++ {
		chain, err := cc.FetchRange(idx)
		require.NoError(t, err)
		for cur := chain; cur != nil; cur = flnode.Next(cur) {
			require.False(t, seen[cur], "node handed out twice by FetchRange")
			seen[cur] = true
		}
	}
}

func TestConcurrentFetchAndReturn(t *testing.T) {
	cc := New(pagecache.New())
	idx := sizeclass.IndexOf(48)
	classBytes := sizeclass.ClassSize(idx)

	const goroutines = 16
	const iterations = 500

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				chain, err := cc.FetchRange(idx)
				if err != nil {
					panic(err)
				}
				n := flnode.Count(chain)
				cc.ReturnRange(chain, n*classBytes, idx)
			}
		}()
	}
	wg.Wait()

	spans, avgFetch := cc.Stats(idx)
	assert.True(t, spans >= 1)
	assert.True(t, avgFetch >= 1)
}
