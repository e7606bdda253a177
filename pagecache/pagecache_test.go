package pagecache

import "testing"
import "unsafe"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestAllocateSpanFresh(t *testing.T) {
	pc := New()
	base, err := pc.AllocateSpan(8)
	require.NoError(t, err)
	require.NotNil(t, base)

	osBytes, live, requests, _ := pc.Stats()
	assert.Equal(t, int64(8*4096), osBytes)
	assert.Equal(t, int64(1), live)
	assert.Equal(t, int64(1), requests)
}

func TestFreshPagesAreZeroed(t *testing.T) {
	pc := New()
	base, err := pc.AllocateSpan(1)
	require.NoError(t, err)

	data := unsafe.Slice((*byte)(base), 4096)
	for i, b := range data {
		require.Equal(t, byte(0), b, "byte %v not zero", i)
	}
}

func TestDeallocateThenReallocateReuses(t *testing.T) {
	pc := New()
	base, err := pc.AllocateSpan(8)
	require.NoError(t, err)

	pc.DeallocateSpan(base, 8)
	_, _, requests, _ := pc.Stats()
	require.Equal(t, int64(1), requests)

	base2, err := pc.AllocateSpan(8)
	require.NoError(t, err)
	assert.Equal(t, base, base2, "released span should be reused before asking the OS again")

	_, _, requests, _ = pc.Stats()
	assert.Equal(t, int64(1), requests, "no new OS request should have been made")
}

func TestDeallocateSplitsResidue(t *testing.T) {
	pc := New()
	base, err := pc.AllocateSpan(16)
	require.NoError(t, err)
	pc.DeallocateSpan(base, 16)

	// asking for a smaller span should split the 16-page free span and
	// leave an 8-page residue behind instead of handing back all 16.
	got, err := pc.AllocateSpan(8)
	require.NoError(t, err)
	assert.Equal(t, base, got)

	residue, err := pc.AllocateSpan(8)
	require.NoError(t, err)
	assert.NotEqual(t, base, residue)

	_, _, requests, _ := pc.Stats()
	assert.Equal(t, int64(1), requests, "splitting a released span must not touch the OS")
}

// S3 from the spec: two 8-page spans, released high-to-low address order,
// must coalesce into a single 16-page free span. Coalescing is right-only
// (pagecache.go only ever looks at addr+pages·PAGE_SIZE), so the merge can
// only be found when the *left* span is the one released second — releasing
// `high` first frees it and leaves its spanMap entry in place, so that when
// `low` is released it finds a free neighbour to its right; releasing `low`
// first would look right and find `high` still checked out, which can never
// coalesce — adjacent free spans still eventually merge whenever the left
// one is the one being released. Real mmap calls are not
// guaranteed to land contiguously, so this test fabricates two spans over
// one real mapping to pin down the addresses deterministically, exercising
// exactly the same takeBestFit/DeallocateSpan code path allocateSpan does.
func TestCoalesceOnRightNeighbourRelease(t *testing.T) {
	pc := New()
	base, err := pc.AllocateSpan(16)
	require.NoError(t, err)
	pc.DeallocateSpan(base, 16)

	low, err := pc.AllocateSpan(8)
	require.NoError(t, err)
	high, err := pc.AllocateSpan(8)
	require.NoError(t, err)
	require.Equal(t, base, low)
	require.Equal(t, unsafe.Pointer(uintptr(low)+8*4096), high)

	pc.DeallocateSpan(high, 8)
	pc.DeallocateSpan(low, 8)

	_, _, _, coalesces := pc.Stats()
	assert.Equal(t, int64(1), coalesces)

	merged, err := pc.AllocateSpan(16)
	require.NoError(t, err)
	assert.Equal(t, low, merged)

	_, _, requests, _ := pc.Stats()
	assert.Equal(t, int64(1), requests, "the merged span must satisfy the 16-page request without another OS call")
}

func TestDeallocateForeignPointerIgnored(t *testing.T) {
	pc := New()
	var x [8]byte
	assert.NotPanics(t, func() {
		pc.DeallocateSpan(unsafe.Pointer(&x[0]), 1)
	})
}

func TestPreReserveSeedsFreeSpans(t *testing.T) {
	pc := New()
	spanBytes := int64(8 * 4096)
	require.NoError(t, pc.PreReserve(3*spanBytes))

	osBytes, live, requests, _ := pc.Stats()
	assert.Equal(t, 3*spanBytes, osBytes)
	assert.Equal(t, int64(0), live, "pre-reserved spans are free, not checked out")
	assert.Equal(t, int64(3), requests)

	_, err := pc.AllocateSpan(8)
	require.NoError(t, err)

	_, _, requestsAfter, _ := pc.Stats()
	assert.Equal(t, requests, requestsAfter, "allocating a pre-reserved span must not touch the OS again")
}
