package sizeclass

import "testing"

import "github.com/stretchr/testify/assert"

func TestRoundUp(t *testing.T) {
	cases := []struct{ in, out int64 }{
		{0, 0}, {1, 8}, {7, 8}, {8, 8}, {9, 16}, {256, 256}, {257, 264},
	}
	for _, c := range cases {
		assert.Equal(t, c.out, RoundUp(c.in), "roundUp(%v)", c.in)
	}
}

func TestIndexOf(t *testing.T) {
	cases := []struct {
		in  int64
		idx int64
	}{
		{0, 0}, {1, 0}, {8, 0}, {9, 1}, {16, 1}, {17, 2}, {MaxBytes, NumClasses - 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.idx, IndexOf(c.in), "indexOf(%v)", c.in)
	}
}

func TestIndexOfRoundTrip(t *testing.T) {
	for size := int64(1); size <= MaxBytes; size += 37 {
		idx := IndexOf(size)
		cs := ClassSize(idx)
		assert.GreaterOrEqual(t, cs, size, "class size must cover request")
		assert.Equal(t, int64(0), cs%Alignment)
	}
}

func TestBatchSizeWithinWorkingSetCap(t *testing.T) {
	// a batch stays within the 4096-byte working-set cap per class, except
	// that every class gets at least one node
	for idx := int64(0); idx < NumClasses; idx++ {
		b := BatchSize(idx)
		assert.GreaterOrEqual(t, b, int64(1))
		assert.LessOrEqual(t, b*ClassSize(idx), int64(4096+ClassSize(idx)))
	}
}

func TestSpillThresholdBounded(t *testing.T) {
	for idx := int64(0); idx < NumClasses; idx++ {
		th := SpillThreshold(idx)
		assert.GreaterOrEqual(t, th, int64(8))
		assert.LessOrEqual(t, th, int64(64))
	}
}

func TestSpanPagesFor(t *testing.T) {
	assert.Equal(t, int64(SpanPages), SpanPagesFor(32))
	assert.Equal(t, int64(SpanPages), SpanPagesFor(SpanPages*PageSize))
	assert.Equal(t, int64(9), SpanPagesFor(SpanPages*PageSize+1))
}

func TestNodesPerSpan(t *testing.T) {
	assert.Equal(t, int64(1024), NodesPerSpan(SpanPages, 32))
}
