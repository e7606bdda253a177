// Package sizeclass holds the only functions that convert between user
// request sizes and size-class indices, plus the tuning constants shared by
// every tier of the allocator. No other package performs this conversion.
package sizeclass

// Alignment every chunk handed out by the tiered allocator is a multiple
// of this many bytes.
const Alignment = 8

// MaxBytes is the largest request the tiered allocator serves; anything
// bigger bypasses it and goes straight to the operating-system primitive
// (see tcmalloc.Allocate).
const MaxBytes = 256 * 1024

// PageSize is the granularity the page cache deals in.
const PageSize = 4096

// SpanPages is the page count requested from the page cache when a size
// class fits within one span (see SpanPagesFor).
const SpanPages = 8

// NumClasses is the number of size classes, K in spec terms.
const NumClasses = MaxBytes / Alignment

// baseBatchTable is the base replenishment batch size per class-bytes bracket:
// small classes move in big batches since their objects are cheap to
// carve and a thread cache burns through them fast; large classes move
// in small batches since each one is already a sizeable chunk of memory.
var baseBatchTable = []struct {
	upto int64
	base int64
}{
	{32, 64},
	{64, 32},
	{128, 16},
	{256, 8},
	{512, 4},
	{1024, 2},
}

// RoundUp returns the smallest multiple of Alignment that is >= s. Kept as
// a standalone utility for callers that want a rounded byte size without an
// index; IndexOf performs its own rounding inline and does not call this.
func RoundUp(s int64) int64 {
	return (s + Alignment - 1) &^ (Alignment - 1)
}

// IndexOf returns the size-class index for a requested size, after
// clamping s to at least Alignment. Callers must have already checked
// s <= MaxBytes.
func IndexOf(s int64) int64 {
	if s < Alignment {
		s = Alignment
	}
	return (s+Alignment-1)/Alignment - 1
}

// ClassSize returns the object size represented by a size-class index.
func ClassSize(index int64) int64 {
	return (index + 1) * Alignment
}

// BaseBatch returns the base replenishment batch count for a class size,
// before clamping to the 4KiB working-set cap applied by BatchSize.
func BaseBatch(classBytes int64) int64 {
	for _, row := range baseBatchTable {
		if classBytes <= row.upto {
			return row.base
		}
	}
	return 1
}

// BatchSize returns the number of nodes the thread cache asks the central
// cache for on a refill of this class: min(maxNum, baseNum) with
// maxNum = max(1, 4096/classBytes).
func BatchSize(index int64) int64 {
	classBytes := ClassSize(index)
	maxNum := int64(4096) / classBytes
	if maxNum < 1 {
		maxNum = 1
	}
	base := BaseBatch(classBytes)
	if maxNum < base {
		return maxNum
	}
	return base
}

// SpillThreshold returns the high-water mark above which a thread cache
// spills class `index` back to the central cache. A flat 64 works for
// small classes, but scaled down here for classes whose batch size is
// small, since a flat 64 would let a large-object class sit 30x+ its own
// replenishment batch before spilling, holding far more memory hostage
// in a single goroutine's thread cache than its batch size warrants.
func SpillThreshold(index int64) int64 {
	const reference = 64
	if scaled := 4 * BatchSize(index); scaled < reference {
		if scaled < 8 {
			return 8
		}
		return scaled
	}
	return reference
}

// SpanPagesFor returns the page count the central cache should request
// from the page cache to carve a fresh span for this class size.
func SpanPagesFor(classBytes int64) int64 {
	if classBytes <= SpanPages*PageSize {
		return SpanPages
	}
	pages := classBytes / PageSize
	if classBytes%PageSize != 0 {
		pages++
	}
	return pages
}

// NodesPerSpan returns how many class-sized nodes fit in a span of the
// given page count; the remainder is permanently forfeited to internal
// fragmentation and never tracked.
func NodesPerSpan(pages, classBytes int64) int64 {
	return (pages * PageSize) / classBytes
}
