//go:build !unix

package pagecache

import "unsafe"
import "sync"

import "github.com/bnclabs/tcmalloc/sizeclass"

// fallbackPins keeps the Go slice backing a page-aligned region reachable
// so the garbage collector never reclaims it out from under raw pointer
// arithmetic; osFree removes the pin.
var fallbackPins sync.Map // map[uintptr][]byte

// osAlloc falls back to a Go-heap allocation, over-sized and sliced to a
// PageSize boundary, on platforms without an anonymous-mmap primitive.
// The oversized backing slice is pinned in fallbackPins until osFree.
func osAlloc(length int64) (unsafe.Pointer, error) {
	raw := make([]byte, length+sizeclass.PageSize)
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + sizeclass.PageSize - 1) &^ (sizeclass.PageSize - 1)
	ptr := unsafe.Pointer(aligned)
	fallbackPins.Store(aligned, raw)
	return ptr, nil
}

// osFree unpins a region obtained from osAlloc, letting the GC reclaim it.
func osFree(addr unsafe.Pointer, length int64) error {
	fallbackPins.Delete(uintptr(addr))
	return nil
}
