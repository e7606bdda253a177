package pagecache

import "unsafe"

// RawAlloc obtains length bytes directly from the operating system
// primitive, bypassing span bookkeeping entirely. It exists for requests
// too large for the tiered allocator to bother with — such a request is
// never split, coalesced, or reused, so it has no business in
// freeSpans/spanMap.
func RawAlloc(length int64) (unsafe.Pointer, error) {
	return osAlloc(length)
}

// RawFree releases a region obtained from RawAlloc.
func RawFree(addr unsafe.Pointer, length int64) error {
	return osFree(addr, length)
}
