// Package pagecache is the bottom tier of the allocator: it owns every
// byte the allocator has ever asked the operating system for, dealing in
// spans of contiguous, page-aligned memory. It is a process-wide
// singleton guarded by a single mutex; the mutex is released before
// returning and is never held across a blocking wait other than the OS
// call needed to obtain fresh pages.
package pagecache

import "errors"
import "fmt"
import "sync"
import "unsafe"

import gohumanize "github.com/dustin/go-humanize"

import "github.com/bnclabs/tcmalloc/sizeclass"

// ErrOutOfMemory wraps every operating-system allocation failure this
// cache surfaces, so a caller with no more fresh pages to give gets a
// normal error return instead of a panic.
var ErrOutOfMemory = errors.New("pagecache.outofmemory")

// PageCache serves and reclaims span-sized requests, coalescing adjacent
// free spans with their right-neighbour on release. It never gives memory
// back to the operating system once acquired.
type PageCache struct {
	mu sync.Mutex

	freeSpans map[int64]*Span          // page-count -> head of free list
	spanMap   map[unsafe.Pointer]*Span // base address -> owning span

	// stats
	osBytes      int64 // total bytes ever requested from the OS
	liveSpans    int64 // spans currently checked out (not in freeSpans)
	osRequests   int64 // number of distinct OS allocation calls made
	coalesceHits int64
}

// New constructs an empty page cache.
func New() *PageCache {
	return &PageCache{
		freeSpans: make(map[int64]*Span),
		spanMap:   make(map[unsafe.Pointer]*Span),
	}
}

// AllocateSpan returns the base address of a span of exactly `pages`
// contiguous page-sized blocks, or an error if the operating system
// refused to hand over fresh pages. The returned region is readable and
// writable; it is only guaranteed zero-filled when freshly acquired from
// the OS, not when reused from a prior release.
func (pc *PageCache) AllocateSpan(pages int64) (unsafe.Pointer, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if span := pc.takeBestFit(pages); span != nil {
		pc.spanMap[span.base] = span
		pc.liveSpans++
		debugf("pagecache: reused span base=%p pages=%v", span.base, span.pages)
		return span.base, nil
	}

	length := pages * sizeclass.PageSize
	base, err := osAlloc(length)
	if err != nil {
		warnf("pagecache: OS allocation of %v bytes failed: %v", length, err)
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	span := &Span{base: base, pages: pages}
	pc.spanMap[base] = span
	pc.osBytes += length
	pc.osRequests++
	pc.liveSpans++
	debugf("pagecache: fresh span base=%p pages=%v", base, pages)
	return base, nil
}

// takeBestFit removes and returns the smallest free span whose page count
// is >= pages, splitting off and re-shelving the residue when the match is
// larger than requested. Returns nil if no free span is large enough.
func (pc *PageCache) takeBestFit(pages int64) *Span {
	// freeSpans is small in practice (one entry per distinct span size
	// ever released), so a linear scan for the smallest key >= pages is
	// simpler than maintaining a sorted structure, and is only paid on a
	// page-cache miss.
	best := int64(-1)
	for k := range pc.freeSpans {
		if k >= pages && (best == -1 || k < best) {
			best = k
		}
	}
	if best == -1 {
		return nil
	}

	span := pc.freeSpans[best]
	pc.freeSpans[best] = span.next
	if pc.freeSpans[best] == nil {
		delete(pc.freeSpans, best)
	}
	span.next = nil

	if best > pages {
		residuePages := best - pages
		residueBase := unsafe.Pointer(uintptr(span.base) + uintptr(pages*sizeclass.PageSize))
		residue := &Span{base: residueBase, pages: residuePages}
		residue.next = pc.freeSpans[residuePages]
		pc.freeSpans[residuePages] = residue
		// residue is still free: it must stay addressable via spanMap so a
		// later release of its left neighbour can discover it (see the
		// spanMap[next] lookup in DeallocateSpan).
		pc.spanMap[residueBase] = residue
		span.pages = pages
	}
	return span
}

// DeallocateSpan returns a previously allocated span. If the immediate
// right-neighbour is currently free, the two are merged into one larger
// free span before insertion; only right-neighbour coalescing is
// performed (see PageCache). A pointer this page cache never handed out
// is silently ignored.
func (pc *PageCache) DeallocateSpan(addr unsafe.Pointer, pages int64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	span, ok := pc.spanMap[addr]
	if !ok {
		warnf("pagecache: deallocate of foreign pointer %p ignored", addr)
		return
	}
	// span's own spanMap entry is kept, not deleted: it is now a free span
	// at the same address, and a future release of its left neighbour must
	// still be able to find it via the spanMap[next] lookup below (spec
	// ^4.4: "remove its spanMap entry" applies only to the neighbour that
	// gets merged away, never to the span being released itself).
	pc.liveSpans--
	span.pages = pages

	next := unsafe.Pointer(uintptr(addr) + uintptr(pages*sizeclass.PageSize))
	if neighbour, ok := pc.spanMap[next]; ok && pc.unlinkIfFree(neighbour) {
		delete(pc.spanMap, next)
		span.pages += neighbour.pages
		pc.coalesceHits++
		debugf("pagecache: coalesced %p+%v with neighbour %p+%v",
			addr, pages, next, neighbour.pages)
	}

	span.next = pc.freeSpans[span.pages]
	pc.freeSpans[span.pages] = span
}

// unlinkIfFree removes target from its freeSpans list if it is currently
// linked there. The free lists are expected to stay short (one per
// distinct span size actually released), so a linear search from the head
// is acceptable.
func (pc *PageCache) unlinkIfFree(target *Span) bool {
	head := pc.freeSpans[target.pages]
	if head == target {
		pc.freeSpans[target.pages] = target.next
		if pc.freeSpans[target.pages] == nil {
			delete(pc.freeSpans, target.pages)
		}
		target.next = nil
		return true
	}
	for cur := head; cur != nil; cur = cur.next {
		if cur.next == target {
			cur.next = target.next
			target.next = nil
			return true
		}
	}
	return false
}

// PreReserve obtains bytes worth of address space from the operating
// system up front, in SpanPages-sized spans, and seeds it directly into
// freeSpans so the first AllocateSpan calls after startup are served
// without another OS round trip. Used by tcmalloc.Initialize with the
// sizing DefaultSettings derives from gosigar's view of free memory.
func (pc *PageCache) PreReserve(bytes int64) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	spanBytes := sizeclass.SpanPages * sizeclass.PageSize
	spans := bytes / spanBytes
	for i := int64(0); i < spans; i++ {
		base, err := osAlloc(spanBytes)
		if err != nil {
			warnf("pagecache: pre-reserve OS allocation failed after %v span(s): %v", i, err)
			return fmt.Errorf("%w: %v", ErrOutOfMemory, err)
		}
		span := &Span{base: base, pages: sizeclass.SpanPages}
		pc.spanMap[base] = span
		pc.osBytes += spanBytes
		pc.osRequests++

		span.next = pc.freeSpans[sizeclass.SpanPages]
		pc.freeSpans[sizeclass.SpanPages] = span
	}
	debugf("pagecache: pre-reserved %v span(s) (%v bytes)", spans, spans*spanBytes)
	return nil
}

// Stats reports running totals: bytes ever requested from the OS, spans
// currently checked out, number of distinct OS allocation calls, and how
// many releases triggered a right-neighbour coalesce.
func (pc *PageCache) Stats() (osBytes, liveSpans, osRequests, coalesces int64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.osBytes, pc.liveSpans, pc.osRequests, pc.coalesceHits
}

// String renders Stats with human-readable byte counts, the way
// llrb_stats.go's dohumanize renders llrb.Stats() for a log line.
func (pc *PageCache) String() string {
	osBytes, liveSpans, osRequests, coalesces := pc.Stats()
	return fmt.Sprintf(
		"pagecache: os=%v live-spans=%v os-requests=%v coalesces=%v",
		gohumanize.Bytes(uint64(osBytes)), liveSpans, osRequests, coalesces,
	)
}
