// Package tcmalloc is a multi-threaded small-object allocator: a
// per-goroutine front cache of size-class free lists, backed by a
// process-wide central cache striped by size class, backed by a page
// cache that talks to the operating system and coalesces adjacent spans
// on release. It exists to amortize syscall overhead and avoid
// per-allocation locking for workloads dominated by frequent allocation
// and release of objects up to a few hundred kilobytes.
//
// The allocation contract is three calls: Allocate, Deallocate, and the
// optional eager Initialize. Beside them the package exports reporting
// (Stats, ClassStats) and configuration (DefaultSettings, SetLogger)
// helpers. There is no wire format, no CLI beyond
// cmd/tcmallocstats, and no persisted state.
package tcmalloc

import "sync"
import "unsafe"

import "github.com/bnclabs/tcmalloc/centralcache"
import "github.com/bnclabs/tcmalloc/pagecache"
import "github.com/bnclabs/tcmalloc/sizeclass"
import "github.com/bnclabs/tcmalloc/threadcache"

var (
	initOnce sync.Once
	thePC    *pagecache.PageCache
	theCC    *centralcache.CentralCache
	theTC    *threadcache.Pool
)

// Initialize eagerly constructs the central-cache and page-cache
// singletons, and pre-reserves address space from the operating system up
// front per DefaultSettings' "prereserve" sizing (derived from gosigar's
// view of free system memory). Calling it is optional: Allocate and
// Deallocate initialize lazily on first use; applications that want
// allocation-time jitter out of their startup path call it up front.
func Initialize() {
	initOnce.Do(func() {
		thePC = pagecache.New()
		theCC = centralcache.New(thePC)
		theTC = threadcache.NewPool(theCC)

		prereserve, err := settingInt64(DefaultSettings(), "prereserve")
		if err != nil {
			warnf("tcmalloc: %v", err)
		} else if prereserve > 0 {
			if err := thePC.PreReserve(prereserve); err != nil {
				warnf("tcmalloc: pre-reserve of %v bytes failed: %v", prereserve, err)
			}
		}
		infof("tcmalloc: initialized")
	})
}

// Allocate returns a writable region of at least size bytes, aligned to
// sizeclass.Alignment, or a nil pointer and a non-nil error if the
// operating system could not supply fresh pages. size == 0 is treated as
// sizeclass.Alignment; size > sizeclass.MaxBytes bypasses the tiered
// allocator and is served directly by the operating-system primitive,
// since a size class that large would sit unused in every tier's free
// lists and only add bookkeeping for an object large enough to carry its
// own page(s).
func Allocate(size int64) (unsafe.Pointer, error) {
	Initialize()

	if size <= 0 {
		size = sizeclass.Alignment
	}
	if size > sizeclass.MaxBytes {
		return systemAllocate(size)
	}
	return theTC.Allocate(size)
}

// Deallocate releases a region previously returned by Allocate for this
// same size. Supplying a different size, freeing the same pointer twice,
// or freeing a pointer this allocator never returned is undefined
// behavior: none of it is detected. Catching it would mean tracking the
// liveness of every outstanding allocation, which is exactly the
// per-object bookkeeping this allocator is built to avoid.
func Deallocate(addr unsafe.Pointer, size int64) {
	if addr == nil {
		return
	}
	Initialize()

	if size <= 0 {
		size = sizeclass.Alignment
	}
	if size > sizeclass.MaxBytes {
		systemDeallocate(addr, size)
		return
	}
	theTC.Deallocate(addr, size)
}

// systemAllocate serves a request too large for the tiered allocator
// directly off the page cache's operating-system primitive, rounded up
// to a whole number of pages, with no span bookkeeping: it is never
// split, coalesced, or reused — an object this large is already most of
// a page or more, so there is nothing smaller to carve it into.
func systemAllocate(size int64) (unsafe.Pointer, error) {
	pages := (size + sizeclass.PageSize - 1) / sizeclass.PageSize
	addr, err := pagecache.RawAlloc(pages * sizeclass.PageSize)
	if err != nil {
		warnf("tcmalloc: system allocation of %v bytes failed: %v", size, err)
		return nil, err
	}
	return addr, nil
}

func systemDeallocate(addr unsafe.Pointer, size int64) {
	pages := (size + sizeclass.PageSize - 1) / sizeclass.PageSize
	if err := pagecache.RawFree(addr, pages*sizeclass.PageSize); err != nil {
		warnf("tcmalloc: system deallocation of %v bytes failed: %v", size, err)
	}
}

// Stats reports the page cache's running totals: bytes ever requested
// from the OS, spans currently checked out, number of distinct OS
// allocation calls, and how many releases triggered a right-neighbour
// coalesce.
func Stats() (osBytes, liveSpans, osRequests, coalesces int64) {
	Initialize()
	return thePC.Stats()
}

// ClassStats reports, for the size class that serves size-byte requests,
// how many spans the page cache has handed to the central cache and the
// average chain length the central cache has handed to thread caches.
func ClassStats(size int64) (spans, avgFetch int64) {
	Initialize()
	return theCC.Stats(sizeclass.IndexOf(size))
}
