// Package centralcache is the middle tier of the allocator: a single
// process-wide pool of free objects per size class, replenished by cutting
// spans obtained from the page cache. Each size class is independent,
// guarded by its own spinlock, so unrelated classes never contend.
package centralcache

import "fmt"
import "unsafe"

import "github.com/bnclabs/tcmalloc/internal/flnode"
import "github.com/bnclabs/tcmalloc/lib"
import "github.com/bnclabs/tcmalloc/pagecache"
import "github.com/bnclabs/tcmalloc/sizeclass"

// classSlot holds one size class's free list, its lock, and the running
// stats for that class. All fields except the lock itself are only
// touched while the lock is held.
type classSlot struct {
	lock    spinlock
	head    unsafe.Pointer
	spans   int64           // spans carved from the page cache for this class
	fetched lib.AverageInt64 // chain length handed out per FetchRange call
}

// CentralCache replenishes thread caches and absorbs their spills. It is a
// process-wide singleton in normal use, but New takes its page cache as an
// argument rather than reaching for a global, so tests can instantiate a
// private one.
type CentralCache struct {
	pc      *pagecache.PageCache
	classes [sizeclass.NumClasses]classSlot
}

// New constructs a central cache backed by pc. Every size class starts
// empty; the first FetchRange for a class carves its first span.
func New(pc *pagecache.PageCache) *CentralCache {
	return &CentralCache{pc: pc}
}

// FetchRange returns a null-terminated chain of free nodes of size
// (classIndex+1)*Alignment, disconnected from the central cache. If the
// page cache cannot supply a span it returns a non-nil error and a nil chain. The chain
// length is not returned here; callers count it by traversal, which the
// thread cache does on refill anyway to update its own length counter.
func (cc *CentralCache) FetchRange(classIndex int64) (unsafe.Pointer, error) {
	cls := &cc.classes[classIndex]
	cls.lock.Lock()
	defer cls.lock.Unlock()

	if cls.head == nil {
		if err := cc.growClass(cls, classIndex); err != nil {
			return nil, err
		}
	}

	// Hand back up to a full replenishment batch, not just one node:
	// handing back a full batch means a thread cache refill costs one
	// lock acquisition instead of `BatchSize` of them.
	desired := int(sizeclass.BatchSize(classIndex))
	last, n := flnode.Walk(cls.head, desired)
	chain := cls.head
	cls.head = flnode.Next(last)
	flnode.Link(last, nil)
	cls.fetched.Add(int64(n))
	debugf("centralcache: class %v fetched %v node(s)", classIndex, n)
	return chain, nil
}

// growClass carves a fresh span into class-sized nodes and installs the
// whole chain as the class's free list. Must be called with cls.lock held.
func (cc *CentralCache) growClass(cls *classSlot, classIndex int64) error {
	classBytes := sizeclass.ClassSize(classIndex)
	pages := sizeclass.SpanPagesFor(classBytes)

	base, err := cc.pc.AllocateSpan(pages)
	if err != nil {
		warnf("centralcache: class %v span allocation failed: %v", classIndex, err)
		return fmt.Errorf("centralcache: %w", err)
	}

	n := sizeclass.NodesPerSpan(pages, classBytes)
	cls.head = carve(base, n, classBytes)
	cls.spans++
	debugf("centralcache: class %v carved %v node(s) from a %v-page span",
		classIndex, n, pages)
	return nil
}

// carve partitions a span of n class-sized slots into a chain, tail node
// first, head-of-chain last — so the returned head is the lowest-address
// slot. Bytes left over past n*classBytes are permanently forfeited to
// fragmentation; they are never tracked.
func carve(base unsafe.Pointer, n, classBytes int64) unsafe.Pointer {
	var head unsafe.Pointer
	for i := n - 1; i >= 0; i-- {
		node := unsafe.Pointer(uintptr(base) + uintptr(i*classBytes))
		flnode.Link(node, head)
		head = node
	}
	return head
}

// ReturnRange accepts a null-terminated chain of totalBytes worth of nodes
// for classIndex and prepends it to the central cache's list for that
// class. The chain is walked, capped at the declared element count, to
// find its tail before splicing.
func (cc *CentralCache) ReturnRange(chainHead unsafe.Pointer, totalBytes, classIndex int64) {
	classBytes := sizeclass.ClassSize(classIndex)
	count := int(totalBytes / classBytes)

	cls := &cc.classes[classIndex]
	cls.lock.Lock()
	defer cls.lock.Unlock()

	tail, n := flnode.Walk(chainHead, count)
	flnode.Link(tail, cls.head)
	cls.head = chainHead
	debugf("centralcache: class %v returned %v node(s)", classIndex, n)
}

// Stats reports, for one size class, how many spans the page cache has
// handed to it and the average chain length FetchRange has handed out.
func (cc *CentralCache) Stats(classIndex int64) (spans, avgFetch int64) {
	cls := &cc.classes[classIndex]
	cls.lock.Lock()
	defer cls.lock.Unlock()
	return cls.spans, cls.fetched.Mean()
}
