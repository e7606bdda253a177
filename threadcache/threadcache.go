// Package threadcache is the front tier of the allocator: a free list per
// size class, private to whichever goroutine currently holds it, touched
// with no synchronization of its own. It replenishes itself in batches
// from a centralcache.CentralCache and spills back to it once a class's
// list grows past a high-water mark.
//
// Go has no pthread-style thread-local storage, so "thread" here maps
// onto "goroutine currently holding a checked-out *ThreadCache" (see
// Pool); an instance is handed out and returned around each call rather
// than pinned to an OS thread for its lifetime.
package threadcache

import "unsafe"

import "github.com/bnclabs/tcmalloc/centralcache"
import "github.com/bnclabs/tcmalloc/internal/flnode"
import "github.com/bnclabs/tcmalloc/sizeclass"

// classList is one size class's free list and length counter. Touched by
// exactly one goroutine at a time (see Pool), so it carries no lock.
type classList struct {
	head   unsafe.Pointer
	length int64
}

// ThreadCache holds one free list per size class. Zero value is a valid,
// empty cache once cc is set; use Pool to obtain one in normal use.
type ThreadCache struct {
	cc      *centralcache.CentralCache
	classes [sizeclass.NumClasses]classList
}

// Allocate returns a writable, Alignment-aligned region of at least size
// bytes from this size class, or an error if the central cache (and
// beneath it the page cache) could not produce one. size must already be
// at most sizeclass.MaxBytes: neither this method nor Pool.Allocate checks
// it; tcmalloc.Allocate applies the size bypass before calling in.
func (tc *ThreadCache) Allocate(size int64) (unsafe.Pointer, error) {
	recordSize(size)
	idx := sizeclass.IndexOf(size)
	cls := &tc.classes[idx]

	if cls.head != nil {
		node := cls.head
		cls.head = flnode.Next(node)
		cls.length--
		return node, nil
	}
	return tc.refill(idx)
}

// refill asks the central cache for a batch for class idx, pops the first
// node as the return value, and installs the remainder as the new head.
func (tc *ThreadCache) refill(idx int64) (unsafe.Pointer, error) {
	chain, err := tc.cc.FetchRange(idx)
	if err != nil {
		warnf("threadcache: class %v refill failed: %v", idx, err)
		return nil, err
	}

	node := chain
	rest := flnode.Next(node)
	n := flnode.Count(chain) // FetchRange doesn't report a length, so count by traversal

	cls := &tc.classes[idx]
	cls.head = rest
	cls.length = n - 1
	debugf("threadcache: class %v refilled with %v node(s)", idx, n)
	return node, nil
}

// Deallocate releases a region previously returned by Allocate for this
// same size. Mismatched size, double-free, and foreign pointers are
// undefined behavior: nothing here detects them.
func (tc *ThreadCache) Deallocate(addr unsafe.Pointer, size int64) {
	idx := sizeclass.IndexOf(size)
	cls := &tc.classes[idx]

	flnode.Link(addr, cls.head)
	cls.head = addr
	cls.length++

	if cls.length > sizeclass.SpillThreshold(idx) {
		tc.spill(idx)
	}
}

// spill retains roughly length/4 nodes (at least 1) at the head of class
// idx's list and returns the remainder to the central cache as one chain.
func (tc *ThreadCache) spill(idx int64) {
	cls := &tc.classes[idx]

	keep := cls.length / 4
	if keep < 1 {
		keep = 1
	}

	last, kept := flnode.Walk(cls.head, int(keep))
	tail := flnode.Next(last)
	if tail == nil {
		// the walk ran off the end of a shorter-than-expected list;
		// nothing past `last` to hand back.
		return
	}
	flnode.Link(last, nil)

	returned := cls.length - kept
	cls.length = kept

	classBytes := sizeclass.ClassSize(idx)
	tc.cc.ReturnRange(tail, returned*classBytes, idx)
	debugf("threadcache: class %v spilled %v node(s), kept %v", idx, returned, kept)
}

// drain returns every node this cache holds, across all classes, to the
// central cache. Called when a *ThreadCache is about to be discarded (see
// Pool's finalizer) so capacity it is holding is not stranded.
func (tc *ThreadCache) drain() {
	for idx := range tc.classes {
		cls := &tc.classes[idx]
		if cls.head == nil {
			continue
		}
		classBytes := sizeclass.ClassSize(int64(idx))
		tc.cc.ReturnRange(cls.head, cls.length*classBytes, int64(idx))
		cls.head = nil
		cls.length = 0
	}
}

// Len reports the current free-list length for the size class that serves
// size-byte requests. Exposed for tests exercising spill behavior (spec
// S5).
func (tc *ThreadCache) Len(size int64) int64 {
	return tc.classes[sizeclass.IndexOf(size)].length
}
