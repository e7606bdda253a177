// Package flnode implements the intrusive free-list node: a raw-memory
// operation on the first machine word of an otherwise untyped allocation.
// Callers must never treat a linked node as holding a valid object of any
// language-level type while it is reachable from a free list.
package flnode

import "unsafe"

// Link writes next into the first word of node, making node..next a valid
// one-step hop in a free list. node must be at least one machine word long
// and word-aligned.
func Link(node, next unsafe.Pointer) {
	*(*unsafe.Pointer)(node) = next
}

// Next reads the first word of node, the address of the following free
// node, or nil if node is the tail of its list.
func Next(node unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(node)
}

// Walk visits at most max nodes starting at head, returning the last node
// visited and the number of nodes actually visited (including head). It
// stops early if it reaches nil before max nodes, matching the "reduced count" rule used
// when a thread-cache spill walk runs off the end of a short list.
func Walk(head unsafe.Pointer, max int) (last unsafe.Pointer, n int) {
	cur := head
	for n = 0; n < max && cur != nil; n++ {
		last = cur
		cur = Next(cur)
	}
	return last, n
}

// Count walks an entire chain and returns its length. Used by the thread
// cache to size a batch received from the central cache.
func Count(head unsafe.Pointer) int64 {
	n := int64(0)
	for cur := head; cur != nil; cur = Next(cur) {
		n++
	}
	return n
}

// Tail returns the last node of a non-empty chain.
func Tail(head unsafe.Pointer) unsafe.Pointer {
	cur := head
	for next := Next(cur); next != nil; next = Next(cur) {
		cur = next
	}
	return cur
}
