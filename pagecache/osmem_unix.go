//go:build unix

package pagecache

import "unsafe"

import "golang.org/x/sys/unix"

// osAlloc obtains a zero-filled, page-aligned, private region of length
// bytes directly from the kernel via an anonymous mapping. Mirrors the
// MAP_ANONYMOUS|MAP_PRIVATE idiom used elsewhere in this codebase's
// reference material for hugepage-style slab allocation, minus the
// hugepage flag (PAGE_SIZE here is the ordinary 4KiB page).
func osAlloc(length int64) (unsafe.Pointer, error) {
	data, err := unix.Mmap(
		-1, 0, int(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(&data[0]), nil
}

// osFree releases a region obtained from osAlloc.
func osFree(addr unsafe.Pointer, length int64) error {
	data := unsafe.Slice((*byte)(addr), length)
	return unix.Munmap(data)
}
