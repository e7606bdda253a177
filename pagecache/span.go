package pagecache

import "unsafe"

// Span describes one contiguous, page-aligned run of pages obtained from
// the operating system. A span is either free (linked into freeSpans) or
// checked out to the central cache; it never belongs to both at once.
type Span struct {
	base  unsafe.Pointer
	pages int64
	next  *Span // next free span of the same page count
}

// Base is the span's page-aligned start address.
func (s *Span) Base() unsafe.Pointer { return s.base }

// Pages is the number of PageSize blocks this span covers.
func (s *Span) Pages() int64 { return s.pages }
