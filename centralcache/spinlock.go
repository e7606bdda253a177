package centralcache

import "runtime"
import "sync/atomic"

// spinlock is a test-and-set lock with a yield-on-contention loop: no
// sleeping, no OS wait, matching spec's "spin-then-yield" contention
// primitive. The pack carries no spinlock of its own (flock.RWMutex is a
// cross-process file lock, not a fit), so this is built directly on
// sync/atomic, the idiomatic Go building block for the same idiom.
type spinlock struct {
	flag atomic.Uint32
}

func (s *spinlock) Lock() {
	for !s.flag.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.flag.Store(0)
}
