package threadcache

import "runtime"
import "sync"
import "unsafe"

import "github.com/bnclabs/tcmalloc/centralcache"

// Pool hands out *ThreadCache instances around each Allocate/Deallocate
// call, backed by a sync.Pool. sync.Pool's per-P victim cache gives a
// goroutine that stays on one P a stable thread cache across calls in
// practice, without requiring true pthread-style thread-local storage
// (which Go does not expose).
//
// When the Go runtime evicts a *ThreadCache from the pool (a GC cycle
// finding it otherwise unreferenced — the closest analogue Go offers to
// "the owning thread exited"), its finalizer drains remaining free-list
// nodes back to the central cache, so memory a goroutine was holding
// onto for fast reuse isn't stranded there once the goroutine is gone,
// without requiring an explicit thread-exit hook.
type Pool struct {
	cc   *centralcache.CentralCache
	pool sync.Pool
}

// NewPool constructs a thread-cache pool backed by cc. Central and page
// caches are process-wide singletons in normal use, but NewPool takes its
// central cache as an argument rather than reaching for a global, so
// tests can instantiate a private pool.
func NewPool(cc *centralcache.CentralCache) *Pool {
	p := &Pool{cc: cc}
	p.pool.New = func() interface{} {
		tc := &ThreadCache{cc: cc}
		runtime.SetFinalizer(tc, drainOnFinalize)
		return tc
	}
	return p
}

func drainOnFinalize(tc *ThreadCache) {
	tc.drain()
}

// Allocate checks out a thread cache, serves the request from it, and
// returns it to the pool before returning to the caller.
func (p *Pool) Allocate(size int64) (unsafe.Pointer, error) {
	tc := p.pool.Get().(*ThreadCache)
	defer p.pool.Put(tc)
	return tc.Allocate(size)
}

// Deallocate checks out a thread cache, releases addr into it, and
// returns it to the pool before returning to the caller.
func (p *Pool) Deallocate(addr unsafe.Pointer, size int64) {
	tc := p.pool.Get().(*ThreadCache)
	defer p.pool.Put(tc)
	tc.Deallocate(addr, size)
}
