package threadcache

import "sync"
import "sync/atomic"

import "github.com/bnclabs/tcmalloc/lib"
import "github.com/bnclabs/tcmalloc/sizeclass"

// sizeHist tracks the distribution of requested sizes across every
// *ThreadCache a Pool hands out, in the spirit of llrb's/bogn's
// lib.HistogramInt64 stats. Recording is gated by statsEnabled so the
// hot path pays nothing beyond one atomic load when disabled.
var (
	statsEnabled int64
	histMu       sync.Mutex
	sizeHist     = lib.NewhistorgramInt64(0, sizeclass.MaxBytes, sizeclass.PageSize)
)

// EnableStats turns on request-size histogram tracking across all thread
// caches. Off by default.
func EnableStats() {
	atomic.StoreInt64(&statsEnabled, 1)
}

func recordSize(size int64) {
	if atomic.LoadInt64(&statsEnabled) == 0 {
		return
	}
	histMu.Lock()
	sizeHist.Add(size)
	histMu.Unlock()
}

// SizeHistogram returns a snapshot of the request-size distribution
// recorded since EnableStats was called. Empty (all zero) if stats were
// never enabled.
func SizeHistogram() map[string]interface{} {
	histMu.Lock()
	defer histMu.Unlock()
	return sizeHist.Fullstats()
}
