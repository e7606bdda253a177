package threadcache

import "sync/atomic"

import "github.com/bnclabs/golog"

var logok = int64(0)

// LogComponents enables logging for the thread cache. Disabled by
// default so the allocate/deallocate hot path never pays for formatting.
func LogComponents(components ...string) {
	for _, comp := range components {
		switch comp {
		case "threadcache", "self", "all":
			atomic.StoreInt64(&logok, 1)
		}
	}
}

func debugf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Debugf(format, v...)
	}
}

func warnf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Warnf(format, v...)
	}
}
