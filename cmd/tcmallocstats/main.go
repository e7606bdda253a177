// Command tcmallocstats prints the derived size-class table and, after
// driving a handful of allocations through the package-level allocator,
// the running page-cache stats — the tcmalloc analogue of
// tools/pools/main.go's tellutilization.
package main

import "flag"
import "fmt"

import "github.com/bnclabs/tcmalloc"
import "github.com/bnclabs/tcmalloc/sizeclass"

var options struct {
	minsize int64
	maxsize int64
}

func argParse() {
	flag.Int64Var(&options.minsize, "minsize", sizeclass.Alignment,
		"minimum size to print the size-class table from")
	flag.Int64Var(&options.maxsize, "maxsize", sizeclass.MaxBytes,
		"maximum size to print the size-class table to")
	flag.Parse()
}

func main() {
	argParse()
	tellclasses()
	tellstats()
}

func tellclasses() {
	fmt.Println("size-class table:")
	prevSize := int64(0)
	for i := int64(0); i < sizeclass.NumClasses; i++ {
		size := sizeclass.ClassSize(i)
		if size < options.minsize {
			prevSize = size
			continue
		}
		if size > options.maxsize {
			break
		}
		u := float64(prevSize+size) / 2.0 / float64(size)
		fmt.Printf(
			"class %6v, size %8v bytes, util %.3f, batch %3v, spill %4v\n",
			i, size, u, sizeclass.BatchSize(i), sizeclass.SpillThreshold(i),
		)
		prevSize = size
	}
	fmt.Printf("total %v size classes\n", sizeclass.NumClasses)
}

func tellstats() {
	for i := 0; i < 1000; i++ {
		addr, err := tcmalloc.Allocate(int64(8 + i%248))
		if err != nil {
			fmt.Println("allocate failed:", err)
			return
		}
		tcmalloc.Deallocate(addr, int64(8+i%248))
	}

	osBytes, liveSpans, osRequests, coalesces := tcmalloc.Stats()
	fmt.Printf(
		"pagecache: osBytes=%v liveSpans=%v osRequests=%v coalesces=%v\n",
		osBytes, liveSpans, osRequests, coalesces,
	)
}
