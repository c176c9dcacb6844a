// Package kernel implements the image-wide numerical kernels (C2) shared
// by every solver: border-aware Gaussian smoothing, identity-plus-
// displacement resampling, field composition, max-norm scaling, Jacobian
// determinant, and the trivial elementwise ops. Every kernel here is a
// barrier: it partitions its output voxel range across a bounded number
// of worker goroutines and the caller only sees the result after all
// workers have joined, matching the "parallel threads via per-image
// data parallelism" scheduling model.
package kernel

import (
	"runtime"
	"sync"
)

// Threads is the process-wide worker budget for kernel fan-out. It
// defaults to the host's recommended concurrency and is overridden by
// the CLI's `-threads` flag; the engine never starts more goroutines
// per kernel call than this value.
var Threads = runtime.GOMAXPROCS(0)

// Parallel partitions [0,n) into contiguous chunks — one per worker, up
// to Threads workers — and runs work(start, end) on each chunk
// concurrently, blocking until every chunk has completed. Chunk
// boundaries are a deterministic function of n and Threads, so re-
// running with the same n and Threads always partitions identically;
// this is what makes threaded reductions reproducible across runs (§5).
func Parallel(n int, work func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := Threads
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		work(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			work(start, end)
		}(start, end)
	}
	wg.Wait()
}

// PartialFloat64 runs one float64 accumulator per worker chunk and
// reduces them with combine, in worker-index order, after every worker
// has joined — the shape the metric evaluators and the max-norm scanner
// use for their thread-local accumulators (Reducer[float64] in the
// design notes' terms).
func PartialFloat64(n int, identity float64, work func(start, end int, acc float64) float64, combine func(a, b float64) float64) float64 {
	return Reduce(n, identity, work, combine)
}
