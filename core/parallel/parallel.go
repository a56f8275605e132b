// Package parallel fans index ranges out over worker goroutines.
//
// Results are never collected here: callers write into pre-sized slices by
// index, which keeps the outcome independent of scheduling order.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides the specified total number (items) according to the number of CPU cores,
// and executes the specified function (fn) in parallel for each range (start, end)
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, 0, fn)
}

// ParallelizeN is Parallelize with an explicit worker cap. workers <= 0 means
// one worker per CPU core, matching sklearn's n_jobs=-1.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := Workers(workers)
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}
	if numWorkers == 1 {
		fn(0, items)
		return
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		// Skip if there's no range to handle
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	// Wait for all workers to finish processing
	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold
// If below threshold, normal sequential processing is performed
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		// Sequential processing when below threshold
		fn(0, items)
		return
	}

	// Parallel processing when above threshold
	Parallelize(items, fn)
}

// ForEach calls fn(i) for every i in [0, items) using at most workers
// goroutines and returns the error of the lowest failing index, so the
// reported failure does not depend on scheduling.
func ForEach(items, workers int, fn func(i int) error) error {
	errs := make([]error, items)
	ParallelizeN(items, workers, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = fn(i)
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Workers resolves an n_jobs style value into a positive worker count.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
