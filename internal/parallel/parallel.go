// Package parallel splits elementwise kernels across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how Range partitions work.
type Config struct {
	Workers  int // Upper bound on concurrent chunks. Values below 2 run inline.
	MinChunk int // Ranges shorter than this run inline.
}

// DefaultConfig uses one worker per CPU and chunks of at least 4096 elements.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		MinChunk: 4096,
	}
}

// Range calls f on disjoint half-open intervals covering [0, n) and waits
// for all of them. f must only touch indices inside its interval.
func Range(n int, cfg Config, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if cfg.Workers < 2 || n < 2*cfg.MinChunk {
		f(0, n)
		return
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, cfg.MinChunk)

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(lo, hi)
		}()
	}
	wg.Wait()
}

// Map returns f applied to every element of x.
func Map(x []float64, cfg Config, f func(float64) float64) []float64 {
	out := make([]float64, len(x))
	Range(len(x), cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = f(x[i])
		}
	})
	return out
}

// Zip returns f(a[i], b[i]) for every i. a and b must have equal length.
func Zip(a, b []float64, cfg Config, f func(x, y float64) float64) []float64 {
	out := make([]float64, len(a))
	Range(len(a), cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = f(a[i], b[i])
		}
	})
	return out
}
