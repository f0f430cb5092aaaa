// Package parallel provides chunked data-parallel execution for slab kernels.
package parallel

import (
	"runtime"
	"sync"

	"github.com/xyproto/env/v2"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
// SLAB_NUM_WORKERS overrides the worker count; 0 keeps the CPU count.
func DefaultConfig() Config {
	n := env.Int("SLAB_NUM_WORKERS", 0)
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: env.Int("SLAB_MIN_CHUNK", 1024),
	}
}

// Sequential returns a config that always runs on the calling goroutine.
// Deterministic-mode scatter uses it to keep a fixed visitation order.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is
// too small. f must not race with itself on shared state: callers only use
// this when iterations touch independent elements.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
