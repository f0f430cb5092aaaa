package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForCoversRange(t *testing.T) {
	const n = 10000
	var sum atomic.Int64
	For(n, func(i int) {
		sum.Add(int64(i))
	}, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16})

	want := int64(n) * (n - 1) / 2
	if got := sum.Load(); got != want {
		t.Errorf("sum = %d, want %d", got, want)
	}
}

func TestForSequentialOrder(t *testing.T) {
	var seen []int
	For(100, func(i int) {
		seen = append(seen, i)
	}, Sequential())

	for i, v := range seen {
		if v != i {
			t.Fatalf("sequential config must visit in order, got %d at %d", v, i)
		}
	}
}

func TestForSmallFallsBackToSequential(t *testing.T) {
	var seen []int // not thread-safe: valid only because n < MinChunkSize
	For(8, func(i int) {
		seen = append(seen, i)
	}, Config{Enabled: true, NumWorkers: 8, MinChunkSize: 1024})

	if len(seen) != 8 {
		t.Errorf("visited %d items, want 8", len(seen))
	}
}

func TestForZero(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	if called {
		t.Error("f must not be called for n = 0")
	}
}
