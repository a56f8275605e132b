package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelizeN_CoversEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{"single worker", 10, 1},
		{"more workers than items", 3, 8},
		{"uneven chunks", 17, 4},
		{"all cores", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.items)
			ParallelizeN(tt.items, tt.workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Errorf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestParallelizeN_ZeroItems(t *testing.T) {
	called := false
	ParallelizeN(0, 4, func(start, end int) { called = true })
	if called {
		t.Error("fn must not be called for zero items")
	}
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 5 {
			t.Errorf("got range [%d,%d), want [0,5)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected a single sequential call, got %d", calls)
	}
}

func TestForEach_ReturnsLowestIndexError(t *testing.T) {
	errLow := errors.New("low")
	errHigh := errors.New("high")

	err := ForEach(20, 4, func(i int) error {
		switch i {
		case 3:
			return errLow
		case 15:
			return errHigh
		}
		return nil
	})
	if !errors.Is(err, errLow) {
		t.Errorf("expected error from index 3, got %v", err)
	}

	if err := ForEach(20, 4, func(int) error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWorkers(t *testing.T) {
	if got := Workers(3); got != 3 {
		t.Errorf("Workers(3) = %d", got)
	}
	if got := Workers(-1); got < 1 {
		t.Errorf("Workers(-1) = %d, want >= 1", got)
	}
}
