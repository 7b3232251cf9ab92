package parallel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRange_CoversEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
	}{
		{"inline", 100, Config{Workers: 1, MinChunk: 1}},
		{"below min chunk", 100, Config{Workers: 8, MinChunk: 64}},
		{"split", 10_000, Config{Workers: 4, MinChunk: 16}},
		{"uneven", 1_001, Config{Workers: 3, MinChunk: 10}},
		{"default", 50_000, DefaultConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int, tt.n)
			var mu sync.Mutex
			calls := 0

			Range(tt.n, tt.cfg, func(lo, hi int) {
				mu.Lock()
				calls++
				mu.Unlock()
				for i := lo; i < hi; i++ {
					hits[i]++
				}
			})

			for i, h := range hits {
				if !assert.Equal(t, 1, h, "index %d", i) {
					break
				}
			}
			assert.GreaterOrEqual(t, calls, 1)
		})
	}
}

func TestRange_Empty(t *testing.T) {
	called := false
	Range(0, DefaultConfig(), func(_, _ int) { called = true })

	assert.False(t, called)
}

func TestRange_ChunksRespectMinimum(t *testing.T) {
	var mu sync.Mutex
	var sizes []int

	Range(1000, Config{Workers: 100, MinChunk: 250}, func(lo, hi int) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, hi-lo)
	})

	assert.Len(t, sizes, 4)
	for _, s := range sizes {
		assert.Equal(t, 250, s)
	}
}

func TestMapAndZip(t *testing.T) {
	cfg := Config{Workers: 4, MinChunk: 2}
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	y := []float64{9, 8, 7, 6, 5, 4, 3, 2, 1}

	assert.Equal(t, []float64{2, 4, 6, 8, 10, 12, 14, 16, 18},
		Map(x, cfg, func(v float64) float64 { return 2 * v }))
	assert.Equal(t, []float64{10, 10, 10, 10, 10, 10, 10, 10, 10},
		Zip(x, y, cfg, func(a, b float64) float64 { return a + b }))
}
