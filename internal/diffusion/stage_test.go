package diffusion

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunBandsCoversEveryIndexOnce(t *testing.T) {
	for _, tc := range []struct{ workers, n int }{{1, 10}, {3, 10}, {4, 4}, {16, 5}, {0, 7}, {8, 1000}} {
		hits := make([]int32, tc.n)
		runBands(tc.workers, tc.n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "workers=%d n=%d index %d", tc.workers, tc.n, i)
		}
	}
}

func TestRunBandsEmpty(t *testing.T) {
	called := false
	runBands(4, 0, func(int, int) { called = true })
	assert.False(t, called)
}
