package diffusion

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

func defaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// runBands splits [0, n) into contiguous bands and runs fn on each band using
// at most workers goroutines. It returns once every band has finished, which
// is the barrier between stages. Bands must write disjoint rows.
func runBands(workers, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	workers = min(max(workers, 1), n)
	if workers == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}
