package diffusion

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func noiseBuffer(w, h int, seed int64) *PixelBuffer {
	rng := rand.New(rand.NewSource(seed))
	b := NewPixelBuffer(Rect{Width: w, Height: h})
	for i := range b.Pix {
		b.Pix[i] = rng.Float32()
	}
	return b
}

func uniformBuffer(w, h int, rgba [Channels]float32) *PixelBuffer {
	b := NewPixelBuffer(Rect{Width: w, Height: h})
	b.Fill(rgba)
	return b
}

// channelVariance returns the variance of channel c over pixels at least
// inset pixels away from the border.
func channelVariance(b *PixelBuffer, c, inset int) float64 {
	var vals []float64
	for y := inset; y < b.Rect.Height-inset; y++ {
		for x := inset; x < b.Rect.Width-inset; x++ {
			vals = append(vals, float64(b.At(b.Rect.X+x, b.Rect.Y+y)[c]))
		}
	}
	return stat.Variance(vals, nil)
}

func columnMean(b *PixelBuffer, x int) float64 {
	var vals []float64
	for y := 0; y < b.Rect.Height; y++ {
		px := b.At(b.Rect.X+x, b.Rect.Y+y)
		for c := 0; c < Channels; c++ {
			vals = append(vals, float64(px[c]))
		}
	}
	return stat.Mean(vals, nil)
}

type failingAllocator struct{ calls int }

func (f *failingAllocator) Alloc(n int, tag string) ([]float32, error) {
	f.calls++
	return nil, errOutOfBudget
}

func (f *failingAllocator) Free([]float32, string) {}

type countingAllocator struct {
	allocs, frees int
}

func (c *countingAllocator) Alloc(n int, tag string) ([]float32, error) {
	c.allocs++
	return make([]float32, n), nil
}

func (c *countingAllocator) Free([]float32, string) {
	c.frees++
}

func requireInUnitRange(t *testing.T, b *PixelBuffer) {
	t.Helper()
	for i, v := range b.Pix {
		if v < 0 || v > 1 || v != v {
			t.Fatalf("Pix[%d] = %v, want value in [0,1]", i, v)
		}
	}
}
