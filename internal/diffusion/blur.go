package diffusion

import (
	"github.com/chewxy/math32"
)

// GaussianKernel returns a normalised 1-D Gaussian kernel with radius
// round(3*sigma). The kernel always has at least three taps.
func GaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{0, 1, 0}
	}

	radius := int(3*sigma + 0.5)
	size := max(2*radius+1, 3)
	radius = size / 2

	s := float32(sigma)
	kernel := make([]float32, size)
	var sum float32
	for i := range kernel {
		x := float32(i - radius)
		kernel[i] = math32.Exp(-(x * x) / (2 * s * s))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}

// GaussianBlur blurs field in place with a separable Gaussian of the given
// sigma. Samples outside the field are clamped to the nearest edge.
func GaussianBlur(field *ScalarField, sigma float64) {
	tmp := NewScalarField(field.Width, field.Height)
	blurField(field, tmp, GaussianKernel(sigma), 1)
}

// blurField runs the horizontal pass from field into tmp, then the vertical
// pass from tmp back into field.
func blurField(field, tmp *ScalarField, kernel []float32, workers int) {
	w, h := field.Width, field.Height
	k := len(kernel) / 2

	runBands(workers, h, func(start, end int) {
		for y := start; y < end; y++ {
			src := field.Row(y)
			dst := tmp.Row(y)
			for x := 0; x < w; x++ {
				var v float32
				for i, kv := range kernel {
					nx := min(max(x+i-k, 0), w-1)
					v += kv * src[nx]
				}
				dst[x] = v
			}
		}
	})

	runBands(workers, h, func(start, end int) {
		for y := start; y < end; y++ {
			dst := field.Row(y)
			for x := 0; x < w; x++ {
				var v float32
				for i, kv := range kernel {
					ny := min(max(y+i-k, 0), h-1)
					v += kv * tmp.Data[ny*w+x]
				}
				dst[x] = v
			}
		}
	})
}
