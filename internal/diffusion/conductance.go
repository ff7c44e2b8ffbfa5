package diffusion

import (
	"context"

	"github.com/chewxy/math32"
)

const (
	maxConductanceStep = 2.0
	minWeightSum       = 1e-6
)

// conductance is the Gaussian edge-stopping function exp(-(g/kappa)^2).
func conductance(gradient, kappa float32) float32 {
	g := gradient / kappa
	return math32.Exp(-g * g)
}

// RunConductance applies the four-neighbour conductance smoother to src and
// writes the result to dst. Neighbours outside the region do not contribute.
// Edge stopping is driven by the red channel difference only.
// Regions narrower or shorter than two pixels are copied unchanged.
func (in *Integrator) RunConductance(src, dst *PixelBuffer, p ConductanceParams, s *Scratch) error {
	return in.RunConductanceContext(context.Background(), src, dst, p, s)
}

func (in *Integrator) RunConductanceContext(ctx context.Context, src, dst *PixelBuffer, p ConductanceParams, s *Scratch) error {
	if err := checkShapes(src, dst); err != nil {
		return err
	}

	region := src.Rect
	if region.Width < 2 || region.Height < 2 {
		copy(dst.Pix, src.Pix)
		return nil
	}

	s, release, err := ensureScratch(s, region, ConductanceScratchFloats(region.Width, region.Height))
	if err != nil {
		return err
	}
	defer release()

	workers := in.workers()
	cur, next := s.pingPong(region)
	copy(cur.Pix, src.Pix)

	kappa := float32(p.Kappa)
	gain := float32(p.Alpha * p.Strength)
	dt := float32(p.DeltaT)
	w, h := region.Width, region.Height

	for i := 0; i < p.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		runBands(workers, h, func(start, end int) {
			var grads [4][Channels]float32
			var weights [4]float32

			for y := start; y < end; y++ {
				for x := 0; x < w; x++ {
					o := (y*w + x) * Channels
					center := cur.Pix[o : o+Channels]

					neighbours := [4]struct {
						ok  bool
						off int
					}{
						{x > 0, o - Channels},
						{x < w-1, o + Channels},
						{y > 0, o - w*Channels},
						{y < h-1, o + w*Channels},
					}

					var wsum float32
					for d, n := range neighbours {
						weights[d] = 0
						grads[d] = [Channels]float32{}
						if !n.ok {
							continue
						}
						for c := 0; c < Channels; c++ {
							grads[d][c] = cur.Pix[n.off+c] - center[c]
						}
						weights[d] = conductance(math32.Abs(grads[d][0]), kappa)
						wsum += weights[d]
					}

					out := next.Pix[o : o+Channels]
					for c := 0; c < Channels; c++ {
						var step float32
						if wsum > minWeightSum {
							scale := gain / wsum
							step = scale * (weights[0]*grads[0][c] + weights[1]*grads[1][c] +
								weights[2]*grads[2][c] + weights[3]*grads[3][c])
							step = clamp(step, -maxConductanceStep, maxConductanceStep)
						}
						out[c] = clamp(center[c]+dt*step, 0, 1)
					}
				}
			}
		})

		cur, next = next, cur

		if in != nil && in.OnIteration != nil {
			in.OnIteration(i+1, p.Iterations)
		}
	}

	copy(dst.Pix, cur.Pix)
	return nil
}
