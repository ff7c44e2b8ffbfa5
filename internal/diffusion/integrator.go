package diffusion

import (
	"context"
	"fmt"
)

const (
	// maxDivergence bounds the per-step update to keep the explicit scheme
	// stable under large coefficients.
	maxDivergence = 0.2
)

// Each Euler step is blended with the previous value: v = 0.9*v + 0.1*old.
// The two weights stay separate float32 constants; 1-0.9 is not 0.1 in
// float32.
const (
	stepWeight float32 = 0.9
	oldWeight  float32 = 0.1
)

// minRegion is the smallest width or height that gets processed.
const minRegion = 3

// Integrator runs the explicit Euler diffusion loop. The zero value runs on
// GOMAXPROCS workers.
type Integrator struct {
	Workers int

	// OnIteration, if set, is called after each completed iteration.
	OnIteration func(done, total int)
}

func NewIntegrator(workers int) *Integrator {
	return &Integrator{Workers: workers}
}

func (in *Integrator) workers() int {
	if in == nil || in.Workers <= 0 {
		return defaultWorkers()
	}
	return in.Workers
}

// Smooth runs the engine over src with a heap-allocated scratch and returns
// a new buffer of the same extent.
func Smooth(src *PixelBuffer, p Params) (*PixelBuffer, error) {
	dst := NewPixelBuffer(src.Rect)
	if err := new(Integrator).Run(src, dst, p, nil); err != nil {
		return nil, err
	}
	return dst, nil
}

// Run diffuses src into dst for p.Iterations steps. dst must have the same
// extent as src and may alias it. A nil scratch is allocated for the call.
// Regions narrower or shorter than three pixels are copied unchanged.
// On error dst is left untouched.
func (in *Integrator) Run(src, dst *PixelBuffer, p Params, s *Scratch) error {
	return in.RunContext(context.Background(), src, dst, p, s)
}

// RunContext is Run with cancellation checked before every iteration.
func (in *Integrator) RunContext(ctx context.Context, src, dst *PixelBuffer, p Params, s *Scratch) error {
	if err := checkShapes(src, dst); err != nil {
		return err
	}

	region := src.Rect
	if region.Width < minRegion || region.Height < minRegion {
		copy(dst.Pix, src.Pix)
		return nil
	}

	s, release, err := ensureScratch(s, region, ScratchFloats(region.Width, region.Height))
	if err != nil {
		return err
	}
	defer release()

	workers := in.workers()
	ws := s.workspace(region)
	copy(ws.cur.Pix, src.Pix)

	kernel := GaussianKernel(p.TensorSigma)
	coeff := newStepCoefficients(p)

	for i := 0; i < p.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ws.halo.fill(ws.cur, p.Boundary, workers)
		buildStructureTensor(ws.halo.PixelBuffer, ws.tensor, ws.tmp, kernel, workers)

		next := ws.next
		runBands(workers, region.Height, func(start, end int) {
			integrateRows(ws.halo, ws.tensor, next, coeff, start, end)
		})
		ws.cur, ws.next = ws.next, ws.cur

		if in != nil && in.OnIteration != nil {
			in.OnIteration(i+1, p.Iterations)
		}
	}

	copy(dst.Pix, ws.cur.Pix)
	return nil
}

type stepCoefficients struct {
	strength, edgeThreshold, anisotropy float32
	dt                                  float32
}

func newStepCoefficients(p Params) stepCoefficients {
	return stepCoefficients{
		strength:      float32(p.Strength),
		edgeThreshold: float32(p.EdgeThreshold),
		anisotropy:    float32(p.Anisotropy),
		dt:            float32(p.Dt),
	}
}

// integrateRows advances region rows [start, end) by one step, reading the
// halo (which mirrors the working buffer) and writing next. Every region
// pixel is at least HaloMargin from the halo edge, so the stencil never
// leaves the halo.
func integrateRows(halo *HaloRegion, st StructureTensor, next *PixelBuffer, k stepCoefficients, start, end int) {
	hw := halo.Rect.Width
	w := next.Rect.Width
	m := halo.Margin
	pix := halo.Pix
	stride := hw * Channels

	for y := start; y < end; y++ {
		hy := y + m
		for x := 0; x < w; x++ {
			hx := x + m
			o := (hy*hw + hx) * Channels
			out := next.Pix[(y*w+x)*Channels : (y*w+x+1)*Channels]

			d := NewDiffusionTensor(Decompose(st.At(hx, hy)), k.strength, k.edgeThreshold, k.anisotropy)

			for c := 0; c < Channels; c++ {
				p := pix[o+c]
				east, west := pix[o+Channels+c], pix[o-Channels+c]
				south, north := pix[o+stride+c], pix[o-stride+c]

				divX := (east-2*p+west)*d.Dxx + (south-north)*d.Dxy
				divY := (south-2*p+north)*d.Dyy + (east-west)*d.Dxy
				div := clamp((divX+divY)/2, -maxDivergence, maxDivergence)

				v := p + k.dt*div
				v = stepWeight*v + oldWeight*p
				out[c] = clamp(v, 0, 1)
			}
		}
	}
}

func checkShapes(src, dst *PixelBuffer) error {
	if src == nil || dst == nil {
		return fmt.Errorf("%w: nil buffer", ErrShapeMismatch)
	}
	if src.Rect.Width != dst.Rect.Width || src.Rect.Height != dst.Rect.Height {
		return fmt.Errorf("%w: src %s, dst %s", ErrShapeMismatch, src.Rect, dst.Rect)
	}
	if n := src.Rect.Area() * Channels; len(src.Pix) < n || len(dst.Pix) < n {
		return fmt.Errorf("%w: pixel storage shorter than %s", ErrShapeMismatch, src.Rect)
	}
	return nil
}

// ensureScratch returns s when it holds need floats, or a freshly allocated
// scratch of that size that the returned release func frees.
func ensureScratch(s *Scratch, region Rect, need int) (*Scratch, func(), error) {
	if s != nil {
		if !s.holds(need) {
			return nil, nil, fmt.Errorf("%w: scratch holds %d floats, %s needs %d",
				ErrAllocation, s.Capacity(), region, need)
		}
		return s, func() {}, nil
	}

	s, err := newScratch(need, region.Width, region.Height, nil)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Release, nil
}
