package diffusion

import "fmt"

// Allocator hands out float32 scratch storage. Alloc returns an error instead
// of panicking when the request cannot be served.
type Allocator interface {
	Alloc(n int, tag string) ([]float32, error)
	Free(buf []float32, tag string)
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(n int, tag string) ([]float32, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative allocation for %s: %d", tag, n)
	}
	return make([]float32, n), nil
}

func (HeapAllocator) Free([]float32, string) {}

const scratchTag = "diffusion_scratch"

// ScratchFloats is the number of float32 values a Scratch needs for a
// width x height region:
//
//	(w+4)*(h+4)*(4+4)  halo RGBA, three tensor planes, one blur temp
//	+ 2*w*h*4          working and next RGBA buffers
func ScratchFloats(width, height int) int {
	hw, hh := width+2*HaloMargin, height+2*HaloMargin
	return hw*hh*(Channels+4) + 2*width*height*Channels
}

// ConductanceScratchFloats is the scratch size of the conductance smoother,
// which only needs the working and next RGBA buffers.
func ConductanceScratchFloats(width, height int) int {
	return 2 * width * height * Channels
}

// Scratch is caller-owned working memory for one invocation at a time.
// It can be reused for any region that fits its capacity.
type Scratch struct {
	buf   []float32
	alloc Allocator
}

// NewScratch sizes a scratch for the structure tensor engine.
func NewScratch(width, height int, alloc Allocator) (*Scratch, error) {
	return newScratch(ScratchFloats(width, height), width, height, alloc)
}

// NewConductanceScratch sizes a scratch for RunConductance only.
func NewConductanceScratch(width, height int, alloc Allocator) (*Scratch, error) {
	return newScratch(ConductanceScratchFloats(width, height), width, height, alloc)
}

func newScratch(n, width, height int, alloc Allocator) (*Scratch, error) {
	if alloc == nil {
		alloc = HeapAllocator{}
	}

	buf, err := alloc.Alloc(n, scratchTag)
	if err != nil {
		return nil, fmt.Errorf("%w: %d floats for %dx%d: %w", ErrAllocation, n, width, height, err)
	}
	if len(buf) < n {
		alloc.Free(buf, scratchTag)
		return nil, fmt.Errorf("%w: allocator returned %d floats, need %d", ErrAllocation, len(buf), n)
	}

	return &Scratch{buf: buf, alloc: alloc}, nil
}

func (s *Scratch) Capacity() int {
	return len(s.buf)
}

// Fits reports whether s can run the structure tensor engine on a
// width x height region.
func (s *Scratch) Fits(width, height int) bool {
	return s.holds(ScratchFloats(width, height))
}

func (s *Scratch) holds(n int) bool {
	return s.buf != nil && n <= len(s.buf)
}

// Release returns the storage to its allocator. The Scratch is unusable
// afterwards.
func (s *Scratch) Release() {
	if s.buf == nil {
		return
	}
	s.alloc.Free(s.buf, scratchTag)
	s.buf = nil
}

type workspace struct {
	halo      *HaloRegion
	tensor    StructureTensor
	tmp       *ScalarField
	cur, next *PixelBuffer
}

func (s *Scratch) workspace(region Rect) workspace {
	hr := region.Grow(HaloMargin)
	plane := hr.Area()
	buf := s.buf

	take := func(n int) []float32 {
		out := buf[:n:n]
		buf = buf[n:]
		return out
	}

	field := func() *ScalarField {
		return &ScalarField{Width: hr.Width, Height: hr.Height, Data: take(plane)}
	}

	ws := workspace{
		halo: &HaloRegion{
			PixelBuffer: &PixelBuffer{Rect: hr, Pix: take(plane * Channels)},
			Region:      region,
			Margin:      HaloMargin,
		},
	}
	ws.tensor = StructureTensor{Ix2: field(), Iy2: field(), Ixy: field()}
	ws.tmp = field()
	ws.cur = &PixelBuffer{Rect: region, Pix: take(region.Area() * Channels)}
	ws.next = &PixelBuffer{Rect: region, Pix: take(region.Area() * Channels)}

	return ws
}

// pingPong slices the working and next buffers of the conductance smoother.
func (s *Scratch) pingPong(region Rect) (cur, next *PixelBuffer) {
	n := region.Area() * Channels
	cur = &PixelBuffer{Rect: region, Pix: s.buf[:n:n]}
	next = &PixelBuffer{Rect: region, Pix: s.buf[n : 2*n : 2*n]}
	return cur, next
}
