// Package diffusion implements structure-tensor driven anisotropic diffusion
// over 4-channel float images.
//
// The engine smooths along image contours while suppressing diffusion across
// them. Every iteration rebuilds a halo around the working buffer, derives a
// regularised structure tensor, turns its eigenstructure into a per-pixel
// diffusion tensor and advances the image by one explicit Euler step.
//
// Usage:
//
//	src := diffusion.NewPixelBuffer(diffusion.Rect{Width: w, Height: h})
//	// fill src.Pix with RGBA values in [0,1]
//	dst, err := diffusion.Smooth(src, diffusion.DefaultParams())
package diffusion

import (
	"errors"
	"fmt"
)

// Channels is the number of interleaved float channels per pixel (R,G,B,A).
const Channels = 4

// HaloMargin is the number of boundary pixels added on every side of a region.
const HaloMargin = 2

var (
	ErrAllocation    = errors.New("diffusion: scratch allocation failed")
	ErrShapeMismatch = errors.New("diffusion: buffer shape mismatch")
)

// Rect is a rectangular pixel region [X, X+Width) x [Y, Y+Height).
type Rect struct {
	X, Y          int
	Width, Height int
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Grow returns r enlarged by n pixels on every side.
func (r Rect) Grow(n int) Rect {
	return Rect{X: r.X - n, Y: r.Y - n, Width: r.Width + 2*n, Height: r.Height + 2*n}
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// PixelBuffer is a dense row-major RGBA float image covering Rect.
// Coordinates passed to its accessors are absolute, not relative to Rect.
type PixelBuffer struct {
	Rect Rect
	Pix  []float32
}

func NewPixelBuffer(r Rect) *PixelBuffer {
	return &PixelBuffer{Rect: r, Pix: make([]float32, r.Area()*Channels)}
}

// WrapPixelBuffer builds a buffer over caller-owned storage.
func WrapPixelBuffer(r Rect, pix []float32) (*PixelBuffer, error) {
	if len(pix) < r.Area()*Channels {
		return nil, fmt.Errorf("%w: need %d floats for %s, got %d",
			ErrShapeMismatch, r.Area()*Channels, r, len(pix))
	}
	return &PixelBuffer{Rect: r, Pix: pix[:r.Area()*Channels]}, nil
}

func (b *PixelBuffer) Width() int  { return b.Rect.Width }
func (b *PixelBuffer) Height() int { return b.Rect.Height }

// PixOffset returns the index of the first channel of pixel (x, y).
func (b *PixelBuffer) PixOffset(x, y int) int {
	return ((y-b.Rect.Y)*b.Rect.Width + (x - b.Rect.X)) * Channels
}

// At returns the channel slice of pixel (x, y). The slice aliases Pix.
func (b *PixelBuffer) At(x, y int) []float32 {
	i := b.PixOffset(x, y)
	return b.Pix[i : i+Channels : i+Channels]
}

func (b *PixelBuffer) Set(x, y int, rgba [Channels]float32) {
	copy(b.At(x, y), rgba[:])
}

// Row returns the interleaved channels of row y.
func (b *PixelBuffer) Row(y int) []float32 {
	start := (y - b.Rect.Y) * b.Rect.Width * Channels
	return b.Pix[start : start+b.Rect.Width*Channels]
}

func (b *PixelBuffer) Clone() *PixelBuffer {
	out := &PixelBuffer{Rect: b.Rect, Pix: make([]float32, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// CopyFrom copies the pixels of src into b. Both buffers must cover the same
// extent.
func (b *PixelBuffer) CopyFrom(src *PixelBuffer) error {
	if b.Rect.Width != src.Rect.Width || b.Rect.Height != src.Rect.Height {
		return fmt.Errorf("%w: copy %s into %s", ErrShapeMismatch, src.Rect, b.Rect)
	}
	copy(b.Pix, src.Pix)
	return nil
}

// Fill sets every pixel to rgba.
func (b *PixelBuffer) Fill(rgba [Channels]float32) {
	for i := 0; i < len(b.Pix); i += Channels {
		copy(b.Pix[i:i+Channels], rgba[:])
	}
}

// ScalarField is a single-channel float plane used for tensor components and
// blur intermediates.
type ScalarField struct {
	Width, Height int
	Data          []float32
}

func NewScalarField(width, height int) *ScalarField {
	return &ScalarField{Width: width, Height: height, Data: make([]float32, width*height)}
}

func (f *ScalarField) At(x, y int) float32 {
	return f.Data[y*f.Width+x]
}

func (f *ScalarField) Set(x, y int, v float32) {
	f.Data[y*f.Width+x] = v
}

func (f *ScalarField) Row(y int) []float32 {
	return f.Data[y*f.Width : (y+1)*f.Width]
}
