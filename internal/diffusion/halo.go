package diffusion

import (
	"fmt"
	"strings"
)

// BoundaryPolicy selects how reads outside the processed region are resolved
// when a halo is built.
type BoundaryPolicy int

const (
	// BoundaryClamp repeats the nearest edge pixel.
	BoundaryClamp BoundaryPolicy = iota
	// BoundaryLoop wraps around to the opposite edge.
	BoundaryLoop
	// BoundaryZero reads transparent black.
	BoundaryZero
)

func (p BoundaryPolicy) String() string {
	switch p {
	case BoundaryClamp:
		return "clamp"
	case BoundaryLoop:
		return "loop"
	case BoundaryZero:
		return "zero"
	default:
		return fmt.Sprintf("BoundaryPolicy(%d)", int(p))
	}
}

func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return BoundaryClamp, nil
	case "loop", "wrap":
		return BoundaryLoop, nil
	case "zero", "black", "none":
		return BoundaryZero, nil
	default:
		return BoundaryClamp, fmt.Errorf("unknown boundary policy: %q", s)
	}
}

// resolve maps a region-local coordinate to an in-range index. ok is false
// when the sample must read as zero.
func (p BoundaryPolicy) resolve(i, n int) (idx int, ok bool) {
	if i >= 0 && i < n {
		return i, true
	}

	switch p {
	case BoundaryLoop:
		return ((i % n) + n) % n, true
	case BoundaryZero:
		return 0, false
	default:
		return min(max(i, 0), n-1), true
	}
}

// HaloRegion is a PixelBuffer covering Region grown by Margin on every side.
type HaloRegion struct {
	*PixelBuffer
	Region Rect
	Margin int
}

// NewHaloRegion allocates a halo around src and fills it.
func NewHaloRegion(src *PixelBuffer, margin int, policy BoundaryPolicy) *HaloRegion {
	h := &HaloRegion{
		PixelBuffer: NewPixelBuffer(src.Rect.Grow(margin)),
		Region:      src.Rect,
		Margin:      margin,
	}
	h.fill(src, policy, 1)
	return h
}

func (h *HaloRegion) fill(src *PixelBuffer, policy BoundaryPolicy, workers int) {
	hw := h.Rect.Width
	w, ht := src.Rect.Width, src.Rect.Height

	runBands(workers, h.Rect.Height, func(start, end int) {
		for hy := start; hy < end; hy++ {
			dstRow := h.Pix[hy*hw*Channels : (hy+1)*hw*Channels]
			sy, rowOK := policy.resolve(hy-h.Margin, ht)
			if !rowOK {
				clear(dstRow)
				continue
			}

			srcRow := src.Pix[sy*w*Channels : (sy+1)*w*Channels]
			// The interior is one contiguous copy.
			copy(dstRow[h.Margin*Channels:(h.Margin+w)*Channels], srcRow)

			for hx := 0; hx < hw; hx++ {
				if hx == h.Margin {
					hx += w - 1
					continue
				}
				d := dstRow[hx*Channels : (hx+1)*Channels]
				sx, ok := policy.resolve(hx-h.Margin, w)
				if !ok {
					clear(d)
					continue
				}
				copy(d, srcRow[sx*Channels:(sx+1)*Channels])
			}
		}
	})
}
