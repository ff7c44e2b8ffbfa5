package diffusion

import (
	"github.com/chewxy/math32"
)

const epsilon = 1e-5

type Vec2 struct {
	X, Y float32
}

// Eigen is the eigenstructure of a structure tensor at one pixel.
// V1 points along the dominant gradient, V2 along the edge.
type Eigen struct {
	Lambda1, Lambda2 float32
	V1, V2           Vec2
	Coherence        float32
}

// Decompose returns the eigenvalues, eigenvectors and coherence of t.
// Flat or degenerate neighbourhoods fall back to V1 = (1, 0) and zero
// coherence.
func Decompose(t Tensor2x2) Eigen {
	trace := t.A + t.C
	det := t.A*t.C - t.B*t.B
	disc := math32.Sqrt(max(0, trace*trace/4-det))

	e := Eigen{
		Lambda1: trace/2 + disc,
		Lambda2: trace/2 - disc,
	}

	vx, vy := t.B, e.Lambda1-t.A
	norm := math32.Sqrt(vx*vx + vy*vy)
	if norm < epsilon {
		vx, vy = 1, 0
	} else {
		vx, vy = vx/norm, vy/norm
	}
	e.V1 = Vec2{X: vx, Y: vy}
	e.V2 = Vec2{X: -vy, Y: vx}

	sum := e.Lambda1 + e.Lambda2
	gradMag := math32.Sqrt(max(0, sum))
	if gradMag > epsilon {
		e.Coherence = ((e.Lambda1 - e.Lambda2) / (sum + epsilon)) * math32.Exp(-1/(gradMag+epsilon))
	}
	e.Coherence = clamp(e.Coherence, 0, 1)

	return e
}

// clamp follows the GLib CLAMP ordering: the upper bound wins when lo > hi.
func clamp(v, lo, hi float32) float32 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
