package diffusion

import (
	"github.com/chewxy/math32"
)

// minDiffusivity is the floor for both diffusion coefficients.
const minDiffusivity = 0.1

// DiffusionTensor is the symmetric 2x2 matrix [[Dxx, Dxy], [Dxy, Dyy]].
type DiffusionTensor struct {
	Dxx, Dxy, Dyy float32
}

// NewDiffusionTensor builds the per-pixel diffusion tensor. c1 acts across
// the edge and collapses as coherence grows; c2 acts along the edge and stays
// close to strength.
func NewDiffusionTensor(e Eigen, strength, edgeThreshold, anisotropy float32) DiffusionTensor {
	coh2 := e.Coherence * e.Coherence

	c1 := clamp(strength/(1+edgeThreshold*coh2), minDiffusivity, strength)
	c2 := clamp(strength*(1-anisotropy+anisotropy*math32.Exp(-coh2)), minDiffusivity, strength)

	v1, v2 := e.V1, e.V2
	return DiffusionTensor{
		Dxx: c1*v1.X*v1.X + c2*v2.X*v2.X,
		Dxy: c1*v1.X*v1.Y + c2*v2.X*v2.Y,
		Dyy: c1*v1.Y*v1.Y + c2*v2.Y*v2.Y,
	}
}
