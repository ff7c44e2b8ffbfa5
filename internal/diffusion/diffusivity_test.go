package diffusion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffusionTensorIsotropicWithoutCoherence(t *testing.T) {
	e := Eigen{V1: Vec2{X: 1}, V2: Vec2{Y: 1}}
	d := NewDiffusionTensor(e, 10, 0.9, 0.3)

	assert.InDelta(t, 10, d.Dxx, 1e-6)
	assert.InDelta(t, 10, d.Dyy, 1e-6)
	assert.InDelta(t, 0, d.Dxy, 1e-6)
}

func TestDiffusionTensorFullyCoherent(t *testing.T) {
	e := Eigen{V1: Vec2{X: 1}, V2: Vec2{Y: 1}, Coherence: 1}
	d := NewDiffusionTensor(e, 10, 0.9, 0.3)

	// Across the edge c1 = s/(1+0.9); along it c2 = s*(0.7+0.3/e).
	assert.InDelta(t, 10/1.9, d.Dxx, 1e-5)
	assert.InDelta(t, 10*(0.7+0.3*math.Exp(-1)), d.Dyy, 1e-5)
	assert.InDelta(t, 0, d.Dxy, 1e-6)
	assert.Less(t, d.Dxx, d.Dyy)
}

func TestDiffusionTensorFloor(t *testing.T) {
	tests := []struct {
		name     string
		strength float32
	}{
		{"zero strength", 0},
		{"below floor", 0.05},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Eigen{V1: Vec2{X: 1}, V2: Vec2{Y: 1}, Coherence: 0.5}
			d := NewDiffusionTensor(e, tc.strength, 0.9, 0.3)

			assert.InDelta(t, minDiffusivity, d.Dxx, 1e-6)
			assert.InDelta(t, minDiffusivity, d.Dyy, 1e-6)
		})
	}

	e := Eigen{V1: Vec2{X: 1}, V2: Vec2{Y: 1}, Coherence: 1}
	d := NewDiffusionTensor(e, 0.15, 1, 1)
	assert.InDelta(t, 0.1, d.Dxx, 1e-6, "c1 floored")
}

func TestDiffusionTensorSymmetricPositive(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 500; i++ {
		theta := rng.Float64() * 2 * math.Pi
		v1 := Vec2{X: float32(math.Cos(theta)), Y: float32(math.Sin(theta))}
		e := Eigen{V1: v1, V2: Vec2{X: -v1.Y, Y: v1.X}, Coherence: rng.Float32()}

		s := 0.5 + 19.5*rng.Float32()
		d := NewDiffusionTensor(e, s, rng.Float32()*3, rng.Float32())

		det := d.Dxx*d.Dyy - d.Dxy*d.Dxy
		assert.Greater(t, d.Dxx, float32(0))
		assert.Greater(t, d.Dyy, float32(0))
		assert.Greater(t, det, float32(0))
		assert.LessOrEqual(t, d.Dxx+d.Dyy, 2*s+1e-4)
	}
}
