package diffusion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDecomposeFlatRegion(t *testing.T) {
	e := Decompose(Tensor2x2{})

	assert.Zero(t, e.Lambda1)
	assert.Zero(t, e.Lambda2)
	assert.Equal(t, Vec2{X: 1, Y: 0}, e.V1)
	assert.InDelta(t, 0, e.V2.X, 0)
	assert.Equal(t, float32(1), e.V2.Y)
	assert.Zero(t, e.Coherence)
}

func TestDecomposeAxisAligned(t *testing.T) {
	tests := []struct {
		name   string
		tensor Tensor2x2
		v1     Vec2
	}{
		{"vertical edge", Tensor2x2{A: 0.5, C: 0}, Vec2{X: 1, Y: 0}},
		{"horizontal edge", Tensor2x2{A: 0, C: 0.5}, Vec2{X: 0, Y: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Decompose(tc.tensor)
			assert.InDelta(t, 0.5, e.Lambda1, 1e-6)
			assert.InDelta(t, 0, e.Lambda2, 1e-6)
			assert.InDelta(t, tc.v1.X, e.V1.X, 1e-6)
			assert.InDelta(t, tc.v1.Y, e.V1.Y, 1e-6)
			assert.InDelta(t, 0, e.V1.X*e.V2.X+e.V1.Y*e.V2.Y, 1e-6)

			// Fully oriented: (l1-l2)/(l1+l2) ~ 1, damped by exp(-1/|g|).
			want := math.Exp(-1 / (math.Sqrt(0.5) + 1e-5))
			assert.InDelta(t, want, e.Coherence, 1e-4)
		})
	}
}

func TestDecomposeMatchesEigenSym(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		a := 0.1 + 0.9*rng.Float64()
		c := 0.1 + 0.9*rng.Float64()
		b := (0.1 + 0.9*rng.Float64()) * math.Sqrt(a*c)
		if rng.Intn(2) == 0 {
			b = -b
		}

		var es mat.EigenSym
		ok := es.Factorize(mat.NewSymDense(2, []float64{a, b, b, c}), true)
		require.True(t, ok)
		vals := es.Values(nil) // ascending

		e := Decompose(Tensor2x2{A: float32(a), B: float32(b), C: float32(c)})
		assert.InDelta(t, vals[1], e.Lambda1, 1e-4, "lambda1 for a=%v b=%v c=%v", a, b, c)
		assert.InDelta(t, vals[0], e.Lambda2, 1e-4, "lambda2 for a=%v b=%v c=%v", a, b, c)

		// T*v1 = lambda1*v1
		rx := float64(e.V1.X)*a + float64(e.V1.Y)*b - float64(e.Lambda1)*float64(e.V1.X)
		ry := float64(e.V1.X)*b + float64(e.V1.Y)*c - float64(e.Lambda1)*float64(e.V1.Y)
		assert.Less(t, math.Hypot(rx, ry), 1e-3, "eigenvector residual for a=%v b=%v c=%v", a, b, c)

		n := math.Hypot(float64(e.V1.X), float64(e.V1.Y))
		assert.InDelta(t, 1, n, 1e-5)
	}
}

func TestCoherenceBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		scale := float32(math.Pow(10, 4*rng.Float64()-3))
		a := rng.Float32() * scale
		c := rng.Float32() * scale
		b := (2*rng.Float32() - 1) * float32(math.Sqrt(float64(a*c)))

		e := Decompose(Tensor2x2{A: a, B: b, C: c})
		assert.GreaterOrEqual(t, e.Coherence, float32(0))
		assert.LessOrEqual(t, e.Coherence, float32(1))
		assert.GreaterOrEqual(t, e.Lambda1, e.Lambda2)
	}
}

func TestDecomposeNegativeDiscriminantIsFloored(t *testing.T) {
	// Repeated eigenvalues put the discriminant at or just below zero.
	e := Decompose(Tensor2x2{A: 0.25, B: 0.0, C: 0.25 + 1e-9})
	assert.False(t, math.IsNaN(float64(e.Lambda1)))
	assert.InDelta(t, e.Lambda1, e.Lambda2, 1e-6)

	e = Decompose(Tensor2x2{A: -1, B: 0, C: -1})
	assert.False(t, math.IsNaN(float64(e.Coherence)))
	assert.Zero(t, e.Coherence)
}
