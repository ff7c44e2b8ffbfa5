package anisotropic

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"aniso-smooth/internal/diffusion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type budgetAllocator struct {
	limit, used int
}

var errBudget = errors.New("budget exceeded")

func (b *budgetAllocator) Alloc(n int, tag string) ([]float32, error) {
	if b.used+n > b.limit {
		return nil, errBudget
	}
	b.used += n
	return make([]float32, n), nil
}

func (b *budgetAllocator) Free(buf []float32, tag string) {
	b.used -= len(buf)
}

func noise(w, h int) *diffusion.PixelBuffer {
	rng := rand.New(rand.NewSource(int64(w * h)))
	b := diffusion.NewPixelBuffer(diffusion.Rect{Width: w, Height: h})
	for i := range b.Pix {
		b.Pix[i] = rng.Float32()
	}
	return b
}

func TestBuildParams(t *testing.T) {
	p, err := BuildParams(nil)
	require.NoError(t, err)
	assert.Equal(t, diffusion.DefaultParams(), p)

	p, err = BuildParams(map[string]interface{}{
		"iterations":   int64(5),
		"strength":     3,
		"tensor_sigma": 1.5,
		"boundary":     "wrap",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Iterations)
	assert.Equal(t, 3.0, p.Strength)
	assert.Equal(t, 1.5, p.TensorSigma)
	assert.Equal(t, diffusion.BoundaryLoop, p.Boundary)
}

func TestValidateParameters(t *testing.T) {
	proc := NewProcessor(nil, 1)
	assert.NoError(t, proc.ValidateParameters(proc.GetDefaultParameters()))

	tests := []struct {
		name string
		in   map[string]interface{}
		want string
	}{
		{"iterations range", map[string]interface{}{"iterations": 50}, "iterations must be between 1 and 20"},
		{"iterations type", map[string]interface{}{"iterations": "ten"}, "iterations must be an integer"},
		{"fractional iterations", map[string]interface{}{"iterations": 2.5}, "iterations must be an integer"},
		{"sigma", map[string]interface{}{"tensor_sigma": 0.1}, "tensor_sigma"},
		{"boundary", map[string]interface{}{"boundary": "mirror"}, "unknown boundary policy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := proc.ValidateParameters(tc.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestProcessMatchesEngine(t *testing.T) {
	input := noise(20, 14)
	want, err := diffusion.Smooth(input, diffusion.DefaultParams())
	require.NoError(t, err)

	proc := NewProcessor(nil, 3)
	got, err := proc.Process(input, proc.GetDefaultParameters())
	require.NoError(t, err)

	assert.Equal(t, want.Pix, got.Pix)
	assert.Equal(t, Name, proc.GetName())
}

func TestProcessWithProgress(t *testing.T) {
	proc := NewProcessor(nil, 2)

	var seen []int
	_, err := proc.ProcessWithProgress(context.Background(), noise(9, 9),
		map[string]interface{}{"iterations": 3},
		func(done, total int) { seen = append(seen, done) })
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestProcessReleasesScratch(t *testing.T) {
	alloc := &budgetAllocator{limit: diffusion.ScratchFloats(16, 16)}
	proc := NewProcessor(alloc, 1)

	for i := 0; i < 3; i++ {
		_, err := proc.Process(noise(16, 16), nil)
		require.NoError(t, err)
		assert.Zero(t, alloc.used)
	}
}

func TestProcessAllocationFailure(t *testing.T) {
	alloc := &budgetAllocator{limit: 100}
	proc := NewProcessor(alloc, 1)

	_, err := proc.Process(noise(16, 16), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diffusion.ErrAllocation))
	assert.True(t, errors.Is(err, errBudget))
}

func TestProcessErrors(t *testing.T) {
	proc := NewProcessor(nil, 1)

	_, err := proc.Process(nil, nil)
	assert.Error(t, err)

	_, err = proc.Process(noise(4, 4), map[string]interface{}{"dt": 1.0})
	assert.ErrorContains(t, err, "parameter validation failed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = proc.ProcessWithContext(ctx, noise(4, 4), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
