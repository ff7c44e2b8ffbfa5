package diffusion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConductance(t *testing.T) {
	assert.InDelta(t, 1, conductance(0, 4), 1e-7)
	assert.InDelta(t, 0.36787944, conductance(4, 4), 1e-6)
	assert.Less(t, conductance(1, 1), conductance(0.5, 1))
}

func TestRunConductancePassthrough(t *testing.T) {
	for _, sz := range []struct{ w, h int }{{1, 1}, {1, 30}, {30, 1}} {
		src := noiseBuffer(sz.w, sz.h, 8)
		dst := NewPixelBuffer(src.Rect)

		require.NoError(t, new(Integrator).RunConductance(src, dst, DefaultConductanceParams(), nil))
		assert.Equal(t, src.Pix, dst.Pix)
	}
}

func TestRunConductanceFlatField(t *testing.T) {
	src := uniformBuffer(9, 7, [Channels]float32{0.1, 0.2, 0.3, 0.4})
	dst := NewPixelBuffer(src.Rect)

	require.NoError(t, new(Integrator).RunConductance(src, dst, DefaultConductanceParams(), nil))
	assert.Equal(t, src.Pix, dst.Pix)
}

func TestRunConductanceSmoothsNoise(t *testing.T) {
	src := noiseBuffer(24, 24, 6)
	dst := NewPixelBuffer(src.Rect)

	require.NoError(t, new(Integrator).RunConductance(src, dst, DefaultConductanceParams(), nil))
	requireInUnitRange(t, dst)

	for c := 0; c < Channels; c++ {
		assert.Less(t, channelVariance(dst, c, 1), channelVariance(src, c, 1)/2, "channel %d", c)
	}
}

func TestRunConductanceWorkersAgree(t *testing.T) {
	src := noiseBuffer(19, 23, 12)
	serial := NewPixelBuffer(src.Rect)
	parallel := NewPixelBuffer(src.Rect)

	require.NoError(t, NewIntegrator(1).RunConductance(src, serial, DefaultConductanceParams(), nil))
	require.NoError(t, NewIntegrator(5).RunConductance(src, parallel, DefaultConductanceParams(), nil))
	assert.Equal(t, serial.Pix, parallel.Pix)
}

func TestRunConductanceScratchTooSmall(t *testing.T) {
	s, err := NewScratch(2, 2, nil)
	require.NoError(t, err)

	src := noiseBuffer(10, 10, 1)
	err = new(Integrator).RunConductance(src, NewPixelBuffer(src.Rect), DefaultConductanceParams(), s)
	assert.True(t, errors.Is(err, ErrAllocation))
}

func TestConductanceParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultConductanceParams().Validate())

	tests := []struct {
		name   string
		mutate func(*ConductanceParams)
	}{
		{"iterations", func(p *ConductanceParams) { p.Iterations = 0 }},
		{"alpha", func(p *ConductanceParams) { p.Alpha = 1.5 }},
		{"kappa", func(p *ConductanceParams) { p.Kappa = 0.5 }},
		{"strength", func(p *ConductanceParams) { p.Strength = 6 }},
		{"delta_t", func(p *ConductanceParams) { p.DeltaT = 0.01 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultConductanceParams()
			tc.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.name)
		})
	}
}

func TestRunConductanceExactScratch(t *testing.T) {
	src := noiseBuffer(12, 9, 4)
	s, err := NewConductanceScratch(12, 9, nil)
	require.NoError(t, err)
	defer s.Release()

	viaScratch := NewPixelBuffer(src.Rect)
	require.NoError(t, NewIntegrator(2).RunConductance(src, viaScratch, DefaultConductanceParams(), s))

	fresh := NewPixelBuffer(src.Rect)
	require.NoError(t, NewIntegrator(2).RunConductance(src, fresh, DefaultConductanceParams(), nil))
	assert.Equal(t, fresh.Pix, viaScratch.Pix)

	err = NewIntegrator(1).Run(src, NewPixelBuffer(src.Rect), DefaultParams(), s)
	assert.True(t, errors.Is(err, ErrAllocation))
}
