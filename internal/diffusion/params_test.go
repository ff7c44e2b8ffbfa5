package diffusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		field  string
		mutate func(*Params)
	}{
		{"too few iterations", "iterations", func(p *Params) { p.Iterations = 0 }},
		{"too many iterations", "iterations", func(p *Params) { p.Iterations = 21 }},
		{"negative strength", "strength", func(p *Params) { p.Strength = -1 }},
		{"edge threshold", "edge_threshold", func(p *Params) { p.EdgeThreshold = 2.5 }},
		{"anisotropy", "anisotropy", func(p *Params) { p.Anisotropy = 1.1 }},
		{"narrow sigma", "tensor_sigma", func(p *Params) { p.TensorSigma = 0.4 }},
		{"large dt", "dt", func(p *Params) { p.Dt = 0.3 }},
		{"boundary", "boundary", func(p *Params) { p.Boundary = BoundaryPolicy(9) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestParamsValidateAcceptsBounds(t *testing.T) {
	lo := Params{Iterations: 1, Strength: 0, EdgeThreshold: 0, Anisotropy: 0, TensorSigma: 0.5, Dt: 0.01}
	hi := Params{Iterations: 20, Strength: 20, EdgeThreshold: 2, Anisotropy: 1, TensorSigma: 2, Dt: 0.25, Boundary: BoundaryZero}

	assert.NoError(t, lo.Validate())
	assert.NoError(t, hi.Validate())
}
