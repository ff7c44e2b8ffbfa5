package algorithms

import (
	"context"
	"testing"

	"aniso-smooth/internal/algorithms/anisotropic"
	"aniso-smooth/internal/algorithms/conductance"
	"aniso-smooth/internal/diffusion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRegistry(t *testing.T) {
	m := NewManager(nil, 1)

	assert.Equal(t, []string{anisotropic.Name, conductance.Name}, m.GetAvailableAlgorithms())
	assert.Equal(t, anisotropic.Name, m.GetCurrentAlgorithm())

	require.NoError(t, m.SetCurrentAlgorithm(conductance.Name))
	assert.Equal(t, conductance.Name, m.GetCurrentAlgorithm())

	assert.Error(t, m.SetCurrentAlgorithm("Median Blur"))
	_, err := m.GetAlgorithm("Median Blur")
	assert.Error(t, err)
}

func TestManagerParameters(t *testing.T) {
	m := NewManager(nil, 1)

	p := m.GetParameters(anisotropic.Name)
	assert.Equal(t, 10, p["iterations"])
	p["iterations"] = 99
	assert.Equal(t, 10, m.GetParameters(anisotropic.Name)["iterations"], "GetParameters returns a copy")

	require.NoError(t, m.SetParameter(anisotropic.Name, "strength", 4.0))
	assert.Equal(t, 4.0, m.GetParameters(anisotropic.Name)["strength"])
	assert.Error(t, m.SetParameter("nope", "strength", 1.0))

	err := m.SetParameters(anisotropic.Name, map[string]interface{}{"dt": 0.9})
	assert.ErrorContains(t, err, "dt must be between")
	assert.Equal(t, 0.1, m.GetParameters(anisotropic.Name)["dt"], "invalid overrides are not stored")

	require.NoError(t, m.SetParameters(anisotropic.Name, map[string]interface{}{"dt": 0.2, "boundary": "loop"}))
	assert.Equal(t, "loop", m.GetParameters(anisotropic.Name)["boundary"])

	require.NoError(t, m.ResetParameters(anisotropic.Name))
	assert.Equal(t, "clamp", m.GetParameters(anisotropic.Name)["boundary"])
	assert.Empty(t, m.GetParameters("nope"))
}

type plainAlgorithm struct{ calls int }

func (p *plainAlgorithm) Process(input *diffusion.PixelBuffer, _ map[string]interface{}) (*diffusion.PixelBuffer, error) {
	p.calls++
	return input.Clone(), nil
}
func (p *plainAlgorithm) ValidateParameters(map[string]interface{}) error { return nil }
func (p *plainAlgorithm) GetDefaultParameters() map[string]interface{} {
	return map[string]interface{}{}
}
func (p *plainAlgorithm) GetName() string { return "Copy" }

func TestRunDispatch(t *testing.T) {
	m := NewManager(nil, 2)
	input := diffusion.NewPixelBuffer(diffusion.Rect{Width: 8, Height: 8})
	input.Fill([diffusion.Channels]float32{0.5, 0.5, 0.5, 1})

	alg, err := m.GetAlgorithm(anisotropic.Name)
	require.NoError(t, err)

	var reports int
	p := m.GetParameters(anisotropic.Name)
	p["iterations"] = 3
	out, err := Run(context.Background(), alg, input, p, func(done, total int) {
		reports++
		assert.Equal(t, 3, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, reports)
	assert.Equal(t, input.Pix, out.Pix)

	plain := &plainAlgorithm{}
	m.Register(plain)
	assert.Contains(t, m.GetAvailableAlgorithms(), "Copy")

	_, err = Run(context.Background(), plain, input, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, plain.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, plain, input, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, plain.calls)
}
