package conductance

import (
	"context"
	"fmt"

	"aniso-smooth/internal/algorithms/params"
	"aniso-smooth/internal/diffusion"
)

const Name = "Intense Anisotropic Smooth"

// Processor runs the four-neighbour conductance smoother, a stronger and
// cheaper alternative to the structure tensor engine.
type Processor struct {
	name      string
	allocator diffusion.Allocator
	workers   int
}

func NewProcessor(alloc diffusion.Allocator, workers int) *Processor {
	return &Processor{
		name:      Name,
		allocator: alloc,
		workers:   workers,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	d := diffusion.DefaultConductanceParams()
	return map[string]interface{}{
		"iterations": d.Iterations,
		"alpha":      d.Alpha,
		"kappa":      d.Kappa,
		"strength":   d.Strength,
		"delta_t":    d.DeltaT,
	}
}

func (p *Processor) ValidateParameters(m map[string]interface{}) error {
	_, err := BuildParams(m)
	return err
}

func BuildParams(m map[string]interface{}) (diffusion.ConductanceParams, error) {
	out := diffusion.DefaultConductanceParams()
	var err error

	if out.Iterations, err = params.Int(m, "iterations", out.Iterations); err != nil {
		return out, err
	}
	if out.Alpha, err = params.Float(m, "alpha", out.Alpha); err != nil {
		return out, err
	}
	if out.Kappa, err = params.Float(m, "kappa", out.Kappa); err != nil {
		return out, err
	}
	if out.Strength, err = params.Float(m, "strength", out.Strength); err != nil {
		return out, err
	}
	if out.DeltaT, err = params.Float(m, "delta_t", out.DeltaT); err != nil {
		return out, err
	}

	return out, out.Validate()
}

func (p *Processor) Process(input *diffusion.PixelBuffer, m map[string]interface{}) (*diffusion.PixelBuffer, error) {
	return p.ProcessWithProgress(context.Background(), input, m, nil)
}

func (p *Processor) ProcessWithContext(ctx context.Context, input *diffusion.PixelBuffer, m map[string]interface{}) (*diffusion.PixelBuffer, error) {
	return p.ProcessWithProgress(ctx, input, m, nil)
}

func (p *Processor) ProcessWithProgress(ctx context.Context, input *diffusion.PixelBuffer, m map[string]interface{}, progress func(done, total int)) (*diffusion.PixelBuffer, error) {
	if input == nil || input.Rect.Empty() {
		return nil, fmt.Errorf("empty input for %s", p.name)
	}

	cp, err := BuildParams(m)
	if err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	scratch, err := diffusion.NewConductanceScratch(input.Width(), input.Height(), p.allocator)
	if err != nil {
		return nil, err
	}
	defer scratch.Release()

	output := diffusion.NewPixelBuffer(input.Rect)
	integrator := &diffusion.Integrator{Workers: p.workers, OnIteration: progress}

	if err := integrator.RunConductanceContext(ctx, input, output, cp, scratch); err != nil {
		return nil, fmt.Errorf("conductance smoothing failed: %w", err)
	}

	return output, nil
}
