package anisotropic

import (
	"context"
	"fmt"

	"aniso-smooth/internal/algorithms/params"
	"aniso-smooth/internal/diffusion"
)

const Name = "Anisotropic Smooth"

type Processor struct {
	name      string
	allocator diffusion.Allocator
	workers   int
}

// NewProcessor draws scratch memory from alloc (heap when nil) and runs on
// workers goroutines (GOMAXPROCS when zero).
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
	d := diffusion.DefaultParams()
	return map[string]interface{}{
		"iterations":     d.Iterations,
		"strength":       d.Strength,
		"edge_threshold": d.EdgeThreshold,
		"anisotropy":     d.Anisotropy,
		"tensor_sigma":   d.TensorSigma,
		"dt":             d.Dt,
		"boundary":       d.Boundary.String(),
	}
}

func (p *Processor) ValidateParameters(m map[string]interface{}) error {
	_, err := BuildParams(m)
	return err
}

// BuildParams overlays m on the engine defaults and validates the result.
func BuildParams(m map[string]interface{}) (diffusion.Params, error) {
	out := diffusion.DefaultParams()
	var err error

	if out.Iterations, err = params.Int(m, "iterations", out.Iterations); err != nil {
		return out, err
	}
	if out.Strength, err = params.Float(m, "strength", out.Strength); err != nil {
		return out, err
	}
	if out.EdgeThreshold, err = params.Float(m, "edge_threshold", out.EdgeThreshold); err != nil {
		return out, err
	}
	if out.Anisotropy, err = params.Float(m, "anisotropy", out.Anisotropy); err != nil {
		return out, err
	}
	if out.TensorSigma, err = params.Float(m, "tensor_sigma", out.TensorSigma); err != nil {
		return out, err
	}
	if out.Dt, err = params.Float(m, "dt", out.Dt); err != nil {
		return out, err
	}

	boundary, err := params.String(m, "boundary", out.Boundary.String())
	if err != nil {
		return out, err
	}
	if out.Boundary, err = diffusion.ParseBoundaryPolicy(boundary); err != nil {
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

// ProcessWithProgress calls progress after every completed iteration.
func (p *Processor) ProcessWithProgress(ctx context.Context, input *diffusion.PixelBuffer, m map[string]interface{}, progress func(done, total int)) (*diffusion.PixelBuffer, error) {
	if input == nil || input.Rect.Empty() {
		return nil, fmt.Errorf("empty input for %s", p.name)
	}

	dp, err := BuildParams(m)
	if err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	scratch, err := diffusion.NewScratch(input.Width(), input.Height(), p.allocator)
	if err != nil {
		return nil, err
	}
	defer scratch.Release()

	output := diffusion.NewPixelBuffer(input.Rect)
	integrator := &diffusion.Integrator{Workers: p.workers, OnIteration: progress}

	if err := integrator.RunContext(ctx, input, output, dp, scratch); err != nil {
		return nil, fmt.Errorf("anisotropic smoothing failed: %w", err)
	}

	return output, nil
}
