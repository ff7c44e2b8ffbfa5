package diffusion

import "fmt"

// Params configures the structure tensor engine. The integrator trusts these
// values; call Validate before handing user input to it.
type Params struct {
	Iterations    int
	Strength      float64
	EdgeThreshold float64
	Anisotropy    float64
	TensorSigma   float64
	Dt            float64
	Boundary      BoundaryPolicy
}

func DefaultParams() Params {
	return Params{
		Iterations:    10,
		Strength:      10.0,
		EdgeThreshold: 0.9,
		Anisotropy:    0.3,
		TensorSigma:   1.0,
		Dt:            0.1,
		Boundary:      BoundaryClamp,
	}
}

func (p Params) Validate() error {
	if p.Iterations < 1 || p.Iterations > 20 {
		return fmt.Errorf("iterations must be between 1 and 20, got: %d", p.Iterations)
	}
	if p.Strength < 0 || p.Strength > 20 {
		return fmt.Errorf("strength must be between 0.0 and 20.0, got: %f", p.Strength)
	}
	if p.EdgeThreshold < 0 || p.EdgeThreshold > 2 {
		return fmt.Errorf("edge_threshold must be between 0.0 and 2.0, got: %f", p.EdgeThreshold)
	}
	if p.Anisotropy < 0 || p.Anisotropy > 1 {
		return fmt.Errorf("anisotropy must be between 0.0 and 1.0, got: %f", p.Anisotropy)
	}
	if p.TensorSigma < 0.5 || p.TensorSigma > 2 {
		return fmt.Errorf("tensor_sigma must be between 0.5 and 2.0, got: %f", p.TensorSigma)
	}
	if p.Dt < 0.01 || p.Dt > 0.25 {
		return fmt.Errorf("dt must be between 0.01 and 0.25, got: %f", p.Dt)
	}
	if p.Boundary < BoundaryClamp || p.Boundary > BoundaryZero {
		return fmt.Errorf("unsupported boundary policy: %s", p.Boundary)
	}
	return nil
}

// ConductanceParams configures the four-neighbour conductance smoother.
type ConductanceParams struct {
	Iterations int
	Alpha      float64
	Kappa      float64
	Strength   float64
	DeltaT     float64
}

func DefaultConductanceParams() ConductanceParams {
	return ConductanceParams{
		Iterations: 10,
		Alpha:      0.6,
		Kappa:      4.0,
		Strength:   2.5,
		DeltaT:     0.3,
	}
}

func (p ConductanceParams) Validate() error {
	if p.Iterations < 1 || p.Iterations > 20 {
		return fmt.Errorf("iterations must be between 1 and 20, got: %d", p.Iterations)
	}
	if p.Alpha < 0.1 || p.Alpha > 1 {
		return fmt.Errorf("alpha must be between 0.1 and 1.0, got: %f", p.Alpha)
	}
	if p.Kappa < 1 || p.Kappa > 15 {
		return fmt.Errorf("kappa must be between 1.0 and 15.0, got: %f", p.Kappa)
	}
	if p.Strength < 0.5 || p.Strength > 5 {
		return fmt.Errorf("strength must be between 0.5 and 5.0, got: %f", p.Strength)
	}
	if p.DeltaT < 0.05 || p.DeltaT > 0.5 {
		return fmt.Errorf("delta_t must be between 0.05 and 0.5, got: %f", p.DeltaT)
	}
	return nil
}
