package config

import (
	"fmt"
	"sort"

	"aniso-smooth/internal/algorithms/anisotropic"
	"aniso-smooth/internal/algorithms/conductance"
)

const (
	AlgorithmAnisotropic = anisotropic.Name
	AlgorithmConductance = conductance.Name
)

func IsAlgorithm(name string) bool {
	return name == AlgorithmAnisotropic || name == AlgorithmConductance
}

// Preset is a named algorithm plus parameter overrides. Values keep the
// types TOML decodes them to (int64, float64, string); the algorithm
// processors accept those.
type Preset struct {
	Algorithm   string                 `toml:"algorithm"`
	Description string                 `toml:"description"`
	Parameters  map[string]interface{} `toml:"parameters"`
}

func (p Preset) Validate() error {
	var err error
	switch p.Algorithm {
	case AlgorithmAnisotropic:
		_, err = anisotropic.BuildParams(p.Parameters)
	case AlgorithmConductance:
		_, err = conductance.BuildParams(p.Parameters)
	default:
		return fmt.Errorf("unknown algorithm: %q", p.Algorithm)
	}
	return err
}

// Params returns a copy of the parameter overrides.
func (p Preset) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(p.Parameters))
	for k, v := range p.Parameters {
		out[k] = v
	}
	return out
}

func builtinPresets() map[string]Preset {
	return map[string]Preset{
		"default": {
			Algorithm:   AlgorithmAnisotropic,
			Description: "Structure tensor smoothing with stock settings",
			Parameters:  map[string]interface{}{},
		},
		"gentle": {
			Algorithm:   AlgorithmAnisotropic,
			Description: "Few weak iterations, keeps fine texture",
			Parameters: map[string]interface{}{
				"iterations": 4,
				"strength":   4.0,
				"dt":         0.05,
			},
		},
		"strong": {
			Algorithm:   AlgorithmAnisotropic,
			Description: "Long run with high edge threshold for heavy noise",
			Parameters: map[string]interface{}{
				"iterations":     20,
				"strength":       15.0,
				"edge_threshold": 1.5,
				"anisotropy":     0.6,
				"tensor_sigma":   1.5,
			},
		},
		"intense": {
			Algorithm:   AlgorithmConductance,
			Description: "Four-neighbour conductance smoothing",
			Parameters:  map[string]interface{}{},
		},
	}
}

// PresetNames returns the configured preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Preset(name string) (Preset, error) {
	p, ok := c.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset: %q", name)
	}
	return p, nil
}
