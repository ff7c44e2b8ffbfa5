package algorithms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"aniso-smooth/internal/algorithms/anisotropic"
	"aniso-smooth/internal/algorithms/conductance"
	"aniso-smooth/internal/algorithms/params"
	"aniso-smooth/internal/diffusion"
)

// Algorithm defines the interface for pixel buffer smoothing algorithms
type Algorithm interface {
	Process(input *diffusion.PixelBuffer, params map[string]interface{}) (*diffusion.PixelBuffer, error)
	ValidateParameters(params map[string]interface{}) error
	GetDefaultParameters() map[string]interface{}
	GetName() string
}

// ContextualAlgorithm extends Algorithm with context support for cancellation
type ContextualAlgorithm interface {
	Algorithm
	ProcessWithContext(ctx context.Context, input *diffusion.PixelBuffer, params map[string]interface{}) (*diffusion.PixelBuffer, error)
}

// ProgressAlgorithm reports completed iterations while it runs.
type ProgressAlgorithm interface {
	ContextualAlgorithm
	ProcessWithProgress(ctx context.Context, input *diffusion.PixelBuffer, params map[string]interface{}, progress func(done, total int)) (*diffusion.PixelBuffer, error)
}

type Manager struct {
	algorithms       map[string]Algorithm
	currentAlgorithm string
	parameters       map[string]map[string]interface{}
	mu               sync.RWMutex
}

// NewManager registers the built-in algorithms. alloc and workers are passed
// to every processor.
func NewManager(alloc diffusion.Allocator, workers int) *Manager {
	manager := &Manager{
		algorithms:       make(map[string]Algorithm),
		currentAlgorithm: anisotropic.Name,
		parameters:       make(map[string]map[string]interface{}),
	}

	manager.Register(anisotropic.NewProcessor(alloc, workers))
	manager.Register(conductance.NewProcessor(alloc, workers))

	return manager
}

// Register adds or replaces an algorithm and resets its parameters to the
// algorithm defaults.
func (m *Manager) Register(algorithm Algorithm) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := algorithm.GetName()
	m.algorithms[name] = algorithm
	m.parameters[name] = algorithm.GetDefaultParameters()
}

func (m *Manager) SetCurrentAlgorithm(algorithm string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.algorithms[algorithm]; !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	m.currentAlgorithm = algorithm
	return nil
}

func (m *Manager) GetCurrentAlgorithm() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentAlgorithm
}

// GetParameters returns a copy of the stored parameters for algorithm.
func (m *Manager) GetParameters(algorithm string) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return params.Merge(m.parameters[algorithm], nil)
}

func (m *Manager) SetParameter(algorithm, name string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stored, exists := m.parameters[algorithm]; exists {
		stored[name] = value
		return nil
	}

	return fmt.Errorf("unknown algorithm: %s", algorithm)
}

// SetParameters validates the stored parameters overlaid with overrides and
// keeps the result only when it is valid.
func (m *Manager) SetParameters(algorithm string, overrides map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alg, exists := m.algorithms[algorithm]
	if !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	merged := params.Merge(m.parameters[algorithm], overrides)
	if err := alg.ValidateParameters(merged); err != nil {
		return fmt.Errorf("invalid parameters for %s: %w", algorithm, err)
	}

	m.parameters[algorithm] = merged
	return nil
}

// ResetParameters restores the algorithm defaults.
func (m *Manager) ResetParameters(algorithm string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alg, exists := m.algorithms[algorithm]
	if !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	m.parameters[algorithm] = alg.GetDefaultParameters()
	return nil
}

func (m *Manager) GetAlgorithm(name string) (Algorithm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if algorithm, exists := m.algorithms[name]; exists {
		return algorithm, nil
	}

	return nil, fmt.Errorf("unknown algorithm: %s", name)
}

// GetAvailableAlgorithms returns the registered names in sorted order.
func (m *Manager) GetAvailableAlgorithms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	algorithms := make([]string, 0, len(m.algorithms))
	for name := range m.algorithms {
		algorithms = append(algorithms, name)
	}
	sort.Strings(algorithms)

	return algorithms
}

// Run executes algorithm through the richest interface it implements.
// progress may be nil.
func Run(ctx context.Context, algorithm Algorithm, input *diffusion.PixelBuffer, p map[string]interface{}, progress func(done, total int)) (*diffusion.PixelBuffer, error) {
	switch alg := algorithm.(type) {
	case ProgressAlgorithm:
		return alg.ProcessWithProgress(ctx, input, p, progress)
	case ContextualAlgorithm:
		return alg.ProcessWithContext(ctx, input, p)
	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return algorithm.Process(input, p)
	}
}
