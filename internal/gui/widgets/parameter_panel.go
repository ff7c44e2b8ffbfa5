package widgets

import (
	"strconv"

	"aniso-smooth/internal/algorithms/anisotropic"
	"aniso-smooth/internal/algorithms/conductance"
	"aniso-smooth/internal/algorithms/params"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// sliderSpec describes one numeric parameter. precision 0 means the value is
// an integer.
type sliderSpec struct {
	key       string
	label     string
	min, max  float64
	step      float64
	precision int
}

var algorithmSliders = map[string][]sliderSpec{
	anisotropic.Name: {
		{key: "iterations", label: "Iterations", min: 1, max: 20, step: 1},
		{key: "strength", label: "Strength", min: 0, max: 20, step: 0.5, precision: 1},
		{key: "edge_threshold", label: "Edge Threshold", min: 0, max: 2, step: 0.05, precision: 2},
		{key: "anisotropy", label: "Anisotropy", min: 0, max: 1, step: 0.05, precision: 2},
		{key: "tensor_sigma", label: "Tensor Sigma", min: 0.5, max: 2, step: 0.1, precision: 1},
		{key: "dt", label: "Time Step", min: 0.01, max: 0.25, step: 0.01, precision: 2},
	},
	conductance.Name: {
		{key: "iterations", label: "Iterations", min: 1, max: 20, step: 1},
		{key: "alpha", label: "Alpha", min: 0.1, max: 1, step: 0.05, precision: 2},
		{key: "kappa", label: "Kappa", min: 1, max: 15, step: 0.5, precision: 1},
		{key: "strength", label: "Strength", min: 0.5, max: 5, step: 0.1, precision: 1},
		{key: "delta_t", label: "Time Step", min: 0.05, max: 0.5, step: 0.05, precision: 2},
	},
}

var boundaryOptions = []string{"clamp", "loop", "zero"}

type parameterControl struct {
	spec   sliderSpec
	slider *widget.Slider
	label  *widget.Label
}

func (pc *parameterControl) value() interface{} {
	if pc.spec.precision == 0 {
		return int(pc.slider.Value + 0.5)
	}
	return pc.slider.Value
}

func (pc *parameterControl) setLabel(v float64) {
	pc.label.SetText(pc.spec.label + ": " + strconv.FormatFloat(v, 'f', pc.spec.precision, 64))
}

type ParameterPanel struct {
	container              *fyne.Container
	parametersContent      *fyne.Container
	parameterChangeHandler func(string, interface{})

	controls       []*parameterControl
	boundarySelect *widget.Select

	currentAlgorithm string
	updating         bool
}

func NewParameterPanel() *ParameterPanel {
	panel := &ParameterPanel{}
	panel.setupPanel()
	return panel
}

func (pp *ParameterPanel) setupPanel() {
	pp.parametersContent = container.NewVBox(
		widget.NewLabel("Parameters:"),
	)
	pp.container = container.NewVBox(pp.parametersContent)
}

func (pp *ParameterPanel) GetContainer() *fyne.Container {
	return pp.container
}

func (pp *ParameterPanel) SetParameterChangeHandler(handler func(string, interface{})) {
	pp.parameterChangeHandler = handler
}

func (pp *ParameterPanel) notify(key string, value interface{}) {
	if pp.updating || pp.parameterChangeHandler == nil {
		return
	}
	pp.parameterChangeHandler(key, value)
}

// UpdateParameters shows the controls of algorithm, rebuilding them only
// when the algorithm changed. Programmatic updates do not fire the handler.
func (pp *ParameterPanel) UpdateParameters(algorithm string, values map[string]interface{}) {
	pp.updating = true
	defer func() { pp.updating = false }()

	if pp.currentAlgorithm != algorithm {
		pp.currentAlgorithm = algorithm
		pp.build(algorithm)
	}

	pp.updateValues(values)
	pp.container.Refresh()
}

func (pp *ParameterPanel) build(algorithm string) {
	pp.parametersContent.RemoveAll()
	pp.parametersContent.Add(widget.NewLabel("Parameters:"))

	pp.controls = pp.controls[:0]
	pp.boundarySelect = nil

	grid := container.NewGridWithColumns(3)
	for _, spec := range algorithmSliders[algorithm] {
		control := &parameterControl{
			spec:   spec,
			slider: widget.NewSlider(spec.min, spec.max),
			label:  widget.NewLabel(spec.label),
		}
		control.slider.Step = spec.step
		control.slider.OnChanged = func(v float64) {
			control.setLabel(v)
			pp.notify(control.spec.key, control.value())
		}

		pp.controls = append(pp.controls, control)
		grid.Add(container.NewVBox(control.label, control.slider))
	}

	if algorithm == anisotropic.Name {
		pp.boundarySelect = widget.NewSelect(boundaryOptions, func(v string) {
			pp.notify("boundary", v)
		})
		grid.Add(container.NewVBox(widget.NewLabel("Boundary"), pp.boundarySelect))
	}

	pp.parametersContent.Add(grid)
}

func (pp *ParameterPanel) updateValues(values map[string]interface{}) {
	for _, control := range pp.controls {
		v, err := params.Float(values, control.spec.key, control.spec.min)
		if err != nil {
			continue
		}
		if v != control.slider.Value {
			control.slider.SetValue(v)
		}
		control.setLabel(v)
	}

	if pp.boundarySelect != nil {
		boundary, err := params.String(values, "boundary", boundaryOptions[0])
		if err == nil && boundary != pp.boundarySelect.Selected {
			pp.boundarySelect.SetSelected(boundary)
		}
	}
}
