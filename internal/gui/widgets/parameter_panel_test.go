package widgets

import (
	"testing"

	"aniso-smooth/internal/algorithms/anisotropic"
	"aniso-smooth/internal/algorithms/conductance"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	key   string
	value interface{}
}

func newRecordingPanel(t *testing.T) (*ParameterPanel, *[]change) {
	t.Helper()

	a := test.NewApp()
	t.Cleanup(a.Quit)

	var changes []change
	panel := NewParameterPanel()
	panel.SetParameterChangeHandler(func(key string, value interface{}) {
		changes = append(changes, change{key, value})
	})
	return panel, &changes
}

func controlFor(t *testing.T, panel *ParameterPanel, key string) *parameterControl {
	t.Helper()
	for _, c := range panel.controls {
		if c.spec.key == key {
			return c
		}
	}
	require.FailNow(t, "no control", key)
	return nil
}

func TestParameterPanelBuildsPerAlgorithm(t *testing.T) {
	panel, changes := newRecordingPanel(t)

	panel.UpdateParameters(anisotropic.Name, anisotropic.NewProcessor(nil, 1).GetDefaultParameters())
	assert.Len(t, panel.controls, len(algorithmSliders[anisotropic.Name]))
	require.NotNil(t, panel.boundarySelect)
	assert.Equal(t, "clamp", panel.boundarySelect.Selected)
	assert.Equal(t, 10.0, controlFor(t, panel, "strength").slider.Value)
	assert.Empty(t, *changes, "programmatic updates are silent")

	panel.UpdateParameters(conductance.Name, conductance.NewProcessor(nil, 1).GetDefaultParameters())
	assert.Len(t, panel.controls, len(algorithmSliders[conductance.Name]))
	assert.Nil(t, panel.boundarySelect)
	assert.Equal(t, 4.0, controlFor(t, panel, "kappa").slider.Value)
	assert.Empty(t, *changes)
}

func TestParameterPanelReportsChanges(t *testing.T) {
	panel, changes := newRecordingPanel(t)
	panel.UpdateParameters(anisotropic.Name, anisotropic.NewProcessor(nil, 1).GetDefaultParameters())

	// OnChanged is what a drag invokes.
	controlFor(t, panel, "iterations").slider.OnChanged(5)
	controlFor(t, panel, "anisotropy").slider.OnChanged(0.5)
	panel.boundarySelect.SetSelected("loop")

	assert.Equal(t, []change{
		{"iterations", 5},
		{"anisotropy", 0.5},
		{"boundary", "loop"},
	}, *changes)
	assert.Equal(t, "Iterations: 5", controlFor(t, panel, "iterations").label.Text)
}

func TestParameterPanelAcceptsTOMLIntegers(t *testing.T) {
	panel, _ := newRecordingPanel(t)

	panel.UpdateParameters(anisotropic.Name, map[string]interface{}{
		"iterations": int64(7),
		"strength":   int64(3),
	})
	assert.Equal(t, 7.0, controlFor(t, panel, "iterations").slider.Value)
	assert.Equal(t, 3.0, controlFor(t, panel, "strength").slider.Value)
}

func TestToolbarProgressAndMetrics(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	toolbar := NewToolbar()

	toolbar.SetProgress(3, 12)
	assert.InDelta(t, 0.25, toolbar.progressBar.Value, 1e-9)
	toolbar.SetProgress(0, 0)
	assert.Zero(t, toolbar.progressBar.Value)

	toolbar.SetMetrics(31.5, 0.91)
	assert.Equal(t, "PSNR: 31.50 dB | SSIM: 0.9100", toolbar.metricsLabel.Text)
	toolbar.SetMetrics(0, 0)
	assert.Equal(t, "PSNR: -- | SSIM: --", toolbar.metricsLabel.Text)

	toolbar.SetProcessing(true)
	assert.True(t, toolbar.processButton.Disabled())
	assert.False(t, toolbar.cancelButton.Disabled())
	toolbar.SetProcessing(false)
	assert.False(t, toolbar.processButton.Disabled())
}

func TestToolbarSelectionSuppressesHandler(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	toolbar := NewToolbar()
	var selected []string
	toolbar.SetAlgorithmChangeHandler(func(name string) { selected = append(selected, name) })

	toolbar.SetAlgorithms([]string{anisotropic.Name, conductance.Name}, anisotropic.Name)
	toolbar.SelectAlgorithm(conductance.Name)
	assert.Empty(t, selected)

	toolbar.algorithmSelect.SetSelected(anisotropic.Name)
	assert.Equal(t, []string{anisotropic.Name}, selected)
}
