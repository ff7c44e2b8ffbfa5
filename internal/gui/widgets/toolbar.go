package widgets

import (
	"fmt"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type Toolbar struct {
	container       *fyne.Container
	loadButton      *widget.Button
	saveButton      *widget.Button
	processButton   *widget.Button
	cancelButton    *widget.Button
	algorithmSelect *widget.Select
	presetSelect    *widget.Select
	statusLabel     *widget.Label
	progressBar     *widget.ProgressBar
	metricsLabel    *widget.Label

	loadHandler      func()
	saveHandler      func()
	processHandler   func()
	cancelHandler    func()
	algorithmHandler func(string)
	presetHandler    func(string)
	suppressSelect   bool
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents()
	toolbar.buildLayout()
	return toolbar
}

func (t *Toolbar) createComponents() {
	t.loadButton = widget.NewButton("Load", t.onLoadClicked)
	t.loadButton.Importance = widget.HighImportance

	t.saveButton = widget.NewButton("Save", t.onSaveClicked)
	t.saveButton.Importance = widget.HighImportance

	t.processButton = widget.NewButton("Process", t.onProcessClicked)
	t.processButton.Importance = widget.HighImportance

	t.cancelButton = widget.NewButton("Cancel", t.onCancelClicked)
	t.cancelButton.Disable()

	t.algorithmSelect = widget.NewSelect(nil, t.onAlgorithmChanged)
	t.algorithmSelect.PlaceHolder = "Algorithm"

	t.presetSelect = widget.NewSelect(nil, t.onPresetChanged)
	t.presetSelect.PlaceHolder = "Preset"

	t.statusLabel = widget.NewLabel("Ready")
	t.progressBar = widget.NewProgressBar()
	t.metricsLabel = widget.NewLabel("PSNR: -- | SSIM: --")
}

func (t *Toolbar) buildLayout() {
	background := canvas.NewRectangle(color.RGBA{R: 250, G: 249, B: 245, A: 255})
	border := canvas.NewRectangle(color.Transparent)
	border.StrokeWidth = 1.0
	border.StrokeColor = color.RGBA{R: 231, G: 231, B: 231, A: 255}

	leftSection := container.NewHBox(t.loadButton, t.saveButton)
	centerSection := container.NewHBox(t.algorithmSelect, t.presetSelect, t.processButton, t.cancelButton)
	statusSection := container.NewVBox(t.statusLabel, t.progressBar)
	rightSection := container.NewHBox(t.metricsLabel)

	content := container.NewBorder(
		nil, nil,
		leftSection,
		rightSection,
		container.NewHBox(centerSection, widget.NewSeparator(), statusSection),
	)

	t.container = container.NewStack(
		border,
		container.NewPadded(
			container.NewStack(background, container.NewPadded(content)),
		),
	)
}

func (t *Toolbar) onLoadClicked() {
	if t.loadHandler != nil {
		t.loadHandler()
	}
}

func (t *Toolbar) onSaveClicked() {
	if t.saveHandler != nil {
		t.saveHandler()
	}
}

func (t *Toolbar) onProcessClicked() {
	if t.processHandler != nil {
		t.processHandler()
	}
}

func (t *Toolbar) onCancelClicked() {
	if t.cancelHandler != nil {
		t.cancelHandler()
	}
}

func (t *Toolbar) onAlgorithmChanged(algorithm string) {
	if t.algorithmHandler != nil && !t.suppressSelect {
		t.algorithmHandler(algorithm)
	}
}

func (t *Toolbar) onPresetChanged(preset string) {
	if t.presetHandler != nil && !t.suppressSelect {
		t.presetHandler(preset)
	}
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetLoadHandler(handler func()) {
	t.loadHandler = handler
}

func (t *Toolbar) SetSaveHandler(handler func()) {
	t.saveHandler = handler
}

func (t *Toolbar) SetProcessHandler(handler func()) {
	t.processHandler = handler
}

func (t *Toolbar) SetCancelHandler(handler func()) {
	t.cancelHandler = handler
}

func (t *Toolbar) SetAlgorithmChangeHandler(handler func(string)) {
	t.algorithmHandler = handler
}

func (t *Toolbar) SetPresetChangeHandler(handler func(string)) {
	t.presetHandler = handler
}

func (t *Toolbar) SetAlgorithms(names []string, selected string) {
	t.suppressSelect = true
	defer func() { t.suppressSelect = false }()

	t.algorithmSelect.Options = names
	t.algorithmSelect.SetSelected(selected)
}

// SelectAlgorithm updates the selection without calling the handler.
func (t *Toolbar) SelectAlgorithm(name string) {
	t.suppressSelect = true
	defer func() { t.suppressSelect = false }()
	t.algorithmSelect.SetSelected(name)
}

func (t *Toolbar) SetPresets(names []string) {
	t.presetSelect.Options = names
	t.presetSelect.Refresh()
}

func (t *Toolbar) SetProcessing(active bool) {
	if active {
		t.processButton.Disable()
		t.loadButton.Disable()
		t.cancelButton.Enable()
		return
	}
	t.processButton.Enable()
	t.loadButton.Enable()
	t.cancelButton.Disable()
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}

func (t *Toolbar) SetProgress(done, total int) {
	if total <= 0 {
		t.progressBar.SetValue(0)
		return
	}
	t.progressBar.SetValue(float64(done) / float64(total))
}

func (t *Toolbar) SetMetrics(psnr, ssim float64) {
	switch {
	case math.IsInf(psnr, 1):
		t.metricsLabel.SetText(fmt.Sprintf("PSNR: inf | SSIM: %.4f", ssim))
	case psnr > 0:
		t.metricsLabel.SetText(fmt.Sprintf("PSNR: %.2f dB | SSIM: %.4f", psnr, ssim))
	default:
		t.metricsLabel.SetText("PSNR: -- | SSIM: --")
	}
}
