package gui

import (
	"fmt"
	"image"
	"strings"

	"aniso-smooth/internal/gui/widgets"
	"aniso-smooth/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

type View struct {
	window     fyne.Window
	controller *Controller

	toolbar        *widgets.Toolbar
	imageDisplay   *widgets.ImageDisplay
	parameterPanel *widgets.ParameterPanel
	mainContainer  *fyne.Container
}

func NewView(window fyne.Window) *View {
	view := &View{
		window: window,
	}

	view.toolbar = widgets.NewToolbar()
	view.imageDisplay = widgets.NewImageDisplay()
	view.parameterPanel = widgets.NewParameterPanel()

	view.mainContainer = container.NewBorder(
		nil,
		container.NewVBox(view.toolbar.GetContainer(), view.parameterPanel.GetContainer()),
		nil, nil,
		view.imageDisplay.GetContainer(),
	)

	return view
}

func (v *View) SetController(controller *Controller) {
	v.controller = controller
	v.setupEventHandlers()
}

func (v *View) setupEventHandlers() {
	if v.controller == nil {
		return
	}

	v.toolbar.SetLoadHandler(v.controller.LoadImage)
	v.toolbar.SetSaveHandler(v.controller.SaveImage)
	v.toolbar.SetProcessHandler(v.controller.ProcessImage)
	v.toolbar.SetCancelHandler(v.controller.CancelProcessing)
	v.toolbar.SetAlgorithmChangeHandler(v.controller.ChangeAlgorithm)
	v.toolbar.SetPresetChangeHandler(v.controller.ApplyPreset)

	v.parameterPanel.SetParameterChangeHandler(v.controller.UpdateParameter)
}

func (v *View) GetMainContainer() *fyne.Container {
	return v.mainContainer
}

func (v *View) SetOriginalImage(img image.Image) {
	v.imageDisplay.SetOriginalImage(img)
}

func (v *View) SetSmoothedImage(img image.Image, algorithm string) {
	v.imageDisplay.SetSmoothedImage(img, algorithm)
}

func (v *View) SetAlgorithms(names []string, selected string) {
	v.toolbar.SetAlgorithms(names, selected)
}

func (v *View) SelectAlgorithm(name string) {
	v.toolbar.SelectAlgorithm(name)
}

func (v *View) SetPresets(names []string) {
	v.toolbar.SetPresets(names)
}

func (v *View) UpdateParameterPanel(algorithm string, params map[string]interface{}) {
	v.parameterPanel.UpdateParameters(algorithm, params)
}

func (v *View) SetStatus(status string) {
	v.toolbar.SetStatus(status)
}

func (v *View) SetProgress(done, total int) {
	v.toolbar.SetProgress(done, total)
}

func (v *View) SetProcessing(active bool) {
	v.toolbar.SetProcessing(active)
}

func (v *View) SetMetrics(psnr, ssim float64) {
	v.toolbar.SetMetrics(psnr, ssim)
}

func (v *View) ShowError(title string, err error) {
	dialog.ShowError(fmt.Errorf("%s: %w", title, err), v.window)
}

func (v *View) ShowFileDialog(callback func(fyne.URIReadCloser, error)) {
	open := dialog.NewFileOpen(callback, v.window)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif", ".webp"}))
	open.Show()
}

func (v *View) ShowSaveDialog(callback func(fyne.URIWriteCloser, error)) {
	save := dialog.NewFileSave(callback, v.window)
	save.SetFileName("smoothed.png")
	save.Show()
}

func (v *View) ShowFormatSelectionDialog(callback func(string, bool)) {
	content := widget.NewLabel("No file extension detected. Please choose a format:")

	options := make([]string, len(pipeline.SaveFormats))
	for i, format := range pipeline.SaveFormats {
		options[i] = strings.ToUpper(format)
	}

	formatSelect := widget.NewSelect(options, nil)
	formatSelect.SetSelected(options[0])

	form := container.NewVBox(
		content,
		formatSelect,
	)

	dialog.ShowCustomConfirm("Choose File Format", "Save", "Cancel",
		form, func(confirmed bool) {
			if confirmed && formatSelect.Selected != "" {
				callback(strings.ToLower(formatSelect.Selected), true)
			} else {
				callback("", false)
			}
		}, v.window)
}

func (v *View) Show() {
	v.window.SetContent(v.mainContainer)
	v.window.Show()
}
