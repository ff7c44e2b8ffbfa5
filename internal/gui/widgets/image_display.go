package widgets

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	ImageAreaWidth  = 500
	ImageAreaHeight = 400
)

// ImageDisplay shows the source and smoothed images side by side. Pixels are
// scaled without interpolation so smoothing is not mistaken for resampling.
type ImageDisplay struct {
	container     fyne.CanvasObject
	originalImage *canvas.Image
	smoothedImage *canvas.Image
	smoothedTitle *widget.Label
	splitView     *container.Split
}

func NewImageDisplay() *ImageDisplay {
	display := &ImageDisplay{}
	display.originalImage = newImageCanvas()
	display.smoothedImage = newImageCanvas()
	display.setupLayout()
	return display
}

func newImageCanvas() *canvas.Image {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels
	img.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))
	return img
}

func (id *ImageDisplay) setupLayout() {
	originalContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Original**"),
		nil, nil, nil,
		id.originalImage,
	)

	id.smoothedTitle = widget.NewLabelWithStyle("Smoothed", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	smoothedContainer := container.NewBorder(
		id.smoothedTitle,
		nil, nil, nil,
		id.smoothedImage,
	)

	id.splitView = container.NewHSplit(originalContainer, smoothedContainer)
	id.splitView.SetOffset(0.5)
	id.container = id.splitView
}

func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.container
}

func (id *ImageDisplay) SetOriginalImage(img image.Image) {
	id.originalImage.Image = img
	id.originalImage.Refresh()
	id.container.Refresh()
}

// SetSmoothedImage shows img under a title naming the algorithm that made it.
func (id *ImageDisplay) SetSmoothedImage(img image.Image, algorithm string) {
	title := "Smoothed"
	if img != nil && algorithm != "" {
		title = "Smoothed (" + algorithm + ")"
	}
	id.smoothedTitle.SetText(title)
	id.smoothedImage.Image = img
	id.smoothedImage.Refresh()
}
