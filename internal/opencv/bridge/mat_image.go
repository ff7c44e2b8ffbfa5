// Package bridge moves pixels between OpenCV Mats, Go images and the float
// buffers the diffusion engine works on.
package bridge

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"aniso-smooth/internal/diffusion"
	"aniso-smooth/internal/opencv/safe"

	"github.com/chewxy/math32"
	"gocv.io/x/gocv"
)

const inv255 = 1.0 / 255.0

// MatToPixelBuffer converts an 8-bit BGRA Mat into an RGBA float buffer with
// values in [0,1].
func MatToPixelBuffer(mat *safe.Mat) (*diffusion.PixelBuffer, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToPixelBuffer"); err != nil {
		return nil, err
	}
	if mat.Type() != gocv.MatTypeCV8UC4 {
		return nil, fmt.Errorf("expected 8-bit BGRA Mat, got type %v", mat.Type())
	}

	data, err := mat.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read Mat data: %w", err)
	}

	buf := diffusion.NewPixelBuffer(diffusion.Rect{Width: mat.Cols(), Height: mat.Rows()})
	if len(data) != len(buf.Pix) {
		return nil, fmt.Errorf("Mat data holds %d bytes, expected %d", len(data), len(buf.Pix))
	}

	for i := 0; i < len(data); i += 4 {
		buf.Pix[i] = float32(data[i+2]) * inv255
		buf.Pix[i+1] = float32(data[i+1]) * inv255
		buf.Pix[i+2] = float32(data[i]) * inv255
		buf.Pix[i+3] = float32(data[i+3]) * inv255
	}

	return buf, nil
}

// PixelBufferToMat quantises buf into a new 8-bit BGRA Mat.
func PixelBufferToMat(buf *diffusion.PixelBuffer, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if buf == nil || buf.Rect.Empty() {
		return nil, fmt.Errorf("cannot convert empty pixel buffer")
	}

	data := make([]byte, len(buf.Pix))
	for i := 0; i < len(buf.Pix); i += 4 {
		data[i] = quantize(buf.Pix[i+2])
		data[i+1] = quantize(buf.Pix[i+1])
		data[i+2] = quantize(buf.Pix[i])
		data[i+3] = quantize(buf.Pix[i+3])
	}

	return safe.NewMatFromBytes(buf.Height(), buf.Width(), gocv.MatTypeCV8UC4, data, tracker, tag)
}

// PixelBufferToNRGBA quantises buf into a non-premultiplied Go image.
func PixelBufferToNRGBA(buf *diffusion.PixelBuffer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width(), buf.Height()))
	for i, v := range buf.Pix {
		img.Pix[i] = quantize(v)
	}
	return img
}

// ImageToPixelBuffer converts any Go image. Colours are taken
// non-premultiplied so fully transparent pixels keep zero colour.
func ImageToPixelBuffer(img image.Image) *diffusion.PixelBuffer {
	bounds := img.Bounds()

	nrgba, ok := img.(*image.NRGBA)
	if !ok || bounds.Min != (image.Point{}) || nrgba.Stride != bounds.Dx()*4 {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}

	buf := diffusion.NewPixelBuffer(diffusion.Rect{Width: bounds.Dx(), Height: bounds.Dy()})
	for i, v := range nrgba.Pix[:len(buf.Pix)] {
		buf.Pix[i] = float32(v) * inv255
	}
	return buf
}

// MatToImage converts an 8-bit Mat with 1, 3 or 4 channels for display.
func MatToImage(mat *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToImage"); err != nil {
		return nil, err
	}

	rows, cols, channels := mat.Rows(), mat.Cols(), mat.Channels()

	data, err := mat.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read Mat data: %w", err)
	}
	if len(data) != rows*cols*channels {
		return nil, fmt.Errorf("unsupported Mat type %v for image conversion", mat.Type())
	}

	switch channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, cols, rows))
		copy(img.Pix, data)
		return img, nil
	case 3:
		img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
		for i, j := 0, 0; i < len(data); i, j = i+3, j+4 {
			img.Pix[j] = data[i+2]
			img.Pix[j+1] = data[i+1]
			img.Pix[j+2] = data[i]
			img.Pix[j+3] = 255
		}
		return img, nil
	case 4:
		img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
		for i := 0; i < len(data); i += 4 {
			img.Pix[i] = data[i+2]
			img.Pix[i+1] = data[i+1]
			img.Pix[i+2] = data[i]
			img.Pix[i+3] = data[i+3]
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
}

// ImageToMat converts a Go image into an 8-bit BGRA Mat.
func ImageToMat(img image.Image, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image has zero dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
	return PixelBufferToMat(ImageToPixelBuffer(img), tracker, tag)
}

func quantize(v float32) uint8 {
	switch {
	case math32.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// NRGBAAt reads a pixel of buf as an 8-bit colour.
func NRGBAAt(buf *diffusion.PixelBuffer, x, y int) color.NRGBA {
	p := buf.At(x, y)
	return color.NRGBA{R: quantize(p[0]), G: quantize(p[1]), B: quantize(p[2]), A: quantize(p[3])}
}
