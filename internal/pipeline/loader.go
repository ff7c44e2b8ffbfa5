package pipeline

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"aniso-smooth/internal/logger"
	"aniso-smooth/internal/opencv/bridge"
	"aniso-smooth/internal/opencv/conversion"
	"aniso-smooth/internal/opencv/safe"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type imageLoader struct {
	memoryManager MemoryManager
	logger        logger.Logger
}

func (l *imageLoader) LoadFromReader(reader io.Reader, name string) (*ImageData, error) {
	data, err := io.ReadAll(bufio.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return l.LoadFromBytes(data, name)
}

// LoadFromBytes decodes data into an 8-bit BGRA Mat. OpenCV is tried first
// with alpha preserved; formats it cannot read fall back to the Go decoders.
func (l *imageLoader) LoadFromBytes(data []byte, name string) (*ImageData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	_, standardLibFormat, configErr := image.DecodeConfig(bytes.NewReader(data))

	decoded, err := l.decodeWithOpenCV(data)
	if err != nil {
		l.logger.Debug("ImageLoader", "OpenCV decode failed, using Go decoders", map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})

		if configErr != nil {
			return nil, fmt.Errorf("unrecognised image data: %w", configErr)
		}

		img, _, decodeErr := image.Decode(bytes.NewReader(data))
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode image: %w", decodeErr)
		}

		decoded, err = bridge.ImageToMat(img, l.memoryManager, "decoded_image")
		if err != nil {
			return nil, fmt.Errorf("failed to convert decoded image: %w", err)
		}
	}
	defer decoded.Close()

	bgra, err := conversion.ConvertToBGRA(decoded, l.memoryManager, "original_image")
	if err != nil {
		return nil, fmt.Errorf("failed to normalise image to BGRA: %w", err)
	}

	display, err := bridge.MatToImage(bgra)
	if err != nil {
		bgra.Close()
		return nil, fmt.Errorf("failed to build display image: %w", err)
	}

	imageData := &ImageData{
		Image:    display,
		Mat:      bgra,
		Width:    bgra.Cols(),
		Height:   bgra.Rows(),
		Channels: decoded.Channels(),
		Format:   determineFormat(filepath.Ext(name), standardLibFormat),
		Name:     name,
	}

	l.logger.Info("ImageLoader", "image loaded", map[string]interface{}{
		"name":     name,
		"width":    imageData.Width,
		"height":   imageData.Height,
		"channels": imageData.Channels,
		"format":   imageData.Format,
	})

	return imageData, nil
}

func (l *imageLoader) decodeWithOpenCV(data []byte) (*safe.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("OpenCV could not decode image")
	}

	return safe.NewMatFromMatWithTracker(mat, l.memoryManager, "decoded_image")
}

func determineFormat(extension, stdLibFormat string) string {
	switch strings.ToLower(extension) {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		if stdLibFormat != "" {
			return stdLibFormat
		}
		return "unknown"
	}
}
