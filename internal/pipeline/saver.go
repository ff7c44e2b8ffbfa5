package pipeline

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"aniso-smooth/internal/logger"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

const jpegQuality = 95

// SaveFormats lists the encodable formats.
var SaveFormats = []string{"png", "jpeg", "tiff", "bmp"}

type imageSaver struct {
	logger logger.Logger
}

// FormatFromName maps a file name extension to an encodable format.
func FormatFromName(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".tif", ".tiff":
		return "tiff", nil
	case ".bmp":
		return "bmp", nil
	case "":
		return "", fmt.Errorf("file name %q has no extension", name)
	default:
		return "", fmt.Errorf("unsupported output format %q", ext)
	}
}

func (s *imageSaver) SaveToWriter(writer io.Writer, imageData *ImageData, format string) error {
	if imageData == nil || imageData.Image == nil {
		return fmt.Errorf("no image data to save")
	}

	saveFormat := strings.ToLower(format)
	if saveFormat == "" {
		saveFormat = imageData.Format
	}

	img := imageData.Image

	var err error
	switch saveFormat {
	case "jpeg", "jpg":
		saveFormat = "jpeg"
		err = jpeg.Encode(writer, img, &jpeg.Options{Quality: jpegQuality})
	case "tiff", "tif":
		saveFormat = "tiff"
		err = tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		err = bmp.Encode(writer, img)
	case "png":
		err = png.Encode(writer, img)
	default:
		s.logger.Warning("ImageSaver", "format not supported, using PNG", map[string]interface{}{
			"requested_format": strings.ToUpper(saveFormat),
		})
		saveFormat = "png"
		err = png.Encode(writer, img)
	}

	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"format": saveFormat,
		})
		return fmt.Errorf("failed to encode %s: %w", saveFormat, err)
	}

	s.logger.Info("ImageSaver", "image saved", map[string]interface{}{
		"format": saveFormat,
		"size":   fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
	})

	return nil
}

// SaveToPath encodes imageData in the format named by the path extension.
func (s *imageSaver) SaveToPath(path string, imageData *ImageData) (err error) {
	format, err := FormatFromName(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()

	return s.SaveToWriter(file, imageData, format)
}
