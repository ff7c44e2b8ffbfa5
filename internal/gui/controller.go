package gui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"aniso-smooth/internal/algorithms"
	"aniso-smooth/internal/config"
	"aniso-smooth/internal/logger"
	"aniso-smooth/internal/pipeline"

	"fyne.io/fyne/v2"
)

// PresetSource supplies named parameter sets.
type PresetSource interface {
	PresetNames() []string
	Preset(name string) (config.Preset, error)
}

type Controller struct {
	view             *View
	coordinator      pipeline.ProcessingCoordinator
	algorithmManager *algorithms.Manager
	presets          PresetSource
	logger           logger.Logger

	mu               sync.RWMutex
	processingActive bool
	processCancel    context.CancelFunc
}

func NewController(coord pipeline.ProcessingCoordinator, algMgr *algorithms.Manager, presets PresetSource, log logger.Logger) *Controller {
	return &Controller{
		coordinator:      coord,
		algorithmManager: algMgr,
		presets:          presets,
		logger:           log,
	}
}

func (c *Controller) SetView(view *View) {
	c.view = view

	current := c.algorithmManager.GetCurrentAlgorithm()
	params := c.algorithmManager.GetParameters(current)

	fyne.Do(func() {
		c.view.SetAlgorithms(c.algorithmManager.GetAvailableAlgorithms(), current)
		if c.presets != nil {
			c.view.SetPresets(c.presets.PresetNames())
		}
		c.view.UpdateParameterPanel(current, params)
	})
}

func (c *Controller) LoadImage() {
	c.view.ShowFileDialog(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			c.handleError("File selection error", err)
			return
		}
		if reader == nil {
			return
		}

		c.updateStatus("Loading image...")

		go func() {
			defer reader.Close()

			start := time.Now()
			imageData, loadErr := c.coordinator.LoadImage(reader, reader.URI().Name())

			fyne.Do(func() {
				if loadErr != nil {
					c.handleError("Image load error", loadErr)
					c.view.SetStatus("Ready")
					return
				}

				c.view.SetSmoothedImage(nil, "")
				c.view.SetOriginalImage(imageData.Image)
				c.view.SetMetrics(0, 0)
				c.view.SetProgress(0, 0)
				c.view.SetStatus(fmt.Sprintf("Loaded %s (%dx%d)", imageData.Name, imageData.Width, imageData.Height))

				c.logger.Info("Controller", "image loaded", map[string]interface{}{
					"width":     imageData.Width,
					"height":    imageData.Height,
					"format":    imageData.Format,
					"load_time": time.Since(start),
				})
			})
		}()
	})
}

func (c *Controller) SaveImage() {
	processedImg := c.coordinator.GetProcessedImage()
	if processedImg == nil {
		c.handleError("Save error", fmt.Errorf("no processed image to save"))
		return
	}

	c.view.ShowSaveDialog(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			c.handleError("File save error", err)
			return
		}
		if writer == nil {
			return
		}

		if writer.URI().Extension() == "" {
			c.showFormatSelectionDialog(writer, processedImg)
			return
		}

		format, formatErr := pipeline.FormatFromName(writer.URI().Name())
		if formatErr != nil {
			writer.Close()
			c.handleError("Save error", formatErr)
			return
		}

		c.saveImageWithWriter(writer, processedImg, format)
	})
}

func (c *Controller) ChangeAlgorithm(algorithm string) {
	if err := c.algorithmManager.SetCurrentAlgorithm(algorithm); err != nil {
		c.handleError("Algorithm change error", err)
		return
	}

	params := c.algorithmManager.GetParameters(algorithm)
	fyne.Do(func() {
		c.view.UpdateParameterPanel(algorithm, params)
	})
}

// ApplyPreset switches to the preset's algorithm and loads its parameters.
func (c *Controller) ApplyPreset(name string) {
	if c.presets == nil {
		return
	}

	preset, err := c.presets.Preset(name)
	if err != nil {
		c.handleError("Preset error", err)
		return
	}

	if err := c.algorithmManager.ResetParameters(preset.Algorithm); err != nil {
		c.handleError("Preset error", err)
		return
	}
	if err := c.algorithmManager.SetParameters(preset.Algorithm, preset.Params()); err != nil {
		c.handleError("Preset error", err)
		return
	}
	if err := c.algorithmManager.SetCurrentAlgorithm(preset.Algorithm); err != nil {
		c.handleError("Preset error", err)
		return
	}

	params := c.algorithmManager.GetParameters(preset.Algorithm)
	fyne.Do(func() {
		c.view.SelectAlgorithm(preset.Algorithm)
		c.view.UpdateParameterPanel(preset.Algorithm, params)
		c.view.SetStatus("Preset: " + name)
	})

	c.logger.Debug("Controller", "preset applied", map[string]interface{}{
		"preset":    name,
		"algorithm": preset.Algorithm,
	})
}

func (c *Controller) UpdateParameter(name string, value interface{}) {
	algorithm := c.algorithmManager.GetCurrentAlgorithm()

	if err := c.algorithmManager.SetParameter(algorithm, name, value); err != nil {
		c.handleError("Parameter update error", err)
	}
}

func (c *Controller) ProcessImage() {
	if !c.beginProcessing() {
		return
	}

	originalImg := c.coordinator.GetOriginalImage()
	if originalImg == nil {
		c.endProcessing()
		c.handleError("Processing error", fmt.Errorf("no image loaded"))
		return
	}

	ctx, cancel := context.WithCancel(c.coordinator.Context())
	c.mu.Lock()
	c.processCancel = cancel
	c.mu.Unlock()

	algorithm := c.algorithmManager.GetCurrentAlgorithm()
	params := c.algorithmManager.GetParameters(algorithm)

	fyne.Do(func() {
		c.view.SetProcessing(true)
		c.view.SetProgress(0, 0)
		c.view.SetStatus("Starting " + algorithm + "...")
	})

	go func() {
		defer func() {
			cancel()
			c.endProcessing()
			fyne.Do(func() {
				c.view.SetProcessing(false)
			})
		}()

		progress := func(done, total int) {
			fyne.Do(func() {
				c.view.SetProgress(done, total)
				c.view.SetStatus(fmt.Sprintf("Iteration %d/%d", done, total))
			})
		}

		start := time.Now()
		processedImg, err := c.coordinator.ProcessImageWithProgress(ctx, algorithm, params, progress)
		processingTime := time.Since(start)

		if errors.Is(err, context.Canceled) {
			fyne.Do(func() {
				c.view.SetProgress(0, 0)
				c.view.SetStatus("Processing cancelled")
			})
			return
		}

		if err != nil {
			c.handleError("Processing error", err)
			fyne.Do(func() {
				c.view.SetStatus("Processing failed")
			})
			return
		}

		psnr := c.coordinator.CalculatePSNR(originalImg, processedImg)
		ssim := c.coordinator.CalculateSSIM(originalImg, processedImg)

		fyne.Do(func() {
			c.view.SetSmoothedImage(processedImg.Image, algorithm)
			c.view.SetMetrics(psnr, ssim)
			c.view.SetStatus(fmt.Sprintf("Completed in %s", processingTime.Round(time.Millisecond)))
		})

		c.logger.Info("Controller", "processing completed", map[string]interface{}{
			"algorithm":       algorithm,
			"width":           processedImg.Width,
			"height":          processedImg.Height,
			"processing_time": processingTime,
		})
	}()
}

func (c *Controller) CancelProcessing() {
	c.mu.Lock()
	if c.processCancel != nil {
		c.processCancel()
	}
	c.mu.Unlock()
}

func (c *Controller) updateStatus(status string) {
	fyne.Do(func() {
		c.view.SetStatus(status)
	})
}

func (c *Controller) handleError(title string, err error) {
	c.logger.Error("Controller", err, map[string]interface{}{
		"title": title,
	})

	fyne.Do(func() {
		c.view.ShowError(title, err)
	})
}

func (c *Controller) beginProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.processingActive {
		return false
	}
	c.processingActive = true
	return true
}

func (c *Controller) endProcessing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processingActive = false
	c.processCancel = nil
}

func (c *Controller) Shutdown() {
	c.CancelProcessing()
	c.logger.Info("Controller", "shutdown completed", nil)
}

func (c *Controller) showFormatSelectionDialog(writer fyne.URIWriteCloser, processedImg *pipeline.ImageData) {
	originalPath := writer.URI().Path()
	writer.Close()

	if err := os.Remove(originalPath); err != nil {
		c.logger.Debug("Controller", "failed to remove empty file", map[string]interface{}{
			"path":  originalPath,
			"error": err.Error(),
		})
	}

	fyne.Do(func() {
		c.view.ShowFormatSelectionDialog(func(format string, confirmed bool) {
			if !confirmed {
				return
			}

			c.saveImageWithFormat(originalPath, processedImg, format)
		})
	})
}

func (c *Controller) saveImageWithFormat(imagePath string, processedImg *pipeline.ImageData, format string) {
	c.updateStatus("Saving image...")

	go func() {
		finalPath := imagePath + "." + format
		saveErr := c.coordinator.SaveImageToPath(finalPath, processedImg)

		fyne.Do(func() {
			if saveErr != nil {
				c.handleError("Image save error", saveErr)
				return
			}
			c.view.SetStatus("Image saved")
			c.logger.Info("Controller", "image saved with format", map[string]interface{}{
				"path":   finalPath,
				"format": format,
			})
		})
	}()
}

func (c *Controller) saveImageWithWriter(writer fyne.URIWriteCloser, processedImg *pipeline.ImageData, format string) {
	c.updateStatus("Saving image...")

	go func() {
		defer writer.Close()

		start := time.Now()
		saveErr := c.coordinator.SaveImage(writer, processedImg, format)

		fyne.Do(func() {
			if saveErr != nil {
				c.handleError("Image save error", saveErr)
				return
			}
			c.view.SetStatus("Image saved")
			c.logger.Info("Controller", "image saved", map[string]interface{}{
				"path":      writer.URI().Path(),
				"save_time": time.Since(start),
			})
		})
	}()
}
