// Package pipeline loads images into BGRA Mats, runs smoothing algorithms over
// them and encodes the results.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"aniso-smooth/internal/algorithms"
	"aniso-smooth/internal/diffusion"
	"aniso-smooth/internal/logger"
	"aniso-smooth/internal/opencv/memory"
	"aniso-smooth/internal/opencv/safe"

	"gocv.io/x/gocv"
)

type ImageProcessor interface {
	ProcessImage(inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error)
	ProcessImageWithContext(ctx context.Context, inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error)
	ProcessImageWithProgress(ctx context.Context, inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}, progress func(done, total int)) (*ImageData, error)
}

type ImageLoader interface {
	LoadFromReader(reader io.Reader, name string) (*ImageData, error)
	LoadFromBytes(data []byte, name string) (*ImageData, error)
}

type ImageSaver interface {
	SaveToWriter(writer io.Writer, imageData *ImageData, format string) error
	SaveToPath(path string, imageData *ImageData) error
}

type ProcessingCoordinator interface {
	LoadImage(reader io.Reader, name string) (*ImageData, error)
	ProcessImage(algorithmName string, params map[string]interface{}) (*ImageData, error)
	ProcessImageWithContext(ctx context.Context, algorithmName string, params map[string]interface{}) (*ImageData, error)
	ProcessImageWithProgress(ctx context.Context, algorithmName string, params map[string]interface{}, progress func(done, total int)) (*ImageData, error)
	SaveImage(writer io.Writer, imageData *ImageData, format string) error
	SaveImageToPath(path string, imageData *ImageData) error
	GetOriginalImage() *ImageData
	GetProcessedImage() *ImageData
	CalculatePSNR(original, processed *ImageData) float64
	CalculateSSIM(original, processed *ImageData) float64
	Context() context.Context
	Cancel()
}

// MemoryManager is the budget shared by decoded Mats and diffusion scratch.
type MemoryManager interface {
	safe.MemoryTracker
	diffusion.Allocator
	GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error)
	ReleaseMat(mat *safe.Mat, tag string)
	GetUsedMemory() int64
	GetStats() memory.Stats
	Cleanup()
}

// ImageData pairs an 8-bit BGRA Mat with its display image. Channels is the
// channel count of the decoded source, before BGRA normalisation.
type ImageData struct {
	Image    image.Image
	Mat      *safe.Mat
	Width    int
	Height   int
	Channels int
	Format   string
	Name     string
}

type Coordinator struct {
	mu               sync.RWMutex
	originalImage    *ImageData
	processedImage   *ImageData
	memoryManager    MemoryManager
	logger           logger.Logger
	algorithmManager *algorithms.Manager
	loader           ImageLoader
	processor        ImageProcessor
	saver            ImageSaver
	ctx              context.Context
	cancel           context.CancelFunc
}

// NewCoordinator wires a pipeline whose algorithms draw scratch from memMgr
// and run on the given number of workers (GOMAXPROCS when <= 0).
func NewCoordinator(memMgr MemoryManager, log logger.Logger, workers int) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())

	coord := &Coordinator{
		memoryManager:    memMgr,
		logger:           log,
		algorithmManager: algorithms.NewManager(memMgr, workers),
		ctx:              ctx,
		cancel:           cancel,
	}

	coord.loader = &imageLoader{
		memoryManager: memMgr,
		logger:        log,
	}

	coord.processor = &imageProcessor{
		memoryManager: memMgr,
		logger:        log,
	}

	coord.saver = &imageSaver{
		logger: log,
	}

	log.Info("PipelineCoordinator", "initialized", map[string]interface{}{
		"workers": workers,
	})
	return coord
}

func (c *Coordinator) AlgorithmManager() *algorithms.Manager {
	return c.algorithmManager
}

func (c *Coordinator) LoadImage(reader io.Reader, name string) (*ImageData, error) {
	start := time.Now()

	imageData, err := c.loader.LoadFromReader(reader, name)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "load_image",
			"name":      name,
		})
		return nil, err
	}

	c.mu.Lock()
	c.releaseImage(c.originalImage, "original_image")
	c.releaseImage(c.processedImage, "processed_image")
	c.originalImage = imageData
	c.processedImage = nil
	c.mu.Unlock()

	c.logger.Info("PipelineCoordinator", "image loaded", map[string]interface{}{
		"width":     imageData.Width,
		"height":    imageData.Height,
		"channels":  imageData.Channels,
		"format":    imageData.Format,
		"load_time": time.Since(start),
	})

	return imageData, nil
}

func (c *Coordinator) ProcessImage(algorithmName string, params map[string]interface{}) (*ImageData, error) {
	return c.ProcessImageWithProgress(c.ctx, algorithmName, params, nil)
}

func (c *Coordinator) ProcessImageWithContext(ctx context.Context, algorithmName string, params map[string]interface{}) (*ImageData, error) {
	return c.ProcessImageWithProgress(ctx, algorithmName, params, nil)
}

// ProcessImageWithProgress smooths the loaded image. A nil params map uses
// the parameters stored in the algorithm manager. The original image stays
// readable while processing runs.
func (c *Coordinator) ProcessImageWithProgress(ctx context.Context, algorithmName string, params map[string]interface{}, progress func(done, total int)) (*ImageData, error) {
	c.mu.RLock()
	original := c.originalImage
	if original != nil {
		original.Mat.AddRef()
	}
	c.mu.RUnlock()

	if original == nil {
		return nil, fmt.Errorf("no image loaded")
	}
	defer original.Mat.Release()

	algorithm, err := c.algorithmManager.GetAlgorithm(algorithmName)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"algorithm": algorithmName,
		})
		return nil, fmt.Errorf("failed to get algorithm: %w", err)
	}

	if params == nil {
		params = c.algorithmManager.GetParameters(algorithmName)
	}

	start := time.Now()
	processedData, err := c.processor.ProcessImageWithProgress(ctx, original, algorithm, params, progress)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"algorithm": algorithmName,
		})
		return nil, err
	}

	c.mu.Lock()
	c.releaseImage(c.processedImage, "processed_image")
	c.processedImage = processedData
	c.mu.Unlock()

	c.logger.Info("PipelineCoordinator", "image processed", map[string]interface{}{
		"algorithm":       algorithmName,
		"width":           processedData.Width,
		"height":          processedData.Height,
		"processing_time": time.Since(start),
	})

	return processedData, nil
}

// SaveImage encodes imageData to writer. An empty format reuses the format
// the image was loaded from.
func (c *Coordinator) SaveImage(writer io.Writer, imageData *ImageData, format string) error {
	start := time.Now()
	err := c.saver.SaveToWriter(writer, imageData, strings.ToLower(format))
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "save_image",
			"format":    format,
		})
		return err
	}

	c.logger.Info("PipelineCoordinator", "image saved", map[string]interface{}{
		"format":    format,
		"save_time": time.Since(start),
	})

	return nil
}

func (c *Coordinator) SaveImageToPath(path string, imageData *ImageData) error {
	if err := c.saver.SaveToPath(path, imageData); err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "save_image_to_path",
			"path":      path,
		})
		return err
	}
	return nil
}

func (c *Coordinator) GetOriginalImage() *ImageData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.originalImage
}

func (c *Coordinator) GetProcessedImage() *ImageData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processedImage
}

// CalculatePSNR returns 0 when the images cannot be compared.
func (c *Coordinator) CalculatePSNR(original, processed *ImageData) float64 {
	if original == nil || processed == nil {
		return 0.0
	}

	value, err := PSNR(original.Image, processed.Image)
	if err != nil {
		c.logger.Warning("PipelineCoordinator", "PSNR unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return 0.0
	}
	return value
}

func (c *Coordinator) CalculateSSIM(original, processed *ImageData) float64 {
	if original == nil || processed == nil {
		return 0.0
	}

	value, err := SSIM(original.Image, processed.Image)
	if err != nil {
		c.logger.Warning("PipelineCoordinator", "SSIM unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return 0.0
	}
	return value
}

// FormatPSNR renders an infinite PSNR as "inf".
func FormatPSNR(value float64) string {
	if math.IsInf(value, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f dB", value)
}

func (c *Coordinator) Context() context.Context {
	return c.ctx
}

func (c *Coordinator) Cancel() {
	c.cancel()
}

func (c *Coordinator) releaseImage(data *ImageData, tag string) {
	if data == nil || data.Mat == nil {
		return
	}
	c.logger.Debug("PipelineCoordinator", "releasing image", map[string]interface{}{
		"tag": tag,
	})
	data.Mat.Release()
}

func (c *Coordinator) Shutdown() {
	c.logger.Info("PipelineCoordinator", "shutdown started", nil)

	c.cancel()

	c.mu.Lock()
	c.releaseImage(c.originalImage, "original_image")
	c.releaseImage(c.processedImage, "processed_image")
	c.originalImage = nil
	c.processedImage = nil
	c.mu.Unlock()

	c.logger.Info("PipelineCoordinator", "shutdown completed", nil)
}
