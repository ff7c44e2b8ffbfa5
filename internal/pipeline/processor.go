package pipeline

import (
	"context"
	"fmt"

	"aniso-smooth/internal/algorithms"
	"aniso-smooth/internal/logger"
	"aniso-smooth/internal/opencv/bridge"
	"aniso-smooth/internal/opencv/safe"
)

type imageProcessor struct {
	memoryManager MemoryManager
	logger        logger.Logger
}

func (p *imageProcessor) ProcessImage(inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error) {
	return p.ProcessImageWithContext(context.Background(), inputData, algorithm, params)
}

func (p *imageProcessor) ProcessImageWithContext(ctx context.Context, inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error) {
	return p.ProcessImageWithProgress(ctx, inputData, algorithm, params, nil)
}

// ProcessImageWithProgress runs algorithm over the BGRA Mat of inputData.
// progress receives the completed and total iteration counts.
func (p *imageProcessor) ProcessImageWithProgress(ctx context.Context, inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}, progress func(done, total int)) (*ImageData, error) {
	if inputData == nil {
		return nil, fmt.Errorf("no input image")
	}
	if err := safe.ValidateMatForOperation(inputData.Mat, "ProcessImage"); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	input, err := bridge.MatToPixelBuffer(inputData.Mat)
	if err != nil {
		return nil, fmt.Errorf("Mat to pixel buffer conversion failed: %w", err)
	}

	output, err := algorithms.Run(ctx, algorithm, input, params, progress)
	if err != nil {
		return nil, fmt.Errorf("algorithm processing failed: %w", err)
	}

	if output == nil {
		return nil, fmt.Errorf("algorithm returned nil result")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	resultMat, err := bridge.PixelBufferToMat(output, p.memoryManager, "processing_result")
	if err != nil {
		return nil, fmt.Errorf("pixel buffer to Mat conversion failed: %w", err)
	}

	processedData := &ImageData{
		Image:    bridge.PixelBufferToNRGBA(output),
		Mat:      resultMat,
		Width:    output.Width(),
		Height:   output.Height(),
		Channels: inputData.Channels,
		Format:   inputData.Format,
		Name:     inputData.Name,
	}

	p.logger.Info("ImageProcessor", "processing completed", map[string]interface{}{
		"algorithm":   algorithm.GetName(),
		"input_size":  fmt.Sprintf("%dx%d", inputData.Width, inputData.Height),
		"output_size": fmt.Sprintf("%dx%d", processedData.Width, processedData.Height),
	})

	return processedData, nil
}
