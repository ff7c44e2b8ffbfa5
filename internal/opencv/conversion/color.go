package conversion

import (
	"fmt"

	"aniso-smooth/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// 65535 / 255
const scale16To8 = 1.0 / 257.0

func CvtColorSafe(src *safe.Mat, dst *safe.Mat, code gocv.ColorConversionCode) error {
	if err := safe.ValidateColorConversion(src, code); err != nil {
		return fmt.Errorf("color conversion validation failed: %w", err)
	}

	if err := safe.ValidateMatForOperation(dst, "CvtColor destination"); err != nil {
		return fmt.Errorf("destination mat validation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	gocv.CvtColor(srcMat, &dstMat, code)

	return nil
}

// ConvertToBGRA returns an 8-bit, 4-channel copy of src. Gray and BGR inputs
// get an opaque alpha; 16-bit inputs are scaled down to 8 bits first.
func ConvertToBGRA(src *safe.Mat, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToBGRA"); err != nil {
		return nil, err
	}

	eight, err := to8Bit(src, tracker, tag+"_8bit")
	if err != nil {
		return nil, err
	}
	if eight != src {
		defer eight.Close()
	}

	channels := eight.Channels()
	if channels == 4 {
		return safe.NewMatFromMatWithTracker(eight.GetMat(), tracker, tag)
	}

	var code gocv.ColorConversionCode
	switch channels {
	case 1:
		code = gocv.ColorGrayToBGRA
	case 3:
		code = gocv.ColorBGRToBGRA
	default:
		return nil, fmt.Errorf("unsupported channel count for BGRA conversion: %d", channels)
	}

	dst, err := safe.NewMatWithTracker(eight.Rows(), eight.Cols(), gocv.MatTypeCV8UC4, tracker, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	if err := CvtColorSafe(eight, dst, code); err != nil {
		dst.Close()
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}

	return dst, nil
}

// to8Bit returns src itself when it is already 8-bit.
func to8Bit(src *safe.Mat, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	var target gocv.MatType
	switch src.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return src, nil
	case gocv.MatTypeCV16UC1:
		target = gocv.MatTypeCV8UC1
	case gocv.MatTypeCV16UC3:
		target = gocv.MatTypeCV8UC3
	case gocv.MatTypeCV16UC4:
		target = gocv.MatTypeCV8UC4
	default:
		return nil, fmt.Errorf("unsupported Mat type for 8-bit conversion: %v", src.Type())
	}

	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), target, tracker, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create 8-bit Mat: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	srcMat.ConvertToWithParams(&dstMat, target, scale16To8, 0)

	return dst, nil
}

// ConvertToBGR drops alpha or expands gray. Used when encoding formats that
// carry no alpha channel.
func ConvertToBGR(src *safe.Mat, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToBGR"); err != nil {
		return nil, err
	}

	channels := src.Channels()
	if channels == 3 {
		return src.Clone()
	}

	var code gocv.ColorConversionCode
	switch channels {
	case 1:
		code = gocv.ColorGrayToBGR
	case 4:
		code = gocv.ColorBGRAToBGR
	default:
		return nil, fmt.Errorf("unsupported channel count for BGR conversion: %d", channels)
	}

	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3, tracker, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	if err := CvtColorSafe(src, dst, code); err != nil {
		dst.Close()
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}

	return dst, nil
}
