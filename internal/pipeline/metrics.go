package pipeline

import (
	"fmt"
	"image"
	"math"

	"aniso-smooth/internal/diffusion"
	"aniso-smooth/internal/opencv/bridge"

	"gonum.org/v1/gonum/stat"
)

const maxSample = 255.0

var (
	ssimC1 = (0.01 * maxSample) * (0.01 * maxSample)
	ssimC2 = (0.03 * maxSample) * (0.03 * maxSample)
)

// QualityMetrics compares a processed image against its source.
type QualityMetrics struct {
	PSNR             float64
	SSIM             float64
	OriginalVariance [diffusion.Channels]float64
	ResultVariance   [diffusion.Channels]float64
}

// Compare computes PSNR and SSIM over luminance plus the per-channel
// variance of both images.
func Compare(original, processed image.Image) (QualityMetrics, error) {
	a := bridge.ImageToPixelBuffer(original)
	b := bridge.ImageToPixelBuffer(processed)

	la, lb, err := lumaPair(a, b)
	if err != nil {
		return QualityMetrics{}, err
	}

	return QualityMetrics{
		PSNR:             psnr(la, lb),
		SSIM:             ssim(la, lb),
		OriginalVariance: ChannelVariance(a),
		ResultVariance:   ChannelVariance(b),
	}, nil
}

// PSNR returns the peak signal-to-noise ratio in dB between the luminance of
// a and b. Identical images give +Inf.
func PSNR(a, b image.Image) (float64, error) {
	la, lb, err := lumaPair(bridge.ImageToPixelBuffer(a), bridge.ImageToPixelBuffer(b))
	if err != nil {
		return 0, err
	}
	return psnr(la, lb), nil
}

// SSIM returns the structural similarity of the luminance of a and b,
// computed over the whole image as a single window.
func SSIM(a, b image.Image) (float64, error) {
	la, lb, err := lumaPair(bridge.ImageToPixelBuffer(a), bridge.ImageToPixelBuffer(b))
	if err != nil {
		return 0, err
	}
	return ssim(la, lb), nil
}

// ChannelVariance returns the sample variance of each channel of buf.
func ChannelVariance(buf *diffusion.PixelBuffer) [diffusion.Channels]float64 {
	var out [diffusion.Channels]float64
	n := buf.Rect.Area()
	if n < 2 {
		return out
	}

	values := make([]float64, n)
	for c := 0; c < diffusion.Channels; c++ {
		for i := 0; i < n; i++ {
			values[i] = float64(buf.Pix[i*diffusion.Channels+c])
		}
		out[c] = stat.Variance(values, nil)
	}
	return out
}

func lumaPair(a, b *diffusion.PixelBuffer) ([]float64, []float64, error) {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return nil, nil, fmt.Errorf("image sizes differ: %s vs %s", a.Rect, b.Rect)
	}
	if a.Rect.Area() == 0 {
		return nil, nil, fmt.Errorf("cannot compare empty images")
	}
	return luma(a), luma(b), nil
}

// luma is Rec. 601 luminance on the 0..255 scale.
func luma(buf *diffusion.PixelBuffer) []float64 {
	out := make([]float64, buf.Rect.Area())
	for i := range out {
		p := buf.Pix[i*diffusion.Channels:]
		out[i] = maxSample * (0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2]))
	}
	return out
}

func psnr(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	mse := sum / float64(len(a))
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(maxSample*maxSample/mse)
}

func ssim(a, b []float64) float64 {
	if len(a) < 2 {
		if a[0] == b[0] {
			return 1
		}
		return 0
	}

	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	cov := stat.Covariance(a, b, nil)

	num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}
