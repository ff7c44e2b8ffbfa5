package diffusion

// Tensor2x2 is a symmetric 2x2 matrix [[A, B], [B, C]].
type Tensor2x2 struct {
	A, B, C float32
}

// StructureTensor holds the three regularised gradient outer-product planes
// over a halo extent.
type StructureTensor struct {
	Ix2, Iy2, Ixy *ScalarField
}

func NewStructureTensor(width, height int) StructureTensor {
	return StructureTensor{
		Ix2: NewScalarField(width, height),
		Iy2: NewScalarField(width, height),
		Ixy: NewScalarField(width, height),
	}
}

// At returns the tensor at halo-local coordinates (x, y).
func (st StructureTensor) At(x, y int) Tensor2x2 {
	i := y*st.Ix2.Width + x
	return Tensor2x2{A: st.Ix2.Data[i], B: st.Ixy.Data[i], C: st.Iy2.Data[i]}
}

// BuildStructureTensor computes the blurred structure tensor of a halo buffer.
func BuildStructureTensor(halo *PixelBuffer, sigma float64) StructureTensor {
	st := NewStructureTensor(halo.Rect.Width, halo.Rect.Height)
	tmp := NewScalarField(halo.Rect.Width, halo.Rect.Height)
	buildStructureTensor(halo, st, tmp, GaussianKernel(sigma), 1)
	return st
}

func buildStructureTensor(halo *PixelBuffer, st StructureTensor, tmp *ScalarField, kernel []float32, workers int) {
	gradientProducts(halo, st, workers)
	blurField(st.Ix2, tmp, kernel, workers)
	blurField(st.Iy2, tmp, kernel, workers)
	blurField(st.Ixy, tmp, kernel, workers)
}

// gradientProducts fills st with channel-averaged central-difference outer
// products. The outermost ring of the halo has no neighbours and gets zero.
func gradientProducts(halo *PixelBuffer, st StructureTensor, workers int) {
	w, h := halo.Rect.Width, halo.Rect.Height
	pix := halo.Pix
	stride := w * Channels

	runBands(workers, h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				idx := y*w + x
				if x == 0 || x == w-1 || y == 0 || y == h-1 {
					st.Ix2.Data[idx] = 0
					st.Iy2.Data[idx] = 0
					st.Ixy.Data[idx] = 0
					continue
				}

				o := idx * Channels
				var ix2, iy2, ixy float32
				for c := 0; c < Channels; c++ {
					ix := (pix[o+Channels+c] - pix[o-Channels+c]) / 2
					iy := (pix[o+stride+c] - pix[o-stride+c]) / 2
					ix2 += ix * ix
					iy2 += iy * iy
					ixy += ix * iy
				}
				st.Ix2.Data[idx] = ix2 / Channels
				st.Iy2.Data[idx] = iy2 / Channels
				st.Ixy.Data[idx] = ixy / Channels
			}
		}
	})
}
