package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// MemoryTracker charges tracked Mats against a budget. TrackAllocation runs
// before the Mat is created and may refuse it; TrackDeallocation runs once
// when a charged Mat is closed or its creation failed.
type MemoryTracker interface {
	TrackAllocation(id uint64, size int64, tag string) error
	TrackDeallocation(id uint64, tag string)
}

// Mat is a reference counted gocv.Mat with validity tracking. A finalizer
// closes Mats that were never released.
type Mat struct {
	mat        gocv.Mat
	isValid    int32
	refCount   int32
	mu         sync.RWMutex
	id         uint64
	memTracker MemoryTracker
	tag        string
}

const maxDimension = 32768

var nextMatID uint64

func NewMat(rows, cols int, matType gocv.MatType) (*Mat, error) {
	return NewMatWithTracker(rows, cols, matType, nil, "")
}

func NewMatWithTracker(rows, cols int, matType gocv.MatType, memTracker MemoryTracker, tag string) (*Mat, error) {
	if err := validateDimensions(rows, cols); err != nil {
		return nil, err
	}

	return create(rows, cols, matType, memTracker, tag, func() (gocv.Mat, error) {
		mat := gocv.NewMatWithSize(rows, cols, matType)
		if mat.Empty() {
			mat.Close()
			return gocv.Mat{}, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
		}
		return mat, nil
	})
}

// NewMatFromBytes copies data into a new Mat of the given shape.
func NewMatFromBytes(rows, cols int, matType gocv.MatType, data []byte, memTracker MemoryTracker, tag string) (*Mat, error) {
	if err := validateDimensions(rows, cols); err != nil {
		return nil, err
	}

	if want := rows * cols * MatTypeSize(matType); len(data) != want {
		return nil, fmt.Errorf("byte length %d does not match %dx%d Mat of %d bytes", len(data), cols, rows, want)
	}

	return create(rows, cols, matType, memTracker, tag, func() (gocv.Mat, error) {
		mat, err := gocv.NewMatFromBytes(rows, cols, matType, data)
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("failed to create Mat from bytes: %w", err)
		}

		// NewMatFromBytes may share data with the Go slice; own a copy.
		owned := mat.Clone()
		mat.Close()
		return owned, nil
	})
}

// NewMatFromMatWithTracker clones srcMat; the caller keeps ownership of it.
func NewMatFromMatWithTracker(srcMat gocv.Mat, memTracker MemoryTracker, tag string) (*Mat, error) {
	if srcMat.Empty() {
		return nil, fmt.Errorf("source Mat is empty")
	}
	if err := validateDimensions(srcMat.Rows(), srcMat.Cols()); err != nil {
		return nil, err
	}

	return create(srcMat.Rows(), srcMat.Cols(), srcMat.Type(), memTracker, tag, func() (gocv.Mat, error) {
		cloned := srcMat.Clone()
		if cloned.Empty() {
			cloned.Close()
			return gocv.Mat{}, fmt.Errorf("failed to clone Mat")
		}
		return cloned, nil
	})
}

// create charges the tracker for a rows x cols Mat, then builds it. A
// refused charge leaves build uncalled.
func create(rows, cols int, matType gocv.MatType, memTracker MemoryTracker, tag string, build func() (gocv.Mat, error)) (*Mat, error) {
	id := atomic.AddUint64(&nextMatID, 1)

	if memTracker != nil {
		size := int64(rows * cols * MatTypeSize(matType))
		if err := memTracker.TrackAllocation(id, size, tag); err != nil {
			return nil, err
		}
	}

	mat, err := build()
	if err != nil {
		if memTracker != nil {
			memTracker.TrackDeallocation(id, tag)
		}
		return nil, err
	}

	sm := &Mat{
		mat:        mat,
		isValid:    1,
		refCount:   1,
		id:         id,
		memTracker: memTracker,
		tag:        tag,
	}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm, nil
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return !sm.IsValid() || sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}
	return sm.mat.Type()
}

func (sm *Mat) Clone() (*Mat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() || sm.mat.Empty() {
		return nil, fmt.Errorf("cannot clone invalid or empty Mat")
	}

	return NewMatFromMatWithTracker(sm.mat, sm.memTracker, sm.tag+"_clone")
}

// ToBytes returns a copy of the pixel data in row-major, channel-interleaved
// order.
func (sm *Mat) ToBytes() ([]byte, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() || sm.mat.Empty() {
		return nil, fmt.Errorf("cannot read bytes of invalid or empty Mat")
	}

	src := sm.mat
	if !src.IsContinuous() {
		src = sm.mat.Clone()
		defer src.Close()
	}

	return src.ToBytes(), nil
}

// GetMat exposes the underlying Mat. It must not be closed by the caller.
func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat
}

func (sm *Mat) ID() uint64 {
	return sm.id
}

func (sm *Mat) AddRef() {
	atomic.AddInt32(&sm.refCount, 1)
}

// Release drops one reference and closes the Mat on the last one.
func (sm *Mat) Release() {
	if atomic.AddInt32(&sm.refCount, -1) == 0 {
		sm.Close()
	}
}

func (sm *Mat) Close() {
	if !atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.memTracker != nil {
		sm.memTracker.TrackDeallocation(sm.id, sm.tag)
	}

	if !sm.mat.Empty() {
		sm.mat.Close()
	}

	runtime.SetFinalizer(sm, nil)
	sm.mat = gocv.Mat{}
	sm.memTracker = nil
	sm.refCount = 0
}

func (sm *Mat) finalize() {
	if sm.IsValid() {
		sm.Close()
	}
}

func validateDimensions(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}

	if rows > maxDimension || cols > maxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size", cols, rows)
	}

	return nil
}

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	return nil
}

// ValidateColorConversion checks the channel count a conversion to BGRA or
// BGR expects.
func ValidateColorConversion(src *Mat, code gocv.ColorConversionCode) error {
	if err := ValidateMatForOperation(src, "CvtColor"); err != nil {
		return err
	}

	want := 0
	switch code {
	case gocv.ColorGrayToBGRA, gocv.ColorGrayToBGR:
		want = 1
	case gocv.ColorBGRToBGRA, gocv.ColorBGRToGray:
		want = 3
	case gocv.ColorBGRAToBGR, gocv.ColorBGRAToRGBA:
		want = 4
	}

	if channels := src.Channels(); want != 0 && channels != want {
		return fmt.Errorf("color conversion %v requires %d channels, got %d", code, want, channels)
	}

	return nil
}

// MatTypeSize returns the bytes per pixel of matType.
func MatTypeSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV16UC1:
		return 2
	case gocv.MatTypeCV16UC3:
		return 6
	case gocv.MatTypeCV16UC4:
		return 8
	case gocv.MatTypeCV32FC1:
		return 4
	case gocv.MatTypeCV32FC3:
		return 12
	case gocv.MatTypeCV32FC4:
		return 16
	default:
		return 1
	}
}
