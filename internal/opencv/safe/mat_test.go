package safe

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type recordingTracker struct {
	mu     sync.Mutex
	sizes  map[uint64]int64
	freed  []uint64
	refuse bool
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{sizes: map[uint64]int64{}}
}

var errRefused = errors.New("refused")

func (r *recordingTracker) TrackAllocation(id uint64, size int64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return errRefused
	}
	r.sizes[id] = size
	return nil
}

func (r *recordingTracker) TrackDeallocation(id uint64, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freed = append(r.freed, id)
}

func TestNewMatFromBytesOwnsCopy(t *testing.T) {
	data := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	}

	tracker := newRecordingTracker()
	m, err := NewMatFromBytes(2, 2, gocv.MatTypeCV8UC4, data, tracker, "pixels")
	require.NoError(t, err)
	defer m.Release()

	data[0] = 99

	out, err := m.ToBytes()
	require.NoError(t, err)
	assert.Equal(t, byte(1), out[0])
	assert.Len(t, out, 16)
	assert.Equal(t, 4, m.Channels())
	assert.Equal(t, int64(16), tracker.sizes[m.ID()])
}

func TestNewMatFromBytesRejectsBadInput(t *testing.T) {
	_, err := NewMatFromBytes(2, 2, gocv.MatTypeCV8UC4, make([]byte, 15), nil, "")
	assert.Error(t, err)

	_, err = NewMatFromBytes(0, 2, gocv.MatTypeCV8UC4, nil, nil, "")
	assert.Error(t, err)

	_, err = NewMat(maxDimension+1, 1, gocv.MatTypeCV8UC1)
	assert.Error(t, err)
}

func TestMatReferenceCounting(t *testing.T) {
	tracker := newRecordingTracker()
	m, err := NewMatWithTracker(4, 3, gocv.MatTypeCV8UC3, tracker, "ref")
	require.NoError(t, err)
	assert.Equal(t, int64(36), tracker.sizes[m.ID()])

	m.AddRef()
	m.Release()
	assert.True(t, m.IsValid())
	assert.Empty(t, tracker.freed)

	m.Release()
	assert.False(t, m.IsValid())
	assert.True(t, m.Empty())
	assert.Zero(t, m.Rows())
	assert.Equal(t, []uint64{m.ID()}, tracker.freed)

	m.Close()
	assert.Len(t, tracker.freed, 1, "double close is a no-op")

	_, err = m.Clone()
	assert.Error(t, err)
	assert.Error(t, ValidateMatForOperation(m, "test"))
	assert.Error(t, ValidateMatForOperation(nil, "test"))
}

func TestValidateColorConversion(t *testing.T) {
	gray, err := NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer gray.Release()

	assert.NoError(t, ValidateColorConversion(gray, gocv.ColorGrayToBGRA))
	assert.Error(t, ValidateColorConversion(gray, gocv.ColorBGRToBGRA))
}

func TestMatTypeSize(t *testing.T) {
	tests := []struct {
		matType gocv.MatType
		want    int
	}{
		{gocv.MatTypeCV8UC1, 1},
		{gocv.MatTypeCV8UC4, 4},
		{gocv.MatTypeCV16UC4, 8},
		{gocv.MatTypeCV32FC4, 16},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatTypeSize(tt.matType), "type %v", tt.matType)
	}
}

func TestTrackerRefusalBlocksCreation(t *testing.T) {
	tracker := newRecordingTracker()
	tracker.refuse = true

	_, err := NewMatWithTracker(2, 2, gocv.MatTypeCV8UC1, tracker, "a")
	assert.ErrorIs(t, err, errRefused)
	_, err = NewMatFromBytes(1, 1, gocv.MatTypeCV8UC4, make([]byte, 4), tracker, "b")
	assert.ErrorIs(t, err, errRefused)

	assert.Empty(t, tracker.sizes)
	assert.Empty(t, tracker.freed)
}
