package diffusion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchFloats(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{3, 3, 7*7*8 + 2*9*4},
		{64, 64, 68*68*8 + 2*64*64*4},
		{100, 1, 104*5*8 + 2*100*4},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ScratchFloats(tc.w, tc.h), "%dx%d", tc.w, tc.h)
	}
}

func TestNewScratchAllocatorFailure(t *testing.T) {
	alloc := &failingAllocator{}

	s, err := NewScratch(32, 32, alloc)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrAllocation))
	assert.True(t, errors.Is(err, errOutOfBudget))
	assert.Equal(t, 1, alloc.calls)
}

func TestScratchReleaseFreesOnce(t *testing.T) {
	alloc := &countingAllocator{}

	s, err := NewScratch(10, 10, alloc)
	require.NoError(t, err)
	assert.Equal(t, ScratchFloats(10, 10), s.Capacity())
	assert.True(t, s.Fits(10, 10))
	assert.True(t, s.Fits(5, 12))
	assert.False(t, s.Fits(11, 11))

	s.Release()
	s.Release()
	assert.Equal(t, 1, alloc.allocs)
	assert.Equal(t, 1, alloc.frees)
	assert.False(t, s.Fits(1, 1))
}

func TestScratchWorkspaceDoesNotOverlap(t *testing.T) {
	s, err := NewScratch(6, 5, nil)
	require.NoError(t, err)

	ws := s.workspace(Rect{Width: 6, Height: 5})
	planes := [][]float32{
		ws.halo.Pix, ws.tensor.Ix2.Data, ws.tensor.Iy2.Data, ws.tensor.Ixy.Data,
		ws.tmp.Data, ws.cur.Pix, ws.next.Pix,
	}

	total := 0
	for i, p := range planes {
		total += len(p)
		for j := range p {
			p[j] = float32(i)
		}
	}
	assert.Equal(t, ScratchFloats(6, 5), total)

	for i, p := range planes {
		for _, v := range p {
			require.Equal(t, float32(i), v, "plane %d was overwritten", i)
		}
	}
}

func TestConductanceScratchHoldsOnlyPingPong(t *testing.T) {
	assert.Equal(t, 2*12*9*Channels, ConductanceScratchFloats(12, 9))

	alloc := &countingAllocator{}
	s, err := NewConductanceScratch(12, 9, alloc)
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, ConductanceScratchFloats(12, 9), s.Capacity())
	assert.False(t, s.Fits(12, 9), "too small for the structure tensor engine")

	cur, next := s.pingPong(Rect{Width: 12, Height: 9})
	assert.Len(t, cur.Pix, 12*9*Channels)
	assert.Len(t, next.Pix, 12*9*Channels)
	cur.Pix[len(cur.Pix)-1] = 1
	assert.Zero(t, next.Pix[0])
}
