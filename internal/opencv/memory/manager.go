package memory

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"aniso-smooth/internal/logger"
	"aniso-smooth/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const (
	DefaultLimit    = 2 * 1024 * 1024 * 1024
	monitorInterval = 30 * time.Second
	float32Size     = 4
)

var ErrMemoryLimit = errors.New("memory limit exceeded")

// Manager keeps a byte budget shared by OpenCV Mats and float32 scratch
// buffers. It implements safe.MemoryTracker and diffusion.Allocator.
type Manager struct {
	mu           sync.RWMutex
	logger       logger.Logger
	maxMemory    int64
	usedMemory   int64
	peakMemory   int64
	allocCount   int64
	deallocCount int64
	active       map[uint64]*AllocationInfo
	scratchCount int
	ctx          context.Context
	cancel       context.CancelFunc
}

type AllocationInfo struct {
	ID        uint64
	Tag       string
	Size      int64
	Timestamp time.Time
}

type Stats struct {
	Allocations   int64
	Deallocations int64
	UsedBytes     int64
	PeakBytes     int64
	LimitBytes    int64
	ActiveMats    int
	ActiveScratch int
}

// NewManager starts a manager with limit bytes of budget (DefaultLimit when
// limit <= 0) and a background statistics logger.
func NewManager(log logger.Logger, limit int64) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	manager := &Manager{
		logger:    log,
		maxMemory: limit,
		active:    make(map[uint64]*AllocationInfo),
		ctx:       ctx,
		cancel:    cancel,
	}

	go manager.monitorMemory()
	return manager
}

// reserve charges size bytes when they fit the budget. Callers hold m.mu.
func (m *Manager) reserve(size int64, tag string) error {
	if m.usedMemory+size > m.maxMemory {
		return fmt.Errorf("%w: %s needs %d bytes, %d of %d in use",
			ErrMemoryLimit, tag, size, m.usedMemory, m.maxMemory)
	}

	m.usedMemory += size
	m.peakMemory = max(m.peakMemory, m.usedMemory)
	m.allocCount++
	return nil
}

// GetMat allocates a tracked Mat when it fits the budget.
func (m *Manager) GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	mat, err := safe.NewMatWithTracker(rows, cols, matType, m, tag)
	if errors.Is(err, ErrMemoryLimit) {
		runtime.GC()
	}
	return mat, err
}

// TrackAllocation charges a Mat created with this manager as its tracker.
// Every tracked constructor goes through here, so Mats and scratch share one
// limit.
func (m *Manager) TrackAllocation(id uint64, size int64, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reserve(size, tag); err != nil {
		m.logger.Warning("MemoryManager", "Mat allocation refused", map[string]interface{}{
			"tag":   tag,
			"bytes": size,
		})
		return err
	}

	m.active[id] = &AllocationInfo{
		ID:        id,
		Tag:       tag,
		Size:      size,
		Timestamp: time.Now(),
	}
	return nil
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info, exists := m.active[id]; exists {
		delete(m.active, id)
		m.usedMemory -= info.Size
	}
	m.deallocCount++
}

func (m *Manager) ReleaseMat(mat *safe.Mat, tag string) {
	if mat == nil {
		return
	}
	mat.Close()
}

// Alloc hands out n float32 values of scratch. It fails with ErrMemoryLimit
// instead of exceeding the budget.
func (m *Manager) Alloc(n int, tag string) ([]float32, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative scratch request for %s: %d", tag, n)
	}

	m.mu.Lock()
	err := m.reserve(int64(n)*float32Size, tag)
	if err == nil {
		m.scratchCount++
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warning("MemoryManager", "scratch allocation refused", map[string]interface{}{
			"tag":    tag,
			"floats": n,
		})
		return nil, err
	}

	return make([]float32, n), nil
}

func (m *Manager) Free(buf []float32, tag string) {
	m.mu.Lock()
	m.usedMemory -= int64(len(buf)) * float32Size
	m.deallocCount++
	m.scratchCount--
	m.mu.Unlock()
}

func (m *Manager) GetUsedMemory() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usedMemory
}

func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Allocations:   m.allocCount,
		Deallocations: m.deallocCount,
		UsedBytes:     m.usedMemory,
		PeakBytes:     m.peakMemory,
		LimitBytes:    m.maxMemory,
		ActiveMats:    len(m.active),
		ActiveScratch: m.scratchCount,
	}
}

func (m *Manager) monitorMemory() {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performMonitoringCheck()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) performMonitoringCheck() {
	stats := m.GetStats()

	m.logger.Debug("MemoryManager", "memory statistics", map[string]interface{}{
		"allocations":    stats.Allocations,
		"deallocations":  stats.Deallocations,
		"used_bytes":     stats.UsedBytes,
		"peak_bytes":     stats.PeakBytes,
		"active_mats":    stats.ActiveMats,
		"active_scratch": stats.ActiveScratch,
	})

	if stats.ActiveMats > 50 {
		m.logOldestMats(5)
	}

	if stats.UsedBytes > m.maxMemory*8/10 {
		runtime.GC()
	}
}

func (m *Manager) logOldestMats(count int) {
	m.mu.RLock()
	infos := make([]*AllocationInfo, 0, len(m.active))
	for _, info := range m.active {
		infos = append(infos, info)
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})

	now := time.Now()
	for _, info := range infos[:min(count, len(infos))] {
		m.logger.Warning("MemoryManager", "long-lived Mat detected", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
			"age":  now.Sub(info.Timestamp).String(),
		})
	}
}

func (m *Manager) Shutdown() {
	m.cancel()
	m.Cleanup()
}

// Cleanup forgets Mats that were never released and reports them.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	matCount := len(m.active)
	for id, info := range m.active {
		m.logger.Warning("MemoryManager", "cleaning up unreleased Mat", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
		})
		m.usedMemory -= info.Size
		delete(m.active, id)
	}

	m.logger.Info("MemoryManager", "cleanup completed", map[string]interface{}{
		"mats_cleaned":   matCount,
		"scratch_in_use": m.scratchCount,
	})
}
