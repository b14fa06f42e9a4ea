package health

import (
	"context"
	"fmt"
	"runtime"
)

// HeapCheckerConfig configures the heap checker. Attachment payloads are held
// in memory while a batch runs, so the process heap is the first resource to
// run out.
type HeapCheckerConfig struct {
	// MaxHeapBytes is the heap size considered full. Zero reports healthy
	// with statistics only.
	MaxHeapBytes uint64

	// WarningRatio of MaxHeapBytes reports degraded.
	// Default: 0.8
	WarningRatio float64

	// CriticalRatio of MaxHeapBytes reports unhealthy.
	// Default: 0.95
	CriticalRatio float64
}

// HeapChecker reports heap usage against a configured ceiling.
type HeapChecker struct {
	config   HeapCheckerConfig
	readHeap func() uint64
}

// NewHeapChecker creates a heap checker.
func NewHeapChecker(config HeapCheckerConfig) *HeapChecker {
	if config.WarningRatio <= 0 || config.WarningRatio >= 1 {
		config.WarningRatio = 0.8
	}
	if config.CriticalRatio <= 0 || config.CriticalRatio > 1 {
		config.CriticalRatio = 0.95
	}
	if config.CriticalRatio < config.WarningRatio {
		config.CriticalRatio = config.WarningRatio
	}
	return &HeapChecker{config: config, readHeap: heapAlloc}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Name returns "heap".
func (h *HeapChecker) Name() string {
	return "heap"
}

// Check compares the current heap allocation with the ceiling.
func (h *HeapChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	used := h.readHeap()
	details := map[string]any{
		"heap_alloc_bytes": used,
		"goroutines":       runtime.NumGoroutine(),
	}
	if h.config.MaxHeapBytes == 0 {
		return Healthy("no heap ceiling configured").WithDetails(details)
	}

	ratio := float64(used) / float64(h.config.MaxHeapBytes)
	details["max_heap_bytes"] = h.config.MaxHeapBytes
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= h.config.CriticalRatio:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= h.config.WarningRatio:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
