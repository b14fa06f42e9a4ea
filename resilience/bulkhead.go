package resilience

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrentCalls is the maximum number of concurrent operations.
	// Default: 10
	MaxConcurrentCalls int

	// MaxQueueSize is the maximum number of callers waiting for a slot.
	// Default: 0 (no waiting, fail immediately)
	MaxQueueSize int

	// ExecutionTimeout bounds each admitted operation. The slot is released
	// when the timeout fires even if the operation has not returned.
	// Default: 0 (no timeout)
	ExecutionTimeout time.Duration
}

// Bulkhead limits concurrent operations and queues excess callers in FIFO order.
type Bulkhead struct {
	config BulkheadConfig

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
	queue     *list.List
}

type bulkheadWaiter struct {
	ready   chan struct{}
	granted bool
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	// Apply defaults
	if config.MaxConcurrentCalls <= 0 {
		config.MaxConcurrentCalls = 10
	}
	if config.MaxQueueSize < 0 {
		config.MaxQueueSize = 0
	}

	return &Bulkhead{
		config: config,
		queue:  list.New(),
	}
}

// Acquire acquires a slot in the bulkhead.
//
// If no slot is free and the queue has room, the caller waits in FIFO order.
// Returns ErrBulkheadFull if the queue is also full.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	b.mu.Lock()

	// Fast path: free slot
	if b.active < b.config.MaxConcurrentCalls {
		b.active++
		if b.active > b.maxActive {
			b.maxActive = b.active
		}
		b.mu.Unlock()
		return nil
	}

	if b.queue.Len() >= b.config.MaxQueueSize {
		b.rejected++
		b.mu.Unlock()
		return ErrBulkheadFull
	}

	w := &bulkheadWaiter{ready: make(chan struct{})}
	elem := b.queue.PushBack(w)
	b.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		if w.granted {
			// The slot was handed over while we were giving up; pass it on.
			b.releaseLocked()
		} else {
			b.queue.Remove(elem)
		}
		b.mu.Unlock()
		return ctx.Err()
	}
}

// Release releases a slot in the bulkhead, handing it to the oldest waiter if any.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	b.releaseLocked()
	b.mu.Unlock()
}

func (b *Bulkhead) releaseLocked() {
	if front := b.queue.Front(); front != nil {
		w := b.queue.Remove(front).(*bulkheadWaiter)
		w.granted = true
		close(w.ready)
		return
	}
	if b.active > 0 {
		b.active--
	}
}

// Execute runs the operation within the bulkhead.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()

	if b.config.ExecutionTimeout > 0 {
		return ExecuteWithTimeout(ctx, b.config.ExecutionTimeout, op)
	}
	return op(ctx)
}

// Metrics returns current bulkhead metrics.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BulkheadMetrics{
		Active:        b.active,
		Queued:        b.queue.Len(),
		MaxActive:     b.maxActive,
		Available:     b.config.MaxConcurrentCalls - b.active,
		MaxConcurrent: b.config.MaxConcurrentCalls,
		Rejected:      b.rejected,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active        int
	Queued        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}
