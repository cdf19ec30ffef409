// Package resource tracks and limits the memory, background concurrency
// and export throughput consumed by optional acceleration structures
// (bitmap indexes, the operation cache, snapshot export).
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values disable the corresponding limit.
type Config struct {
	// MemoryLimitBytes caps the memory charged by bitmap indexes and
	// cached results. 0 means track only, no hard limit.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers caps concurrent background jobs such as bitmap
	// index rebuilds. Defaults to 1.
	MaxBackgroundWorkers int64

	// WriteLimitBytesPerSec throttles snapshot export throughput.
	// 0 means unlimited.
	WriteLimitBytesPerSec int64
}

// Controller manages global resources. A nil *Controller is valid and
// enforces nothing, so callers never need nil checks at call sites.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	bgSem *semaphore.Weighted

	writeLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.WriteLimitBytesPerSec > 0 {
		c.writeLimiter = rate.NewLimiter(rate.Limit(cfg.WriteLimitBytesPerSec), int(cfg.WriteLimitBytesPerSec))
	}
	return c
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns false only when a hard limit is configured and would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns previously reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsed returns the currently tracked memory.
func (c *Controller) MemoryUsed() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireWorker reserves a background worker slot, blocking until one is
// available or ctx is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a background worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseWorker returns a background worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// WaitWrite blocks until the write limiter permits n more bytes.
func (c *Controller) WaitWrite(ctx context.Context, n int) error {
	if c == nil || c.writeLimiter == nil || n <= 0 {
		return nil
	}
	burst := c.writeLimiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := c.writeLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
