package resource

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrMemoryLimitExceeded is returned when a charge would exceed the memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for charged memory.
	// If 0, no limit is enforced (only tracking).
	MemoryLimitBytes int64
}

// Controller tracks charged memory against an optional limit.
type Controller struct {
	cfg     Config
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64
	peak    atomic.Int64
}

// NewController creates a new controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	return c
}

// AcquireMemory charges bytes. It never blocks.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	used := c.memUsed.Add(bytes)
	for {
		p := c.peak.Load()
		if used <= p || c.peak.CompareAndSwap(p, used) {
			return nil
		}
	}
}

// ReleaseMemory returns bytes previously charged. A refund never exceeds the
// current charge, so releasing memory twice or releasing memory that was never
// charged cannot drive usage negative.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	for {
		used := c.memUsed.Load()
		n := min(bytes, used)
		if n <= 0 {
			return
		}
		if c.memUsed.CompareAndSwap(used, used-n) {
			// The semaphore is acquired before memUsed grows, so it holds at
			// least n.
			if c.memSem != nil {
				c.memSem.Release(n)
			}
			return
		}
	}
}

// MemoryUsage returns the currently charged bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// PeakMemoryUsage returns the highest charge observed.
func (c *Controller) PeakMemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.peak.Load()
}

// MemoryLimit returns the configured limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}
