// File: promise/combined.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package promise

import (
	"sync"

	"github.com/momentics/netcore/api"
)

// Combined waits on N futures and completes success only once every
// constituent future has succeeded; the first failure or cancellation
// short-circuits it to failure. Used by the bootstraps to wait on the
// register and connect (or bind) futures together, and by channel.Group to
// fold per-member writes and closes into one future.
type Combined struct {
	target *DefaultPromise
	mu     sync.Mutex
	remaining int
	done   bool
}

// NewCombined builds a Combined tracking count constituent futures.
func NewCombined(count int) *Combined {
	c := &Combined{
		target:    New(nil),
		remaining: count,
	}
	if count == 0 {
		c.target.TrySuccess(nil)
		c.done = true
	}
	return c
}

// Add registers f as one of the constituents.
func (c *Combined) Add(f api.Future) {
	f.AddListener(func(f api.Future) {
		c.mu.Lock()
		if c.done {
			c.mu.Unlock()
			return
		}
		if !f.IsSuccess() {
			c.done = true
			c.mu.Unlock()
			if f.IsCancelled() {
				c.target.Cancel()
			} else {
				c.target.TryFailure(f.Cause())
			}
			return
		}
		c.remaining--
		finished := c.remaining == 0
		if finished {
			c.done = true
		}
		c.mu.Unlock()
		if finished {
			c.target.TrySuccess(nil)
		}
	})
}

// Future returns the combined result.
func (c *Combined) Future() api.Future { return c.target }
