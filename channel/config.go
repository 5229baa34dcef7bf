// File: channel/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package channel

import (
	"sync"
	"time"

	"github.com/momentics/netcore/api"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultHighWaterMark  = 64 * 1024
	defaultLowWaterMark   = 32 * 1024
)

// DefaultChannelConfig is api.ChannelConfig: a mutable option bag seeded
// with spec.md §4.E's defaults (30s connect timeout, 64KiB/32KiB
// watermarks, autoread on).
type DefaultChannelConfig struct {
	mu     sync.RWMutex
	opts   map[api.ChannelOption]any
	alloc  api.BufferAllocator
}

func NewDefaultChannelConfig(alloc api.BufferAllocator) *DefaultChannelConfig {
	return &DefaultChannelConfig{
		opts: map[api.ChannelOption]any{
			api.OptConnectTimeoutMillis:     int64(defaultConnectTimeout / time.Millisecond),
			api.OptWriteBufferHighWaterMark: defaultHighWaterMark,
			api.OptWriteBufferLowWaterMark:  defaultLowWaterMark,
			api.OptAutoRead:                 true,
		},
		alloc: alloc,
	}
}

func (c *DefaultChannelConfig) Get(opt api.ChannelOption) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.opts[opt]
	return v, ok
}

func (c *DefaultChannelConfig) Set(opt api.ChannelOption, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if opt == api.OptAllocator {
		if a, ok := value.(api.BufferAllocator); ok {
			c.alloc = a
		}
	}
	c.opts[opt] = value
}

func (c *DefaultChannelConfig) Allocator() api.BufferAllocator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alloc
}

func (c *DefaultChannelConfig) AutoRead() bool {
	v, _ := c.Get(api.OptAutoRead)
	b, _ := v.(bool)
	return b
}

func (c *DefaultChannelConfig) ConnectTimeout() time.Duration {
	v, _ := c.Get(api.OptConnectTimeoutMillis)
	ms, _ := v.(int64)
	if ms <= 0 {
		return defaultConnectTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *DefaultChannelConfig) Watermarks() (low, high int) {
	lv, _ := c.Get(api.OptWriteBufferLowWaterMark)
	hv, _ := c.Get(api.OptWriteBufferHighWaterMark)
	low, _ = lv.(int)
	high, _ = hv.(int)
	if high <= 0 {
		high = defaultHighWaterMark
	}
	if low <= 0 || low > high {
		low = high / 2
	}
	return low, high
}

var _ api.ChannelConfig = (*DefaultChannelConfig)(nil)
