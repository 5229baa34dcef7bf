// File: config/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package config

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/buffer"
)

// Options is the bootstrap-level configuration loaded from YAML: reactor
// sizing and the per-channel defaults every new channel's ChannelConfig
// starts from.
type Options struct {
	NumThreads               int   `yaml:"num_threads"`
	IORatio                  int   `yaml:"io_ratio"`
	ConnectTimeoutMillis     int64 `yaml:"connect_timeout_millis"`
	WriteBufferHighWaterMark int   `yaml:"write_buffer_high_water_mark"`
	WriteBufferLowWaterMark  int   `yaml:"write_buffer_low_water_mark"`
	AutoRead                 bool  `yaml:"auto_read"`
	PooledAllocator          bool  `yaml:"pooled_allocator"`
	DirectBuffers            bool  `yaml:"direct_buffers"`
}

// Default mirrors DefaultChannelConfig's constants plus a sane reactor
// sizing (one loop per NumThreads==0 meaning "let the group pick", 50%
// ioRatio).
func Default() Options {
	return Options{
		NumThreads:               0,
		IORatio:                  50,
		ConnectTimeoutMillis:     30000,
		WriteBufferHighWaterMark: 64 * 1024,
		WriteBufferLowWaterMark:  32 * 1024,
		AutoRead:                 true,
		PooledAllocator:          true,
	}
}

// Load decodes YAML from r over Default()'s values, so a partial
// document only overrides what it mentions.
func Load(r io.Reader) (Options, error) {
	o := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&o); err != nil && err != io.EOF {
		return Options{}, err
	}
	return o, nil
}

// LoadFile opens path and decodes it as YAML.
func LoadFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer f.Close()
	return Load(f)
}

// Override mutates an Options in place; overrides apply in order after
// YAML decoding, so a caller's explicit functional options always win
// over the file, per spec.md's ambient-config precedence.
type Override func(*Options)

func WithNumThreads(n int) Override { return func(o *Options) { o.NumThreads = n } }
func WithIORatio(r int) Override    { return func(o *Options) { o.IORatio = r } }
func WithAutoRead(b bool) Override  { return func(o *Options) { o.AutoRead = b } }
func WithWatermarks(low, high int) Override {
	return func(o *Options) { o.WriteBufferLowWaterMark, o.WriteBufferHighWaterMark = low, high }
}

// Apply returns a copy of o with every override applied in order.
func (o Options) Apply(overrides ...Override) Options {
	for _, fn := range overrides {
		fn(&o)
	}
	return o
}

// Allocator builds the api.BufferAllocator this Options selects.
func (o Options) Allocator() api.BufferAllocator {
	if !o.PooledAllocator {
		return buffer.UnpooledAllocator{}
	}
	if o.DirectBuffers {
		return buffer.NewPooledDirect()
	}
	return buffer.NewPooledHeap()
}

// ApplyToChannelConfig seeds cfg's option bag from o, letting a
// bootstrap-wide default flow into every channel it creates.
func (o Options) ApplyToChannelConfig(cfg api.ChannelConfig) {
	cfg.Set(api.OptConnectTimeoutMillis, o.ConnectTimeoutMillis)
	cfg.Set(api.OptWriteBufferHighWaterMark, o.WriteBufferHighWaterMark)
	cfg.Set(api.OptWriteBufferLowWaterMark, o.WriteBufferLowWaterMark)
	cfg.Set(api.OptAutoRead, o.AutoRead)
}
