// File: config/option.go
// Package config provides typed accessors over api.ChannelConfig's
// untyped option bag, plus YAML-driven bootstrap defaults, supplementing
// spec.md §4.E's ChannelOption indirection with a reflection-free
// generic substitute for Netty's AttributeKey<T>.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package config

import "github.com/momentics/netcore/api"

// Option is a typed view onto one api.ChannelOption key: Get falls back
// to def when the key is unset or holds a value of the wrong type,
// keeping callers from sprinkling type assertions through handler code.
type Option[T any] struct {
	key api.ChannelOption
	def T
}

// NewOption declares a typed option over key with default def.
func NewOption[T any](key api.ChannelOption, def T) Option[T] {
	return Option[T]{key: key, def: def}
}

func (o Option[T]) Get(cfg api.ChannelConfig) T {
	v, ok := cfg.Get(o.key)
	if !ok {
		return o.def
	}
	t, ok := v.(T)
	if !ok {
		return o.def
	}
	return t
}

func (o Option[T]) Set(cfg api.ChannelConfig, value T) { cfg.Set(o.key, value) }

// Predefined typed options matching the keys DefaultChannelConfig seeds.
var (
	ConnectTimeoutMillis     = NewOption[int64](api.OptConnectTimeoutMillis, 30000)
	WriteBufferHighWaterMark = NewOption[int](api.OptWriteBufferHighWaterMark, 64*1024)
	WriteBufferLowWaterMark  = NewOption[int](api.OptWriteBufferLowWaterMark, 32*1024)
	AutoRead                 = NewOption[bool](api.OptAutoRead, true)
)
