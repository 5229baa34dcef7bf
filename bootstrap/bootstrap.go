// File: bootstrap/bootstrap.go
// Package bootstrap wires reactor group, channel, pipeline, and transport
// together into the two entry points applications actually construct:
// Bootstrap (client) and ServerBootstrap (server), per spec.md §6.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package bootstrap

import (
	"net"

	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/channel"
	"github.com/momentics/netcore/config"
	"github.com/momentics/netcore/errs"
	"github.com/momentics/netcore/pipeline"
	"github.com/momentics/netcore/promise"
	"github.com/momentics/netcore/reactor"
	"github.com/momentics/netcore/transport/tcp"
)

// selectorOf extracts the reactor.Selector a concrete *reactor.EventLoop
// owns; Ops needs it to arm epoll interest directly, but api.EventLoop
// stays selector-agnostic so the channel package never has to import
// reactor (spec.md §1).
func selectorOf(loop api.EventLoop) reactor.Selector {
	sel, ok := loop.(interface{ Selector() reactor.Selector })
	if !ok {
		panic(errs.New(errs.KindIllegalState, "event loop does not expose a selector"))
	}
	return sel.Selector()
}

// Bootstrap assembles a single client channel: resolve the address, pick a
// loop, build the transport and channel, register, then connect, with a
// promise.Combined waiting on the register and connect futures.
type Bootstrap struct {
	group   api.EventLoopGroup
	opts    config.Options
	handler api.ChannelInitializer
	logger  *zap.SugaredLogger
}

// New builds a Bootstrap over group using opts as the per-channel config
// template.
func New(group api.EventLoopGroup, opts config.Options) *Bootstrap {
	return &Bootstrap{group: group, opts: opts, logger: zap.NewNop().Sugar()}
}

// Handler sets the ChannelInitializer that populates the client channel's
// pipeline once it is registered.
func (b *Bootstrap) Handler(h api.ChannelInitializer) *Bootstrap {
	b.handler = h
	return b
}

// Logger points the channel's pipeline tail at logger instead of the
// no-op default.
func (b *Bootstrap) Logger(logger *zap.SugaredLogger) *Bootstrap {
	b.logger = logger
	return b
}

func (b *Bootstrap) pipelineFactory() channel.PipelineFactory {
	return func(ch api.Channel) api.ChannelPipeline {
		p := pipeline.New(ch, pipeline.WithLogger(b.logger))
		if b.handler != nil {
			p.AddLast("init", pipeline.NewInitializerHandler(b.handler))
		}
		return p
	}
}

// Connect resolves addr, registers a fresh channel on the next loop, and
// connects it, returning a Future that succeeds with the connected
// api.Channel.
func (b *Bootstrap) Connect(addr string) api.Future {
	remote, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return promise.Failed(errs.Wrap(errs.KindUnresolvedAddress, "resolve failed", err))
	}

	loop := b.group.NextLoop()
	conn, err := tcp.NewConn()
	if err != nil {
		return promise.Failed(err)
	}

	ch := channel.New(nil, conn, b.opts.Allocator(), b.pipelineFactory())
	b.opts.ApplyToChannelConfig(ch.Config())
	conn.Attach(ch)
	conn.SetSelector(selectorOf(loop))

	result := promise.NewCombined(2)
	regFuture := loop.Register(ch)
	regFuture.AddListener(func(f api.Future) {
		if !f.IsSuccess() {
			ch.Close()
			return
		}
		connectFuture := ch.Connect(remote, nil)
		result.Add(connectFuture)
	})
	result.Add(regFuture)

	out := promise.New(loop)
	result.Future().AddListener(func(f api.Future) {
		if f.IsSuccess() {
			out.TrySuccess(ch)
		} else {
			out.TryFailure(f.Cause())
		}
	})
	return out
}
