// File: bootstrap/server.go
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
	"github.com/momentics/netcore/transport/tcp"
)

// ServerBootstrap assembles a listening channel plus the per-connection
// wiring every accepted child goes through: its own Conn, channel,
// pipeline (seeded from childHandler), and registration on childGroup.
// Mirrors spec.md §6's parent/child group split.
type ServerBootstrap struct {
	parentGroup api.EventLoopGroup
	childGroup  api.EventLoopGroup
	opts        config.Options

	childHandler api.ChannelInitializer
	logger       *zap.SugaredLogger
}

// NewServer builds a ServerBootstrap. parentGroup owns the listening
// channel; childGroup owns accepted connections. Passing the same group
// for both is valid for small deployments.
func NewServer(parentGroup, childGroup api.EventLoopGroup, opts config.Options) *ServerBootstrap {
	return &ServerBootstrap{
		parentGroup: parentGroup,
		childGroup:  childGroup,
		opts:        opts,
		logger:      zap.NewNop().Sugar(),
	}
}

func (s *ServerBootstrap) ChildHandler(h api.ChannelInitializer) *ServerBootstrap {
	s.childHandler = h
	return s
}

func (s *ServerBootstrap) Logger(logger *zap.SugaredLogger) *ServerBootstrap {
	s.logger = logger
	return s
}

// childFactory builds and registers one accepted connection, matching
// NioServerSocketChannel's doReadMessages()/ServerBootstrapAcceptor split
// collapsed into a single step: transport/tcp.Listener has no pipeline of
// its own to delegate the decision to.
func (s *ServerBootstrap) childFactory() tcp.ChildFactory {
	return func(fd int, local, remote net.Addr) api.Channel {
		conn := tcp.NewAcceptedConn(fd, local, remote)
		childLoop := s.childGroup.NextLoop()

		factory := func(ch api.Channel) api.ChannelPipeline {
			p := pipeline.New(ch, pipeline.WithLogger(s.logger))
			if s.childHandler != nil {
				p.AddLast("init", pipeline.NewInitializerHandler(s.childHandler))
			}
			return p
		}
		ch := channel.New(nil, conn, s.opts.Allocator(), factory)
		s.opts.ApplyToChannelConfig(ch.Config())
		conn.Attach(ch)
		conn.SetSelector(selectorOf(childLoop))

		childLoop.Register(ch).AddListener(func(f api.Future) {
			if !f.IsSuccess() {
				s.logger.Warnw("failed to register accepted channel", "cause", f.Cause())
				return
			}
			if ch.Config().AutoRead() {
				ch.Read()
			}
		})
		return ch
	}
}

func (s *ServerBootstrap) serverPipelineFactory() channel.PipelineFactory {
	return func(ch api.Channel) api.ChannelPipeline {
		p := pipeline.New(ch, pipeline.WithLogger(s.logger))
		p.AddLast("accept-log", pipeline.NewSimpleInboundHandler(func(ctx api.HandlerContext, child api.Channel) {
			s.logger.Infow("accepted connection", "remote", child.RemoteAddr())
		}))
		return p
	}
}

// Bind resolves addr, registers the listening channel on the parent
// group, and binds it, returning the server channel and a Future that
// completes once the socket is actually listening.
func (s *ServerBootstrap) Bind(addr string) (api.Channel, api.Future) {
	local, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, promise.Failed(errs.Wrap(errs.KindUnresolvedAddress, "resolve failed", err))
	}

	loop := s.parentGroup.NextLoop()
	listener, err := tcp.NewListener(s.childFactory())
	if err != nil {
		return nil, promise.Failed(err)
	}

	ch := channel.New(nil, listener, s.opts.Allocator(), s.serverPipelineFactory())
	s.opts.ApplyToChannelConfig(ch.Config())
	listener.Attach(ch)
	listener.SetSelector(selectorOf(loop))

	result := promise.NewCombined(2)
	regFuture := loop.Register(ch)
	regFuture.AddListener(func(f api.Future) {
		if !f.IsSuccess() {
			return
		}
		result.Add(ch.Bind(local))
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
	return ch, out
}
