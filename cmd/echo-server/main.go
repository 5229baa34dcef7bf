// File: cmd/echo-server/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// echo-server wires a ServerBootstrap over a reactor.Group and echoes
// back every frame it receives, generalized from the pack's raw accept
// loop (examples/reactor_echo/main.go) into the full channel/pipeline
// stack.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/bootstrap"
	"github.com/momentics/netcore/codec"
	"github.com/momentics/netcore/config"
	"github.com/momentics/netcore/reactor"
)

func main() {
	addr := flag.String("addr", ":9001", "address to listen on")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	opts := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			sugar.Fatalw("failed to load config", "path", *configPath, "cause", err)
		}
		opts = loaded
	}

	group, err := reactor.NewGroup(opts.NumThreads, opts.IORatio, nil)
	if err != nil {
		sugar.Fatalw("failed to start reactor group", "cause", err)
	}
	group.SetLogger(sugar)

	server := bootstrap.NewServer(group, group, opts).
		Logger(sugar).
		ChildHandler(initFunc(func(ch api.Channel) error {
			ch.Pipeline().
				AddLast("framer", codec.NewLengthFieldFramer(4, 1<<20)).
				AddLast("prepender", codec.NewLengthFieldPrepender(4)).
				AddLast("echo", echoHandler(sugar))
			return nil
		}))

	ch, bindFuture := server.Bind(*addr)
	if err := bindFuture.Sync(); err != nil {
		sugar.Fatalw("failed to bind", "addr", *addr, "cause", err)
	}
	sugar.Infow("echo-server listening", "addr", *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sugar.Info("shutting down")
	ch.Close().Sync()
	group.ShutdownGracefully(0, 5*time.Second).Sync()
}

type initFunc func(api.Channel) error

func (f initFunc) InitChannel(ch api.Channel) error { return f(ch) }

func echoHandler(logger *zap.SugaredLogger) api.Handler {
	return &echoInbound{logger: logger}
}

type echoInbound struct{ logger *zap.SugaredLogger }

func (*echoInbound) Capabilities() api.HandlerCapability { return api.CapInbound }
func (*echoInbound) HandlerAdded(api.HandlerContext)       {}
func (*echoInbound) HandlerRemoved(api.HandlerContext)     {}
func (*echoInbound) ChannelRegistered(ctx api.HandlerContext)   { ctx.FireChannelRegistered() }
func (*echoInbound) ChannelUnregistered(ctx api.HandlerContext) { ctx.FireChannelUnregistered() }
func (*echoInbound) ChannelActive(ctx api.HandlerContext)      { ctx.FireChannelActive() }
func (*echoInbound) ChannelInactive(ctx api.HandlerContext)    { ctx.FireChannelInactive() }

func (h *echoInbound) ChannelRead(ctx api.HandlerContext, msg any) {
	buf, ok := msg.(api.Buffer)
	if !ok {
		ctx.FireChannelRead(msg)
		return
	}
	h.logger.Debugw("echoing frame", "bytes", buf.ReadableBytes())
	ctx.WriteAndFlush(buf)
}

func (*echoInbound) ChannelReadComplete(ctx api.HandlerContext) { ctx.FireChannelReadComplete() }
func (*echoInbound) ChannelWritabilityChanged(ctx api.HandlerContext) {
	ctx.FireChannelWritabilityChanged()
}
func (*echoInbound) UserEventTriggered(ctx api.HandlerContext, evt any) {
	ctx.FireUserEventTriggered(evt)
}
func (h *echoInbound) ExceptionCaught(ctx api.HandlerContext, cause error) {
	h.logger.Warnw("connection error", "cause", cause)
	ctx.Close()
}

var _ api.InboundHandler = (*echoInbound)(nil)
