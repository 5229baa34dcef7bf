// File: cmd/echo-client/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// echo-client connects to echo-server, sends each stdin line as a framed
// message, and prints what comes back, generalized from the pack's
// stest client worker (examples/stest/client/main.go) into a single
// interactive connection over the channel/pipeline stack.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/bootstrap"
	"github.com/momentics/netcore/codec"
	"github.com/momentics/netcore/config"
	"github.com/momentics/netcore/reactor"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9001", "server address")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	opts := config.Default().Apply(config.WithNumThreads(1))
	group, err := reactor.NewGroup(opts.NumThreads, opts.IORatio, nil)
	if err != nil {
		sugar.Fatalw("failed to start reactor group", "cause", err)
	}
	group.SetLogger(sugar)
	defer group.ShutdownGracefully(0, 2*time.Second).Sync()

	replies := make(chan string, 16)

	client := bootstrap.New(group, opts).
		Logger(sugar).
		Handler(initFunc(func(ch api.Channel) error {
			ch.Pipeline().
				AddLast("framer", codec.NewLengthFieldFramer(4, 1<<20)).
				AddLast("prepender", codec.NewLengthFieldPrepender(4)).
				AddLast("print", newPrintHandler(replies))
			return nil
		}))

	connectFuture := client.Connect(*addr)
	if err := connectFuture.Sync(); err != nil {
		sugar.Fatalw("failed to connect", "addr", *addr, "cause", err)
	}
	ch := connectFuture.Result().(api.Channel)
	sugar.Infow("connected", "addr", *addr)

	go func() {
		for line := range replies {
			fmt.Println("< " + line)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		buf := ch.Allocator().HeapBuffer(len(line))
		buf.WriteBytes([]byte(line))
		if err := ch.WriteAndFlush(buf).Sync(); err != nil {
			sugar.Warnw("write failed", "cause", err)
			break
		}
	}

	ch.Close().Sync()
}

type initFunc func(api.Channel) error

func (f initFunc) InitChannel(ch api.Channel) error { return f(ch) }

// newPrintHandler forwards each decoded frame's bytes to out as a string.
func newPrintHandler(out chan<- string) api.Handler {
	return &printInbound{out: out}
}

type printInbound struct{ out chan<- string }

func (*printInbound) Capabilities() api.HandlerCapability { return api.CapInbound }
func (*printInbound) HandlerAdded(api.HandlerContext)       {}
func (*printInbound) HandlerRemoved(api.HandlerContext)     {}
func (*printInbound) ChannelRegistered(ctx api.HandlerContext)   { ctx.FireChannelRegistered() }
func (*printInbound) ChannelUnregistered(ctx api.HandlerContext) { ctx.FireChannelUnregistered() }
func (*printInbound) ChannelActive(ctx api.HandlerContext)      { ctx.FireChannelActive() }
func (*printInbound) ChannelInactive(ctx api.HandlerContext)    { ctx.FireChannelInactive() }

func (h *printInbound) ChannelRead(ctx api.HandlerContext, msg any) {
	buf, ok := msg.(api.Buffer)
	if !ok {
		ctx.FireChannelRead(msg)
		return
	}
	h.out <- string(buf.Bytes())
	buf.Release()
}

func (*printInbound) ChannelReadComplete(ctx api.HandlerContext) { ctx.FireChannelReadComplete() }
func (*printInbound) ChannelWritabilityChanged(ctx api.HandlerContext) {
	ctx.FireChannelWritabilityChanged()
}
func (*printInbound) UserEventTriggered(ctx api.HandlerContext, evt any) {
	ctx.FireUserEventTriggered(evt)
}
func (h *printInbound) ExceptionCaught(ctx api.HandlerContext, cause error) {
	ctx.Close()
}

var _ api.InboundHandler = (*printInbound)(nil)
