// File: pipeline/head_tail.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pipeline

import (
	"net"

	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
)

// headHandler is the pipeline's outbound sink: every outbound operation
// that reaches it is the bridge into the channel's unsafe contract,
// per spec.md §4.F.
type headHandler struct{}

func newHeadHandler() *headHandler { return &headHandler{} }

func (*headHandler) Capabilities() api.HandlerCapability { return api.CapOutbound }
func (*headHandler) HandlerAdded(api.HandlerContext)      {}
func (*headHandler) HandlerRemoved(api.HandlerContext)    {}

func (*headHandler) Bind(ctx api.HandlerContext, local any, p api.Promise) {
	addr, _ := local.(net.Addr)
	ctx.Channel().Unsafe().Bind(addr, p)
}

func (*headHandler) Connect(ctx api.HandlerContext, remote, local any, p api.Promise) {
	r, _ := remote.(net.Addr)
	l, _ := local.(net.Addr)
	ctx.Channel().Unsafe().Connect(r, l, p)
}

func (*headHandler) Disconnect(ctx api.HandlerContext, p api.Promise) {
	ctx.Channel().Unsafe().Disconnect(p)
}

func (*headHandler) Close(ctx api.HandlerContext, p api.Promise) {
	ctx.Channel().Unsafe().Close(p)
}

func (*headHandler) Deregister(ctx api.HandlerContext, p api.Promise) {
	ctx.Channel().Unsafe().Deregister(p)
}

func (*headHandler) Read(ctx api.HandlerContext) {
	ctx.Channel().Unsafe().BeginRead()
}

func (*headHandler) Write(ctx api.HandlerContext, msg any, p api.Promise) {
	ctx.Channel().Unsafe().Write(msg, p)
}

func (*headHandler) Flush(ctx api.HandlerContext) {
	ctx.Channel().Unsafe().Flush()
}

var _ api.OutboundHandler = (*headHandler)(nil)

// tailHandler is the pipeline's inbound sink: any event that falls
// through every user handler lands here. It releases unconsumed buffers
// and logs unhandled exceptions rather than silently dropping them,
// matching spec.md §4.F's exception funnel.
type tailHandler struct {
	logger *zap.SugaredLogger
}

func newTailHandler(logger *zap.SugaredLogger) *tailHandler { return &tailHandler{logger: logger} }

func (*tailHandler) Capabilities() api.HandlerCapability { return api.CapInbound }
func (*tailHandler) HandlerAdded(api.HandlerContext)       {}
func (*tailHandler) HandlerRemoved(api.HandlerContext)     {}

func (*tailHandler) ChannelRegistered(api.HandlerContext)   {}
func (*tailHandler) ChannelUnregistered(api.HandlerContext) {}
func (*tailHandler) ChannelActive(api.HandlerContext)       {}
func (*tailHandler) ChannelInactive(api.HandlerContext)     {}

func (t *tailHandler) ChannelRead(ctx api.HandlerContext, msg any) {
	if buf, ok := msg.(api.Buffer); ok {
		buf.Release()
		t.logger.Warnw("discarded unhandled inbound message", "channel", ctx.Channel().ID())
	}
}

func (*tailHandler) ChannelReadComplete(ctx api.HandlerContext) {}

func (*tailHandler) ChannelWritabilityChanged(api.HandlerContext) {}
func (*tailHandler) UserEventTriggered(api.HandlerContext, any)   {}

func (t *tailHandler) ExceptionCaught(ctx api.HandlerContext, cause error) {
	t.logger.Warnw("unhandled exception reached tail, closing channel", "cause", cause)
	ctx.Close()
}

var _ api.InboundHandler = (*tailHandler)(nil)
