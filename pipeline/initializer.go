// File: pipeline/initializer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pipeline

import (
	"sync/atomic"

	"github.com/momentics/netcore/api"
)

// initializerHandler adapts an api.ChannelInitializer into a regular
// pipeline handler that runs InitChannel exactly once — CAS-guarded
// against a racing ChannelRegistered firing twice — and removes itself
// immediately after, per spec.md §4.F's one-shot initializer contract.
type initializerHandler struct {
	init api.ChannelInitializer
	done atomic.Bool
}

// NewInitializerHandler wraps init as a self-removing pipeline handler.
func NewInitializerHandler(init api.ChannelInitializer) api.Handler {
	return &initializerHandler{init: init}
}

func (*initializerHandler) Capabilities() api.HandlerCapability { return api.CapInbound }
func (*initializerHandler) HandlerAdded(api.HandlerContext)       {}
func (*initializerHandler) HandlerRemoved(api.HandlerContext)     {}

func (h *initializerHandler) ChannelRegistered(ctx api.HandlerContext) {
	if h.done.CompareAndSwap(false, true) {
		if err := h.init.InitChannel(ctx.Channel()); err != nil {
			ctx.FireExceptionCaught(err)
		}
		ctx.Pipeline().Remove(h)
	}
	ctx.FireChannelRegistered()
}

func (*initializerHandler) ChannelUnregistered(ctx api.HandlerContext)      { ctx.FireChannelUnregistered() }
func (*initializerHandler) ChannelActive(ctx api.HandlerContext)           { ctx.FireChannelActive() }
func (*initializerHandler) ChannelInactive(ctx api.HandlerContext)         { ctx.FireChannelInactive() }
func (*initializerHandler) ChannelRead(ctx api.HandlerContext, msg any)    { ctx.FireChannelRead(msg) }
func (*initializerHandler) ChannelReadComplete(ctx api.HandlerContext)     { ctx.FireChannelReadComplete() }
func (*initializerHandler) ChannelWritabilityChanged(ctx api.HandlerContext) {
	ctx.FireChannelWritabilityChanged()
}
func (*initializerHandler) UserEventTriggered(ctx api.HandlerContext, evt any) {
	ctx.FireUserEventTriggered(evt)
}
func (*initializerHandler) ExceptionCaught(ctx api.HandlerContext, cause error) {
	ctx.FireExceptionCaught(cause)
}

var _ api.InboundHandler = (*initializerHandler)(nil)
