// File: api/pipeline.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// HandlerCapability is a bitset a handler advertises so contexts can skip
// non-participants during propagation in O(1) (spec.md §9).
type HandlerCapability uint8

const (
	CapInbound HandlerCapability = 1 << iota
	CapOutbound
)

// Handler is the base type every pipeline participant implements. Concrete
// handlers implement InboundHandler and/or OutboundHandler in addition;
// Capabilities() tells the pipeline which.
type Handler interface {
	Capabilities() HandlerCapability
	// HandlerAdded is called synchronously on the goroutine that adds the
	// handler, right after its context is linked into the chain; it is not
	// dispatched to the context's executor.
	HandlerAdded(ctx HandlerContext)
	// HandlerRemoved fires after this handler is unlinked from the chain.
	HandlerRemoved(ctx HandlerContext)
}

// InboundHandler reacts to events flowing HEAD->TAIL.
type InboundHandler interface {
	Handler
	ChannelRegistered(ctx HandlerContext)
	ChannelUnregistered(ctx HandlerContext)
	ChannelActive(ctx HandlerContext)
	ChannelInactive(ctx HandlerContext)
	ChannelRead(ctx HandlerContext, msg any)
	ChannelReadComplete(ctx HandlerContext)
	ChannelWritabilityChanged(ctx HandlerContext)
	UserEventTriggered(ctx HandlerContext, evt any)
	ExceptionCaught(ctx HandlerContext, cause error)
}

// OutboundHandler reacts to operations flowing TAIL->HEAD.
type OutboundHandler interface {
	Handler
	Bind(ctx HandlerContext, local any, promise Promise)
	Connect(ctx HandlerContext, remote, local any, promise Promise)
	Disconnect(ctx HandlerContext, promise Promise)
	Close(ctx HandlerContext, promise Promise)
	Deregister(ctx HandlerContext, promise Promise)
	Read(ctx HandlerContext)
	Write(ctx HandlerContext, msg any, promise Promise)
	Flush(ctx HandlerContext)
}

// HandlerContext is a handler's view of the channel and its position in
// the pipeline: name, capability bits, assigned executor, and the fire*/
// write/flush entry points that continue propagation to the next
// participating context. Spec.md §3/§4.F.
type HandlerContext interface {
	Name() string
	Handler() Handler
	Channel() Channel
	Pipeline() ChannelPipeline
	Executor() EventExecutor

	FireChannelRegistered() HandlerContext
	FireChannelUnregistered() HandlerContext
	FireChannelActive() HandlerContext
	FireChannelInactive() HandlerContext
	FireChannelRead(msg any) HandlerContext
	FireChannelReadComplete() HandlerContext
	FireChannelWritabilityChanged() HandlerContext
	FireUserEventTriggered(evt any) HandlerContext
	FireExceptionCaught(cause error) HandlerContext

	Bind(local any) Future
	Connect(remote, local any) Future
	Disconnect() Future
	Close() Future
	Deregister() Future
	Read() HandlerContext
	Write(msg any) Future
	Flush() HandlerContext
	WriteAndFlush(msg any) Future
}

// ChannelPipeline is the per-channel doubly-linked chain of contexts of
// spec.md §4.F.
type ChannelPipeline interface {
	AddFirst(name string, h Handler) ChannelPipeline
	AddLast(name string, h Handler) ChannelPipeline
	AddBefore(baseName, name string, h Handler) ChannelPipeline
	AddAfter(baseName, name string, h Handler) ChannelPipeline
	AddLastWithExecutor(name string, executor EventExecutor, h Handler) ChannelPipeline

	Remove(h Handler) ChannelPipeline
	RemoveByName(name string) Handler
	Replace(oldName, newName string, h Handler) Handler

	Get(name string) Handler
	Context(h Handler) HandlerContext
	ContextByName(name string) HandlerContext
	FirstContext() HandlerContext
	LastContext() HandlerContext

	FireChannelRegistered() ChannelPipeline
	FireChannelUnregistered() ChannelPipeline
	FireChannelActive() ChannelPipeline
	FireChannelInactive() ChannelPipeline
	FireChannelRead(msg any) ChannelPipeline
	FireChannelReadComplete() ChannelPipeline
	FireChannelWritabilityChanged() ChannelPipeline
	FireUserEventTriggered(evt any) ChannelPipeline
	FireExceptionCaught(cause error) ChannelPipeline

	Bind(local any) Future
	Connect(remote, local any) Future
	Disconnect() Future
	Close() Future
	Deregister() Future
	Read() ChannelPipeline
	Write(msg any) Future
	Flush() ChannelPipeline
	WriteAndFlush(msg any) Future

	Channel() Channel
}

// ChannelInitializer is the one-shot pipeline-population hook of spec.md
// §4.F: InitChannel runs exactly once, then the initializer removes
// itself.
type ChannelInitializer interface {
	InitChannel(ch Channel) error
}
