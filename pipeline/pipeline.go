// File: pipeline/pipeline.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
	"github.com/momentics/netcore/promise"
)

var errNoOutboundHandler = errs.New(errs.KindIllegalState, "no outbound handler in pipeline")

// DefaultChannelPipeline is api.ChannelPipeline: a doubly-linked chain
// bookended by a fixed HEAD (outbound sink, the unsafe bridge) and TAIL
// (inbound sink, default logging/cleanup), per spec.md §4.F.
type DefaultChannelPipeline struct {
	ch api.Channel

	mu    sync.RWMutex
	names map[string]*handlerContext
	head  *handlerContext
	tail  *handlerContext
}

// Option configures a DefaultChannelPipeline at construction.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	logger *zap.SugaredLogger
}

// WithLogger points the pipeline's tail handler (the exception/unhandled
// message funnel) at logger instead of the no-op default.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *pipelineOptions) { o.logger = logger }
}

// New builds a pipeline over ch with HEAD and TAIL already linked; callers
// add their own handlers between them via AddFirst/AddLast.
func New(ch api.Channel, opts ...Option) *DefaultChannelPipeline {
	o := &pipelineOptions{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(o)
	}
	p := &DefaultChannelPipeline{ch: ch, names: make(map[string]*handlerContext)}
	head := &handlerContext{name: "head", handler: newHeadHandler(), pipeline: p}
	tail := &handlerContext{name: "tail", handler: newTailHandler(o.logger), pipeline: p}
	head.caps = head.handler.Capabilities()
	tail.caps = tail.handler.Capabilities()
	head.next = tail
	tail.prev = head
	p.head = head
	p.tail = tail
	p.names["head"] = head
	p.names["tail"] = tail
	return p
}

func (p *DefaultChannelPipeline) newPromise() api.Promise { return promise.New(p.ch.EventLoop()) }

func (p *DefaultChannelPipeline) newContext(name string, h api.Handler) *handlerContext {
	return &handlerContext{name: name, handler: h, caps: h.Capabilities(), pipeline: p}
}

func (p *DefaultChannelPipeline) AddFirst(name string, h api.Handler) api.ChannelPipeline {
	p.mu.Lock()
	if _, exists := p.names[name]; exists {
		p.mu.Unlock()
		panic(errs.New(errs.KindIllegalState, "duplicate handler name: "+name))
	}
	ctx := p.newContext(name, h)
	after := p.head
	before := after.next
	ctx.prev, ctx.next = after, before
	after.next, before.prev = ctx, ctx
	p.names[name] = ctx
	p.mu.Unlock()
	h.HandlerAdded(ctx)
	return p
}

func (p *DefaultChannelPipeline) AddLast(name string, h api.Handler) api.ChannelPipeline {
	p.mu.Lock()
	if _, exists := p.names[name]; exists {
		p.mu.Unlock()
		panic(errs.New(errs.KindIllegalState, "duplicate handler name: "+name))
	}
	ctx := p.newContext(name, h)
	before := p.tail
	after := before.prev
	ctx.prev, ctx.next = after, before
	after.next, before.prev = ctx, ctx
	p.names[name] = ctx
	p.mu.Unlock()
	h.HandlerAdded(ctx)
	return p
}

func (p *DefaultChannelPipeline) AddLastWithExecutor(name string, executor api.EventExecutor, h api.Handler) api.ChannelPipeline {
	p.mu.Lock()
	if _, exists := p.names[name]; exists {
		p.mu.Unlock()
		panic(errs.New(errs.KindIllegalState, "duplicate handler name: "+name))
	}
	ctx := p.newContext(name, h)
	ctx.executor = executor
	before := p.tail
	after := before.prev
	ctx.prev, ctx.next = after, before
	after.next, before.prev = ctx, ctx
	p.names[name] = ctx
	p.mu.Unlock()
	h.HandlerAdded(ctx)
	return p
}

func (p *DefaultChannelPipeline) AddBefore(baseName, name string, h api.Handler) api.ChannelPipeline {
	p.mu.Lock()
	base, ok := p.names[baseName]
	if !ok {
		p.mu.Unlock()
		panic(errs.New(errs.KindIllegalState, "no such handler: "+baseName))
	}
	if _, exists := p.names[name]; exists {
		p.mu.Unlock()
		panic(errs.New(errs.KindIllegalState, "duplicate handler name: "+name))
	}
	ctx := p.newContext(name, h)
	after := base.prev
	ctx.prev, ctx.next = after, base
	after.next, base.prev = ctx, ctx
	p.names[name] = ctx
	p.mu.Unlock()
	h.HandlerAdded(ctx)
	return p
}

func (p *DefaultChannelPipeline) AddAfter(baseName, name string, h api.Handler) api.ChannelPipeline {
	p.mu.Lock()
	base, ok := p.names[baseName]
	if !ok {
		p.mu.Unlock()
		panic(errs.New(errs.KindIllegalState, "no such handler: "+baseName))
	}
	if _, exists := p.names[name]; exists {
		p.mu.Unlock()
		panic(errs.New(errs.KindIllegalState, "duplicate handler name: "+name))
	}
	ctx := p.newContext(name, h)
	before := base.next
	ctx.prev, ctx.next = base, before
	base.next, before.prev = ctx, ctx
	p.names[name] = ctx
	p.mu.Unlock()
	h.HandlerAdded(ctx)
	return p
}

func (p *DefaultChannelPipeline) unlink(ctx *handlerContext) {
	ctx.prev.next = ctx.next
	ctx.next.prev = ctx.prev
	delete(p.names, ctx.name)
}

func (p *DefaultChannelPipeline) Remove(h api.Handler) api.ChannelPipeline {
	p.mu.Lock()
	var target *handlerContext
	for _, ctx := range p.names {
		if ctx.handler == h {
			target = ctx
			break
		}
	}
	if target == nil {
		p.mu.Unlock()
		return p
	}
	p.unlink(target)
	p.mu.Unlock()
	h.HandlerRemoved(target)
	return p
}

func (p *DefaultChannelPipeline) RemoveByName(name string) api.Handler {
	p.mu.Lock()
	ctx, ok := p.names[name]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	p.unlink(ctx)
	p.mu.Unlock()
	ctx.handler.HandlerRemoved(ctx)
	return ctx.handler
}

func (p *DefaultChannelPipeline) Replace(oldName, newName string, h api.Handler) api.Handler {
	p.mu.Lock()
	old, ok := p.names[oldName]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	ctx := p.newContext(newName, h)
	ctx.prev, ctx.next = old.prev, old.next
	old.prev.next, old.next.prev = ctx, ctx
	delete(p.names, oldName)
	p.names[newName] = ctx
	p.mu.Unlock()
	old.handler.HandlerRemoved(old)
	h.HandlerAdded(ctx)
	return old.handler
}

func (p *DefaultChannelPipeline) Get(name string) api.Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ctx, ok := p.names[name]
	if !ok {
		return nil
	}
	return ctx.handler
}

func (p *DefaultChannelPipeline) Context(h api.Handler) api.HandlerContext {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ctx := range p.names {
		if ctx.handler == h {
			return ctx
		}
	}
	return nil
}

func (p *DefaultChannelPipeline) ContextByName(name string) api.HandlerContext {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ctx, ok := p.names[name]
	if !ok {
		return nil
	}
	return ctx
}

func (p *DefaultChannelPipeline) FirstContext() api.HandlerContext {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.head.next == p.tail {
		return nil
	}
	return p.head.next
}

func (p *DefaultChannelPipeline) LastContext() api.HandlerContext {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.tail.prev == p.head {
		return nil
	}
	return p.tail.prev
}

func (p *DefaultChannelPipeline) Channel() api.Channel { return p.ch }

func (p *DefaultChannelPipeline) FireChannelRegistered() api.ChannelPipeline {
	p.head.FireChannelRegistered()
	return p
}
func (p *DefaultChannelPipeline) FireChannelUnregistered() api.ChannelPipeline {
	p.head.FireChannelUnregistered()
	return p
}
func (p *DefaultChannelPipeline) FireChannelActive() api.ChannelPipeline {
	p.head.FireChannelActive()
	return p
}
func (p *DefaultChannelPipeline) FireChannelInactive() api.ChannelPipeline {
	p.head.FireChannelInactive()
	return p
}
func (p *DefaultChannelPipeline) FireChannelRead(msg any) api.ChannelPipeline {
	p.head.FireChannelRead(msg)
	return p
}
func (p *DefaultChannelPipeline) FireChannelReadComplete() api.ChannelPipeline {
	p.head.FireChannelReadComplete()
	return p
}
func (p *DefaultChannelPipeline) FireChannelWritabilityChanged() api.ChannelPipeline {
	p.head.FireChannelWritabilityChanged()
	return p
}
func (p *DefaultChannelPipeline) FireUserEventTriggered(evt any) api.ChannelPipeline {
	p.head.FireUserEventTriggered(evt)
	return p
}
func (p *DefaultChannelPipeline) FireExceptionCaught(cause error) api.ChannelPipeline {
	p.head.FireExceptionCaught(cause)
	return p
}

func (p *DefaultChannelPipeline) Bind(local any) api.Future         { return p.tail.Bind(local) }
func (p *DefaultChannelPipeline) Connect(remote, local any) api.Future { return p.tail.Connect(remote, local) }
func (p *DefaultChannelPipeline) Disconnect() api.Future            { return p.tail.Disconnect() }
func (p *DefaultChannelPipeline) Close() api.Future                 { return p.tail.Close() }
func (p *DefaultChannelPipeline) Deregister() api.Future            { return p.tail.Deregister() }
func (p *DefaultChannelPipeline) Read() api.ChannelPipeline          { p.tail.Read(); return p }
func (p *DefaultChannelPipeline) Write(msg any) api.Future          { return p.tail.Write(msg) }
func (p *DefaultChannelPipeline) Flush() api.ChannelPipeline        { p.tail.Flush(); return p }
func (p *DefaultChannelPipeline) WriteAndFlush(msg any) api.Future  { return p.tail.WriteAndFlush(msg) }

var _ api.ChannelPipeline = (*DefaultChannelPipeline)(nil)
