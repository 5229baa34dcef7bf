// File: pipeline/pipeline_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pipeline

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/buffer"
	"github.com/momentics/netcore/errs"
	"github.com/momentics/netcore/promise"
	"github.com/momentics/netcore/reactor"
)

type fakeUnsafe struct {
	mu       sync.Mutex
	closed   bool
	written  []any
	flushes  int
	reads    int
}

func (u *fakeUnsafe) Register(api.EventLoop, api.Promise)      {}
func (u *fakeUnsafe) Bind(net.Addr, api.Promise)               {}
func (u *fakeUnsafe) Connect(net.Addr, net.Addr, api.Promise)  {}
func (u *fakeUnsafe) FinishConnect()                           {}
func (u *fakeUnsafe) Disconnect(api.Promise)                   {}
func (u *fakeUnsafe) Close(p api.Promise) {
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()
	p.TrySuccess(nil)
}
func (u *fakeUnsafe) CloseForcibly()            {}
func (u *fakeUnsafe) Deregister(p api.Promise)  { p.TrySuccess(nil) }
func (u *fakeUnsafe) BeginRead()                { u.mu.Lock(); u.reads++; u.mu.Unlock() }
func (u *fakeUnsafe) Write(msg any, p api.Promise) {
	u.mu.Lock()
	u.written = append(u.written, msg)
	u.mu.Unlock()
	p.TrySuccess(nil)
}
func (u *fakeUnsafe) Flush()                                    { u.mu.Lock(); u.flushes++; u.mu.Unlock() }
func (u *fakeUnsafe) ForceFlush()                               {}
func (u *fakeUnsafe) VoidPromise() api.Promise                  { return promise.New(nil) }
func (u *fakeUnsafe) OutboundBuffer() api.ChannelOutboundBuffer { return nil }
func (u *fakeUnsafe) FD() uintptr                                { return 1 }
func (u *fakeUnsafe) DoReadLoop()                                {}

type fakeChannel struct {
	loop api.EventLoop
	pipe api.ChannelPipeline
	u    *fakeUnsafe
}

func newFakeChannel(loop api.EventLoop) *fakeChannel {
	c := &fakeChannel{loop: loop, u: &fakeUnsafe{}}
	return c
}

func (c *fakeChannel) ID() api.ChannelID                      { return 1 }
func (c *fakeChannel) Parent() api.Channel                    { return nil }
func (c *fakeChannel) Config() api.ChannelConfig              { return nil }
func (c *fakeChannel) Pipeline() api.ChannelPipeline          { return c.pipe }
func (c *fakeChannel) Allocator() api.BufferAllocator         { return buffer.NewPooledHeap() }
func (c *fakeChannel) EventLoop() api.EventLoop               { return c.loop }
func (c *fakeChannel) LocalAddr() net.Addr                    { return nil }
func (c *fakeChannel) RemoteAddr() net.Addr                   { return nil }
func (c *fakeChannel) IsOpen() bool                           { return true }
func (c *fakeChannel) IsRegistered() bool                     { return true }
func (c *fakeChannel) IsActive() bool                         { return true }
func (c *fakeChannel) IsWritable() bool                       { return true }
func (c *fakeChannel) Register(api.EventLoopGroup) api.Future  { return promise.New(nil) }
func (c *fakeChannel) Bind(net.Addr) api.Future                { return c.pipe.Bind(nil) }
func (c *fakeChannel) Connect(net.Addr, net.Addr) api.Future   { return c.pipe.Connect(nil, nil) }
func (c *fakeChannel) Disconnect() api.Future                  { return c.pipe.Disconnect() }
func (c *fakeChannel) Close() api.Future                       { return c.pipe.Close() }
func (c *fakeChannel) Deregister() api.Future                  { return c.pipe.Deregister() }
func (c *fakeChannel) Read() api.Channel                       { c.pipe.Read(); return c }
func (c *fakeChannel) Write(msg any) api.Future                { return c.pipe.Write(msg) }
func (c *fakeChannel) Flush() api.Channel                      { c.pipe.Flush(); return c }
func (c *fakeChannel) WriteAndFlush(msg any) api.Future        { return c.pipe.WriteAndFlush(msg) }
func (c *fakeChannel) Unsafe() api.ChannelUnsafe                { return c.u }

func newTestPipeline() (*fakeChannel, *DefaultChannelPipeline) {
	loop := reactor.NewEventLoop("test", reactor.NewFakeSelector(), 50)
	ch := newFakeChannel(loop)
	p := New(ch)
	ch.pipe = p
	return ch, p
}

// recordingInbound records every inbound event it sees, in order, then
// always passes the event along.
type recordingInbound struct {
	name   string
	mu     *sync.Mutex
	events *[]string
}

func (h *recordingInbound) Capabilities() api.HandlerCapability { return api.CapInbound }
func (h *recordingInbound) HandlerAdded(api.HandlerContext)       {}
func (h *recordingInbound) HandlerRemoved(api.HandlerContext)     {}
func (h *recordingInbound) record(e string) {
	h.mu.Lock()
	*h.events = append(*h.events, h.name+":"+e)
	h.mu.Unlock()
}
func (h *recordingInbound) ChannelRegistered(ctx api.HandlerContext) {
	h.record("registered")
	ctx.FireChannelRegistered()
}
func (h *recordingInbound) ChannelUnregistered(ctx api.HandlerContext) { ctx.FireChannelUnregistered() }
func (h *recordingInbound) ChannelActive(ctx api.HandlerContext)      { ctx.FireChannelActive() }
func (h *recordingInbound) ChannelInactive(ctx api.HandlerContext)    { ctx.FireChannelInactive() }
func (h *recordingInbound) ChannelRead(ctx api.HandlerContext, msg any) {
	h.record("read")
	ctx.FireChannelRead(msg)
}
func (h *recordingInbound) ChannelReadComplete(ctx api.HandlerContext) { ctx.FireChannelReadComplete() }
func (h *recordingInbound) ChannelWritabilityChanged(ctx api.HandlerContext) {
	ctx.FireChannelWritabilityChanged()
}
func (h *recordingInbound) UserEventTriggered(ctx api.HandlerContext, evt any) {
	ctx.FireUserEventTriggered(evt)
}
func (h *recordingInbound) ExceptionCaught(ctx api.HandlerContext, cause error) {
	h.record("exception")
	ctx.FireExceptionCaught(cause)
}

var _ api.InboundHandler = (*recordingInbound)(nil)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition never became true")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestInboundPropagationOrderHeadToTail(t *testing.T) {
	ch, p := newTestPipeline()
	var mu sync.Mutex
	var events []string
	p.AddLast("a", &recordingInbound{name: "a", mu: &mu, events: &events})
	p.AddLast("b", &recordingInbound{name: "b", mu: &mu, events: &events})

	p.FireChannelRegistered()
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	})
	if events[0] != "a:registered" || events[1] != "b:registered" {
		t.Fatalf("expected a then b, got %v", events)
	}
	_ = ch
}

func TestOutboundWriteReachesHeadUnsafe(t *testing.T) {
	ch, p := newTestPipeline()
	f := p.Write([]byte("hello"))
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(ch.u.written) == 1 })
	p.Flush()
	waitFor(t, func() bool { return ch.u.flushes >= 1 })
}

func TestExceptionFunnelReachesTailAndCloses(t *testing.T) {
	ch, p := newTestPipeline()
	p.FireExceptionCaught(errs.New(errs.KindIO, "boom"))
	waitFor(t, func() bool {
		ch.u.mu.Lock()
		defer ch.u.mu.Unlock()
		return ch.u.closed
	})
}

func TestSimpleInboundHandlerMatchesTypeOnly(t *testing.T) {
	ch, p := newTestPipeline()
	var got []byte
	matched := make(chan struct{}, 1)
	p.AddLast("typed", NewSimpleInboundHandler(func(ctx api.HandlerContext, msg []byte) {
		got = msg
		matched <- struct{}{}
	}))

	p.FireChannelRead("not a []byte")
	p.FireChannelRead([]byte("typed payload"))

	select {
	case <-matched:
	case <-time.After(time.Second):
		t.Fatal("typed handler never matched")
	}
	if string(got) != "typed payload" {
		t.Fatalf("unexpected payload: %q", got)
	}
	_ = ch
}

func TestInitializerRunsOnceAndSelfRemoves(t *testing.T) {
	ch, p := newTestPipeline()
	var mu sync.Mutex
	var events []string
	calls := 0
	init := channelInitFunc(func(c api.Channel) error {
		calls++
		p.AddLast("post-init", &recordingInbound{name: "post", mu: &mu, events: &events})
		return nil
	})
	p.AddLast("init", NewInitializerHandler(init))

	p.FireChannelRegistered()
	p.FireChannelRegistered()
	waitFor(t, func() bool { return p.Get("post-init") != nil })

	if calls != 1 {
		t.Fatalf("expected InitChannel to run exactly once, ran %d times", calls)
	}
	if p.Get("init") != nil {
		t.Fatal("initializer handler should have removed itself")
	}
	_ = ch
}

type channelInitFunc func(api.Channel) error

func (f channelInitFunc) InitChannel(ch api.Channel) error { return f(ch) }
