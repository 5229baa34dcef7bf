// File: reactor/eventloop_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package reactor

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/promise"
)

// fakeUnsafe/fakeChannel are minimal api.Channel/api.ChannelUnsafe doubles
// used to drive the reactor's dispatch routing without a real socket,
// grounded on the pack's fake transport test doubles.
type fakeUnsafe struct {
	ch          *fakeChannel
	reads       atomic.Int32
	flushes     atomic.Int32
	finishConns atomic.Int32
}

func (u *fakeUnsafe) Register(loop api.EventLoop, p api.Promise) { p.TrySuccess(nil) }
func (u *fakeUnsafe) Bind(net.Addr, api.Promise)                 {}
func (u *fakeUnsafe) Connect(net.Addr, net.Addr, api.Promise)    {}
func (u *fakeUnsafe) FinishConnect()                             { u.finishConns.Add(1) }
func (u *fakeUnsafe) Disconnect(api.Promise)                     {}
func (u *fakeUnsafe) Close(api.Promise)                          {}
func (u *fakeUnsafe) CloseForcibly()                             {}
func (u *fakeUnsafe) Deregister(api.Promise)                     {}
func (u *fakeUnsafe) BeginRead()                                 {}
func (u *fakeUnsafe) Write(any, api.Promise)                     {}
func (u *fakeUnsafe) Flush()                                     {}
func (u *fakeUnsafe) ForceFlush()                                { u.flushes.Add(1) }
func (u *fakeUnsafe) VoidPromise() api.Promise                   { return promise.New(nil) }
func (u *fakeUnsafe) OutboundBuffer() api.ChannelOutboundBuffer  { return nil }
func (u *fakeUnsafe) FD() uintptr                                { return u.ch.fd }
func (u *fakeUnsafe) DoReadLoop()                                { u.reads.Add(1) }

type fakeChannel struct {
	fd uintptr
	u  *fakeUnsafe
}

func newFakeChannel(fd uintptr) *fakeChannel {
	c := &fakeChannel{fd: fd}
	c.u = &fakeUnsafe{ch: c}
	return c
}

func (c *fakeChannel) ID() api.ChannelID                     { return api.ChannelID(c.fd) }
func (c *fakeChannel) Parent() api.Channel                   { return nil }
func (c *fakeChannel) Config() api.ChannelConfig             { return nil }
func (c *fakeChannel) Pipeline() api.ChannelPipeline         { return nil }
func (c *fakeChannel) Allocator() api.BufferAllocator        { return nil }
func (c *fakeChannel) EventLoop() api.EventLoop              { return nil }
func (c *fakeChannel) LocalAddr() net.Addr                   { return nil }
func (c *fakeChannel) RemoteAddr() net.Addr                  { return nil }
func (c *fakeChannel) IsOpen() bool                          { return true }
func (c *fakeChannel) IsRegistered() bool                    { return true }
func (c *fakeChannel) IsActive() bool                        { return true }
func (c *fakeChannel) IsWritable() bool                      { return true }
func (c *fakeChannel) Register(api.EventLoopGroup) api.Future { return promise.New(nil) }
func (c *fakeChannel) Bind(net.Addr) api.Future               { return promise.New(nil) }
func (c *fakeChannel) Connect(net.Addr, net.Addr) api.Future  { return promise.New(nil) }
func (c *fakeChannel) Disconnect() api.Future                 { return promise.New(nil) }
func (c *fakeChannel) Close() api.Future                      { return promise.New(nil) }
func (c *fakeChannel) Deregister() api.Future                 { return promise.New(nil) }
func (c *fakeChannel) Read() api.Channel                      { return c }
func (c *fakeChannel) Write(any) api.Future                   { return promise.New(nil) }
func (c *fakeChannel) Flush() api.Channel                     { return c }
func (c *fakeChannel) WriteAndFlush(any) api.Future           { return promise.New(nil) }
func (c *fakeChannel) Unsafe() api.ChannelUnsafe              { return c.u }

func TestEventLoopDispatchesReadyEvents(t *testing.T) {
	sel := NewFakeSelector()
	loop := NewEventLoop("test", sel, 50)
	defer loop.ShutdownGracefully(0, 100*time.Millisecond)

	ch := newFakeChannel(42)
	key, err := sel.Register(ch.fd, OpRead, api.Channel(ch))
	if err != nil {
		t.Fatal(err)
	}
	_ = key

	sel.Fire(42, OpRead)

	deadline := time.After(time.Second)
	for ch.u.reads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for read dispatch")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestEventLoopExecuteRunsOnWorker(t *testing.T) {
	sel := NewFakeSelector()
	loop := NewEventLoop("test2", sel, 50)
	defer loop.ShutdownGracefully(0, 100*time.Millisecond)

	done := make(chan bool, 1)
	loop.Execute(func() {
		done <- loop.InEventLoop()
	})
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("task should observe InEventLoop() true")
		}
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}
