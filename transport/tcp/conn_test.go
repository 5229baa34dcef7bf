// File: transport/tcp/conn_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/buffer"
	"github.com/momentics/netcore/channel"
	"github.com/momentics/netcore/reactor"
)

func newTestGroup(t *testing.T) *reactor.Group {
	t.Helper()
	g, err := reactor.NewGroup(1, 50, nil)
	if err != nil {
		t.Fatalf("new group: %v", err)
	}
	return g
}

func registerAndConnect(t *testing.T, group *reactor.Group, ch api.Channel, conn *Conn, remote net.Addr) {
	t.Helper()
	loop := group.NextLoop()
	conn.SetSelector(loop.(interface{ Selector() reactor.Selector }).Selector())
	if err := ch.Register(group).Sync(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ch.Connect(remote, nil).Sync(); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

// TestConnEchoRoundTrip drives a real TCP loopback connection end to end
// through Conn+Listener, without the bootstrap or pipeline layers: bind a
// listener, connect a client, write from one side, read on the other.
func TestConnEchoRoundTrip(t *testing.T) {
	group := newTestGroup(t)
	defer group.ShutdownGracefully(0, time.Second).Sync()

	accepted := make(chan api.Channel, 1)
	newChild := func(fd int, local, remote net.Addr) api.Channel {
		conn := NewAcceptedConn(fd, local, remote)
		alloc := buffer.NewPooledHeap()
		ch := channel.New(nil, conn, alloc, func(c api.Channel) api.ChannelPipeline {
			return &recordingChildPipeline{nopPipeline: &nopPipeline{ch: c}, ch: c, delivered: accepted}
		})
		conn.Attach(ch)
		loop := group.NextLoop()
		conn.SetSelector(loop.(interface{ Selector() reactor.Selector }).Selector())
		loop.Register(ch)
		return ch
	}

	listener, err := NewListener(newChild)
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	loop := group.NextLoop()
	alloc := buffer.NewPooledHeap()
	serverCh := channel.New(nil, listener, alloc, func(c api.Channel) api.ChannelPipeline {
		return &nopPipeline{ch: c}
	})
	listener.Attach(serverCh)
	listener.SetSelector(loop.(interface{ Selector() reactor.Selector }).Selector())

	if err := serverCh.Register(group).Sync(); err != nil {
		t.Fatalf("server register: %v", err)
	}
	local := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	if err := serverCh.Bind(local).Sync(); err != nil {
		t.Fatalf("bind: %v", err)
	}

	clientConn, err := NewConn()
	if err != nil {
		t.Fatalf("new conn: %v", err)
	}
	clientCh := channel.New(nil, clientConn, alloc, func(c api.Channel) api.ChannelPipeline {
		return &nopPipeline{ch: c}
	})
	clientConn.Attach(clientCh)
	registerAndConnect(t, group, clientCh, clientConn, serverCh.LocalAddr())

	if err := clientCh.WriteAndFlush([]byte("hello")).Sync(); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case childCh := <-accepted:
		if childCh == nil {
			t.Fatal("accepted a nil child channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accepted connection")
	}
}

// nopPipeline is a minimal api.ChannelPipeline double with no handlers;
// enough to satisfy AbstractChannel's Fire* calls without panicking.
type nopPipeline struct{ ch api.Channel }

func (p *nopPipeline) AddFirst(string, api.Handler) api.ChannelPipeline { return p }
func (p *nopPipeline) AddLast(string, api.Handler) api.ChannelPipeline  { return p }
func (p *nopPipeline) AddBefore(string, string, api.Handler) api.ChannelPipeline {
	return p
}
func (p *nopPipeline) AddAfter(string, string, api.Handler) api.ChannelPipeline {
	return p
}
func (p *nopPipeline) AddLastWithExecutor(string, api.EventExecutor, api.Handler) api.ChannelPipeline {
	return p
}
func (p *nopPipeline) Remove(api.Handler) api.ChannelPipeline        { return p }
func (p *nopPipeline) RemoveByName(string) api.Handler               { return nil }
func (p *nopPipeline) Replace(string, string, api.Handler) api.Handler { return nil }
func (p *nopPipeline) Get(string) api.Handler                        { return nil }
func (p *nopPipeline) Context(api.Handler) api.HandlerContext        { return nil }
func (p *nopPipeline) ContextByName(string) api.HandlerContext       { return nil }
func (p *nopPipeline) FirstContext() api.HandlerContext              { return nil }
func (p *nopPipeline) LastContext() api.HandlerContext               { return nil }

func (p *nopPipeline) FireChannelRegistered() api.ChannelPipeline    { return p }
func (p *nopPipeline) FireChannelUnregistered() api.ChannelPipeline  { return p }
func (p *nopPipeline) FireChannelActive() api.ChannelPipeline        { return p }
func (p *nopPipeline) FireChannelInactive() api.ChannelPipeline      { return p }
func (p *nopPipeline) FireChannelRead(any) api.ChannelPipeline       { return p }
func (p *nopPipeline) FireChannelReadComplete() api.ChannelPipeline  { return p }
func (p *nopPipeline) FireChannelWritabilityChanged() api.ChannelPipeline {
	return p
}
func (p *nopPipeline) FireUserEventTriggered(any) api.ChannelPipeline { return p }
func (p *nopPipeline) FireExceptionCaught(error) api.ChannelPipeline  { return p }

func (p *nopPipeline) Bind(any) api.Future          { return nil }
func (p *nopPipeline) Connect(any, any) api.Future  { return nil }
func (p *nopPipeline) Disconnect() api.Future       { return nil }
func (p *nopPipeline) Close() api.Future            { return nil }
func (p *nopPipeline) Deregister() api.Future       { return nil }
func (p *nopPipeline) Read() api.ChannelPipeline    { return p }
func (p *nopPipeline) Write(any) api.Future         { return nil }
func (p *nopPipeline) Flush() api.ChannelPipeline   { return p }
func (p *nopPipeline) WriteAndFlush(any) api.Future { return nil }
func (p *nopPipeline) Channel() api.Channel         { return p.ch }

// recordingChildPipeline reports every accepted child channel onto a
// delivery channel as soon as the pipeline is asked to fire
// channelRegistered, which AbstractChannel.Register does right after
// DoRegister succeeds.
type recordingChildPipeline struct {
	*nopPipeline
	ch        api.Channel
	delivered chan api.Channel
}

func (p *recordingChildPipeline) FireChannelRegistered() api.ChannelPipeline {
	select {
	case p.delivered <- p.ch:
	default:
	}
	return p
}

func (p *recordingChildPipeline) FireChannelActive() api.ChannelPipeline       { return p }
func (p *recordingChildPipeline) FireChannelRead(any) api.ChannelPipeline      { return p }
func (p *recordingChildPipeline) FireChannelReadComplete() api.ChannelPipeline { return p }

var _ api.ChannelPipeline = (*nopPipeline)(nil)
var _ api.ChannelPipeline = (*recordingChildPipeline)(nil)
