// File: codec/length_field_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"net"
	"testing"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/buffer"
)

// recordingCtx is a minimal api.HandlerContext double sufficient to drive
// LengthFieldFramer: it only needs Channel() (for the allocator) and
// FireChannelRead (to capture emitted frames).
type recordingCtx struct {
	ch     api.Channel
	frames []api.Buffer
	errs   []error
}

func (c *recordingCtx) Name() string                 { return "framer" }
func (c *recordingCtx) Handler() api.Handler          { return nil }
func (c *recordingCtx) Channel() api.Channel          { return c.ch }
func (c *recordingCtx) Pipeline() api.ChannelPipeline { return nil }
func (c *recordingCtx) Executor() api.EventExecutor   { return nil }

func (c *recordingCtx) FireChannelRegistered() api.HandlerContext   { return c }
func (c *recordingCtx) FireChannelUnregistered() api.HandlerContext { return c }
func (c *recordingCtx) FireChannelActive() api.HandlerContext       { return c }
func (c *recordingCtx) FireChannelInactive() api.HandlerContext     { return c }
func (c *recordingCtx) FireChannelRead(msg any) api.HandlerContext {
	c.frames = append(c.frames, msg.(api.Buffer))
	return c
}
func (c *recordingCtx) FireChannelReadComplete() api.HandlerContext       { return c }
func (c *recordingCtx) FireChannelWritabilityChanged() api.HandlerContext { return c }
func (c *recordingCtx) FireUserEventTriggered(any) api.HandlerContext    { return c }
func (c *recordingCtx) FireExceptionCaught(cause error) api.HandlerContext {
	c.errs = append(c.errs, cause)
	return c
}

func (c *recordingCtx) Bind(any) api.Future          { return nil }
func (c *recordingCtx) Connect(any, any) api.Future  { return nil }
func (c *recordingCtx) Disconnect() api.Future       { return nil }
func (c *recordingCtx) Close() api.Future            { return nil }
func (c *recordingCtx) Deregister() api.Future       { return nil }
func (c *recordingCtx) Read() api.HandlerContext     { return c }
func (c *recordingCtx) Write(any) api.Future         { return nil }
func (c *recordingCtx) Flush() api.HandlerContext    { return c }
func (c *recordingCtx) WriteAndFlush(any) api.Future { return nil }

type simpleChannel struct{ alloc api.BufferAllocator }

func (m *simpleChannel) ID() api.ChannelID             { return 1 }
func (m *simpleChannel) Parent() api.Channel           { return nil }
func (m *simpleChannel) Config() api.ChannelConfig     { return nil }
func (m *simpleChannel) Pipeline() api.ChannelPipeline { return nil }
func (m *simpleChannel) Allocator() api.BufferAllocator { return m.alloc }
func (m *simpleChannel) EventLoop() api.EventLoop      { return nil }
func (m *simpleChannel) LocalAddr() net.Addr           { return nil }
func (m *simpleChannel) RemoteAddr() net.Addr          { return nil }
func (m *simpleChannel) IsOpen() bool                  { return true }
func (m *simpleChannel) IsRegistered() bool            { return true }
func (m *simpleChannel) IsActive() bool                { return true }
func (m *simpleChannel) IsWritable() bool              { return true }
func (m *simpleChannel) Register(api.EventLoopGroup) api.Future { return nil }
func (m *simpleChannel) Bind(net.Addr) api.Future               { return nil }
func (m *simpleChannel) Connect(net.Addr, net.Addr) api.Future  { return nil }
func (m *simpleChannel) Disconnect() api.Future                 { return nil }
func (m *simpleChannel) Close() api.Future                      { return nil }
func (m *simpleChannel) Deregister() api.Future                 { return nil }
func (m *simpleChannel) Read() api.Channel                      { return m }
func (m *simpleChannel) Write(any) api.Future                   { return nil }
func (m *simpleChannel) Flush() api.Channel                     { return m }
func (m *simpleChannel) WriteAndFlush(any) api.Future           { return nil }
func (m *simpleChannel) Unsafe() api.ChannelUnsafe               { return nil }

var _ api.Channel = (*simpleChannel)(nil)

func newRecordingCtx() *recordingCtx {
	return &recordingCtx{ch: &simpleChannel{alloc: buffer.NewPooledHeap()}}
}

func TestLengthFieldFramerSplitsAcrossReads(t *testing.T) {
	f := NewLengthFieldFramer(2, 1024)
	ctx := newRecordingCtx()

	alloc := ctx.ch.Allocator()
	payload := []byte("hello world")
	header := []byte{0, byte(len(payload))}

	part1 := alloc.HeapBuffer(len(header) + 3)
	part1.WriteBytes(header)
	part1.WriteBytes(payload[:3])

	part2 := alloc.HeapBuffer(len(payload) - 3)
	part2.WriteBytes(payload[3:])

	f.ChannelRead(ctx, part1)
	if len(ctx.frames) != 0 {
		t.Fatalf("expected no complete frame yet, got %d", len(ctx.frames))
	}
	f.ChannelRead(ctx, part2)
	if len(ctx.frames) != 1 {
		t.Fatalf("expected exactly one complete frame, got %d", len(ctx.frames))
	}
	if string(ctx.frames[0].Bytes()) != string(payload) {
		t.Fatalf("frame payload mismatch: %q", ctx.frames[0].Bytes())
	}
}

func TestLengthFieldFramerRejectsOversizedFrame(t *testing.T) {
	f := NewLengthFieldFramer(2, 4)
	ctx := newRecordingCtx()
	alloc := ctx.ch.Allocator()

	buf := alloc.HeapBuffer(7)
	buf.WriteBytes([]byte{0, 5})
	buf.WriteBytes([]byte("hello"))

	f.ChannelRead(ctx, buf)
	if len(ctx.errs) != 1 {
		t.Fatalf("expected one decoder exception, got %d", len(ctx.errs))
	}
}
