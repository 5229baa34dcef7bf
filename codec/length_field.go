// File: codec/length_field.go
// Package codec supplies length-prefix framing handlers for the pipeline,
// grounded on spec.md §4.F's handler model; each handler type-asserts the
// messages it handles itself and forwards the rest.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"encoding/binary"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
)

// LengthFieldFramer is an inbound handler that accumulates raw api.Buffer
// reads until a complete frame (a fixed-width big-endian length prefix
// followed by that many bytes of payload) is available, then emits the
// payload alone and discards the prefix. Partial frames are held across
// multiple ChannelRead calls.
type LengthFieldFramer struct {
	lengthFieldBytes int
	maxFrameLength   int

	pending api.Buffer
}

// NewLengthFieldFramer builds a framer whose length prefix is
// lengthFieldBytes wide (1, 2, 4, or 8) and rejects any frame whose
// declared length exceeds maxFrameLength.
func NewLengthFieldFramer(lengthFieldBytes, maxFrameLength int) *LengthFieldFramer {
	return &LengthFieldFramer{lengthFieldBytes: lengthFieldBytes, maxFrameLength: maxFrameLength}
}

func (*LengthFieldFramer) Capabilities() api.HandlerCapability { return api.CapInbound }
func (*LengthFieldFramer) HandlerAdded(api.HandlerContext)       {}

func (f *LengthFieldFramer) HandlerRemoved(api.HandlerContext) {
	if f.pending != nil {
		f.pending.Release()
		f.pending = nil
	}
}

func (f *LengthFieldFramer) ChannelRegistered(ctx api.HandlerContext)   { ctx.FireChannelRegistered() }
func (f *LengthFieldFramer) ChannelUnregistered(ctx api.HandlerContext) { ctx.FireChannelUnregistered() }
func (f *LengthFieldFramer) ChannelActive(ctx api.HandlerContext)      { ctx.FireChannelActive() }
func (f *LengthFieldFramer) ChannelInactive(ctx api.HandlerContext)    { ctx.FireChannelInactive() }
func (f *LengthFieldFramer) ChannelReadComplete(ctx api.HandlerContext) { ctx.FireChannelReadComplete() }
func (f *LengthFieldFramer) ChannelWritabilityChanged(ctx api.HandlerContext) {
	ctx.FireChannelWritabilityChanged()
}
func (f *LengthFieldFramer) UserEventTriggered(ctx api.HandlerContext, evt any) {
	ctx.FireUserEventTriggered(evt)
}
func (f *LengthFieldFramer) ExceptionCaught(ctx api.HandlerContext, cause error) {
	ctx.FireExceptionCaught(cause)
}

func (f *LengthFieldFramer) ChannelRead(ctx api.HandlerContext, msg any) {
	in, ok := msg.(api.Buffer)
	if !ok {
		ctx.FireChannelRead(msg)
		return
	}
	defer in.Release()

	if f.pending == nil {
		f.pending = ctx.Channel().Allocator().HeapBuffer(in.ReadableBytes())
	}
	if _, err := f.pending.WriteBytes(in.Bytes()); err != nil {
		// Grow by copying into a larger buffer; WriteBytes fails only when
		// the destination can't hold the incoming bytes.
		grown := ctx.Channel().Allocator().HeapBuffer(f.pending.ReadableBytes() + in.ReadableBytes())
		grown.WriteBytes(f.pending.Bytes())
		grown.WriteBytes(in.Bytes())
		f.pending.Release()
		f.pending = grown
	}

	for {
		frame, ok := f.tryExtractFrame(ctx)
		if !ok {
			return
		}
		ctx.FireChannelRead(frame)
	}
}

// tryExtractFrame pulls one complete frame out of f.pending if enough
// bytes have accumulated, shifting any leftover bytes to the front of a
// fresh buffer for the next call.
func (f *LengthFieldFramer) tryExtractFrame(ctx api.HandlerContext) (api.Buffer, bool) {
	if f.pending == nil {
		return nil, false
	}
	avail := f.pending.ReadableBytes()
	if avail < f.lengthFieldBytes {
		return nil, false
	}
	raw := f.pending.Bytes()
	length := readLength(raw[:f.lengthFieldBytes], f.lengthFieldBytes)
	if length > f.maxFrameLength {
		ctx.FireExceptionCaught(errs.New(errs.KindDecoderException, "frame length exceeds maximum"))
		f.pending.Release()
		f.pending = nil
		return nil, false
	}
	total := f.lengthFieldBytes + length
	if avail < total {
		return nil, false
	}

	frame := ctx.Channel().Allocator().HeapBuffer(length)
	frame.WriteBytes(raw[f.lengthFieldBytes:total])

	remaining := avail - total
	if remaining == 0 {
		f.pending.Release()
		f.pending = nil
	} else {
		rest := ctx.Channel().Allocator().HeapBuffer(remaining)
		rest.WriteBytes(raw[total:avail])
		f.pending.Release()
		f.pending = rest
	}
	return frame, true
}

func readLength(b []byte, width int) int {
	switch width {
	case 1:
		return int(b[0])
	case 2:
		return int(binary.BigEndian.Uint16(b))
	case 4:
		return int(binary.BigEndian.Uint32(b))
	default:
		return int(binary.BigEndian.Uint64(b))
	}
}

func writeLength(b []byte, width, length int) {
	switch width {
	case 1:
		b[0] = byte(length)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(length))
	case 4:
		binary.BigEndian.PutUint32(b, uint32(length))
	default:
		binary.BigEndian.PutUint64(b, uint64(length))
	}
}

var _ api.InboundHandler = (*LengthFieldFramer)(nil)

// LengthFieldPrepender is the outbound counterpart: it prefixes every
// outgoing []byte/api.Buffer with its length, encoded the same way the
// framer expects to decode it.
type LengthFieldPrepender struct {
	lengthFieldBytes int
}

func NewLengthFieldPrepender(lengthFieldBytes int) *LengthFieldPrepender {
	return &LengthFieldPrepender{lengthFieldBytes: lengthFieldBytes}
}

func (*LengthFieldPrepender) Capabilities() api.HandlerCapability { return api.CapOutbound }
func (*LengthFieldPrepender) HandlerAdded(api.HandlerContext)       {}
func (*LengthFieldPrepender) HandlerRemoved(api.HandlerContext)     {}

func chain(f api.Future, promise api.Promise) {
	f.AddListener(func(f api.Future) {
		if f.IsSuccess() {
			promise.TrySuccess(f.Result())
		} else {
			promise.TryFailure(f.Cause())
		}
	})
}

func (p *LengthFieldPrepender) Bind(ctx api.HandlerContext, local any, promise api.Promise) {
	chain(ctx.Bind(local), promise)
}
func (p *LengthFieldPrepender) Connect(ctx api.HandlerContext, remote, local any, promise api.Promise) {
	chain(ctx.Connect(remote, local), promise)
}
func (p *LengthFieldPrepender) Disconnect(ctx api.HandlerContext, promise api.Promise) {
	chain(ctx.Disconnect(), promise)
}
func (p *LengthFieldPrepender) Close(ctx api.HandlerContext, promise api.Promise) {
	chain(ctx.Close(), promise)
}
func (p *LengthFieldPrepender) Deregister(ctx api.HandlerContext, promise api.Promise) {
	chain(ctx.Deregister(), promise)
}
func (p *LengthFieldPrepender) Read(ctx api.HandlerContext) { ctx.Read() }

func (p *LengthFieldPrepender) Write(ctx api.HandlerContext, msg any, promise api.Promise) {
	payload, ok := msg.(api.Buffer)
	if !ok {
		raw, ok := msg.([]byte)
		if !ok {
			ctx.Write(msg)
			return
		}
		payload = ctx.Channel().Allocator().HeapBuffer(len(raw))
		payload.WriteBytes(raw)
	}
	defer payload.Release()

	framed := ctx.Channel().Allocator().HeapBuffer(p.lengthFieldBytes + payload.ReadableBytes())
	header := make([]byte, p.lengthFieldBytes)
	writeLength(header, p.lengthFieldBytes, payload.ReadableBytes())
	framed.WriteBytes(header)
	framed.WriteBytes(payload.Bytes())
	chain(ctx.Write(framed), promise)
}

func (p *LengthFieldPrepender) Flush(ctx api.HandlerContext) { ctx.Flush() }

var _ api.OutboundHandler = (*LengthFieldPrepender)(nil)
