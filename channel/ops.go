// File: channel/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package channel

import "net"

// Ops is the transport-specific plug-in AbstractChannel delegates to: a
// concrete transport (transport/tcp.Conn, a pipe, an in-memory test
// double) implements this instead of duplicating the state machine,
// connect protocol, or write-buffer bookkeeping that AbstractChannel
// already provides. Mirrors spec.md §4.E's split between the portable
// channel contract and the platform-specific unsafe internals.
type Ops interface {
	FD() uintptr
	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	// DoRegister arms the fd with the owning reactor's selector.
	DoRegister() error
	DoBind(local net.Addr) error
	// DoConnect initiates a non-blocking connect. finished is true when the
	// connection completed synchronously (e.g. loopback); otherwise the
	// reactor will report OP_CONNECT readiness and FinishConnect follows.
	DoConnect(remote, local net.Addr) (finished bool, err error)
	DoFinishConnect() error
	DoDisconnect() error
	DoClose() error

	// DoBeginRead arms OP_READ interest.
	DoBeginRead() error
	// DoRead fills buf with at most one readiness-driven read. n is the
	// number of bytes read; err is io.EOF on peer half-close.
	DoRead(buf []byte) (n int, err error)

	// DoWrite attempts to fully write msg. Returns errs.ErrWouldBlock if
	// the socket buffer is full; the caller arms OP_WRITE and retries on
	// the next writability event.
	DoWrite(msg any) error
	DoRequestWriteInterest() error
	DoClearWriteInterest() error
}
