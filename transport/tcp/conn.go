// File: transport/tcp/conn.go
// Package tcp supplies the concrete channel.Ops implementation over raw,
// non-blocking TCP sockets, generalized from the pack's raw-fd transports
// (golang.org/x/sys/unix socket/connect/bind/read/write) into the Ops
// contract channel.AbstractChannel expects.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package tcp

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/netcore/channel"
	"github.com/momentics/netcore/errs"
	"github.com/momentics/netcore/reactor"
)

// Conn is a non-blocking TCP socket wrapped as a channel.Ops. It owns the
// fd and its reactor.SelectionKey once registered; every method is only
// ever called from the owning reactor goroutine, matching
// AbstractChannel's single-threaded-per-channel contract.
type Conn struct {
	fd  int
	sel reactor.Selector
	key *reactor.SelectionKey

	local  net.Addr
	remote net.Addr

	attachment any // the api.Channel the reactor dispatch loop routes events to
}

// NewConn creates a fresh non-blocking IPv4 TCP socket. Accepted
// connections use NewAcceptedConn instead, reusing an fd the kernel
// already created.
func NewConn() (*Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "socket create failed", err)
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &Conn{fd: fd}, nil
}

// NewAcceptedConn wraps an fd the kernel already created via accept(2),
// skipping the socket(2) call NewConn performs for outbound connections.
func NewAcceptedConn(fd int, local, remote net.Addr) *Conn {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &Conn{fd: fd, local: local, remote: remote}
}

// Attach records the api.Channel this Conn backs, so the reactor's
// dispatch loop can route readiness events for this fd back to it; the
// bootstrap wires this immediately after channel.New, before Register.
func (c *Conn) Attach(attachment any) { c.attachment = attachment }

// SetSelector pins the reactor.Selector this Conn registers with. The
// bootstrap picks the target EventLoop itself (so it can register the
// resulting channel directly on it) and hands the loop's Selector down
// here before calling EventLoop.Register, since Ops has no EventLoop
// handle of its own (spec.md §1 keeps Ops transport-only).
func (c *Conn) SetSelector(sel reactor.Selector) { c.sel = sel }

func (c *Conn) FD() uintptr          { return uintptr(c.fd) }
func (c *Conn) LocalAddr() net.Addr  { return c.local }
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// DoRegister arms the selector for this fd with no interest yet; read
// interest is requested explicitly via DoBeginRead once the channel goes
// active, per spec.md §4.E's "autoRead drives the initial interest" rule.
func (c *Conn) DoRegister() error {
	key, err := c.sel.Register(c.FD(), 0, c.attachment)
	if err != nil {
		return errs.Wrap(errs.KindIO, "selector register failed", err)
	}
	c.key = key
	return nil
}

func (c *Conn) DoBind(local net.Addr) error {
	tcpAddr, ok := local.(*net.TCPAddr)
	if !ok {
		return errs.New(errs.KindUnresolvedAddress, "local address is not a *net.TCPAddr")
	}
	sa, err := tcpAddrToSockaddr(tcpAddr)
	if err != nil {
		return errs.Wrap(errs.KindUnresolvedAddress, "local address resolution failed", err)
	}
	if err := unix.Bind(c.fd, sa); err != nil {
		return errs.Wrap(errs.KindIO, "bind failed", err)
	}
	c.local = local
	return nil
}

// DoConnect issues a non-blocking connect. finished=true means the
// connection completed synchronously (common for localhost); otherwise the
// caller arms OP_CONNECT and waits for DoFinishConnect.
func (c *Conn) DoConnect(remote, local net.Addr) (bool, error) {
	tcpAddr, ok := remote.(*net.TCPAddr)
	if !ok {
		return false, errs.New(errs.KindUnresolvedAddress, "remote address is not a *net.TCPAddr")
	}
	if local != nil {
		if err := c.DoBind(local); err != nil {
			return false, err
		}
	}
	sa, err := tcpAddrToSockaddr(tcpAddr)
	if err != nil {
		return false, errs.Wrap(errs.KindUnresolvedAddress, "remote address resolution failed", err)
	}
	c.remote = remote

	err = unix.Connect(c.fd, sa)
	if err == nil {
		return true, nil
	}
	if err == unix.EINPROGRESS {
		if c.key != nil {
			_ = c.sel.Modify(c.key, reactor.OpConnect)
		}
		return false, nil
	}
	if err == unix.ECONNREFUSED {
		return false, errs.Wrap(errs.KindConnectRefused, "connect refused", err)
	}
	return false, errs.Wrap(errs.KindIO, "connect failed", err)
}

func (c *Conn) DoFinishConnect() error {
	errno, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errs.Wrap(errs.KindIO, "SO_ERROR lookup failed", err)
	}
	if errno != 0 {
		e := unix.Errno(errno)
		if e == unix.ECONNREFUSED {
			return errs.Wrap(errs.KindConnectRefused, "connect refused", e)
		}
		return errs.Wrap(errs.KindIO, "connect failed", e)
	}
	if c.key != nil {
		_ = c.sel.Modify(c.key, 0)
	}
	return nil
}

func (c *Conn) DoDisconnect() error { return c.DoClose() }

func (c *Conn) DoClose() error {
	if c.key != nil {
		_ = c.sel.Cancel(c.key)
	}
	if err := unix.Close(c.fd); err != nil {
		return errs.Wrap(errs.KindIO, "close failed", err)
	}
	return nil
}

func (c *Conn) DoBeginRead() error {
	if c.key == nil {
		return nil
	}
	interest := c.key.Interest | reactor.OpRead
	return toErr(c.sel.Modify(c.key, interest))
}

func (c *Conn) DoRead(buf []byte) (int, error) {
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, errs.ErrWouldBlock
		}
		return 0, errs.Wrap(errs.KindIO, "read failed", err)
	}
	if n == 0 {
		return 0, ioEOF
	}
	return n, nil
}

func (c *Conn) DoWrite(msg any) error {
	data, err := messageBytes(msg)
	if err != nil {
		return err
	}
	_, werr := unix.Write(c.fd, data)
	if werr != nil {
		if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
			return errs.ErrWouldBlock
		}
		return errs.Wrap(errs.KindIO, "write failed", werr)
	}
	return nil
}

func (c *Conn) DoRequestWriteInterest() error {
	if c.key == nil {
		return nil
	}
	return toErr(c.sel.Modify(c.key, c.key.Interest|reactor.OpWrite))
}

func (c *Conn) DoClearWriteInterest() error {
	if c.key == nil {
		return nil
	}
	return toErr(c.sel.Modify(c.key, c.key.Interest&^reactor.OpWrite))
}

func toErr(err error) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.KindIO, "selector modify failed", err)
}

var _ channel.Ops = (*Conn)(nil)
