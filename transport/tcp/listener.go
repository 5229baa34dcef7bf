// File: transport/tcp/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Listener is the server-side Ops: an OP_ACCEPT-only fd whose DoAccept
// hands back freshly constructed child channels, generalized from the
// pack's raw accept-loop transports (examples/reactor_echo/socket_unix.go,
// transport/tcp/listener.go) into the non-blocking acceptor contract
// channel.channelUnsafe's DoAccept expects.
package tcp

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/channel"
	"github.com/momentics/netcore/errs"
	"github.com/momentics/netcore/reactor"
)

// ChildFactory builds the api.Channel for a freshly accepted fd; supplied
// by bootstrap.ServerBootstrap, which owns the child pipeline/group
// wiring the Listener itself has no business knowing about.
type ChildFactory func(fd int, local, remote net.Addr) api.Channel

// Listener is a non-blocking TCP listening socket wrapped as channel.Ops.
type Listener struct {
	fd  int
	sel reactor.Selector
	key *reactor.SelectionKey

	local      net.Addr
	attachment any

	newChild ChildFactory
}

// NewListener creates a fresh non-blocking IPv4 TCP listening socket.
func NewListener(newChild ChildFactory) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "socket create failed", err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	return &Listener{fd: fd, newChild: newChild}, nil
}

func (l *Listener) Attach(attachment any)             { l.attachment = attachment }
func (l *Listener) SetSelector(sel reactor.Selector)  { l.sel = sel }

func (l *Listener) FD() uintptr          { return uintptr(l.fd) }
func (l *Listener) LocalAddr() net.Addr  { return l.local }
func (l *Listener) RemoteAddr() net.Addr { return nil }

func (l *Listener) DoRegister() error {
	key, err := l.sel.Register(l.FD(), reactor.OpAccept, l.attachment)
	if err != nil {
		return errs.Wrap(errs.KindIO, "selector register failed", err)
	}
	l.key = key
	return nil
}

func (l *Listener) DoBind(local net.Addr) error {
	tcpAddr, ok := local.(*net.TCPAddr)
	if !ok {
		return errs.New(errs.KindUnresolvedAddress, "local address is not a *net.TCPAddr")
	}
	sa, err := tcpAddrToSockaddr(tcpAddr)
	if err != nil {
		return errs.Wrap(errs.KindUnresolvedAddress, "local address resolution failed", err)
	}
	if err := unix.Bind(l.fd, sa); err != nil {
		return errs.Wrap(errs.KindIO, "bind failed", err)
	}
	if err := unix.Listen(l.fd, unix.SOMAXCONN); err != nil {
		return errs.Wrap(errs.KindIO, "listen failed", err)
	}
	// Re-read the bound address: tcpAddr.Port may have been 0 (let the
	// kernel pick an ephemeral port), and callers need the real one.
	bound, err := unix.Getsockname(l.fd)
	if err != nil {
		return errs.Wrap(errs.KindIO, "getsockname failed", err)
	}
	if addr := sockaddrToTCPAddr(bound); addr != nil {
		l.local = addr
	} else {
		l.local = local
	}
	return nil
}

func (l *Listener) DoConnect(net.Addr, net.Addr) (bool, error) {
	return false, errs.New(errs.KindIllegalState, "listener does not support connect")
}
func (l *Listener) DoFinishConnect() error { return nil }
func (l *Listener) DoDisconnect() error    { return l.DoClose() }

func (l *Listener) DoClose() error {
	if l.key != nil {
		_ = l.sel.Cancel(l.key)
	}
	if err := unix.Close(l.fd); err != nil {
		return errs.Wrap(errs.KindIO, "close failed", err)
	}
	return nil
}

func (l *Listener) DoBeginRead() error { return nil } // accept readiness is armed at DoRegister

func (l *Listener) DoRead([]byte) (int, error) {
	return 0, errs.New(errs.KindIllegalState, "listener does not support read")
}
func (l *Listener) DoWrite(any) error {
	return errs.New(errs.KindIllegalState, "listener does not support write")
}
func (l *Listener) DoRequestWriteInterest() error { return nil }
func (l *Listener) DoClearWriteInterest() error   { return nil }

// DoAccept accepts one connection pending on the listen backlog and hands
// it to the ChildFactory, returning errs.ErrWouldBlock once the backlog is
// empty; channelUnsafe.DoAccept calls it in a loop until then.
func (l *Listener) DoAccept() (api.Channel, error) {
	fd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, errs.ErrWouldBlock
		}
		return nil, errs.Wrap(errs.KindIO, "accept failed", err)
	}
	remote := sockaddrToTCPAddr(sa)
	return l.newChild(fd, l.local, remote), nil
}

var _ channel.Ops = (*Listener)(nil)
