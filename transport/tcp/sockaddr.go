// File: transport/tcp/sockaddr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package tcp

import (
	"io"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
)

// ioEOF is the sentinel the channel unsafe's DoReadLoop checks for to
// close the channel on peer half-close, matching io.EOF exactly rather
// than a lookalike error type.
var ioEOF = io.EOF

func tcpAddrToSockaddr(addr *net.TCPAddr) (unix.Sockaddr, error) {
	ip := addr.IP.To4()
	if ip == nil {
		return nil, errs.New(errs.KindUnresolvedAddress, "only IPv4 addresses are supported")
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	copy(sa.Addr[:], ip)
	return sa, nil
}

func sockaddrToTCPAddr(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IPv4(s.Addr[0], s.Addr[1], s.Addr[2], s.Addr[3]), Port: s.Port}
	default:
		return nil
	}
}

// messageBytes extracts the raw bytes DoWrite hands to the kernel. Buffers
// stay retained by the caller (channel.WriteBuffer completes the write
// promise but does not release the message); this only reads.
func messageBytes(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case api.Buffer:
		return m.Bytes(), nil
	case []byte:
		return m, nil
	default:
		return nil, errs.New(errs.KindEncoderException, "tcp transport cannot write non-byte message")
	}
}
