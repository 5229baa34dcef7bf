// File: bootstrap/bootstrap_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/codec"
	"github.com/momentics/netcore/config"
	"github.com/momentics/netcore/pipeline"
	"github.com/momentics/netcore/reactor"
)

// TestServerBootstrapEchoesFramedMessages drives a real loopback TCP
// round trip through ServerBootstrap and Bootstrap together: bind a
// server that echoes every framed message, connect a client, write one
// frame, and check it comes back unchanged.
func TestServerBootstrapEchoesFramedMessages(t *testing.T) {
	opts := config.Default()

	serverGroup, err := reactor.NewGroup(1, 50, nil)
	require.NoError(t, err)
	defer serverGroup.ShutdownGracefully(0, time.Second).Sync()

	server := NewServer(serverGroup, serverGroup, opts).
		ChildHandler(initFunc(func(ch api.Channel) error {
			ch.Pipeline().
				AddLast("framer", codec.NewLengthFieldFramer(4, 1<<16)).
				AddLast("prepender", codec.NewLengthFieldPrepender(4)).
				AddLast("echo", pipeline.NewSimpleInboundHandler(func(ctx api.HandlerContext, buf api.Buffer) {
					ctx.WriteAndFlush(buf.Retain())
				}))
			return nil
		}))

	serverCh, bindFuture := server.Bind("127.0.0.1:0")
	require.NoError(t, bindFuture.Sync())
	defer serverCh.Close().Sync()

	clientGroup, err := reactor.NewGroup(1, 50, nil)
	require.NoError(t, err)
	defer clientGroup.ShutdownGracefully(0, time.Second).Sync()

	replies := make(chan string, 1)
	client := New(clientGroup, opts).
		Handler(initFunc(func(ch api.Channel) error {
			ch.Pipeline().
				AddLast("framer", codec.NewLengthFieldFramer(4, 1<<16)).
				AddLast("prepender", codec.NewLengthFieldPrepender(4)).
				AddLast("collect", pipeline.NewSimpleInboundHandler(func(ctx api.HandlerContext, buf api.Buffer) {
					replies <- string(buf.Bytes())
				}))
			return nil
		}))

	connectFuture := client.Connect(serverCh.LocalAddr().String())
	require.NoError(t, connectFuture.Sync())
	clientCh := connectFuture.Result().(api.Channel)
	defer clientCh.Close().Sync()

	buf := clientCh.Allocator().HeapBuffer(16)
	buf.WriteBytes([]byte("ping"))
	require.NoError(t, clientCh.WriteAndFlush(buf).Sync())

	select {
	case got := <-replies:
		require.Equal(t, "ping", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed reply")
	}
}

type initFunc func(api.Channel) error

func (f initFunc) InitChannel(ch api.Channel) error { return f(ch) }
