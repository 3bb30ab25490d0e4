//go:build linux || darwin || freebsd

package netpoll

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPStream_readWouldBlock(t *testing.T) {
	stream, _ := testStreamPair(t)

	start := time.Now()
	n, err := stream.Read(make([]byte, 16))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrWouldBlock)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTCPStream_writeThenPeerReads(t *testing.T) {
	stream, conn := testStreamPair(t)

	msg := []byte("GET / HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	n, err := stream.Write(msg)
	require.NoError(t, err)
	require.Equal(t, len(msg), n)
	require.NoError(t, stream.Flush())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, len(msg))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf)
}

func TestTCPStream_readVectored(t *testing.T) {
	p := testNewPoll(t)
	stream, conn := testStreamPair(t)

	require.NoError(t, p.Registrator().Register(stream, 1, Readable))
	_, err := conn.Write([]byte("abcdefg"))
	require.NoError(t, err)
	require.Equal(t, []Token{1}, testPollTokens(t, p, NewEvents(1), 2*time.Second))
	// allow the full payload to arrive
	time.Sleep(20 * time.Millisecond)

	a, b, c := make([]byte, 3), make([]byte, 2), make([]byte, 8)
	n, err := stream.ReadVectored([][]byte{a, b, c})
	require.NoError(t, err)
	require.Equal(t, 7, n)
	assert.Equal(t, "abc", string(a))
	assert.Equal(t, "de", string(b))
	assert.Equal(t, "fg", string(c[:2]))

	n, err = stream.ReadVectored([][]byte{a})
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrWouldBlock)

	n, err = stream.ReadVectored(nil)
	assert.Zero(t, n)
	assert.NoError(t, err)
}

func TestTCPStream_eofAfterPeerClose(t *testing.T) {
	stream, conn := testStreamPair(t)
	_, err := conn.Write([]byte("bye"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	var got []byte
	buf := make([]byte, 8)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := stream.Read(buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, ErrWouldBlock) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "bye", string(got))
}

func TestTCPStream_closeWrite(t *testing.T) {
	stream, conn := testStreamPair(t)
	require.NoError(t, stream.CloseWrite())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestTCPStream_addresses(t *testing.T) {
	stream, conn := testStreamPair(t)

	local, ok := stream.LocalAddr().(*net.TCPAddr)
	require.True(t, ok)
	remote, ok := stream.RemoteAddr().(*net.TCPAddr)
	require.True(t, ok)

	assert.Equal(t, conn.RemoteAddr().String(), local.String())
	assert.Equal(t, conn.LocalAddr().String(), remote.String())
}

func TestTCPStream_closeTwice(t *testing.T) {
	stream, _ := testStreamPair(t)

	require.NoError(t, stream.Close())
	assert.ErrorIs(t, stream.Close(), ErrStreamClosed)

	_, err := stream.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrStreamClosed)
	_, err = stream.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.Nil(t, stream.LocalAddr())
}

func TestConnect_refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Connect(addr)
	require.Error(t, err)
	var opErr *OpError
	assert.ErrorAs(t, err, &opErr)
}

func TestConnect_invalidAddress(t *testing.T) {
	_, err := Connect("no-port")
	assert.Error(t, err)
}

func TestConnectContext_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ConnectContext(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}

func TestConnect_resolvesHostname(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			_ = conn.Close()
		}
	}()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	stream, err := Connect(net.JoinHostPort("localhost", port))
	if err != nil {
		// localhost may resolve to ::1 first, without a listener
		t.Skipf("localhost not connectable: %v", err)
	}
	require.NoError(t, stream.Close())
}
