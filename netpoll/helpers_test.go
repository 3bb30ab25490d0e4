//go:build linux || darwin || freebsd

package netpoll

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer that may be written and read concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.String()
}

func testLogger(w io.Writer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
}

func testNewPoll(t *testing.T, opts ...Option) *Poll {
	t.Helper()
	p, err := New(append([]Option{WithLogger(testLogger(io.Discard))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// testStreamPair connects a TCPStream to a loopback listener, returning both
// ends of the connection.
func testStreamPair(t *testing.T) (*TCPStream, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	stream, err := Connect(ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	select {
	case conn, ok := <-accepted:
		require.True(t, ok, "accept failed")
		t.Cleanup(func() { _ = conn.Close() })
		return stream, conn
	case <-time.After(5 * time.Second):
		t.Fatal("timed out accepting connection")
		return nil, nil
	}
}

// testPollTokens polls once, returning the tokens received.
func testPollTokens(t *testing.T, p *Poll, events *Events, timeout time.Duration) []Token {
	t.Helper()
	n, err := p.Poll(events, timeout)
	require.NoError(t, err)
	require.Equal(t, n, events.Len())
	tokens := make([]Token, 0, n)
	for ev := range events.All() {
		tokens = append(tokens, ev.Token())
	}
	return tokens
}
