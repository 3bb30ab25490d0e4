// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build unix

package netpoll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// connectPollInterval bounds each wait for a pending connect, so that
// context cancellation is observed.
const connectPollInterval = 100 * time.Millisecond

// TCPStream is a non-blocking TCP client socket. It may be registered with a
// [Registrator], and read from once an event reports it readable.
//
// Read and Write never block. When no progress can be made they fail with
// [ErrWouldBlock]. TCPStream is not safe for concurrent use with Close.
type TCPStream struct {
	fd     int
	closed atomic.Bool
}

var (
	_ Source    = (*TCPStream)(nil)
	_ io.Reader = (*TCPStream)(nil)
	_ io.Writer = (*TCPStream)(nil)
	_ io.Closer = (*TCPStream)(nil)
)

// Connect establishes a connection to address, a "host:port" string. It
// blocks until the connection is established, trying each resolved address
// in order. The returned stream is non-blocking.
func Connect(address string) (*TCPStream, error) {
	return ConnectContext(context.Background(), address)
}

// ConnectContext is [Connect], with a context governing resolution and
// connection establishment.
func ConnectContext(ctx context.Context, address string) (*TCPStream, error) {
	host, service, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	port, err := net.DefaultResolver.LookupPort(ctx, "tcp", service)
	if err != nil {
		return nil, err
	}

	var ips []netip.Addr
	if ip, err := netip.ParseAddr(host); err == nil {
		ips = []netip.Addr{ip}
	} else if ips, err = net.DefaultResolver.LookupNetIP(ctx, "ip", host); err != nil {
		return nil, err
	}

	var errs []error
	for _, ip := range ips {
		stream, err := connectAddr(ctx, netip.AddrPortFrom(ip, uint16(port)))
		if err == nil {
			return stream, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("netpoll: no addresses for %q", address)
	}
	return nil, errors.Join(errs...)
}

func connectAddr(ctx context.Context, addr netip.AddrPort) (*TCPStream, error) {
	domain, sa := toSockaddr(addr)

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, &OpError{Op: "socket", Fd: -1, Err: err}
	}
	unix.CloseOnExec(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, &OpError{Op: "setnonblock", Fd: fd, Err: err}
	}

	switch err := unix.Connect(fd, sa); err {
	case nil:
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
		if err := waitConnected(ctx, fd); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("netpoll: connect %s: %w", addr, err)
		}
	default:
		_ = unix.Close(fd)
		return nil, fmt.Errorf("netpoll: connect %s: %w", addr, &OpError{Op: "connect", Fd: fd, Err: err})
	}

	return &TCPStream{fd: fd}, nil
}

// waitConnected blocks until the pending connect on fd completes.
func waitConnected(ctx context.Context, fd int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		timeout := connectPollInterval
		if deadline, ok := ctx.Deadline(); ok {
			timeout = min(timeout, time.Until(deadline))
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, timeoutToPollMsec(timeout))
		if err == unix.EINTR || (err == nil && n == 0) {
			continue
		}
		if err != nil {
			return &OpError{Op: "poll", Fd: fd, Err: err}
		}

		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return &OpError{Op: "getsockopt", Fd: fd, Err: err}
		}
		if soErr != 0 {
			return &OpError{Op: "connect", Fd: fd, Err: unix.Errno(soErr)}
		}
		return nil
	}
}

func timeoutToPollMsec(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

// RawFd implements [Source].
func (x *TCPStream) RawFd() int { return x.fd }

// Read reads into p without blocking. It returns [ErrWouldBlock] if no data
// is available, and [io.EOF] once the peer has closed its end.
func (x *TCPStream) Read(p []byte) (int, error) {
	if x.closed.Load() {
		return 0, ErrStreamClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(x.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, wrapErrno("read", x.fd, err)
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// ReadVectored reads into each buffer in order, the final buffer possibly
// only partially filled. It has the same error semantics as
// [TCPStream.Read].
func (x *TCPStream) ReadVectored(bufs [][]byte) (int, error) {
	if x.closed.Load() {
		return 0, ErrStreamClosed
	}
	var size int
	for _, b := range bufs {
		size += len(b)
	}
	if size == 0 {
		return 0, nil
	}
	n, err := readv(x.fd, bufs)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes as much of p as possible without blocking. If the socket
// buffer fills before all of p is written, it returns the count written,
// along with [ErrWouldBlock].
func (x *TCPStream) Write(p []byte) (int, error) {
	if x.closed.Load() {
		return 0, ErrStreamClosed
	}
	var total int
	for total < len(p) {
		n, err := unix.Write(x.fd, p[total:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, wrapErrno("write", x.fd, err)
		}
		total += n
	}
	return total, nil
}

// Flush is a no-op, as writes are unbuffered.
func (x *TCPStream) Flush() error {
	if x.closed.Load() {
		return ErrStreamClosed
	}
	return nil
}

// CloseWrite shuts down the writing side of the connection.
func (x *TCPStream) CloseWrite() error {
	if x.closed.Load() {
		return ErrStreamClosed
	}
	return wrapErrno("shutdown", x.fd, unix.Shutdown(x.fd, unix.SHUT_WR))
}

// LocalAddr returns the local network address, or nil.
func (x *TCPStream) LocalAddr() net.Addr {
	return x.sockaddr(unix.Getsockname)
}

// RemoteAddr returns the remote network address, or nil.
func (x *TCPStream) RemoteAddr() net.Addr {
	return x.sockaddr(unix.Getpeername)
}

func (x *TCPStream) sockaddr(fn func(int) (unix.Sockaddr, error)) net.Addr {
	if x.closed.Load() {
		return nil
	}
	sa, err := fn(x.fd)
	if err != nil {
		return nil
	}
	if addr := fromSockaddr(sa); addr != nil {
		return addr
	}
	return nil
}

// Close closes the socket. The stream should be deregistered first.
// Subsequent calls return [ErrStreamClosed].
func (x *TCPStream) Close() error {
	if !x.closed.CompareAndSwap(false, true) {
		return ErrStreamClosed
	}
	return wrapErrno("close", x.fd, unix.Close(x.fd))
}

func (x *TCPStream) String() string {
	return "TCPStream(fd=" + strconv.Itoa(x.fd) + ")"
}
