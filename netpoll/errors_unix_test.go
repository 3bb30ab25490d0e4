//go:build unix

package netpoll

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestWrapErrno(t *testing.T) {
	assert.NoError(t, wrapErrno("read", 3, nil))
	assert.Same(t, ErrWouldBlock, wrapErrno("read", 3, unix.EAGAIN))

	err := wrapErrno("read", 3, unix.EBADF)
	assert.ErrorIs(t, err, unix.EBADF)
	assert.Equal(t, "netpoll: read (fd 3): "+unix.EBADF.Error(), err.Error())
}

func TestIsSignalInterrupt(t *testing.T) {
	assert.True(t, IsSignalInterrupt(unix.EINTR))
	assert.True(t, IsSignalInterrupt(&OpError{Op: "epoll_wait", Fd: 3, Err: unix.EINTR}))
	assert.True(t, IsSignalInterrupt(fmt.Errorf("x: %w", unix.EINTR)))
	assert.False(t, IsSignalInterrupt(unix.EAGAIN))
	assert.False(t, IsSignalInterrupt(nil))
}
