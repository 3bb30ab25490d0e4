//go:build linux

package netpoll

import (
	"math"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestEpollEvent_tokenRoundTrip(t *testing.T) {
	for _, token := range []Token{0, 1, 99, math.MaxUint32, math.MaxUint32 + 1, 0xdeadbeefcafebabe, WakeToken} {
		ev := epollEvent(token, unix.EPOLLIN)
		if got := epollEventToken(&ev); got != token {
			t.Errorf("token %d round tripped as %d", token, got)
		}
	}
}

func TestInterestsToEpoll(t *testing.T) {
	flags := interestsToEpoll(Readable)
	if flags&unix.EPOLLONESHOT == 0 {
		t.Error("expected EPOLLONESHOT")
	}
	if flags&unix.EPOLLIN == 0 || flags&unix.EPOLLOUT != 0 {
		t.Errorf("unexpected flags for readable: %#x", flags)
	}
	flags = interestsToEpoll(Readable | Writable)
	if flags&unix.EPOLLIN == 0 || flags&unix.EPOLLOUT == 0 {
		t.Errorf("unexpected flags for readable|writable: %#x", flags)
	}
}

func TestEpollToReadiness(t *testing.T) {
	for _, tc := range [...]struct {
		flags uint32
		want  Readiness
	}{
		{unix.EPOLLIN, ReadReady},
		{unix.EPOLLOUT, WriteReady},
		{unix.EPOLLERR, ErrorReady},
		{unix.EPOLLHUP, HangupReady},
		{unix.EPOLLRDHUP | unix.EPOLLIN, ReadReady | HangupReady},
	} {
		if got := epollToReadiness(tc.flags); got != tc.want {
			t.Errorf("epollToReadiness(%#x) = %s, want %s", tc.flags, got, tc.want)
		}
	}
}

func TestTimeoutToMsec(t *testing.T) {
	for _, tc := range [...]struct {
		timeout time.Duration
		want    int
	}{
		{NoTimeout, -1},
		{-time.Hour, -1},
		{0, 0},
		{time.Nanosecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{100 * time.Millisecond, 100},
		{time.Duration(math.MaxInt64), math.MaxInt32},
	} {
		if got := timeoutToMsec(tc.timeout); got != tc.want {
			t.Errorf("timeoutToMsec(%s) = %d, want %d", tc.timeout, got, tc.want)
		}
	}
}

func TestEpollBackend_wakeIsCoalesced(t *testing.T) {
	backend, err := newBackend()
	if err != nil {
		t.Fatal(err)
	}
	defer backend.close()

	for range 3 {
		if err := backend.wake(); err != nil {
			t.Fatal(err)
		}
	}

	events := NewEvents(4)
	if err := backend.wait(events, time.Second); err != nil {
		t.Fatal(err)
	}
	if events.Len() != 0 {
		t.Fatalf("expected wakeup to be filtered, got %d events", events.Len())
	}

	// drained, so the next wait times out
	start := time.Now()
	if err := backend.wait(events, 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected wait to time out, returned after %s", elapsed)
	}
}
