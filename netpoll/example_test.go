//go:build linux || darwin || freebsd

package netpoll_test

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/go-netreactor/netpoll"
)

func Example() {
	poll, err := netpoll.New()
	if err != nil {
		panic(err)
	}
	defer poll.Close()

	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	defer r.Close()
	defer w.Close()

	registrator := poll.Registrator()
	if err := registrator.Register(netpoll.SourceFd(r.Fd()), 1, netpoll.Readable); err != nil {
		panic(err)
	}

	if _, err := w.Write([]byte("ping")); err != nil {
		panic(err)
	}

	events := netpoll.NewEvents(8)
	n, err := poll.Poll(events, time.Second)
	if err != nil {
		panic(err)
	}
	fmt.Println("events:", n)
	for ev := range events.All() {
		fmt.Println("token:", ev.Token(), "readable:", ev.IsReadable())
	}

	// the registration is one-shot, so this times out
	n, err = poll.Poll(events, 10*time.Millisecond)
	fmt.Println("events:", n, err)

	if err := registrator.CloseLoop(); err != nil {
		panic(err)
	}
	_, err = poll.Poll(events, netpoll.NoTimeout)
	fmt.Println(err)

	//output:
	//events: 1
	//token: 1 readable: true
	//events: 0 <nil>
	//netpoll: interrupted: poll closed
}
