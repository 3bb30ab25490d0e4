package allowedips_test

import (
	"fmt"
	"net/netip"

	"github.com/joeycumines/go-netreactor/allowedips"
)

func ExampleTable() {
	table := allowedips.New[string]()
	_, _, _ = table.Insert(netip.MustParseAddr("10.0.0.0"), 8, "internal")
	_, _, _ = table.Insert(netip.MustParseAddr("10.1.2.0"), 24, "build farm")

	for _, ip := range []string{"10.1.2.3", "10.9.9.9", "192.168.0.1"} {
		client, ok := table.Find(netip.MustParseAddr(ip))
		fmt.Println(ip, client, ok)
	}

	for _, entry := range table.Entries() {
		fmt.Printf("%s/%d -> %s\n", entry.Network, entry.Bits, entry.Data)
	}

	//output:
	//10.1.2.3 build farm true
	//10.9.9.9 internal true
	//192.168.0.1  false
	//10.0.0.0/8 -> internal
	//10.1.2.0/24 -> build farm
}
