// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package allowedips implements a longest-prefix-match table, mapping IPv4
// and IPv6 CIDR networks to arbitrary values, e.g. for access control.
//
// The table is a binary trie per address family, keyed on the network bits.
// Lookups return the value of the most specific network containing the
// address.
package allowedips

import (
	"errors"
	"fmt"
	"iter"
	"net/netip"
)

// ErrInvalidPrefix is returned when inserting an invalid address, or a prefix
// length out of range for the address family.
var ErrInvalidPrefix = errors.New("allowedips: invalid prefix")

// Table maps networks to values of type D. The zero value is an empty table,
// ready for use. Table is not safe for concurrent use.
type Table[D any] struct {
	v4  *node[D]
	v6  *node[D]
	len int
}

// Entry is a single network and its value, see [Table.Entries].
type Entry[D any] struct {
	Data D
	// Network is the network address, with host bits zeroed.
	Network netip.Addr
	// Bits is the prefix length.
	Bits int
}

type node[D any] struct {
	children [2]*node[D]
	data     D
	set      bool
}

// New returns an empty table.
func New[D any]() *Table[D] {
	return &Table[D]{}
}

// Len returns the number of networks in the table.
func (x *Table[D]) Len() int { return x.len }

// Clear removes every network.
func (x *Table[D]) Clear() {
	*x = Table[D]{}
}

// Insert associates data with the network ip/cidr. Host bits of ip are
// ignored, so 127.0.15.1/16 is stored as 127.0.0.0/16. If the network was
// already present, its previous value is returned, and replaced is true.
//
// IPv4-mapped IPv6 addresses with a prefix length of at least 96 are stored
// as the equivalent IPv4 network.
func (x *Table[D]) Insert(ip netip.Addr, cidr int, data D) (prev D, replaced bool, err error) {
	prefix, err := ip.Prefix(cidr)
	if err != nil || !ip.IsValid() {
		return prev, false, fmt.Errorf("%w: %s/%d", ErrInvalidPrefix, ip, cidr)
	}
	return x.InsertPrefix(prefix, data)
}

// InsertPrefix is [Table.Insert], for a parsed prefix.
func (x *Table[D]) InsertPrefix(prefix netip.Prefix, data D) (prev D, replaced bool, err error) {
	if !prefix.IsValid() {
		return prev, false, fmt.Errorf("%w: %s", ErrInvalidPrefix, prefix)
	}
	if addr := prefix.Addr(); addr.Is4In6() && prefix.Bits() >= 96 {
		prefix = netip.PrefixFrom(addr.Unmap(), prefix.Bits()-96)
	}
	prefix = prefix.Masked()

	root := x.root(prefix.Addr(), true)
	n := *root
	key := addrBytes(prefix.Addr())
	for i := range prefix.Bits() {
		b := bitAt(key, i)
		if n.children[b] == nil {
			n.children[b] = &node[D]{}
		}
		n = n.children[b]
	}

	prev, replaced = n.data, n.set
	n.data, n.set = data, true
	if !replaced {
		x.len++
	}
	return prev, replaced, nil
}

// Find returns the value of the longest (most specific) network containing
// ip. IPv4-mapped IPv6 addresses match IPv4 networks.
func (x *Table[D]) Find(ip netip.Addr) (D, bool) {
	_, data, ok := x.Lookup(ip)
	return data, ok
}

// Lookup is [Table.Find], also returning the matched network.
func (x *Table[D]) Lookup(ip netip.Addr) (netip.Prefix, D, bool) {
	if ip.Is4In6() {
		if prefix, data, ok := x.lookup(ip.Unmap()); ok {
			return prefix, data, ok
		}
	}
	return x.lookup(ip.WithZone(""))
}

func (x *Table[D]) lookup(ip netip.Addr) (prefix netip.Prefix, data D, ok bool) {
	if !ip.IsValid() {
		return
	}

	root := x.root(ip, false)
	if root == nil || *root == nil {
		return
	}

	key := addrBytes(ip)
	n := *root
	bits := -1
	for i := 0; n != nil; i++ {
		if n.set {
			data, bits = n.data, i
		}
		if i == ip.BitLen() {
			break
		}
		n = n.children[bitAt(key, i)]
	}
	if bits < 0 {
		return
	}

	// ignoring the error, bits is within range
	prefix, _ = ip.Prefix(bits)
	return prefix, data, true
}

// Remove deletes every network whose value matches predicate, returning the
// number removed.
func (x *Table[D]) Remove(predicate func(D) bool) int {
	var removed int
	for _, root := range [...]**node[D]{&x.v4, &x.v6} {
		if prune(root, predicate, &removed) {
			*root = nil
		}
	}
	x.len -= removed
	return removed
}

// prune removes matching values below *n, reporting whether *n is now empty.
func prune[D any](n **node[D], predicate func(D) bool, removed *int) bool {
	if *n == nil {
		return true
	}
	cur := *n
	if cur.set && predicate(cur.data) {
		var zero D
		cur.data, cur.set = zero, false
		*removed++
	}
	for i := range cur.children {
		if prune(&cur.children[i], predicate, removed) {
			cur.children[i] = nil
		}
	}
	return !cur.set && cur.children[0] == nil && cur.children[1] == nil
}

// All iterates over every network and its value, IPv4 first, each family in
// address order, with shorter prefixes before longer ones.
func (x *Table[D]) All() iter.Seq2[netip.Prefix, D] {
	return func(yield func(netip.Prefix, D) bool) {
		var key [16]byte
		if !walk(x.v4, &key, 0, true, yield) {
			return
		}
		key = [16]byte{}
		walk(x.v6, &key, 0, false, yield)
	}
}

func walk[D any](n *node[D], key *[16]byte, depth int, is4 bool, yield func(netip.Prefix, D) bool) bool {
	if n == nil {
		return true
	}
	if n.set {
		var addr netip.Addr
		if is4 {
			addr = netip.AddrFrom4([4]byte(key[:4]))
		} else {
			addr = netip.AddrFrom16(*key)
		}
		if !yield(netip.PrefixFrom(addr, depth), n.data) {
			return false
		}
	}
	for b, child := range n.children {
		if child == nil {
			continue
		}
		setBit(key[:], depth, b)
		ok := walk(child, key, depth+1, is4, yield)
		setBit(key[:], depth, 0)
		if !ok {
			return false
		}
	}
	return true
}

// Entries returns a snapshot of every network and its value, in the same
// order as [Table.All].
func (x *Table[D]) Entries() []Entry[D] {
	entries := make([]Entry[D], 0, x.len)
	for prefix, data := range x.All() {
		entries = append(entries, Entry[D]{
			Data:    data,
			Network: prefix.Addr(),
			Bits:    prefix.Bits(),
		})
	}
	return entries
}

func (x *Table[D]) root(ip netip.Addr, create bool) **node[D] {
	root := &x.v6
	if ip.Is4() {
		root = &x.v4
	}
	if create && *root == nil {
		*root = &node[D]{}
	}
	return root
}

func addrBytes(ip netip.Addr) []byte {
	if ip.Is4() {
		b := ip.As4()
		return b[:]
	}
	b := ip.As16()
	return b[:]
}

func bitAt(key []byte, i int) int {
	return int(key[i/8]>>(7-uint(i%8))) & 1
}

func setBit(key []byte, i int, v int) {
	mask := byte(1) << (7 - uint(i%8))
	if v != 0 {
		key[i/8] |= mask
	} else {
		key[i/8] &^= mask
	}
}
