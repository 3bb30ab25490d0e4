// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

// Interests is the set of readiness directions a registration is armed for.
// Values may be combined using bitwise or, e.g. Readable | Writable.
type Interests uint8

const (
	// Writable indicates interest in the source becoming writable.
	Writable Interests = 1 << iota
	// Readable indicates interest in the source becoming readable.
	Readable
)

// IsReadable reports whether x includes [Readable].
func (x Interests) IsReadable() bool { return x&Readable != 0 }

// IsWritable reports whether x includes [Writable].
func (x Interests) IsWritable() bool { return x&Writable != 0 }

func (x Interests) String() string {
	switch x {
	case 0:
		return "NONE"
	case Readable:
		return "READABLE"
	case Writable:
		return "WRITABLE"
	case Readable | Writable:
		return "READABLE|WRITABLE"
	default:
		return "INVALID"
	}
}

// valid is false for the empty set, and for unknown bits.
func (x Interests) valid() bool {
	return x != 0 && x&^(Readable|Writable) == 0
}
