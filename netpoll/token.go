// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"math"
	"strconv"
)

// Token is an opaque, application-chosen identifier, associated with a
// registration and echoed back in every [Event] for that registration.
//
// Uniqueness is not enforced. Using the same token for more than one live
// registration makes the events indistinguishable.
type Token uint64

// WakeToken is reserved for the internal wakeup registration, and may not be
// used by callers. Events carrying it are never returned.
const WakeToken Token = math.MaxUint64

func (x Token) String() string {
	return strconv.FormatUint(uint64(x), 10)
}
