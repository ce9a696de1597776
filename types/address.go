package types

import "strings"

// Address identifies an account that can own, fund, or receive from a
// subscription. The ledger treats it as opaque.
type Address string

// String returns the address text.
func (a Address) String() string { return string(a) }

// IsZero reports whether the address is empty after trimming whitespace.
func (a Address) IsZero() bool { return strings.TrimSpace(string(a)) == "" }
