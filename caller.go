package subsplit

import "github.com/xraph/subsplit/types"

// Caller is the authenticated identity of the current invocation.
//
// The host proves control of Address before calling the Ledger; the Ledger
// trusts it as given and performs no verification of its own.
type Caller struct {
	Address types.Address
}

// CallerOf returns a Caller for addr.
func CallerOf(addr types.Address) Caller {
	return Caller{Address: addr}
}

// Is reports whether the caller is addr. An empty caller matches nothing.
func (c Caller) Is(addr types.Address) bool {
	return !c.Address.IsZero() && c.Address == addr
}
