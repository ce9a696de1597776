// Package revenue persists accrued revenue balances.
package revenue

import (
	"context"

	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/types"
)

// Key returns the record key for an address's balance.
func Key(addr types.Address) store.Key {
	return store.NewKey(store.KindBalance, addr.String())
}

// Get loads a balance. Unknown addresses read as a zero balance.
func Get(ctx context.Context, r store.Reader, addr types.Address) (*Balance, error) {
	b := &Balance{Address: addr}
	ok, err := r.Has(ctx, Key(addr))
	if err != nil || !ok {
		return b, err
	}
	if err := store.Load(ctx, r, Key(addr), b); err != nil {
		return nil, err
	}
	return b, nil
}

// Put stages a balance write.
func Put(t *store.Txn, b *Balance) error {
	return store.Save(t, Key(b.Address), b)
}
