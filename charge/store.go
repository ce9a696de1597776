package charge

import (
	"context"

	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/store"
)

// Key returns the record key for a charge.
func Key(chargeID id.ChargeID) store.Key {
	return store.NewKey(store.KindCharge, chargeID.String())
}

// Get loads a charge. Missing records yield a wrapped store.ErrNotFound.
func Get(ctx context.Context, r store.Reader, chargeID id.ChargeID) (*Charge, error) {
	var c Charge
	if err := store.Load(ctx, r, Key(chargeID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Put stages a charge write.
func Put(t *store.Txn, c *Charge) error {
	return store.Save(t, Key(c.ID), c)
}
