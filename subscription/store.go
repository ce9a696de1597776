package subscription

import (
	"context"

	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/types"
)

// sequenceKey holds the allocator. A single record keeps id allocation and
// the subscription write in the same commit.
var sequenceKey = store.NewKey(store.KindMeta, "subscription_sequence")

// Key returns the record key for a subscription.
func Key(subID id.SubscriptionID) store.Key {
	return store.NewKey(store.KindSubscription, subID.String())
}

// Get loads a subscription. Missing records yield a wrapped store.ErrNotFound.
func Get(ctx context.Context, r store.Reader, subID id.SubscriptionID) (*Subscription, error) {
	var s Subscription
	if err := store.Load(ctx, r, Key(subID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Put stages a subscription write.
func Put(t *store.Txn, s *Subscription) error {
	return store.Save(t, Key(s.ID), s)
}

// GetSequence loads the allocator; ok is false before initialization.
func GetSequence(ctx context.Context, r store.Reader) (seq Sequence, ok bool, err error) {
	ok, err = r.Has(ctx, sequenceKey)
	if err != nil || !ok {
		return Sequence{}, false, err
	}
	if err := store.Load(ctx, r, sequenceKey, &seq); err != nil {
		return Sequence{}, false, err
	}
	return seq, true, nil
}

// PutSequence stages the allocator.
func PutSequence(t *store.Txn, seq Sequence) error {
	return store.Save(t, sequenceKey, seq)
}

// DelegateKey returns the record key for an owner's batch delegate.
func DelegateKey(owner types.Address) store.Key {
	return store.NewKey(store.KindDelegate, owner.String())
}

// GetDelegate loads the owner's delegate; ok is false when none is set.
func GetDelegate(ctx context.Context, r store.Reader, owner types.Address) (d *Delegate, ok bool, err error) {
	ok, err = r.Has(ctx, DelegateKey(owner))
	if err != nil || !ok {
		return nil, false, err
	}
	d = new(Delegate)
	if err := store.Load(ctx, r, DelegateKey(owner), d); err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// PutDelegate stages the owner's delegate.
func PutDelegate(t *store.Txn, d *Delegate) error {
	return store.Save(t, DelegateKey(d.Owner), d)
}

// DeleteDelegate stages removal of the owner's delegate.
func DeleteDelegate(t *store.Txn, owner types.Address) {
	t.Delete(DelegateKey(owner))
}
