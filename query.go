package subsplit

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/subsplit/charge"
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// Queries never mutate state. Cancelled and expired subscriptions are
// returned with their terminal status so callers can tell "no longer
// active" from "never existed".
//
// Offsets index into an append-only sequence, so a page boundary can shift
// when subscriptions are created between calls. ListSubscriptionsAfter
// pages by id instead and is stable under concurrent creation.

// GetSubscription returns a subscription by id.
func (l *Ledger) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.getSubscription(ctx, l.store, subID)
}

// ListSubscriptions returns up to limit of owner's subscriptions starting at
// position offset of the owner index.
func (l *Ledger) ListSubscriptions(ctx context.Context, owner types.Address, offset, limit int) ([]*subscription.Subscription, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := subscription.IndexRange(ctx, l.store, owner, uint64(offset), uint64(l.clampLimit(limit)))
	if err != nil {
		return nil, err
	}
	return l.loadAll(ctx, ids)
}

// ListSubscriptionsAfter returns up to limit of owner's subscriptions with an
// id greater than startAfter. Pass zero to start from the beginning.
func (l *Ledger) ListSubscriptionsAfter(ctx context.Context, owner types.Address, startAfter id.SubscriptionID, limit int) ([]*subscription.Subscription, error) {
	if err := validatePage(0, limit); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := subscription.IndexAfter(ctx, l.store, owner, startAfter, uint64(l.clampLimit(limit)))
	if err != nil {
		return nil, err
	}
	return l.loadAll(ctx, ids)
}

// GetAllSubscriptions pages across every owner in creation order.
func (l *Ledger) GetAllSubscriptions(ctx context.Context, offset, limit int) ([]*subscription.Subscription, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq, _, err := subscription.GetSequence(ctx, l.store)
	if err != nil {
		return nil, err
	}

	total := uint64(seq.Last)
	first := uint64(offset) + 1
	if first > total {
		return []*subscription.Subscription{}, nil
	}
	last := min(total, first+uint64(l.clampLimit(limit))-1)

	ids := make([]id.SubscriptionID, 0, last-first+1)
	for n := first; n <= last; n++ {
		ids = append(ids, id.SubscriptionID(n))
	}
	return l.loadAll(ctx, ids)
}

// CountSubscriptions returns the length of owner's index.
func (l *Ledger) CountSubscriptions(ctx context.Context, owner types.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return subscription.IndexLen(ctx, l.store, owner)
}

// TotalSubscriptions returns how many subscriptions were ever created.
func (l *Ledger) TotalSubscriptions(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq, _, err := subscription.GetSequence(ctx, l.store)
	if err != nil {
		return 0, err
	}
	return uint64(seq.Last), nil
}

// BalanceOf returns the accrued, unwithdrawn balance of addr.
func (l *Ledger) BalanceOf(ctx context.Context, addr types.Address) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balanceOf(ctx, l.store, addr)
}

// GetCharge returns the receipt of a renewal attempt.
func (l *Ledger) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := charge.Get(ctx, l.store, chargeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("subsplit: charge %s: %w", chargeID, ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// BatchDelegate returns owner's batch delegate, or an empty address.
func (l *Ledger) BatchDelegate(ctx context.Context, owner types.Address) (types.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok, err := subscription.GetDelegate(ctx, l.store, owner)
	if err != nil || !ok {
		return "", err
	}
	return d.Delegate, nil
}

func validatePage(offset, limit int) error {
	if offset < 0 {
		return ValidationError{Field: "offset", Message: "must not be negative"}
	}
	if limit <= 0 {
		return ValidationError{Field: "limit", Message: "must be positive"}
	}
	return nil
}

func (l *Ledger) clampLimit(limit int) int {
	return min(limit, l.maxPageSize)
}

func (l *Ledger) loadAll(ctx context.Context, ids []id.SubscriptionID) ([]*subscription.Subscription, error) {
	out := make([]*subscription.Subscription, 0, len(ids))
	for _, subID := range ids {
		sub, err := l.getSubscription(ctx, l.store, subID)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}
