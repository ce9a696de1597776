package subsplit

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// validateCreate checks every field of a new subscription and reports all
// failures at once.
func validateCreate(in subscription.CreateInput) error {
	var errs MultiError

	if in.Owner.IsZero() {
		errs.Add(ValidationError{Field: "owner", Message: "must not be empty"})
	}
	if in.Subscriber.IsZero() {
		errs.Add(ValidationError{Field: "subscriber", Message: "must not be empty"})
	}
	if in.Recipient.IsZero() {
		errs.Add(ValidationError{Field: "recipient", Message: "must not be empty"})
	}
	if !in.Amount.IsPositive() {
		errs.Add(ValidationError{Field: "amount", Message: "must be positive"})
	}
	if in.PeriodSeconds <= 0 {
		errs.Add(ValidationError{Field: "period_seconds", Message: "must be positive"})
	}
	if !in.SplitBps.Valid() {
		errs.Add(ValidationError{Field: "split_bps", Message: "must be within [0, 10000]"})
	}

	return errs.ErrOrNil()
}

// createSubscription stages a new active subscription, its owner index entry,
// and the advanced id sequence.
func (l *Ledger) createSubscription(ctx context.Context, txn *store.Txn, caller Caller, in subscription.CreateInput, now types.Timestamp) (*subscription.Subscription, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if !caller.Is(in.Owner) {
		return nil, fmt.Errorf("%w: only the owner may create a subscription", ErrUnauthorized)
	}

	nextDue, err := now.AddSeconds(in.PeriodSeconds)
	if err != nil {
		return nil, fmt.Errorf("subsplit: next due time: %w", err)
	}

	seq, _, err := subscription.GetSequence(ctx, txn)
	if err != nil {
		return nil, err
	}
	subID, err := seq.Last.Next()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	seq.Last = subID

	sub := &subscription.Subscription{
		Entity:        types.NewEntity(now),
		ID:            subID,
		Owner:         in.Owner,
		Subscriber:    in.Subscriber,
		Amount:        in.Amount,
		PeriodSeconds: in.PeriodSeconds,
		Recipient:     in.Recipient,
		SplitBps:      in.SplitBps,
		NextDueAt:     nextDue,
		Status:        subscription.StatusActive,
	}

	if err := subscription.Put(txn, sub); err != nil {
		return nil, err
	}
	if err := subscription.AppendIndex(ctx, txn, sub.Owner, sub.ID); err != nil {
		return nil, err
	}
	if err := subscription.PutSequence(txn, seq); err != nil {
		return nil, err
	}
	return sub, nil
}

// getSubscription loads a subscription through r.
func (l *Ledger) getSubscription(ctx context.Context, r store.Reader, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := subscription.Get(ctx, r, subID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("subsplit: subscription %s: %w", subID, ErrNotFound)
		}
		return nil, err
	}
	return sub, nil
}

// cancelSubscription stages the owner's cancellation of an active subscription.
func (l *Ledger) cancelSubscription(ctx context.Context, txn *store.Txn, caller Caller, subID id.SubscriptionID, now types.Timestamp) (*subscription.Subscription, error) {
	sub, err := l.getSubscription(ctx, txn, subID)
	if err != nil {
		return nil, err
	}
	if !caller.Is(sub.Owner) {
		return nil, fmt.Errorf("%w: only the owner may cancel subscription %s", ErrUnauthorized, subID)
	}
	if !sub.IsActive() {
		return nil, fmt.Errorf("subsplit: subscription %s is %s: %w", subID, sub.Status, ErrAlreadyTerminal)
	}

	sub.Status = subscription.StatusCancelled
	sub.CancelledAt = now
	sub.Touch(now)

	if err := subscription.Put(txn, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// markExpired moves an active subscription to expired. The caller stages the write.
func markExpired(sub *subscription.Subscription, now types.Timestamp) {
	sub.Status = subscription.StatusExpired
	sub.ExpiredAt = now
	sub.Touch(now)
}

// advancePeriod returns the next due time chained from the current one, so
// late processing does not shift the billing schedule.
func advancePeriod(sub *subscription.Subscription) (types.Timestamp, error) {
	next, err := sub.NextDueAt.AddSeconds(sub.PeriodSeconds)
	if err != nil {
		return 0, fmt.Errorf("subsplit: advance subscription %s: %w", sub.ID, err)
	}
	return next, nil
}

// setBatchDelegate stages the owner's delegate. An empty delegate clears it.
func (l *Ledger) setBatchDelegate(ctx context.Context, txn *store.Txn, caller Caller, owner, delegate types.Address, now types.Timestamp) error {
	if owner.IsZero() {
		return ValidationError{Field: "owner", Message: "must not be empty"}
	}
	if !caller.Is(owner) {
		return fmt.Errorf("%w: only the owner may set its batch delegate", ErrUnauthorized)
	}
	if delegate == owner {
		return ValidationError{Field: "delegate", Message: "must differ from owner"}
	}

	if delegate.IsZero() {
		subscription.DeleteDelegate(txn, owner)
		return nil
	}

	d, ok, err := subscription.GetDelegate(ctx, txn, owner)
	if err != nil {
		return err
	}
	if !ok {
		d = &subscription.Delegate{Entity: types.NewEntity(now), Owner: owner}
	}
	d.Delegate = delegate
	d.Touch(now)
	return subscription.PutDelegate(txn, d)
}

// isBatchCaller reports whether caller may act for owner's subscriptions in bulk.
func (l *Ledger) isBatchCaller(ctx context.Context, r store.Reader, caller Caller, owner types.Address) (bool, error) {
	if caller.Is(owner) {
		return true, nil
	}
	d, ok, err := subscription.GetDelegate(ctx, r, owner)
	if err != nil || !ok {
		return false, err
	}
	return caller.Is(d.Delegate), nil
}

// canRenew reports whether caller may renew sub: its subscriber, its owner,
// or the owner's batch delegate.
func (l *Ledger) canRenew(ctx context.Context, r store.Reader, caller Caller, sub *subscription.Subscription) (bool, error) {
	if caller.Is(sub.Subscriber) {
		return true, nil
	}
	return l.isBatchCaller(ctx, r, caller, sub.Owner)
}
