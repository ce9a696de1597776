package subsplit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xraph/subsplit/charge"
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/payment"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// RenewalOutcome is the transition a due renewal produced.
type RenewalOutcome string

const (
	// OutcomeRenewed means the payment was collected, shares credited, and
	// the period advanced.
	OutcomeRenewed RenewalOutcome = "renewed"
	// OutcomeExpired means the subscriber could not fund the renewal and the
	// subscription is now expired. Nothing was credited.
	OutcomeExpired RenewalOutcome = "expired"
)

// RenewalResult describes one committed renewal transition.
type RenewalResult struct {
	Outcome        RenewalOutcome
	Subscription   *subscription.Subscription
	Charge         *charge.Charge
	RecipientShare types.Amount
	OwnerShare     types.Amount
}

// renewal is a fully computed renewal, prepared before the payment call so
// no arithmetic can fail once value has moved.
type renewal struct {
	sub            *subscription.Subscription
	recipientShare types.Amount
	ownerShare     types.Amount
	nextDue        types.Timestamp
	chargeID       id.ChargeID
}

// ──────────────────────────────────────────────────
// Subscription lifecycle
// ──────────────────────────────────────────────────

// CreateSubscription creates an active subscription owned by in.Owner.
// The caller must be the owner. The first payment is due one period after now.
func (l *Ledger) CreateSubscription(ctx context.Context, caller Caller, in subscription.CreateInput, now types.Timestamp) (sub *subscription.Subscription, err error) {
	ctx, span := l.startSpan(ctx, "CreateSubscription",
		attribute.String("subscription.owner", in.Owner.String()),
	)
	defer func() { endSpan(span, err) }()

	err = l.locked(func() error {
		txn := store.Begin(l.store)
		created, err := l.createSubscription(ctx, txn, caller, in, now)
		if err != nil {
			return err
		}
		if err := l.commit(ctx, txn); err != nil {
			return err
		}
		sub = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("subscription.id", sub.ID.String()))
	l.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"owner", sub.Owner,
		"amount", sub.Amount,
		"next_due_at", sub.NextDueAt,
	)
	l.plugins.EmitSubscriptionCreated(ctx, sub)
	return sub, nil
}

// CancelSubscription moves an active subscription to cancelled. Only the
// owner may cancel, and cancellation is final.
func (l *Ledger) CancelSubscription(ctx context.Context, caller Caller, subID id.SubscriptionID, now types.Timestamp) (sub *subscription.Subscription, err error) {
	ctx, span := l.startSpan(ctx, "CancelSubscription",
		attribute.String("subscription.id", subID.String()),
	)
	defer func() { endSpan(span, err) }()

	err = l.locked(func() error {
		txn := store.Begin(l.store)
		cancelled, err := l.cancelSubscription(ctx, txn, caller, subID, now)
		if err != nil {
			return err
		}
		if err := l.commit(ctx, txn); err != nil {
			return err
		}
		sub = cancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("subscription cancelled", "subscription_id", subID)
	l.plugins.EmitSubscriptionCancelled(ctx, sub)
	return sub, nil
}

// SetBatchDelegate lets owner authorize delegate to renew and batch-process
// its subscriptions. An empty delegate revokes the authorization.
func (l *Ledger) SetBatchDelegate(ctx context.Context, caller Caller, owner, delegate types.Address, now types.Timestamp) (err error) {
	ctx, span := l.startSpan(ctx, "SetBatchDelegate",
		attribute.String("subscription.owner", owner.String()),
	)
	defer func() { endSpan(span, err) }()

	err = l.locked(func() error {
		txn := store.Begin(l.store)
		if err := l.setBatchDelegate(ctx, txn, caller, owner, delegate, now); err != nil {
			return err
		}
		return l.commit(ctx, txn)
	})
	if err != nil {
		return err
	}

	l.logger.Info("batch delegate changed", "owner", owner, "delegate", delegate)
	l.plugins.EmitDelegateChanged(ctx, owner, delegate)
	return nil
}

// ──────────────────────────────────────────────────
// Renewal
// ──────────────────────────────────────────────────

// RenewSubscription collects one period of a due subscription.
//
// The caller must be the subscriber, the owner, or the owner's batch
// delegate. On a successful collection the recipient and owner shares are
// credited and the next due time moves forward by one period. When the
// subscriber cannot fund the renewal the subscription expires and nothing is
// credited; that is reported through the result, not as an error. Any other
// payment failure returns ErrPaymentFailed and changes nothing.
func (l *Ledger) RenewSubscription(ctx context.Context, caller Caller, subID id.SubscriptionID, now types.Timestamp) (result *RenewalResult, err error) {
	ctx, span := l.startSpan(ctx, "RenewSubscription",
		attribute.String("subscription.id", subID.String()),
	)
	defer func() { endSpan(span, err) }()

	err = l.locked(func() error {
		var err error
		result, err = l.renew(ctx, caller, subID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("renewal.outcome", string(result.Outcome)))
	l.emitRenewal(ctx, result)
	return result, nil
}

// renew runs RenewSubscription under the engine lock.
func (l *Ledger) renew(ctx context.Context, caller Caller, subID id.SubscriptionID, now types.Timestamp) (*RenewalResult, error) {
	sub, err := l.getSubscription(ctx, l.store, subID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive() {
		return nil, fmt.Errorf("subsplit: subscription %s is %s: %w", subID, sub.Status, ErrAlreadyTerminal)
	}
	ok, err := l.canRenew(ctx, l.store, caller, sub)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: caller may not renew subscription %s", ErrUnauthorized, subID)
	}
	if now < sub.NextDueAt {
		return nil, fmt.Errorf("subsplit: subscription %s due at %s: %w", subID, sub.NextDueAt, ErrNotDue)
	}

	plan, err := planRenewal(sub)
	if err != nil {
		return nil, err
	}

	txn := store.Begin(l.store)
	if err := l.checkCredits(ctx, txn, []*renewal{plan}); err != nil {
		return nil, err
	}

	res, err := l.collect(ctx, plan)
	if err != nil {
		return nil, err
	}

	result, err := l.applyRenewal(ctx, txn, plan, res, now)
	if err != nil {
		return nil, err
	}
	if err := l.commit(ctx, txn); err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessDueSubscriptions renews or expires owner's due subscriptions in
// owner index order and returns how many transitioned.
//
// At most maxCount subscriptions transition per call (further capped by
// WithMaxBatchSize); call again until it returns zero to drain a backlog.
// A subscription several periods behind advances one period per call.
// Each call scans the owner index from the start and reads every record it
// passes, terminal ones included, until the batch is full, so reads grow
// with the size of the index rather than with maxCount.
// All shares are checked for overflow before any payment is collected. If
// the payment provider fails mid-sweep, the transitions already collected
// are committed and their count is returned together with ErrPaymentFailed.
func (l *Ledger) ProcessDueSubscriptions(ctx context.Context, caller Caller, owner types.Address, maxCount int, now types.Timestamp) (processed int, err error) {
	start := time.Now()
	ctx, span := l.startSpan(ctx, "ProcessDueSubscriptions",
		attribute.String("subscription.owner", owner.String()),
		attribute.Int("batch.max_count", maxCount),
	)
	defer func() {
		span.SetAttributes(attribute.Int("batch.processed", processed))
		endSpan(span, err)
	}()

	var batch dueBatch
	err = l.locked(func() error {
		var err error
		batch, err = l.processDue(ctx, caller, owner, maxCount, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	if batch.selected == 0 {
		return 0, nil
	}
	results := batch.results

	for _, result := range results {
		l.emitRenewal(ctx, result)
	}
	elapsed := time.Since(start)
	l.plugins.EmitDueProcessed(ctx, owner, len(results), elapsed)

	l.logger.Info("processed due subscriptions",
		"owner", owner,
		"processed", len(results),
		"selected", batch.selected,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	if batch.stopErr != nil {
		l.logger.Warn("due sweep stopped early",
			"owner", owner,
			"processed", len(results),
			"error", batch.stopErr,
		)
		return len(results), batch.stopErr
	}
	return len(results), nil
}

// dueBatch is the committed outcome of one process-due call.
type dueBatch struct {
	results  []*RenewalResult
	selected int
	// stopErr is the payment error that ended the sweep early.
	stopErr error
}

// processDue runs ProcessDueSubscriptions under the engine lock.
func (l *Ledger) processDue(ctx context.Context, caller Caller, owner types.Address, maxCount int, now types.Timestamp) (dueBatch, error) {
	if maxCount <= 0 {
		return dueBatch{}, ValidationError{Field: "max_count", Message: "must be positive"}
	}
	if owner.IsZero() {
		return dueBatch{}, ValidationError{Field: "owner", Message: "must not be empty"}
	}
	ok, err := l.isBatchCaller(ctx, l.store, caller, owner)
	if err != nil {
		return dueBatch{}, err
	}
	if !ok {
		return dueBatch{}, fmt.Errorf("%w: caller may not process subscriptions of %s", ErrUnauthorized, owner)
	}

	limit := min(maxCount, l.maxBatchSize)
	plans := make([]*renewal, 0, limit)
	err = subscription.ScanIndex(ctx, l.store, owner, func(subID id.SubscriptionID) (bool, error) {
		sub, err := l.getSubscription(ctx, l.store, subID)
		if err != nil {
			return false, err
		}
		if !sub.IsDue(now) {
			return true, nil
		}
		plan, err := planRenewal(sub)
		if err != nil {
			return false, err
		}
		plans = append(plans, plan)
		return len(plans) < limit, nil
	})
	if err != nil {
		return dueBatch{}, err
	}
	if len(plans) == 0 {
		return dueBatch{}, nil
	}

	txn := store.Begin(l.store)
	if err := l.checkCredits(ctx, txn, plans); err != nil {
		return dueBatch{}, err
	}

	results := make([]*RenewalResult, 0, len(plans))
	var stopErr error
	for _, plan := range plans {
		res, err := l.collect(ctx, plan)
		if err != nil {
			stopErr = err
			break
		}
		result, err := l.applyRenewal(ctx, txn, plan, res, now)
		if err != nil {
			stopErr = err
			break
		}
		results = append(results, result)
	}

	if err := l.commit(ctx, txn); err != nil {
		return dueBatch{}, err
	}
	return dueBatch{results: results, selected: len(plans), stopErr: stopErr}, nil
}

// planRenewal computes the split and next due time of sub's next period.
func planRenewal(sub *subscription.Subscription) (*renewal, error) {
	recipientShare, ownerShare, err := types.Split(sub.Amount, sub.SplitBps)
	if err != nil {
		return nil, fmt.Errorf("subsplit: split subscription %s: %w", sub.ID, err)
	}
	nextDue, err := advancePeriod(sub)
	if err != nil {
		return nil, err
	}
	return &renewal{
		sub:            sub,
		recipientShare: recipientShare,
		ownerShare:     ownerShare,
		nextDue:        nextDue,
		chargeID:       id.NewChargeID(),
	}, nil
}

// checkCredits stages every share of plans on a scratch transaction and
// discards it, surfacing any balance overflow before value moves. Expiries
// only credit less, so a batch that passes cannot overflow when applied.
func (l *Ledger) checkCredits(ctx context.Context, r store.Reader, plans []*renewal) error {
	scratch := store.Begin(r)
	for _, p := range plans {
		if err := l.credit(ctx, scratch, p.sub.Recipient, p.recipientShare); err != nil {
			return err
		}
		if err := l.credit(ctx, scratch, p.sub.Owner, p.ownerShare); err != nil {
			return err
		}
	}
	return nil
}

// collect asks the payment provider for one period of p.
func (l *Ledger) collect(ctx context.Context, p *renewal) (payment.CollectResult, error) {
	res, err := l.payments.Collect(ctx, payment.CollectRequest{
		Reference:      p.chargeID,
		SubscriptionID: p.sub.ID,
		Payer:          p.sub.Subscriber,
		Amount:         p.sub.Amount,
		DueAt:          p.sub.NextDueAt,
	})
	if err != nil {
		return res, fmt.Errorf("%w: collect subscription %s: %w", ErrPaymentFailed, p.sub.ID, err)
	}

	switch res.Status {
	case payment.StatusCollected, payment.StatusInsufficientFunds:
		return res, nil
	default:
		return res, fmt.Errorf("%w: collect subscription %s: unknown status %q", ErrPaymentFailed, p.sub.ID, res.Status)
	}
}

// applyRenewal stages the transition for a collection outcome.
func (l *Ledger) applyRenewal(ctx context.Context, txn *store.Txn, p *renewal, res payment.CollectResult, now types.Timestamp) (*RenewalResult, error) {
	sub := p.sub
	c := &charge.Charge{
		Entity:         types.NewEntity(now),
		ID:             p.chargeID,
		SubscriptionID: sub.ID,
		Payer:          sub.Subscriber,
		Recipient:      sub.Recipient,
		Owner:          sub.Owner,
		Amount:         sub.Amount,
		DueAt:          sub.NextDueAt,
		ProviderRef:    res.ProviderRef,
	}
	result := &RenewalResult{Subscription: sub, Charge: c}

	if res.Status == payment.StatusInsufficientFunds {
		markExpired(sub, now)
		c.Outcome = charge.OutcomeDeclined
		result.Outcome = OutcomeExpired
	} else {
		if err := l.credit(ctx, txn, sub.Recipient, p.recipientShare); err != nil {
			return nil, err
		}
		if err := l.credit(ctx, txn, sub.Owner, p.ownerShare); err != nil {
			return nil, err
		}
		sub.NextDueAt = p.nextDue
		sub.LastPaidAt = now
		sub.Renewals++
		sub.Touch(now)

		c.Outcome = charge.OutcomeCollected
		c.RecipientShare = p.recipientShare
		c.OwnerShare = p.ownerShare
		result.Outcome = OutcomeRenewed
		result.RecipientShare = p.recipientShare
		result.OwnerShare = p.ownerShare
	}
	sub.LastChargeID = c.ID

	if err := subscription.Put(txn, sub); err != nil {
		return nil, err
	}
	if err := charge.Put(txn, c); err != nil {
		return nil, err
	}
	return result, nil
}

// emitRenewal logs a committed renewal and notifies plugins.
func (l *Ledger) emitRenewal(ctx context.Context, r *RenewalResult) {
	sub := r.Subscription
	switch r.Outcome {
	case OutcomeExpired:
		l.logger.Info("subscription expired",
			"subscription_id", sub.ID,
			"charge_id", r.Charge.ID,
		)
		l.plugins.EmitSubscriptionExpired(ctx, sub, r.Charge)
	case OutcomeRenewed:
		l.logger.Info("subscription renewed",
			"subscription_id", sub.ID,
			"charge_id", r.Charge.ID,
			"recipient_share", r.RecipientShare,
			"owner_share", r.OwnerShare,
			"next_due_at", sub.NextDueAt,
		)
		if r.RecipientShare > 0 {
			l.plugins.EmitRevenueCredited(ctx, sub.Recipient, r.RecipientShare, sub.ID)
		}
		if r.OwnerShare > 0 {
			l.plugins.EmitRevenueCredited(ctx, sub.Owner, r.OwnerShare, sub.ID)
		}
		l.plugins.EmitSubscriptionRenewed(ctx, sub, r.Charge)
	}
}

// ──────────────────────────────────────────────────
// Withdrawal
// ──────────────────────────────────────────────────

// WithdrawRevenue pays out recipient's whole accrued balance and returns it.
//
// Only the recipient may withdraw. The balance is zeroed only after the
// payout succeeds; a failed payout leaves it untouched and returns
// ErrPaymentFailed.
func (l *Ledger) WithdrawRevenue(ctx context.Context, caller Caller, recipient types.Address) (amount types.Amount, err error) {
	ctx, span := l.startSpan(ctx, "WithdrawRevenue",
		attribute.String("revenue.recipient", recipient.String()),
	)
	defer func() { endSpan(span, err) }()

	var w withdrawal
	err = l.locked(func() error {
		var err error
		w, err = l.withdraw(ctx, caller, recipient)
		return err
	})
	if w.payoutErr != nil {
		l.plugins.EmitPayoutFailed(ctx, recipient, w.amount, w.payoutErr)
		return 0, err
	}
	if err != nil {
		return 0, err
	}
	amount, payoutID := w.amount, w.payoutID

	span.SetAttributes(attribute.Int64("revenue.amount", int64(amount)))
	l.logger.Info("revenue withdrawn",
		"recipient", recipient,
		"amount", amount,
		"payout_id", payoutID,
	)
	l.plugins.EmitRevenueWithdrawn(ctx, recipient, amount, payoutID)
	return amount, nil
}

// withdrawal is the outcome of one withdraw call.
type withdrawal struct {
	amount   types.Amount
	payoutID id.PayoutID
	// payoutErr is set when the provider rejected the payout.
	payoutErr error
}

// withdraw runs WithdrawRevenue under the engine lock. A rejected payout is
// reported in payoutErr and also returned wrapped in ErrPaymentFailed.
func (l *Ledger) withdraw(ctx context.Context, caller Caller, recipient types.Address) (withdrawal, error) {
	if recipient.IsZero() {
		return withdrawal{}, ValidationError{Field: "recipient", Message: "must not be empty"}
	}
	if !caller.Is(recipient) {
		return withdrawal{}, fmt.Errorf("%w: only the recipient may withdraw", ErrUnauthorized)
	}

	txn := store.Begin(l.store)
	amount, err := l.debitAll(ctx, txn, recipient)
	if err != nil {
		return withdrawal{}, err
	}

	payoutID := id.NewPayoutID()
	if payoutErr := l.payments.Payout(ctx, payment.PayoutRequest{
		Reference: payoutID,
		Recipient: recipient,
		Amount:    amount,
	}); payoutErr != nil {
		l.logger.Warn("payout failed, balance kept",
			"recipient", recipient,
			"amount", amount,
			"error", payoutErr,
		)
		w := withdrawal{amount: amount, payoutID: payoutID, payoutErr: payoutErr}
		return w, fmt.Errorf("%w: payout to %s: %w", ErrPaymentFailed, recipient, payoutErr)
	}

	if err := l.commit(ctx, txn); err != nil {
		l.logger.Error("payout sent but balance not cleared",
			"recipient", recipient,
			"amount", amount,
			"payout_id", payoutID,
			"error", err,
		)
		return withdrawal{}, err
	}
	return withdrawal{amount: amount, payoutID: payoutID}, nil
}
