package subsplit

import (
	"context"
	"fmt"

	"github.com/xraph/subsplit/revenue"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/types"
)

// credit stages amount into addr's balance. Zero credits write nothing, so a
// balance record only appears once value has actually accrued.
func (l *Ledger) credit(ctx context.Context, txn *store.Txn, addr types.Address, amount types.Amount) error {
	if amount < 0 {
		return ValidationError{Field: "amount", Message: "credit must not be negative"}
	}
	if amount == 0 {
		return nil
	}

	bal, err := revenue.Get(ctx, txn, addr)
	if err != nil {
		return err
	}

	next, err := bal.Amount.Add(amount)
	if err != nil {
		return fmt.Errorf("subsplit: credit %s: %w", addr, err)
	}
	bal.Amount = next

	return revenue.Put(txn, bal)
}

// debitAll stages a zero balance for addr and returns what it held.
// It is the only way value leaves a balance.
func (l *Ledger) debitAll(ctx context.Context, txn *store.Txn, addr types.Address) (types.Amount, error) {
	bal, err := revenue.Get(ctx, txn, addr)
	if err != nil {
		return 0, err
	}
	if bal.Amount.IsZero() {
		return 0, fmt.Errorf("subsplit: balance of %s is zero: %w", addr, ErrNothingToWithdraw)
	}

	amount := bal.Amount
	bal.Amount = 0
	if err := revenue.Put(txn, bal); err != nil {
		return 0, err
	}
	return amount, nil
}

// balanceOf reads addr's balance through r. Unknown addresses hold zero.
func (l *Ledger) balanceOf(ctx context.Context, r store.Reader, addr types.Address) (types.Amount, error) {
	bal, err := revenue.Get(ctx, r, addr)
	if err != nil {
		return 0, err
	}
	return bal.Amount, nil
}
