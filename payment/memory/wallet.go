// Package memory provides an in-process wallet Provider for tests and demos.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/subsplit/payment"
	"github.com/xraph/subsplit/types"
)

// ErrPayoutRejected is returned by Payout when FailPayouts is set.
var ErrPayoutRejected = errors.New("memory wallet: payout rejected")

// Wallet keeps spendable balances per address. Collections debit the payer,
// payouts credit the recipient.
type Wallet struct {
	mu sync.Mutex

	balances map[types.Address]types.Amount

	// Collected and PaidOut record every successful request in order.
	Collected []payment.CollectRequest
	PaidOut   []payment.PayoutRequest

	// Error fields allow tests to inject failures.
	CollectErr  error
	FailPayouts bool
}

var _ payment.Provider = (*Wallet)(nil)

// NewWallet creates an empty Wallet.
func NewWallet() *Wallet {
	return &Wallet{balances: make(map[types.Address]types.Amount)}
}

// Fund adds amount to addr's spendable balance.
func (w *Wallet) Fund(addr types.Address, amount types.Amount) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := types.CheckedAdd(w.balances[addr], amount)
	if err != nil {
		return fmt.Errorf("memory wallet: fund %s: %w", addr, err)
	}
	w.balances[addr] = next
	return nil
}

// Balance returns addr's spendable balance.
func (w *Wallet) Balance(addr types.Address) types.Amount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[addr]
}

// Collect debits the payer when funded and declines otherwise.
func (w *Wallet) Collect(_ context.Context, req payment.CollectRequest) (payment.CollectResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.CollectErr != nil {
		return payment.CollectResult{}, w.CollectErr
	}

	have := w.balances[req.Payer]
	if have < req.Amount {
		return payment.CollectResult{Status: payment.StatusInsufficientFunds}, nil
	}

	w.balances[req.Payer] = have - req.Amount
	w.Collected = append(w.Collected, req)
	return payment.CollectResult{
		Status:      payment.StatusCollected,
		ProviderRef: "wallet_" + req.Reference.String(),
	}, nil
}

// Payout credits the recipient unless FailPayouts is set.
func (w *Wallet) Payout(_ context.Context, req payment.PayoutRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.FailPayouts {
		return ErrPayoutRejected
	}

	next, err := types.CheckedAdd(w.balances[req.Recipient], req.Amount)
	if err != nil {
		return fmt.Errorf("memory wallet: payout %s: %w", req.Recipient, err)
	}
	w.balances[req.Recipient] = next
	w.PaidOut = append(w.PaidOut, req)
	return nil
}
