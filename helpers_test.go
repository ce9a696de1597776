package subsplit_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/subsplit"
	"github.com/xraph/subsplit/payment"
	"github.com/xraph/subsplit/store"
	memstore "github.com/xraph/subsplit/store/memory"
	"github.com/xraph/subsplit/types"
)

const (
	owner      types.Address = "GOWNER"
	subscriber types.Address = "GSUBSCRIBER"
	recipient  types.Address = "GRECIPIENT"
	stranger   types.Address = "GSTRANGER"
	delegate   types.Address = "GDELEGATE"

	t0     types.Timestamp = 1_700_000_000
	period int64           = 2_592_000
)

// failingStore is a memory store whose next Commit can be made to fail.
type failingStore struct {
	*memstore.Store

	mu       sync.Mutex
	failNext error
}

func (s *failingStore) failNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *failingStore) Commit(ctx context.Context, writes []store.Write) error {
	s.mu.Lock()
	err := s.failNext
	s.failNext = nil
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.Store.Commit(ctx, writes)
}

func newLedger(t *testing.T, opts ...subsplit.Option) (*subsplit.Ledger, *failingStore) {
	t.Helper()

	s := &failingStore{Store: memstore.New()}
	opts = append([]subsplit.Option{subsplit.WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	l := subsplit.New(s, opts...)
	require.NoError(t, l.Initialize(context.Background(), t0))
	return l, s
}

func defaultInput() subsplit.CreateInput {
	return subsplit.CreateInput{
		Owner:         owner,
		Subscriber:    subscriber,
		Amount:        1_000_000,
		PeriodSeconds: period,
		Recipient:     recipient,
		SplitBps:      1500,
	}
}

func create(t *testing.T, l *subsplit.Ledger, in subsplit.CreateInput, now types.Timestamp) *subsplit.Subscription {
	t.Helper()

	sub, err := l.CreateSubscription(context.Background(), subsplit.CallerOf(in.Owner), in, now)
	require.NoError(t, err)
	return sub
}

func at(periods int64) types.Timestamp {
	return t0 + types.Timestamp(periods*period)
}

func balance(t *testing.T, l *subsplit.Ledger, addr types.Address) types.Amount {
	t.Helper()

	b, err := l.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b
}

// scriptedProvider is a payment.Provider whose answers are decided per call.
type scriptedProvider struct {
	mu       sync.Mutex
	collects []payment.CollectRequest
	payouts  []payment.PayoutRequest

	collectFn func(n int, req payment.CollectRequest) (payment.CollectResult, error)
	payoutFn  func(req payment.PayoutRequest) error
}

func (p *scriptedProvider) Collect(_ context.Context, req payment.CollectRequest) (payment.CollectResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.collects = append(p.collects, req)
	if p.collectFn != nil {
		return p.collectFn(len(p.collects), req)
	}
	return payment.CollectResult{Status: payment.StatusCollected}, nil
}

func (p *scriptedProvider) Payout(_ context.Context, req payment.PayoutRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.payoutFn != nil {
		if err := p.payoutFn(req); err != nil {
			return err
		}
	}
	p.payouts = append(p.payouts, req)
	return nil
}
