package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subsplit"
	audithook "github.com/xraph/subsplit/audit_hook"
	"github.com/xraph/subsplit/store/memory"
	"github.com/xraph/subsplit/types"
)

type captured struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (c *captured) Record(_ context.Context, e *audithook.AuditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captured) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

func newLedger(t *testing.T, ext *audithook.Extension) *subsplit.Ledger {
	t.Helper()
	l := subsplit.New(memory.New(),
		subsplit.WithLogger(slog.New(slog.DiscardHandler)),
		subsplit.WithPlugin(ext),
	)
	require.NoError(t, l.Initialize(context.Background(), 0))
	return l
}

func runLifecycle(t *testing.T, l *subsplit.Ledger) {
	t.Helper()
	ctx := context.Background()
	owner := types.Address("GOWNER")

	sub, err := l.CreateSubscription(ctx, subsplit.CallerOf(owner), subsplit.CreateInput{
		Owner:         owner,
		Subscriber:    "GSUB",
		Amount:        100,
		PeriodSeconds: 10,
		Recipient:     "GREC",
		SplitBps:      5000,
	}, 0)
	require.NoError(t, err)

	_, err = l.RenewSubscription(ctx, subsplit.CallerOf("GSUB"), sub.ID, 10)
	require.NoError(t, err)
	_, err = l.WithdrawRevenue(ctx, subsplit.CallerOf("GREC"), "GREC")
	require.NoError(t, err)
	_, err = l.CancelSubscription(ctx, subsplit.CallerOf(owner), sub.ID, 11)
	require.NoError(t, err)
}

func TestRecordsLifecycle(t *testing.T) {
	rec := &captured{}
	l := newLedger(t, audithook.New(rec, audithook.WithLogger(slog.New(slog.DiscardHandler))))
	runLifecycle(t, l)

	assert.Equal(t, []string{
		audithook.ActionSubscriptionCreated,
		audithook.ActionRevenueCredited,
		audithook.ActionRevenueCredited,
		audithook.ActionSubscriptionRenewed,
		audithook.ActionRevenueWithdrawn,
		audithook.ActionSubscriptionCancelled,
	}, rec.actions())

	created := rec.events[0]
	assert.Equal(t, audithook.ResourceSubscription, created.Resource)
	assert.Equal(t, "1", created.ResourceID)
	assert.Equal(t, int64(100), created.Metadata["amount"])
}

func TestEnabledActions(t *testing.T) {
	rec := &captured{}
	l := newLedger(t, audithook.New(rec, audithook.WithEnabledActions(audithook.ActionRevenueWithdrawn)))
	runLifecycle(t, l)

	assert.Equal(t, []string{audithook.ActionRevenueWithdrawn}, rec.actions())
}

func TestDisabledActions(t *testing.T) {
	rec := &captured{}
	l := newLedger(t, audithook.New(rec, audithook.WithDisabledActions(audithook.ActionRevenueCredited)))
	runLifecycle(t, l)

	assert.NotContains(t, rec.actions(), audithook.ActionRevenueCredited)
	assert.Contains(t, rec.actions(), audithook.ActionSubscriptionRenewed)
}

func TestPayoutFailureRecordsReason(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec)

	require.NoError(t, ext.OnPayoutFailed(context.Background(), "GREC", 42, errors.New("bank offline")))
	require.Len(t, rec.events, 1)
	assert.Equal(t, audithook.SeverityCritical, rec.events[0].Severity)
	assert.Equal(t, "bank offline", rec.events[0].Reason)
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("audit store down")
	}), audithook.WithLogger(slog.New(slog.DiscardHandler)))

	assert.NoError(t, ext.OnDelegateChanged(context.Background(), "GOWNER", ""))
}
