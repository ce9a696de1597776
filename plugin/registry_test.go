package plugin_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/plugin"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

type createdCounter struct {
	name  string
	calls atomic.Int32
}

func (c *createdCounter) Name() string { return c.name }

func (c *createdCounter) OnSubscriptionCreated(context.Context, *subscription.Subscription) error {
	c.calls.Add(1)
	return nil
}

type slowCredit struct {
	delay time.Duration
}

func (s *slowCredit) Name() string { return "slow" }

func (s *slowCredit) OnRevenueCredited(ctx context.Context, _ types.Address, _ types.Amount, _ id.SubscriptionID) error {
	time.Sleep(s.delay)
	return nil
}

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.DiscardHandler))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newRegistry()

	require.NoError(t, r.Register(&createdCounter{name: "a"}))
	require.Error(t, r.Register(&createdCounter{name: "a"}))
	require.NoError(t, r.Register(&createdCounter{name: "b"}))

	assert.Equal(t, 2, r.Count())
	assert.NotNil(t, r.Get("b"))
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.List(), 2)
}

func TestEmitDispatchesOnlyToImplementers(t *testing.T) {
	r := newRegistry()
	c := &createdCounter{name: "counter"}
	require.NoError(t, r.Register(c))
	require.NoError(t, r.Register(&slowCredit{}))

	ctx := context.Background()
	r.EmitSubscriptionCreated(ctx, &subscription.Subscription{ID: 1})
	r.EmitSubscriptionCreated(ctx, &subscription.Subscription{ID: 2})
	r.EmitSubscriptionCancelled(ctx, &subscription.Subscription{ID: 1})

	assert.Equal(t, int32(2), c.calls.Load())
}

func TestEmitHonorsTimeout(t *testing.T) {
	r := newRegistry().WithTimeout(10 * time.Millisecond)
	require.NoError(t, r.Register(&slowCredit{delay: time.Second}))

	start := time.Now()
	r.EmitRevenueCredited(context.Background(), "GRECIPIENT", 10, 1)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
