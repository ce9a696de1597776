package subsplit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subsplit"
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/types"
)

func subIDs(subs []*subsplit.Subscription) []id.SubscriptionID {
	out := make([]id.SubscriptionID, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.ID)
	}
	return out
}

func TestListSubscriptionsPaging(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	other := defaultInput()
	other.Owner = "GOTHER"
	var mine []id.SubscriptionID
	for i := range 6 {
		if i%2 == 0 {
			create(t, l, other, t0)
			continue
		}
		mine = append(mine, create(t, l, defaultInput(), t0).ID)
	}

	count, err := l.CountSubscriptions(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	page, err := l.ListSubscriptions(ctx, owner, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, mine[:2], subIDs(page))

	page, err = l.ListSubscriptions(ctx, owner, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, mine[2:], subIDs(page))

	page, err = l.ListSubscriptions(ctx, owner, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = l.ListSubscriptions(ctx, "GNOBODY", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestListSubscriptionsIncludesTerminal(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	sub := create(t, l, defaultInput(), t0)
	_, err := l.CancelSubscription(ctx, subsplit.CallerOf(owner), sub.ID, t0)
	require.NoError(t, err)

	page, err := l.ListSubscriptions(ctx, owner, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, subsplit.StatusCancelled, page[0].Status)
}

func TestPagingValidation(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	_, err := l.ListSubscriptions(ctx, owner, -1, 10)
	assert.ErrorIs(t, err, subsplit.ErrInvalidInput)
	_, err = l.ListSubscriptions(ctx, owner, 0, 0)
	assert.ErrorIs(t, err, subsplit.ErrInvalidInput)
	_, err = l.GetAllSubscriptions(ctx, -1, 10)
	assert.ErrorIs(t, err, subsplit.ErrInvalidInput)
	_, err = l.GetAllSubscriptions(ctx, 0, -3)
	assert.ErrorIs(t, err, subsplit.ErrInvalidInput)
	_, err = l.ListSubscriptionsAfter(ctx, owner, 0, 0)
	assert.ErrorIs(t, err, subsplit.ErrInvalidInput)
}

func TestPagingClampsLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, subsplit.WithMaxPageSize(4))
	for range 10 {
		create(t, l, defaultInput(), t0)
	}

	page, err := l.ListSubscriptions(ctx, owner, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, page, 4)

	page, err = l.GetAllSubscriptions(ctx, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, page, 4)
}

func TestListAcrossIndexChunks(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, subsplit.WithMaxPageSize(1000))
	const n = 300
	for range n {
		create(t, l, defaultInput(), t0)
	}

	page, err := l.ListSubscriptions(ctx, owner, 120, 20)
	require.NoError(t, err)
	require.Len(t, page, 20)
	for i, sub := range page {
		assert.Equal(t, id.SubscriptionID(121+i), sub.ID)
	}

	page, err = l.ListSubscriptions(ctx, owner, 250, 100)
	require.NoError(t, err)
	require.Len(t, page, 50)
	assert.Equal(t, id.SubscriptionID(251), page[0].ID)
	assert.Equal(t, id.SubscriptionID(300), page[49].ID)

	page, err = l.ListSubscriptions(ctx, owner, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, page, n)
}

func TestGetAllSubscriptions(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	page, err := l.GetAllSubscriptions(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	other := defaultInput()
	other.Owner = "GOTHER"
	for i := range 5 {
		in := defaultInput()
		if i%2 == 1 {
			in = other
		}
		create(t, l, in, t0)
	}

	page, err = l.GetAllSubscriptions(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []id.SubscriptionID{2, 3, 4}, subIDs(page))
	assert.Equal(t, types.Address("GOTHER"), page[0].Owner)

	page, err = l.GetAllSubscriptions(ctx, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, []id.SubscriptionID{5}, subIDs(page))

	page, err = l.GetAllSubscriptions(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	total, err := l.TotalSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
}

func TestListSubscriptionsAfter(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	for range 5 {
		create(t, l, defaultInput(), t0)
	}

	page, err := l.ListSubscriptionsAfter(ctx, owner, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []id.SubscriptionID{1, 2}, subIDs(page))

	page, err = l.ListSubscriptionsAfter(ctx, owner, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []id.SubscriptionID{3, 4}, subIDs(page))

	// Creations between calls do not shift the cursor.
	create(t, l, defaultInput(), t0)
	page, err = l.ListSubscriptionsAfter(ctx, owner, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, []id.SubscriptionID{5, 6}, subIDs(page))
}

func TestGetSubscriptionMissing(t *testing.T) {
	l, _ := newLedger(t)

	_, err := l.GetSubscription(context.Background(), 1)
	assert.ErrorIs(t, err, subsplit.ErrNotFound)
}

func TestGetChargeMissing(t *testing.T) {
	l, _ := newLedger(t)

	_, err := l.GetCharge(context.Background(), id.NewChargeID())
	assert.ErrorIs(t, err, subsplit.ErrNotFound)
}

func TestBalanceOfUnknownAddress(t *testing.T) {
	l, _ := newLedger(t)
	assert.Zero(t, balance(t, l, "GNEVERSEEN"))
}
