package subscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/store/memory"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

const owner types.Address = "GOWNER"

func fill(t *testing.T, s *memory.Store, n int) {
	t.Helper()
	ctx := context.Background()

	txn := store.Begin(s)
	for i := 1; i <= n; i++ {
		require.NoError(t, subscription.AppendIndex(ctx, txn, owner, id.SubscriptionID(i)))
	}
	require.NoError(t, txn.Commit(ctx, s))
}

func TestIndexChunking(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	fill(t, s, 2*subscription.IndexChunkSize+1)

	n, err := subscription.IndexLen(ctx, s, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2*subscription.IndexChunkSize+1), n)

	// Header plus three chunks.
	assert.Equal(t, 4, s.Len())
}

func TestIndexRange(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	fill(t, s, 300)

	tests := []struct {
		name          string
		offset, limit uint64
		first         id.SubscriptionID
		want          int
	}{
		{"first page", 0, 10, 1, 10},
		{"spans chunk boundary", 120, 20, 121, 20},
		{"tail", 290, 50, 291, 10},
		{"past end", 300, 10, 0, 0},
		{"zero limit", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := subscription.IndexRange(ctx, s, owner, tt.offset, tt.limit)
			require.NoError(t, err)
			require.Len(t, ids, tt.want)
			for i, got := range ids {
				assert.Equal(t, tt.first+id.SubscriptionID(i), got)
			}
		})
	}
}

func TestIndexAfterAndScan(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	fill(t, s, 200)

	ids, err := subscription.IndexAfter(ctx, s, owner, 127, 3)
	require.NoError(t, err)
	assert.Equal(t, []id.SubscriptionID{128, 129, 130}, ids)

	ids, err = subscription.IndexAfter(ctx, s, owner, 200, 3)
	require.NoError(t, err)
	assert.Empty(t, ids)

	var seen []id.SubscriptionID
	err = subscription.ScanIndex(ctx, s, owner, func(subID id.SubscriptionID) (bool, error) {
		seen = append(seen, subID)
		return len(seen) < 130, nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 130)
	assert.Equal(t, id.SubscriptionID(130), seen[129])
}

func TestIndexUnknownOwner(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	n, err := subscription.IndexLen(ctx, s, "GNOBODY")
	require.NoError(t, err)
	assert.Zero(t, n)

	ids, err := subscription.IndexRange(ctx, s, "GNOBODY", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSequenceAndDelegate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, ok, err := subscription.GetSequence(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	txn := store.Begin(s)
	require.NoError(t, subscription.PutSequence(txn, subscription.Sequence{Last: 7}))
	require.NoError(t, subscription.PutDelegate(txn, &subscription.Delegate{Owner: owner, Delegate: "GDELEGATE"}))
	require.NoError(t, txn.Commit(ctx, s))

	seq, ok, err := subscription.GetSequence(ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id.SubscriptionID(7), seq.Last)

	d, ok, err := subscription.GetDelegate(ctx, s, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Address("GDELEGATE"), d.Delegate)

	txn = store.Begin(s)
	subscription.DeleteDelegate(txn, owner)
	require.NoError(t, txn.Commit(ctx, s))

	_, ok, err = subscription.GetDelegate(ctx, s, owner)
	require.NoError(t, err)
	assert.False(t, ok)
}
