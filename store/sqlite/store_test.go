package sqlite_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/subsplit"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/store/sqlite"
	"github.com/xraph/subsplit/types"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	sdb := sqlitedriver.New()
	require.NoError(t, sdb.Open(ctx, filepath.Join(t.TempDir(), "subsplit.db")))
	db, err := grove.Open(sdb)
	require.NoError(t, err)

	s := sqlite.New(db)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestMigrateTwice(t *testing.T) {
	s := openStore(t)

	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Ping(context.Background()))
}

func TestCommitPutsAndReadsBack(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a := store.NewKey(store.KindBalance, "GA")
	b := store.NewKey(store.KindBalance, "GB")

	_, err := s.Get(ctx, a)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Commit(ctx, []store.Write{
		{Key: a, Value: []byte{0x01}},
		{Key: b, Value: []byte{0x02}},
		{Key: a, Value: []byte{0x03}},
	}))

	got, err := s.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03}, got)

	got, err = s.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, got)

	// A second commit updates existing rows in place.
	require.NoError(t, s.Commit(ctx, []store.Write{{Key: b, Value: []byte{0x04, 0x05}}}))
	got, err = s.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x05}, got)
}

func TestDeleteLeavesTombstone(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	k := store.NewKey(store.KindDelegate, "GOWNER")

	require.NoError(t, s.Commit(ctx, []store.Write{{Key: k, Value: []byte{0x01}}}))
	has, err := s.Has(ctx, k)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Commit(ctx, []store.Write{{Key: k, Delete: true}}))

	has, err = s.Has(ctx, k)
	require.NoError(t, err)
	assert.False(t, has)
	_, err = s.Get(ctx, k)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Writing the key again revives it.
	require.NoError(t, s.Commit(ctx, []store.Write{{Key: k, Value: []byte{0x02}}}))
	got, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, got)
}

func TestPurgeTombstones(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	live := store.NewKey(store.KindBalance, "GLIVE")
	gone := store.NewKey(store.KindDelegate, "GGONE")

	require.NoError(t, s.Commit(ctx, []store.Write{
		{Key: live, Value: []byte{0x01}},
		{Key: gone, Delete: true},
	}))

	n, err := s.PurgeTombstones(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "tombstone is newer than the cutoff")

	n, err = s.PurgeTombstones(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	has, err := s.Has(ctx, live)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLedgerOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	const (
		owner      types.Address = "GOWNER"
		subscriber types.Address = "GSUBSCRIBER"
		recipient  types.Address = "GRECIPIENT"
		delegate   types.Address = "GDELEGATE"
	)
	var now types.Timestamp = 1_700_000_000

	l := subsplit.New(s, subsplit.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, l.Start(ctx))

	sub, err := l.CreateSubscription(ctx, subsplit.CallerOf(owner), subsplit.CreateInput{
		Owner:         owner,
		Subscriber:    subscriber,
		Amount:        1_000_000,
		PeriodSeconds: 2_592_000,
		Recipient:     recipient,
		SplitBps:      1500,
	}, now)
	require.NoError(t, err)

	require.NoError(t, l.SetBatchDelegate(ctx, subsplit.CallerOf(owner), owner, delegate, now))
	n, err := l.ProcessDueSubscriptions(ctx, subsplit.CallerOf(delegate), owner, 10, sub.NextDueAt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Clearing the delegate deletes its record.
	require.NoError(t, l.SetBatchDelegate(ctx, subsplit.CallerOf(owner), owner, "", now))
	got, err := l.BatchDelegate(ctx, owner)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	amount, err := l.WithdrawRevenue(ctx, subsplit.CallerOf(recipient), recipient)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(150_000), amount)

	bal, err := l.BalanceOf(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(850_000), bal)

	subs, err := l.ListSubscriptions(ctx, owner, 0, 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.ID, subs[0].ID)
	assert.Equal(t, uint64(1), subs[0].Renewals)
}
