package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subsplit/store"
)

type mapStore struct {
	data    map[store.Key][]byte
	commits [][]store.Write
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[store.Key][]byte)}
}

func (m *mapStore) Get(_ context.Context, key store.Key) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (m *mapStore) Has(_ context.Context, key store.Key) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *mapStore) Commit(_ context.Context, writes []store.Write) error {
	m.commits = append(m.commits, writes)
	for _, w := range writes {
		if w.Delete {
			delete(m.data, w.Key)
			continue
		}
		m.data[w.Key] = w.Value
	}
	return nil
}

func TestTxnReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	base := newMapStore()
	k := store.NewKey(store.KindBalance, "alice")
	base.data[k] = []byte("old")

	txn := store.Begin(base)
	txn.Put(k, []byte("new"))

	got, err := txn.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)

	// Base is untouched until commit.
	assert.Equal(t, []byte("old"), base.data[k])

	txn.Delete(k)
	_, err = txn.Get(ctx, k)
	assert.ErrorIs(t, err, store.ErrNotFound)
	has, err := txn.Has(ctx, k)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestTxnCommitIsSingleBatch(t *testing.T) {
	ctx := context.Background()
	base := newMapStore()
	a := store.NewKey(store.KindBalance, "a")
	b := store.NewKey(store.KindBalance, "b")

	txn := store.Begin(base)
	txn.Put(a, []byte("1"))
	txn.Put(b, []byte("2"))
	txn.Put(a, []byte("3"))

	require.Equal(t, 2, txn.Len())
	require.NoError(t, txn.Commit(ctx, base))
	require.Len(t, base.commits, 1)
	assert.Equal(t, []store.Write{
		{Key: a, Value: []byte("3")},
		{Key: b, Value: []byte("2")},
	}, base.commits[0])
}

func TestTxnEmptyCommitIsNoop(t *testing.T) {
	base := newMapStore()
	require.NoError(t, store.Begin(base).Commit(context.Background(), base))
	assert.Empty(t, base.commits)
}

func TestLoadSave(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Count int64  `json:"count"`
	}

	ctx := context.Background()
	base := newMapStore()
	k := store.NewKey(store.KindMeta, "rec")

	txn := store.Begin(base)
	require.NoError(t, store.Save(txn, k, record{Name: "x", Count: 3}))
	require.NoError(t, txn.Commit(ctx, base))

	var got record
	require.NoError(t, store.Load(ctx, base, k, &got))
	assert.Equal(t, record{Name: "x", Count: 3}, got)

	err := store.Load(ctx, base, store.NewKey(store.KindMeta, "missing"), &got)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEncodeIsDeterministic(t *testing.T) {
	v := map[string]int64{"b": 2, "a": 1, "c": 3}
	first, err := store.Encode(v)
	require.NoError(t, err)
	for range 10 {
		next, err := store.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

func TestCompactKeepsLastWritePerKey(t *testing.T) {
	a := store.NewKey(store.KindBalance, "a")
	b := store.NewKey(store.KindBalance, "b")

	got := store.Compact([]store.Write{
		{Key: a, Value: []byte("1")},
		{Key: b, Value: []byte("x")},
		{Key: a, Delete: true},
	})

	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Key)
	assert.True(t, got[0].Delete)
	assert.Equal(t, b, got[1].Key)
}
