package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/subsplit/store"
)

// newUnconnected returns a Store whose driver was never opened. Query
// building and executor lookup need no connection.
func newUnconnected(t *testing.T) *Store {
	t.Helper()
	db, err := grove.Open(pgdriver.New())
	require.NoError(t, err)
	return New(db)
}

func TestToRecordModels(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bal := store.NewKey(store.KindBalance, "GRECIPIENT")
	del := store.NewKey(store.KindDelegate, "GOWNER")

	models := toRecordModels([]store.Write{
		{Key: bal, Value: []byte{0x01}},
		{Key: del, Delete: true},
		{Key: bal, Value: []byte{0x02}},
	}, now)

	require.Len(t, models, 2)
	assert.Equal(t, "balance", models[0].Kind)
	assert.Equal(t, "GRECIPIENT", models[0].RecordID)
	assert.Equal(t, []byte{0x02}, models[0].Value)
	assert.False(t, models[0].Deleted)

	assert.True(t, models[1].Deleted)
	assert.Empty(t, models[1].Value)
	assert.Equal(t, now, models[1].UpdatedAt)
}

func TestUpsertIsOneStatement(t *testing.T) {
	s := newUnconnected(t)
	models := toRecordModels([]store.Write{
		{Key: store.NewKey(store.KindBalance, "GA"), Value: []byte{0x01}},
		{Key: store.NewKey(store.KindBalance, "GB"), Delete: true},
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	query, args, err := s.upsert(&models).Build()
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(query, "INSERT INTO"))
	assert.Contains(t, query, "ON CONFLICT (kind, record_id) DO UPDATE SET value = EXCLUDED.value")
	assert.Contains(t, query, "updated_at = EXCLUDED.updated_at")
	// five columns per row
	assert.Len(t, args, 10)
}

func TestMigrationExecutorRegistered(t *testing.T) {
	s := newUnconnected(t)

	_, err := migrate.NewExecutorFor(s.pg)
	assert.NoError(t, err)
}
