package store

import (
	"context"
	"fmt"
)

// Txn stages writes over a Reader. Reads see staged values first, so an
// operation can build on its own pending writes. Nothing reaches the
// backend until Commit.
//
// A Txn may be layered on another Txn as a scratch space; dropping the child
// discards its writes.
type Txn struct {
	base   Reader
	staged map[Key]Write
	order  []Key
}

// Begin starts a transaction reading through base.
func Begin(base Reader) *Txn {
	return &Txn{
		base:   base,
		staged: make(map[Key]Write),
	}
}

// Get returns the staged value for key if any, otherwise the base value.
func (t *Txn) Get(ctx context.Context, key Key) ([]byte, error) {
	if w, ok := t.staged[key]; ok {
		if w.Delete {
			return nil, ErrNotFound
		}
		return w.Value, nil
	}
	return t.base.Get(ctx, key)
}

// Has reports whether key exists after the staged writes.
func (t *Txn) Has(ctx context.Context, key Key) (bool, error) {
	if w, ok := t.staged[key]; ok {
		return !w.Delete, nil
	}
	return t.base.Has(ctx, key)
}

// Put stages value under key, replacing any earlier staged write.
func (t *Txn) Put(key Key, value []byte) {
	t.stage(Write{Key: key, Value: value})
}

// Delete stages removal of key.
func (t *Txn) Delete(key Key) {
	t.stage(Write{Key: key, Delete: true})
}

// Len returns the number of distinct staged keys.
func (t *Txn) Len() int {
	return len(t.order)
}

// Writes returns the staged writes in first-staged order.
func (t *Txn) Writes() []Write {
	writes := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		writes = append(writes, t.staged[k])
	}
	return writes
}

// Commit hands the staged writes to c in one call. An empty transaction
// commits nothing.
func (t *Txn) Commit(ctx context.Context, c Committer) error {
	if len(t.order) == 0 {
		return nil
	}
	if err := c.Commit(ctx, t.Writes()); err != nil {
		return fmt.Errorf("commit %d writes: %w", len(t.order), err)
	}
	return nil
}

func (t *Txn) stage(w Write) {
	if _, ok := t.staged[w.Key]; !ok {
		t.order = append(t.order, w.Key)
	}
	t.staged[w.Key] = w
}
