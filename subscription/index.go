package subscription

import (
	"context"
	"strconv"

	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/types"
)

// IndexChunkSize is the number of ids held by one owner index chunk.
// Appends rewrite at most one chunk and the header, and a page read loads
// only the chunks it overlaps.
const IndexChunkSize = 128

// IndexHeader records how many ids an owner's index holds.
type IndexHeader struct {
	Owner types.Address `json:"owner"`
	Count uint64        `json:"count"`
}

type indexChunk struct {
	IDs []id.SubscriptionID `json:"ids"`
}

func indexKey(owner types.Address) store.Key {
	return store.NewKey(store.KindOwnerIndex, owner.String())
}

func chunkKey(owner types.Address, n uint64) store.Key {
	return store.NewKey(store.KindOwnerIndexChunk, owner.String()+"/"+strconv.FormatUint(n, 10))
}

// IndexLen returns the number of ids in the owner's index.
func IndexLen(ctx context.Context, r store.Reader, owner types.Address) (uint64, error) {
	h, err := loadHeader(ctx, r, owner)
	if err != nil {
		return 0, err
	}
	return h.Count, nil
}

// AppendIndex stages subID at the end of the owner's index.
func AppendIndex(ctx context.Context, t *store.Txn, owner types.Address, subID id.SubscriptionID) error {
	h, err := loadHeader(ctx, t, owner)
	if err != nil {
		return err
	}

	n := h.Count / IndexChunkSize
	c, err := loadChunk(ctx, t, owner, n)
	if err != nil {
		return err
	}

	c.IDs = append(c.IDs, subID)
	h.Count++

	if err := store.Save(t, chunkKey(owner, n), c); err != nil {
		return err
	}
	return store.Save(t, indexKey(owner), h)
}

// IndexRange returns up to limit ids starting at position offset.
func IndexRange(ctx context.Context, r store.Reader, owner types.Address, offset, limit uint64) ([]id.SubscriptionID, error) {
	h, err := loadHeader(ctx, r, owner)
	if err != nil {
		return nil, err
	}
	if offset >= h.Count || limit == 0 {
		return []id.SubscriptionID{}, nil
	}

	end := min(h.Count, offset+limit)
	if end < offset {
		end = h.Count
	}

	out := make([]id.SubscriptionID, 0, end-offset)
	for pos := offset; pos < end; {
		n := pos / IndexChunkSize
		c, err := loadChunk(ctx, r, owner, n)
		if err != nil {
			return nil, err
		}
		from := pos % IndexChunkSize
		to := min(uint64(len(c.IDs)), from+(end-pos))
		if from >= to {
			break
		}
		out = append(out, c.IDs[from:to]...)
		pos += to - from
	}
	return out, nil
}

// IndexAfter returns up to limit ids greater than startAfter. Ids are
// appended in allocation order so each owner's index is ascending.
func IndexAfter(ctx context.Context, r store.Reader, owner types.Address, startAfter id.SubscriptionID, limit uint64) ([]id.SubscriptionID, error) {
	h, err := loadHeader(ctx, r, owner)
	if err != nil {
		return nil, err
	}

	out := make([]id.SubscriptionID, 0, min(limit, h.Count))
	chunks := (h.Count + IndexChunkSize - 1) / IndexChunkSize
	for n := uint64(0); n < chunks && uint64(len(out)) < limit; n++ {
		c, err := loadChunk(ctx, r, owner, n)
		if err != nil {
			return nil, err
		}
		if len(c.IDs) == 0 || c.IDs[len(c.IDs)-1] <= startAfter {
			continue
		}
		for _, subID := range c.IDs {
			if subID <= startAfter {
				continue
			}
			out = append(out, subID)
			if uint64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

// ScanIndex calls fn for each id in index order until fn returns false or an error.
func ScanIndex(ctx context.Context, r store.Reader, owner types.Address, fn func(id.SubscriptionID) (bool, error)) error {
	h, err := loadHeader(ctx, r, owner)
	if err != nil {
		return err
	}

	chunks := (h.Count + IndexChunkSize - 1) / IndexChunkSize
	for n := uint64(0); n < chunks; n++ {
		c, err := loadChunk(ctx, r, owner, n)
		if err != nil {
			return err
		}
		for _, subID := range c.IDs {
			more, err := fn(subID)
			if err != nil || !more {
				return err
			}
		}
	}
	return nil
}

func loadHeader(ctx context.Context, r store.Reader, owner types.Address) (*IndexHeader, error) {
	h := &IndexHeader{Owner: owner}
	ok, err := r.Has(ctx, indexKey(owner))
	if err != nil || !ok {
		return h, err
	}
	if err := store.Load(ctx, r, indexKey(owner), h); err != nil {
		return nil, err
	}
	return h, nil
}

func loadChunk(ctx context.Context, r store.Reader, owner types.Address, n uint64) (*indexChunk, error) {
	c := &indexChunk{}
	ok, err := r.Has(ctx, chunkKey(owner, n))
	if err != nil || !ok {
		return c, err
	}
	if err := store.Load(ctx, r, chunkKey(owner, n), c); err != nil {
		return nil, err
	}
	return c, nil
}
