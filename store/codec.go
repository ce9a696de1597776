package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding keeps identical records byte-identical
	// across backends and runs.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: cbor enc mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("store: cbor dec mode: %v", err))
	}
}

// Encode serializes a record.
func Encode(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode %T: %w", v, err)
	}
	return data, nil
}

// Decode deserializes a record produced by Encode.
func Decode(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %T: %w", v, err)
	}
	return nil
}

// Load reads and decodes the record at key into v.
// It returns ErrNotFound (wrapped) when the key is absent.
func Load(ctx context.Context, r Reader, key Key, v any) error {
	data, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("store: get %s: %w", key, err)
	}
	return Decode(data, v)
}

// Save encodes v and stages it under key.
func Save(t *Txn, key Key, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	t.Put(key, data)
	return nil
}
