// Package id defines identity types for subsplit records.
//
// Subscriptions are numbered from a persisted counter so that owner indexes
// and global pagination can be expressed as plain integer ranges. Every other
// record (charges, payouts) uses a TypeID: K-sortable, globally unique, and
// URL-safe in the format "prefix_suffix".
package id

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for TypeID-keyed records.
const (
	PrefixCharge Prefix = "chg" // Renewal charge receipt
	PrefixPayout Prefix = "po"  // Withdrawal payout reference
)

// ID wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for decoding.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "chg_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// ChargeID is a type-safe identifier for charge receipts (prefix: "chg").
type ChargeID = ID

// PayoutID is a type-safe identifier for payout references (prefix: "po").
type PayoutID = ID

// NewChargeID generates a new unique charge ID.
func NewChargeID() ID { return New(PrefixCharge) }

// NewPayoutID generates a new unique payout ID.
func NewPayoutID() ID { return New(PrefixPayout) }

// ParseChargeID parses a string and validates the "chg" prefix.
func ParseChargeID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCharge) }

// ParsePayoutID parses a string and validates the "po" prefix.
func ParsePayoutID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPayout) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// MarshalCBOR implements cbor.Marshaler. IDs are stored as text strings.
func (i ID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.String())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (i *ID) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id: decode cbor: %w", err)
	}

	return i.UnmarshalText([]byte(s))
}
