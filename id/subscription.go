package id

import (
	"fmt"
	"strconv"
)

// SubscriptionID is the sequential identifier of a subscription.
// Zero is never allocated; the first subscription is 1.
type SubscriptionID uint64

// NilSubscription is the unallocated subscription ID.
const NilSubscription SubscriptionID = 0

// ParseSubscriptionID parses the decimal form produced by String.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NilSubscription, fmt.Errorf("id: parse subscription %q: %w", s, err)
	}
	if n == 0 {
		return NilSubscription, fmt.Errorf("id: parse subscription %q: zero is not a valid id", s)
	}

	return SubscriptionID(n), nil
}

// String returns the decimal form of the ID.
func (s SubscriptionID) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// IsNil reports whether the ID is unallocated.
func (s SubscriptionID) IsNil() bool { return s == NilSubscription }

// Next returns the ID that follows s, failing once the sequence is exhausted.
func (s SubscriptionID) Next() (SubscriptionID, error) {
	if s == ^SubscriptionID(0) {
		return NilSubscription, fmt.Errorf("id: subscription sequence exhausted")
	}

	return s + 1, nil
}
