package types

import (
	"strconv"
	"time"
)

// SecondsPerDay converts day-based periods into seconds.
const SecondsPerDay int64 = 86400

// Timestamp is a host-supplied point in time in unix seconds.
// The ledger never reads the wall clock; every operation receives "now".
type Timestamp int64

// FromTime converts t to a Timestamp.
func FromTime(t time.Time) Timestamp { return Timestamp(t.Unix()) }

// Time returns the Timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0).UTC() }

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool { return t == 0 }

// Before reports whether t is strictly before u.
func (t Timestamp) Before(u Timestamp) bool { return t < u }

// AddSeconds returns t+seconds, failing with ErrOverflow/ErrUnderflow instead of wrapping.
func (t Timestamp) AddSeconds(seconds int64) (Timestamp, error) {
	return CheckedAdd(t, Timestamp(seconds))
}

// String returns the decimal unix seconds.
func (t Timestamp) String() string { return strconv.FormatInt(int64(t), 10) }

// PeriodFromDays converts a day count into seconds with overflow checking.
func PeriodFromDays(days int64) (int64, error) {
	return CheckedMul(days, SecondsPerDay)
}
