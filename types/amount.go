// Package types provides the value types and checked arithmetic shared across
// subsplit.
package types

import (
	"errors"
	"math"
	"math/bits"
	"strconv"
)

// Arithmetic and validation errors. The root package re-exports these.
var (
	ErrOverflow     = errors.New("subsplit: arithmetic overflow")
	ErrUnderflow    = errors.New("subsplit: arithmetic underflow")
	ErrInvalidInput = errors.New("subsplit: invalid input")
)

// Amount is a value in the ledger's single fungible unit.
// All arithmetic is integer-only and must go through the Checked helpers.
type Amount int64

// MaxAmount is the largest representable Amount.
const MaxAmount Amount = math.MaxInt64

// BasisPoints expresses a share in units of 1/100 of a percent.
type BasisPoints int64

// MaxBasisPoints is 100%.
const MaxBasisPoints BasisPoints = 10000

// Signed is the set of 64-bit signed integer types the checked helpers accept.
type Signed interface {
	~int64
}

// CheckedAdd returns a+b or ErrOverflow/ErrUnderflow if the result does not fit.
func CheckedAdd[T Signed](a, b T) (T, error) {
	switch {
	case b > 0 && a > T(math.MaxInt64)-b:
		return 0, ErrOverflow
	case b < 0 && a < T(math.MinInt64)-b:
		return 0, ErrUnderflow
	}
	return a + b, nil
}

// CheckedSub returns a-b or ErrOverflow/ErrUnderflow if the result does not fit.
func CheckedSub[T Signed](a, b T) (T, error) {
	switch {
	case b < 0 && a > T(math.MaxInt64)+b:
		return 0, ErrOverflow
	case b > 0 && a < T(math.MinInt64)+b:
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// CheckedMul returns a*b or ErrOverflow/ErrUnderflow if the result does not fit.
func CheckedMul[T Signed](a, b T) (T, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}

	c := a * b
	overflowed := c/b != a ||
		(a == -1 && b == T(math.MinInt64)) ||
		(b == -1 && a == T(math.MinInt64))
	if overflowed {
		if (a < 0) != (b < 0) {
			return 0, ErrUnderflow
		}
		return 0, ErrOverflow
	}
	return c, nil
}

// Split divides amount between a recipient and the owner.
//
// The recipient share is floor(amount*bps/10000), computed with a 128-bit
// intermediate so no amount in [0, MaxAmount] can overflow. The owner share
// is the remainder, so the two always sum to amount.
func Split(amount Amount, bps BasisPoints) (recipientShare, ownerShare Amount, err error) {
	if amount < 0 || bps < 0 || bps > MaxBasisPoints {
		return 0, 0, ErrInvalidInput
	}

	hi, lo := bits.Mul64(uint64(amount), uint64(bps))
	// hi < MaxBasisPoints because amount < 2^63 and bps <= 10000.
	q, _ := bits.Div64(hi, lo, uint64(MaxBasisPoints))

	recipientShare = Amount(q)
	ownerShare = amount - recipientShare
	return recipientShare, ownerShare, nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// Add is CheckedAdd for amounts.
func (a Amount) Add(other Amount) (Amount, error) { return CheckedAdd(a, other) }

// Sub is CheckedSub for amounts.
func (a Amount) Sub(other Amount) (Amount, error) { return CheckedSub(a, other) }

// String returns the decimal form of the amount.
func (a Amount) String() string { return strconv.FormatInt(int64(a), 10) }

// Valid reports whether bps is within [0, 10000].
func (b BasisPoints) Valid() bool { return b >= 0 && b <= MaxBasisPoints }
