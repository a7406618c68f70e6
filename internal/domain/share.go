package domain

import (
	"fmt"
	"math/big"
)

// Share is an exact fraction allocation/total_raised.
type Share struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// IsZero reports whether the share is zero (including 0/0).
func (s Share) IsZero() bool {
	return s.Numerator == 0 || s.Denominator == 0
}

// Float64 returns the share as a float. 0/0 yields 0.
func (s Share) Float64() float64 {
	if s.IsZero() {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(s.Numerator),
		new(big.Int).SetUint64(s.Denominator),
	).Float64()
	return f
}

// String renders the fraction as "n/d".
func (s Share) String() string {
	return fmt.Sprintf("%d/%d", s.Numerator, s.Denominator)
}
