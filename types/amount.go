// Package types provides common types used across recur.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Decimals is the fixed-point precision of every Amount. Token ledgers
// integrated with recur use six decimal places (micro-units).
const Decimals = 6

// Unit is one whole token expressed in micro-units.
const Unit Amount = 1_000_000

// ErrAmountOverflow is returned when an addition would wrap around.
var ErrAmountOverflow = errors.New("types: amount overflow")

// Amount is an unsigned quantity of the external token in micro-units.
// All arithmetic is integer-only.
//
// Examples:
//   - Amount(1_000_000) = 1.000000
//   - Amount(2_500_000) = 2.500000
type Amount uint64

// Micro creates an Amount from micro-units.
func Micro(n uint64) Amount { return Amount(n) }

// Tokens creates an Amount from whole tokens.
func Tokens(n uint64) Amount { return Amount(n) * Unit }

// Add adds two amounts, reporting ErrAmountOverflow instead of wrapping.
func (a Amount) Add(other Amount) (Amount, error) {
	if other > math.MaxUint64-a {
		return a, ErrAmountOverflow
	}
	return a + other, nil
}

// Sub subtracts other, clamping at zero.
func (a Amount) Sub(other Amount) Amount {
	if other > a {
		return 0
	}
	return a - other
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Covers reports whether a is at least required.
func (a Amount) Covers(required Amount) bool { return a >= required }

// Uint64 returns the raw micro-unit value.
func (a Amount) Uint64() uint64 { return uint64(a) }

// Float returns the amount in whole tokens, for metrics only.
func (a Amount) Float() float64 { return float64(a) / float64(Unit) }

// FormatMajor returns the whole-token representation: "1.500000" for
// Amount(1_500_000).
func (a Amount) FormatMajor() string {
	return fmt.Sprintf("%d.%06d", uint64(a/Unit), uint64(a%Unit))
}

// String returns the whole-token representation.
func (a Amount) String() string { return a.FormatMajor() }

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Micro   uint64 `json:"micro"`
		Display string `json:"display"`
	}{
		Micro:   uint64(a),
		Display: a.FormatMajor(),
	})
}

// UnmarshalJSON accepts either the object form produced by MarshalJSON or
// a bare micro-unit number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Amount(n)
		return nil
	}

	var obj struct {
		Micro uint64 `json:"micro"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("types: decode amount: %w", err)
	}
	*a = Amount(obj.Micro)
	return nil
}

// Sum adds amounts, stopping at the first overflow.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return total, err
		}
		total = next
	}
	return total, nil
}
