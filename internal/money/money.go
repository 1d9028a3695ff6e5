// Package money provides fixed-precision monetary arithmetic.
//
// All stored monetary values carry two decimal places (currency minor
// units). Percentages are applied as value * rate / 100 and rounded
// half-up back to storage precision. Callers must never route money
// through float64.
package money

import "github.com/shopspring/decimal"

// Precision is the number of decimal places for stored monetary values.
const Precision = 2

var hundred = decimal.NewFromInt(100)

// Zero is the zero amount at storage precision.
var Zero = decimal.Zero

// Round normalizes a value to storage precision. decimal.Round rounds
// half away from zero, which is half-up for the non-negative amounts
// handled here.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Precision)
}

// Percent applies rate (0-100) to v, rounded to storage precision.
func Percent(v, rate decimal.Decimal) decimal.Decimal {
	return Round(v.Mul(rate).Div(hundred))
}

// Sum adds amounts without intermediate truncation.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Equal reports whether two amounts are numerically equal, ignoring
// exponent representation.
func Equal(a, b decimal.Decimal) bool {
	return a.Equal(b)
}

// ValidRate reports whether rate lies in the inclusive [0,100] range.
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}
