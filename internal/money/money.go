// Package money pins down the monetary policy for the shop: a fixed 23% VAT
// rate on the tax-exclusive subtotal and commercial (half-up, away from zero)
// rounding to 2 decimal places, applied once at the point of persistence.
package money

import "github.com/shopspring/decimal"

// VATRate is the fixed Portuguese standard VAT rate.
var VATRate = decimal.RequireFromString("0.23")

var hundred = decimal.NewFromInt(100)

// Round2 rounds to 2 decimal places, half away from zero. 249.995 -> 250.00.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// VAT computes the rounded VAT amount from an unrounded subtotal.
func VAT(subtotalExclVat decimal.Decimal) decimal.Decimal {
	return Round2(subtotalExclVat.Mul(VATRate))
}

// EurToCents converts an amount in euro to integer cents for the payment
// processor, half-up per line item rather than on the aggregate.
func EurToCents(eur decimal.Decimal) int64 {
	return eur.Mul(hundred).Round(0).IntPart()
}

func CentsToEur(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
