package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestVAT(t *testing.T) {
	require.True(t, dec("23.00").Equal(VAT(dec("100.00"))))
	require.True(t, dec("11.50").Equal(VAT(dec("50.00"))))

	// VAT is computed from the unrounded subtotal and rounded once.
	require.True(t, dec("57.50").Equal(VAT(dec("249.995"))))
}

func TestRound2HalfUp(t *testing.T) {
	require.Equal(t, "250", Round2(dec("249.995")).String())
	require.Equal(t, "249.99", Round2(dec("249.994")).String())
	require.Equal(t, "0.5", Round2(dec("0.495")).String())
}

func TestEurToCents(t *testing.T) {
	require.Equal(t, int64(9999), EurToCents(dec("99.99")))
	require.Equal(t, int64(50), EurToCents(dec("0.50")))
	require.Equal(t, int64(0), EurToCents(dec("0")))
	require.Equal(t, int64(123450), EurToCents(dec("1234.50")))

	// half-up on the .xx5 boundary
	require.Equal(t, int64(50), EurToCents(dec("0.495")))
}

func TestCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 49, 50, 99, 100, 9999, 123456789} {
		require.Equal(t, cents, EurToCents(CentsToEur(cents)))
	}
}

func TestTotalInvariant(t *testing.T) {
	// cart: 2 x 100.00 + 1 x 49.995
	subtotal := dec("100.00").Mul(decimal.NewFromInt(2)).Add(dec("49.995"))
	require.Equal(t, "249.995", subtotal.String())

	vat := VAT(subtotal)
	sub := Round2(subtotal)
	shipping := decimal.Zero
	total := sub.Add(vat).Add(shipping)

	require.Equal(t, "250", sub.String())
	require.Equal(t, "57.5", vat.String())
	require.True(t, total.Equal(sub.Add(vat).Add(shipping)))
	require.Equal(t, "307.5", total.String())
}
