package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRoundHalfUp(t *testing.T) {
	require.True(t, Round(dec("1.005")).Equal(dec("1.01")))
	require.True(t, Round(dec("1.004")).Equal(dec("1.00")))
	require.True(t, Round(dec("2.675")).Equal(dec("2.68")))
	require.True(t, Round(dec("10")).Equal(dec("10.00")))
}

func TestPercent(t *testing.T) {
	require.True(t, Percent(dec("200.00"), dec("10")).Equal(dec("20.00")))
	require.True(t, Percent(dec("0.01"), dec("50")).Equal(dec("0.01")))
	require.True(t, Percent(dec("100.00"), dec("0")).Equal(dec("0")))
	require.True(t, Percent(dec("33.33"), dec("7.5")).Equal(dec("2.50")))
}

func TestSumNoDrift(t *testing.T) {
	// 100 additions of 0.10 must equal exactly 10.00.
	values := make([]decimal.Decimal, 100)
	for i := range values {
		values[i] = dec("0.10")
	}
	require.True(t, Sum(values...).Equal(dec("10.00")))
}

func TestValidRate(t *testing.T) {
	require.True(t, ValidRate(dec("0")))
	require.True(t, ValidRate(dec("100")))
	require.True(t, ValidRate(dec("12.5")))
	require.False(t, ValidRate(dec("-0.01")))
	require.False(t, ValidRate(dec("100.01")))
}
