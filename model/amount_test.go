package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundUpHighPrecisionCurrency(t *testing.T) {
	assert.Equal(t, "0.12345679", RoundUp(0.123456781, "NLG"))
	assert.Equal(t, "0.12345679", RoundUp(0.123456781, "BTC"))
}

func TestRoundUpFiatCurrency(t *testing.T) {
	assert.Equal(t, "10.01", RoundUp(10.001, "EUR"))
	assert.Equal(t, "20.00", RoundUp(19.995, "EUR"))
	assert.Equal(t, "10.00", RoundUp(10.00, "EUR"))
}

func TestRoundUpNeverUnderCharges(t *testing.T) {
	amounts := []float64{0.000000011, 0.1, 1.005, 9.999, 10.001, 19.995, 123.456789}
	for _, amount := range amounts {
		for _, currency := range []string{"EUR", "USD", "NLG", "BTC"} {
			rounded, err := decimal.NewFromString(RoundUp(amount, currency))
			assert.NoError(t, err)
			assert.True(t, rounded.GreaterThanOrEqual(decimal.NewFromFloat(amount)),
				"RoundUp(%v, %s) = %s must not be below the true amount", amount, currency, rounded)
		}
	}
}

func TestPrecisionTable(t *testing.T) {
	assert.Equal(t, int32(8), Precision("NLG"))
	assert.Equal(t, int32(8), Precision("LTC"))
	assert.Equal(t, int32(2), Precision("EUR"))
	assert.Equal(t, int32(2), Precision("USD"))
}
