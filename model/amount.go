package model

import "github.com/shopspring/decimal"

// currencyPrecision maps a currency to its minor-unit precision as accepted
// by the Nocks API. The upstream plugin hardcoded a single "NLG" check; the
// table keeps that behavior data-driven and extends it to the crypto
// tickers the API quotes in, which also use 8 decimals.
var currencyPrecision = map[string]int32{
	"NLG": 8,
	"BTC": 8,
	"ETH": 8,
	"LTC": 8,
}

// defaultPrecision applies to fiat currencies (EUR and friends).
const defaultPrecision int32 = 2

// Precision returns the minor-unit precision for a currency.
func Precision(currency string) int32 {
	if p, ok := currencyPrecision[currency]; ok {
		return p
	}
	return defaultPrecision
}

// RoundUp rounds an amount up to the currency's minor-unit precision and
// formats it for the wire. Rounding is always toward positive infinity so
// float truncation can never make the merchant under-charge: the result is
// never less than the true amount.
func RoundUp(amount float64, currency string) string {
	precision := Precision(currency)
	return decimal.NewFromFloat(amount).RoundUp(precision).StringFixed(precision)
}

// RoundUpDecimal is RoundUp for callers that already carry a decimal.
func RoundUpDecimal(amount decimal.Decimal, currency string) string {
	precision := Precision(currency)
	return amount.RoundUp(precision).StringFixed(precision)
}
