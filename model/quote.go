package model

import "github.com/shopspring/decimal"

// QuoteResult is the outcome of a price quote request. Quotes are advisory
// (checkout display only), so a failed quote is modeled as Unavailable
// rather than an error: callers must handle both cases and must never block
// checkout on a quote.
type QuoteResult struct {
	Available bool            `json:"available"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// NewQuote returns an available quote.
func NewQuote(amount decimal.Decimal, currency string) QuoteResult {
	return QuoteResult{Available: true, Amount: amount, Currency: currency}
}

// UnavailableQuote returns the zero quote used when the endpoint failed or
// returned an unusable body.
func UnavailableQuote() QuoteResult {
	return QuoteResult{}
}

// Display renders the quote for the checkout page, or the empty string when
// the quote is unavailable.
func (q QuoteResult) Display() string {
	if !q.Available {
		return ""
	}
	return q.Currency + " " + q.Amount.String()
}
