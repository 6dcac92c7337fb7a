package model

import (
	"encoding/json"
	"strings"
	"time"
)

// TransactionStatus is the canonical status of a remote Nocks transaction.
// The processor is the only writer of this status; this service only reads it.
type TransactionStatus string

const (
	StatusOpen      TransactionStatus = "open"
	StatusPaid      TransactionStatus = "paid"
	StatusCancelled TransactionStatus = "cancelled"
	StatusExpired   TransactionStatus = "expired"
	StatusUnknown   TransactionStatus = "unknown"
)

// ParseTransactionStatus maps a raw remote status string to the canonical
// enum. Legacy API versions reported "completed" and "success" for a paid
// transaction; both map to StatusPaid. Anything unrecognized parses to
// StatusUnknown so callers can log it without acting on it.
func ParseTransactionStatus(raw string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open":
		return StatusOpen
	case "paid", "completed", "success":
		return StatusPaid
	case "cancelled":
		return StatusCancelled
	case "expired":
		return StatusExpired
	default:
		return StatusUnknown
	}
}

// Payment is a single payment attempt nested under a Transaction.
type Payment struct {
	PaymentID   string `json:"id"`
	Method      string `json:"method"`
	Mode        string `json:"mode"` // "live" or "test"
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url"` // where the customer completes the payment
}

// IsTest reports whether the payment was made against the sandbox.
func (p *Payment) IsTest() bool {
	return p.Mode == "test"
}

// Transaction is the remote, processor-owned record of a payment attempt.
// It is fetched and never locally mutated.
type Transaction struct {
	TransactionID string            `json:"id"`
	Status        TransactionStatus `json:"status"`
	Payments      []Payment         `json:"payments"`
	FetchedAt     time.Time         `json:"fetched_at"`
}

// ActivePayment returns the payment this transaction resolves around.
// The processor returns payments newest-first; the first entry is the
// attempt the customer was redirected to.
func (t *Transaction) ActivePayment() *Payment {
	if len(t.Payments) == 0 {
		return nil
	}
	return &t.Payments[0]
}

func (t *Transaction) IsPaid() bool      { return t.Status == StatusPaid }
func (t *Transaction) IsOpen() bool      { return t.Status == StatusOpen }
func (t *Transaction) IsCancelled() bool { return t.Status == StatusCancelled }
func (t *Transaction) IsExpired() bool   { return t.Status == StatusExpired }

func (t *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}
