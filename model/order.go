package model

import "time"

// Order status values as used by the host order-management system.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusOnHold     = "on-hold"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusFailed     = "failed"
)

// Order meta keys persisted on the order by this gateway.
const (
	MetaTransactionID      = "nocks_transaction_id"
	MetaPaymentID          = "nocks_payment_id"
	MetaPaymentMode        = "_nocks_payment_mode"
	MetaCancelledPaymentID = "_nocks_cancelled_payment_id"
	MetaStockReduced       = "_order_stock_reduced"
)

// Order is the narrow slice of the host system's order aggregate this
// service reads and mutates. Meta holds the gateway's persisted ledger
// fields alongside whatever else the host stores.
type Order struct {
	OrderID   string            `json:"order_id"`
	OrderKey  string            `json:"order_key"`
	Status    string            `json:"status"`
	Total     float64           `json:"total"`
	Currency  string            `json:"currency"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// GetMeta returns the meta value for key, or "" when absent.
func (o *Order) GetMeta(key string) string {
	if o.Meta == nil {
		return ""
	}
	return o.Meta[key]
}

// HasMeta reports whether a non-empty meta value exists for key.
func (o *Order) HasMeta(key string) bool {
	return o.GetMeta(key) != ""
}

// StockReduced reports whether stock for this order has already been
// reduced. The flag guards the reduce/restore side effects so a repeated
// terminal transition never double-counts inventory.
func (o *Order) StockReduced() bool {
	return o.HasMeta(MetaStockReduced)
}

// NeedsPayment reports whether the order is still waiting on a payment.
// Orders placed with an on-hold initial status still need payment: on-hold
// means "stock reserved, payment unconfirmed".
func (o *Order) NeedsPayment(initialStatus string) bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusFailed:
		return true
	case OrderStatusOnHold:
		return initialStatus == OrderStatusOnHold
	}
	return false
}

// KeyIsValid compares a webhook-supplied order key against the stored one.
func (o *Order) KeyIsValid(key string) bool {
	return key != "" && o.OrderKey == key
}
