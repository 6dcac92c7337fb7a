/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package nocks

import (
	"context"

	"github.com/nocksapp/nocks-gateway/model"
)

// The payment ledger is the per-order record of which remote transaction and
// payment attempt the order is bound to. It lives in order metadata so it
// survives restarts and is visible to the host shop. active payment id is
// set iff a payment attempt is in flight; cancelled payment id records the
// attempt the customer abandoned, until a later attempt resolves.

// SetActiveTransaction records the remote transaction an order is bound to.
func (g *Gateway) SetActiveTransaction(ctx context.Context, orderID, transactionID string) error {
	return g.datasource.SetOrderMeta(ctx, orderID, model.MetaTransactionID, transactionID)
}

// GetActiveTransactionID returns the recorded transaction id, or "".
func (g *Gateway) GetActiveTransactionID(ctx context.Context, orderID string) (string, error) {
	return g.datasource.GetOrderMeta(ctx, orderID, model.MetaTransactionID)
}

// HasActiveTransaction reports whether the order is bound to a transaction.
func (g *Gateway) HasActiveTransaction(ctx context.Context, orderID string) (bool, error) {
	id, err := g.GetActiveTransactionID(ctx, orderID)
	return id != "", err
}

// SetActivePayment records a new in-flight payment attempt. Any recorded
// cancelled payment is cleared unconditionally: a fresh attempt supersedes
// the abandoned one.
func (g *Gateway) SetActivePayment(ctx context.Context, orderID, paymentID, mode string) error {
	if err := g.datasource.SetOrderMeta(ctx, orderID, model.MetaPaymentID, paymentID); err != nil {
		return err
	}
	if err := g.datasource.SetOrderMeta(ctx, orderID, model.MetaPaymentMode, mode); err != nil {
		return err
	}
	return g.datasource.DeleteOrderMeta(ctx, orderID, model.MetaCancelledPaymentID)
}

// GetActivePaymentID returns the recorded in-flight payment id, or "".
func (g *Gateway) GetActivePaymentID(ctx context.Context, orderID string) (string, error) {
	return g.datasource.GetOrderMeta(ctx, orderID, model.MetaPaymentID)
}

// ClearActivePayment removes the recorded payment id and mode, but only when
// the recorded id equals expectedPaymentID. A stale webhook for a superseded
// attempt must not clobber the record of a newer one. Returns whether the
// clear was applied.
func (g *Gateway) ClearActivePayment(ctx context.Context, orderID, expectedPaymentID string) (bool, error) {
	current, err := g.GetActivePaymentID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if current == "" || current != expectedPaymentID {
		return false, nil
	}
	if err := g.datasource.DeleteOrderMeta(ctx, orderID, model.MetaPaymentID); err != nil {
		return false, err
	}
	if err := g.datasource.DeleteOrderMeta(ctx, orderID, model.MetaPaymentMode); err != nil {
		return false, err
	}
	return true, nil
}

// SetCancelledPayment records the payment the customer cancelled, so the
// return endpoint can offer a retry.
func (g *Gateway) SetCancelledPayment(ctx context.Context, orderID, paymentID string) error {
	return g.datasource.SetOrderMeta(ctx, orderID, model.MetaCancelledPaymentID, paymentID)
}

// GetCancelledPayment returns the recorded cancelled payment id, or "".
func (g *Gateway) GetCancelledPayment(ctx context.Context, orderID string) (string, error) {
	return g.datasource.GetOrderMeta(ctx, orderID, model.MetaCancelledPaymentID)
}

// HasCancelledPayment reports whether a cancelled payment is recorded.
func (g *Gateway) HasCancelledPayment(ctx context.Context, orderID string) (bool, error) {
	id, err := g.GetCancelledPayment(ctx, orderID)
	return id != "", err
}

// ClearCancelledPayment removes the cancelled payment record. Called when a
// later attempt reaches an accepted terminal outcome.
func (g *Gateway) ClearCancelledPayment(ctx context.Context, orderID string) error {
	return g.datasource.DeleteOrderMeta(ctx, orderID, model.MetaCancelledPaymentID)
}
