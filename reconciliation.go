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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nocksapp/nocks-gateway/checkout"
	"github.com/nocksapp/nocks-gateway/config"
	"github.com/nocksapp/nocks-gateway/database"
	"github.com/nocksapp/nocks-gateway/internal/apierror"
	redlock "github.com/nocksapp/nocks-gateway/internal/lock"
	"github.com/nocksapp/nocks-gateway/model"
)

const orderLockDuration = 30 * time.Second

// HandleWebhook reconciles an order against the current remote transaction
// state and returns the HTTP status the webhook endpoint must answer with.
// The processor retries non-2xx responses, so every deliberate no-op answers
// with a success code.
//
// Responses: 200 processed (or test ping), 204 duplicate delivery for an
// order that no longer needs payment, 400 missing parameters, 401 order key
// mismatch, 404 unknown order or transaction.
func (g *Gateway) HandleWebhook(ctx context.Context, orderID, key string, testByNocks bool) int {
	ctx, span := tracer.Start(ctx, "Reconciling webhook")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if testByNocks {
		return http.StatusOK
	}
	if orderID == "" || key == "" {
		return http.StatusBadRequest
	}

	conf, err := config.Fetch()
	if err != nil {
		logrus.Errorf("webhook config fetch failed: %v", err)
		return http.StatusInternalServerError
	}

	order, err := g.datasource.GetOrder(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return http.StatusNotFound
		}
		logrus.Errorf("webhook order lookup failed for %s: %v", orderID, err)
		return http.StatusInternalServerError
	}
	if !order.KeyIsValid(key) {
		return http.StatusUnauthorized
	}

	transactionID := order.GetMeta(model.MetaTransactionID)
	if transactionID == "" {
		return http.StatusNotFound
	}

	// Always judge the webhook against a fresh snapshot.
	txn, err := g.GetTransaction(ctx, transactionID, true)
	if err != nil {
		if errors.Is(err, checkout.ErrNotFound) {
			return http.StatusNotFound
		}
		logrus.Errorf("webhook transaction fetch failed for %s: %v", transactionID, err)
		return http.StatusInternalServerError
	}

	// A delivery for an order that no longer needs payment is a duplicate
	// (or arrived after a competing attempt resolved). Acknowledge without
	// touching anything.
	if !order.NeedsPayment(conf.Gateway.InitialOrderStatus) {
		return http.StatusNoContent
	}

	if err := g.reconcile(ctx, conf, order, txn); err != nil {
		logrus.Errorf("webhook reconciliation failed for order %s: %v", orderID, err)
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// reconcile applies a fresh transaction snapshot to an order that still
// needs payment.
func (g *Gateway) reconcile(ctx context.Context, conf *config.Configuration, order *model.Order, txn *model.Transaction) error {
	payment := txn.ActivePayment()
	paymentID := ""
	if payment != nil {
		paymentID = payment.PaymentID
	}

	switch txn.Status {
	case model.StatusPaid:
		return g.onPaymentPaid(ctx, conf, order, txn, paymentID)
	case model.StatusCancelled:
		return g.onPaymentCancelled(ctx, conf, order, txn, paymentID)
	case model.StatusExpired:
		return g.onPaymentExpired(ctx, conf, order, txn, paymentID)
	case model.StatusOpen:
		return g.datasource.AddOrderNote(ctx, order.OrderID, fmt.Sprintf("Nocks transaction %s still open", txn.TransactionID))
	default:
		logrus.Warnf("order %s: transaction %s has unrecognized status %q, not acting on it", order.OrderID, txn.TransactionID, txn.Status)
		return g.datasource.AddOrderNote(ctx, order.OrderID, fmt.Sprintf("Nocks transaction %s reported unrecognized status %q", txn.TransactionID, txn.Status))
	}
}

func (g *Gateway) onPaymentPaid(ctx context.Context, conf *config.Configuration, order *model.Order, txn *model.Transaction, paymentID string) error {
	note := fmt.Sprintf("Nocks payment %s completed (transaction %s)", paymentID, txn.TransactionID)
	if err := g.UpdateOrderStatus(ctx, order, conf.Gateway.PaidOrderStatus, note); err != nil {
		return err
	}
	if _, err := g.ClearActivePayment(ctx, order.OrderID, paymentID); err != nil {
		return err
	}
	if err := g.ClearCancelledPayment(ctx, order.OrderID); err != nil {
		return err
	}
	return g.emitPaymentEvent(EventPaymentPaid, order.OrderID, txn.TransactionID, paymentID)
}

func (g *Gateway) onPaymentCancelled(ctx context.Context, conf *config.Configuration, order *model.Order, txn *model.Transaction, paymentID string) error {
	cleared, err := g.ClearActivePayment(ctx, order.OrderID, paymentID)
	if err != nil {
		return err
	}
	if !cleared {
		// A newer attempt owns the active slot; this cancellation is stale.
		logrus.Infof("order %s: cancellation for payment %s ignored, a newer payment is active", order.OrderID, paymentID)
		return g.datasource.AddOrderNote(ctx, order.OrderID, fmt.Sprintf("Ignored stale cancellation for Nocks payment %s", paymentID))
	}
	if err := g.SetCancelledPayment(ctx, order.OrderID, paymentID); err != nil {
		return err
	}
	note := fmt.Sprintf("Nocks payment %s cancelled by customer (transaction %s)", paymentID, txn.TransactionID)
	if err := g.UpdateOrderStatus(ctx, order, conf.Gateway.CancelledOrderStatus, note); err != nil {
		return err
	}
	return g.emitPaymentEvent(EventPaymentCancelled, order.OrderID, txn.TransactionID, paymentID)
}

func (g *Gateway) onPaymentExpired(ctx context.Context, conf *config.Configuration, order *model.Order, txn *model.Transaction, paymentID string) error {
	activeID, err := g.GetActivePaymentID(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if activeID == "" || activeID != paymentID {
		// Expiry of a superseded attempt must not touch the order.
		logrus.Infof("order %s: expiry for payment %s ignored, active payment is %q", order.OrderID, paymentID, activeID)
		return g.datasource.AddOrderNote(ctx, order.OrderID, fmt.Sprintf("Ignored stale expiry for Nocks payment %s", paymentID))
	}
	if _, err := g.ClearActivePayment(ctx, order.OrderID, paymentID); err != nil {
		return err
	}
	if err := g.ClearCancelledPayment(ctx, order.OrderID); err != nil {
		return err
	}
	note := fmt.Sprintf("Nocks payment %s expired (transaction %s)", paymentID, txn.TransactionID)
	if err := g.UpdateOrderStatus(ctx, order, conf.Gateway.ExpiredOrderStatus, note); err != nil {
		return err
	}
	return g.emitPaymentEvent(EventPaymentExpired, order.OrderID, txn.TransactionID, paymentID)
}

// UpdateOrderStatus moves an order to a new status and applies the inventory
// coupling exactly once: entering on-hold reserves (reduces) stock, entering
// pending, failed or cancelled releases it again when it was reserved. The
// reduced flag check-and-set runs under a per-order Redis lock so concurrent
// webhook deliveries cannot double-count stock.
func (g *Gateway) UpdateOrderStatus(ctx context.Context, order *model.Order, status, note string) error {
	locker := redlock.NewLocker(g.redis, "order-lock:"+order.OrderID, database.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, orderLockDuration, orderLockDuration); err != nil {
		return err
	}
	defer func(locker *redlock.Locker, ctx context.Context) {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error("order lock release error", err)
		}
	}(locker, ctx)

	reduced, err := g.datasource.GetOrderMeta(ctx, order.OrderID, model.MetaStockReduced)
	if err != nil {
		return err
	}

	switch status {
	case model.OrderStatusOnHold:
		if reduced == "" {
			if err := g.datasource.ReduceOrderStock(ctx, order.OrderID); err != nil {
				return err
			}
			if err := g.datasource.SetOrderMeta(ctx, order.OrderID, model.MetaStockReduced, "yes"); err != nil {
				return err
			}
		}
	case model.OrderStatusPending, model.OrderStatusFailed, model.OrderStatusCancelled:
		if reduced != "" {
			if err := g.datasource.RestoreOrderStock(ctx, order.OrderID); err != nil {
				return err
			}
		}
	}

	if err := g.datasource.UpdateOrderStatus(ctx, order.OrderID, status); err != nil {
		return err
	}
	order.Status = status

	if note != "" {
		return g.datasource.AddOrderNote(ctx, order.OrderID, note)
	}
	return nil
}

// ReturnRedirectURL decides where the customer lands after coming back from
// the processor. It mutates nothing: the webhook is the only state writer.
// A customer who cancelled and whose order still needs payment goes back to
// the payment page to retry; everyone else goes to the order received page.
func (g *Gateway) ReturnRedirectURL(ctx context.Context, orderID, key string) (string, error) {
	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}

	order, err := g.datasource.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if !order.KeyIsValid(key) {
		return "", apierror.NewAPIError(apierror.ErrUnauthorized, "Order key mismatch", nil)
	}

	cancelled, err := g.HasCancelledPayment(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.NeedsPayment(conf.Gateway.InitialOrderStatus) && cancelled {
		return buildOrderURL(conf.Gateway.CheckoutRetryURL, order), nil
	}
	return buildOrderURL(conf.Gateway.OrderReceivedURL, order), nil
}

func (g *Gateway) emitPaymentEvent(event, orderID, transactionID, paymentID string) error {
	err := SendWebhook(NewWebhook{
		Event: event,
		Payload: map[string]string{
			"order_id":       orderID,
			"transaction_id": transactionID,
			"payment_id":     paymentID,
		},
	})
	if err != nil {
		logrus.Warnf("failed to queue %s event for order %s: %v", event, orderID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	apiErr, ok := err.(apierror.APIError)
	return ok && apiErr.Code == apierror.ErrNotFound
}
