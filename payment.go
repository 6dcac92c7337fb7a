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
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nocksapp/nocks-gateway/checkout"
	"github.com/nocksapp/nocks-gateway/config"
	"github.com/nocksapp/nocks-gateway/internal/notification"
	"github.com/nocksapp/nocks-gateway/model"
)

var tracer = otel.Tracer("Nocks gateway")

// ErrUnknownMethod is returned when a checkout names a payment method the
// registry does not offer.
var ErrUnknownMethod = errors.New("unknown payment method")

// ErrAmountOutOfRange is returned when the order total falls outside the
// method's configured limits.
var ErrAmountOutOfRange = errors.New("order total outside payment method limits")

// CreatePayment creates a remote transaction for the order and returns the
// URL the customer must be redirected to. On success the order carries the
// new transaction and payment ids, its status is set to the configured
// initial status, and a payment.created event is queued. On a client failure
// the order is left untouched; the detailed upstream cause is logged and
// reported, and shown to the caller only in debug mode.
func (g *Gateway) CreatePayment(ctx context.Context, orderID, methodID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Creating payment")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("payment.method", methodID))

	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}

	order, err := g.datasource.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	method := g.methods.Lookup(methodID)
	if method == nil {
		return "", ErrUnknownMethod
	}
	if !method.WithinLimits(order.Total) {
		return "", ErrAmountOutOfRange
	}

	txn, err := g.client.CreateTransaction(ctx, checkout.CreateTransactionRequest{
		Amount:         order.Total,
		Currency:       order.Currency,
		Method:         method.ID,
		SourceCurrency: method.SourceCurrency,
		TargetAddress:  conf.Gateway.TargetAddresses[method.ID],
		RedirectURL:    buildOrderURL(conf.Gateway.ReturnURL, order),
		CallbackURL:    buildOrderURL(conf.Gateway.WebhookURL, order),
		Locale:         conf.Gateway.Locale,
		Description:    fmt.Sprintf("%s - %s", order.OrderID, conf.Gateway.ShopName),
		Metadata: map[string]string{
			"nocks_gateway": "nocks-gateway:" + checkout.Version,
		},
	})
	if err != nil {
		logrus.Errorf("transaction create failed for order %s: %v", orderID, err)
		notification.NotifyError(err)
		if conf.Gateway.Debug {
			return "", err
		}
		return "", errors.New("could not create payment, please try again")
	}

	payment := txn.ActivePayment()
	if payment == nil {
		logrus.Errorf("transaction %s created without payments for order %s", txn.TransactionID, orderID)
		return "", errors.New("could not create payment, please try again")
	}

	if err := g.UpdateOrderStatus(ctx, order, conf.Gateway.InitialOrderStatus, ""); err != nil {
		return "", err
	}
	if err := g.SetActiveTransaction(ctx, orderID, txn.TransactionID); err != nil {
		return "", err
	}
	if err := g.SetActivePayment(ctx, orderID, payment.PaymentID, payment.Mode); err != nil {
		return "", err
	}
	if err := g.datasource.AddOrderNote(ctx, orderID, fmt.Sprintf("Nocks payment started (transaction %s, payment %s)", txn.TransactionID, payment.PaymentID)); err != nil {
		return "", err
	}

	err = SendWebhook(NewWebhook{
		Event: EventPaymentCreated,
		Payload: map[string]string{
			"order_id":       orderID,
			"transaction_id": txn.TransactionID,
			"payment_id":     payment.PaymentID,
			"mode":           payment.Mode,
		},
	})
	if err != nil {
		logrus.Warnf("failed to queue payment.created event for order %s: %v", orderID, err)
	}

	return payment.RedirectURL, nil
}

// buildOrderURL appends the order id and key to one of the service's public
// URLs, so the webhook and return endpoints can locate and authenticate the
// order without sessions.
func buildOrderURL(base string, order *model.Order) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("order_id", order.OrderID)
	q.Set("key", order.OrderKey)
	u.RawQuery = q.Encode()
	return u.String()
}
