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
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nocksapp/nocks-gateway/checkout"
	"github.com/nocksapp/nocks-gateway/config"
	"github.com/nocksapp/nocks-gateway/database/mocks"
	"github.com/nocksapp/nocks-gateway/internal/apierror"
	"github.com/nocksapp/nocks-gateway/internal/cache"
	redis_db "github.com/nocksapp/nocks-gateway/internal/redis-db"
	"github.com/nocksapp/nocks-gateway/model"
)

// newTestGateway wires a Gateway against miniredis and a mocked datasource.
// The checkout client talks to the sandbox endpoint, which tests intercept
// with httpmock.
func newTestGateway(t *testing.T, ds *mocks.MockDataSource) (*Gateway, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cnf := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
		Nocks: config.NocksConfig{
			Token:           "test-token",
			TestMode:        true,
			Endpoint:        "https://api.nocks.com/api/v2/",
			SandboxEndpoint: "https://sandbox.nocks.com/api/v2/",
		},
		Gateway: config.GatewayConfig{
			InitialOrderStatus:   model.OrderStatusPending,
			PaidOrderStatus:      model.OrderStatusProcessing,
			CancelledOrderStatus: model.OrderStatusPending,
			ExpiredOrderStatus:   model.OrderStatusCancelled,
			ShopName:             "Example Shop",
			Locale:               "en_US",
			WebhookURL:           "https://gateway.example/nocks/webhook",
			ReturnURL:            "https://gateway.example/nocks/return",
			CheckoutRetryURL:     "https://shop.example/checkout/pay",
			OrderReceivedURL:     "https://shop.example/order-received",
			TargetAddresses:      map[string]string{"bitcoin": "bc1qexampleaddress"},
		},
		Queue: config.QueueConfig{NotificationQueue: "new:notification"},
	}
	config.MockConfig(cnf)

	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)

	testCache, err := cache.NewCache()
	require.NoError(t, err)

	return &Gateway{
		client:     checkout.NewClient(cnf),
		cache:      testCache,
		redis:      redisClient.Client(),
		datasource: ds,
		methods:    model.NewMethodRegistry(model.DefaultMethods()),
	}, mr
}

func notFoundErr(orderID string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Order with ID '%s' not found", orderID), nil)
}

func pendingOrder(orderID string) *model.Order {
	return &model.Order{
		OrderID:   orderID,
		OrderKey:  "wc_order_" + orderID,
		Status:    model.OrderStatusPending,
		Total:     19.995,
		Currency:  "EUR",
		Meta:      map[string]string{model.MetaTransactionID: "txn-123"},
		CreatedAt: time.Now(),
	}
}

func registerTransactionResponder(status string) {
	httpmock.RegisterResponder("GET", "https://sandbox.nocks.com/api/v2/transaction/txn-123",
		httpmock.NewStringResponder(200, fmt.Sprintf(
			`{"data":{"uuid":"txn-123","status":"%s","payments":{"data":[{"uuid":"pay-456","status":"%s","mode":"test","method":"bitcoin","metadata":{"url":"https://sandbox.nocks.com/payment/pay-456"}}]}}}`,
			status, status)))
}

func TestHandleWebhookTestPing(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	code := gateway.HandleWebhook(context.Background(), "", "", true)
	assert.Equal(t, http.StatusOK, code)
	ds.AssertExpectations(t)
}

func TestHandleWebhookMissingParams(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	assert.Equal(t, http.StatusBadRequest, gateway.HandleWebhook(context.Background(), "", "key", false))
	assert.Equal(t, http.StatusBadRequest, gateway.HandleWebhook(context.Background(), "1001", "", false))
}

func TestHandleWebhookOrderNotFound(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	ds.On("GetOrder", mock.Anything, "9999").Return(nil, notFoundErr("9999"))

	code := gateway.HandleWebhook(context.Background(), "9999", "some-key", false)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandleWebhookBadKey(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	ds.On("GetOrder", mock.Anything, "1001").Return(pendingOrder("1001"), nil)

	code := gateway.HandleWebhook(context.Background(), "1001", "wrong-key", false)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHandleWebhookNoTransactionRecorded(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	order.Meta = map[string]string{}
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandleWebhookTransactionGone(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://sandbox.nocks.com/api/v2/transaction/txn-123",
		httpmock.NewStringResponder(404, `{"error":"not found"}`))

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandleWebhookDuplicateDelivery(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTransactionResponder("paid")

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	// The order already completed; a repeated delivery must be acknowledged
	// without any mutation.
	order := pendingOrder("1001")
	order.Status = model.OrderStatusProcessing
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusNoContent, code)
	ds.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "SetOrderMeta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "DeleteOrderMeta", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhookPaid(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTransactionResponder("paid")

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	order.Meta[model.MetaPaymentID] = "pay-456"
	order.Meta[model.MetaCancelledPaymentID] = "pay-111"
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaStockReduced).Return("", nil)
	ds.On("UpdateOrderStatus", mock.Anything, "1001", model.OrderStatusProcessing).Return(nil)
	ds.On("AddOrderNote", mock.Anything, "1001", mock.MatchedBy(func(note string) bool {
		return note != ""
	})).Return(nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("pay-456", nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return(nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentMode).Return(nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID).Return(nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusOK, code)
	ds.AssertExpectations(t)
	ds.AssertNumberOfCalls(t, "AddOrderNote", 1)
}

func TestHandleWebhookCancelled(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTransactionResponder("cancelled")

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	order.Meta[model.MetaPaymentID] = "pay-456"
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("pay-456", nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return(nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentMode).Return(nil)
	ds.On("SetOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID, "pay-456").Return(nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaStockReduced).Return("", nil)
	ds.On("UpdateOrderStatus", mock.Anything, "1001", model.OrderStatusPending).Return(nil)
	ds.On("AddOrderNote", mock.Anything, "1001", mock.Anything).Return(nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusOK, code)
	ds.AssertExpectations(t)
}

func TestHandleWebhookCancelledStaleAttempt(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTransactionResponder("cancelled")

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	// A newer payment attempt already replaced pay-456. The stale
	// cancellation must not clear it or change the order.
	order := pendingOrder("1001")
	order.Meta[model.MetaPaymentID] = "pay-789"
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("pay-789", nil)
	ds.On("AddOrderNote", mock.Anything, "1001", mock.Anything).Return(nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusOK, code)
	ds.AssertNotCalled(t, "DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentID)
	ds.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestHandleWebhookExpiredMatchingPayment(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTransactionResponder("expired")

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	order.Meta[model.MetaPaymentID] = "pay-456"
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("pay-456", nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return(nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentMode).Return(nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID).Return(nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaStockReduced).Return("", nil)
	ds.On("UpdateOrderStatus", mock.Anything, "1001", model.OrderStatusCancelled).Return(nil)
	ds.On("AddOrderNote", mock.Anything, "1001", mock.Anything).Return(nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusOK, code)
	ds.AssertExpectations(t)
}

func TestHandleWebhookExpiredStalePayment(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTransactionResponder("expired")

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	// The expiry names pay-456 but the order already moved on to pay-789.
	order := pendingOrder("1001")
	order.Meta[model.MetaPaymentID] = "pay-789"
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("pay-789", nil)
	ds.On("AddOrderNote", mock.Anything, "1001", mock.Anything).Return(nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusOK, code)
	ds.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "DeleteOrderMeta", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestHandleWebhookOpenAddsNoteOnly(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTransactionResponder("open")

	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("AddOrderNote", mock.Anything, "1001", mock.Anything).Return(nil)

	code := gateway.HandleWebhook(context.Background(), "1001", order.OrderKey, false)
	assert.Equal(t, http.StatusOK, code)
	ds.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestUpdateOrderStatusStockCoupling(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)
	ctx := context.Background()

	// Entering on-hold reserves stock exactly once.
	order := pendingOrder("1001")
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaStockReduced).Return("", nil).Once()
	ds.On("ReduceOrderStock", mock.Anything, "1001").Return(nil).Once()
	ds.On("SetOrderMeta", mock.Anything, "1001", model.MetaStockReduced, "yes").Return(nil).Once()
	ds.On("UpdateOrderStatus", mock.Anything, "1001", model.OrderStatusOnHold).Return(nil).Once()

	require.NoError(t, gateway.UpdateOrderStatus(ctx, order, model.OrderStatusOnHold, ""))

	// A repeated transition with the flag set does not reduce again.
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaStockReduced).Return("yes", nil).Once()
	ds.On("UpdateOrderStatus", mock.Anything, "1001", model.OrderStatusOnHold).Return(nil).Once()

	require.NoError(t, gateway.UpdateOrderStatus(ctx, order, model.OrderStatusOnHold, ""))
	ds.AssertNumberOfCalls(t, "ReduceOrderStock", 1)

	// Falling back to pending restores stock once.
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaStockReduced).Return("yes", nil).Once()
	ds.On("RestoreOrderStock", mock.Anything, "1001").Return(nil).Once()
	ds.On("UpdateOrderStatus", mock.Anything, "1001", model.OrderStatusPending).Return(nil).Once()

	require.NoError(t, gateway.UpdateOrderStatus(ctx, order, model.OrderStatusPending, ""))
	ds.AssertExpectations(t)
}

func TestReturnRedirectURLRetryAfterCancellation(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID).Return("pay-456", nil)

	redirect, err := gateway.ReturnRedirectURL(context.Background(), "1001", order.OrderKey)
	require.NoError(t, err)
	assert.Contains(t, redirect, "https://shop.example/checkout/pay")
	assert.Contains(t, redirect, "order_id=1001")
}

func TestReturnRedirectURLOrderReceived(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	order := pendingOrder("1001")
	order.Status = model.OrderStatusProcessing
	ds.On("GetOrder", mock.Anything, "1001").Return(order, nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID).Return("", nil)

	redirect, err := gateway.ReturnRedirectURL(context.Background(), "1001", order.OrderKey)
	require.NoError(t, err)
	assert.Contains(t, redirect, "https://shop.example/order-received")
}
