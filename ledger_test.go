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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nocksapp/nocks-gateway/database/mocks"
	"github.com/nocksapp/nocks-gateway/model"
)

func TestSetActivePaymentClearsCancelledRecord(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)
	ctx := context.Background()

	ds.On("SetOrderMeta", mock.Anything, "1001", model.MetaPaymentID, "pay-456").Return(nil)
	ds.On("SetOrderMeta", mock.Anything, "1001", model.MetaPaymentMode, "live").Return(nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID).Return(nil)

	require.NoError(t, gateway.SetActivePayment(ctx, "1001", "pay-456", "live"))
	ds.AssertExpectations(t)
}

func TestClearActivePaymentGuarded(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)
	ctx := context.Background()

	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("pay-456", nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return(nil)
	ds.On("DeleteOrderMeta", mock.Anything, "1001", model.MetaPaymentMode).Return(nil)

	cleared, err := gateway.ClearActivePayment(ctx, "1001", "pay-456")
	require.NoError(t, err)
	assert.True(t, cleared)
	ds.AssertExpectations(t)
}

func TestClearActivePaymentMismatchDoesNothing(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)
	ctx := context.Background()

	// pay-789 replaced pay-456; clearing for pay-456 must be refused.
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("pay-789", nil)

	cleared, err := gateway.ClearActivePayment(ctx, "1001", "pay-456")
	require.NoError(t, err)
	assert.False(t, cleared)
	ds.AssertNotCalled(t, "DeleteOrderMeta", mock.Anything, mock.Anything, mock.Anything)
}

func TestClearActivePaymentNoRecord(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaPaymentID).Return("", nil)

	cleared, err := gateway.ClearActivePayment(context.Background(), "1001", "pay-456")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestCancelledPaymentRoundTrip(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)
	ctx := context.Background()

	ds.On("SetOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID, "pay-456").Return(nil)
	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaCancelledPaymentID).Return("pay-456", nil)

	require.NoError(t, gateway.SetCancelledPayment(ctx, "1001", "pay-456"))

	has, err := gateway.HasCancelledPayment(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestHasActiveTransaction(t *testing.T) {
	ds := new(mocks.MockDataSource)
	gateway, _ := newTestGateway(t, ds)

	ds.On("GetOrderMeta", mock.Anything, "1001", model.MetaTransactionID).Return("txn-123", nil).Once()
	has, err := gateway.HasActiveTransaction(context.Background(), "1001")
	require.NoError(t, err)
	assert.True(t, has)

	ds.On("GetOrderMeta", mock.Anything, "1002", model.MetaTransactionID).Return("", nil).Once()
	has, err = gateway.HasActiveTransaction(context.Background(), "1002")
	require.NoError(t, err)
	assert.False(t, has)
}
