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
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nocksapp/nocks-gateway/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Order methods

func (m *MockDataSource) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockDataSource) UpdateOrderStatus(ctx context.Context, orderID string, status string) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *MockDataSource) AddOrderNote(ctx context.Context, orderID string, note string) error {
	args := m.Called(ctx, orderID, note)
	return args.Error(0)
}

func (m *MockDataSource) GetOrderMeta(ctx context.Context, orderID string, key string) (string, error) {
	args := m.Called(ctx, orderID, key)
	return args.String(0), args.Error(1)
}

func (m *MockDataSource) SetOrderMeta(ctx context.Context, orderID string, key string, value string) error {
	args := m.Called(ctx, orderID, key, value)
	return args.Error(0)
}

func (m *MockDataSource) DeleteOrderMeta(ctx context.Context, orderID string, key string) error {
	args := m.Called(ctx, orderID, key)
	return args.Error(0)
}

// Stock methods

func (m *MockDataSource) ReduceOrderStock(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockDataSource) RestoreOrderStock(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}
