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

package database

import (
	"context"

	"github.com/nocksapp/nocks-gateway/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	order // Interface for order-related operations
	stock // Interface for inventory side effects
}

// order defines methods for reading and mutating the host shop's orders. All
// operations are atomic with respect to a single order; nothing here needs a
// cross-order transaction.
type order interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)                // Retrieves an order with its metadata
	UpdateOrderStatus(ctx context.Context, orderID string, status string) error        // Updates the status of an order
	AddOrderNote(ctx context.Context, orderID string, note string) error               // Appends an audit note to an order
	GetOrderMeta(ctx context.Context, orderID string, key string) (string, error)      // Retrieves a single metadata value
	SetOrderMeta(ctx context.Context, orderID string, key string, value string) error  // Upserts a single metadata value
	DeleteOrderMeta(ctx context.Context, orderID string, key string) error             // Removes a single metadata entry
}

// stock defines methods for the exactly-once inventory coupling.
type stock interface {
	ReduceOrderStock(ctx context.Context, orderID string) error  // Decrements product stock for every order line
	RestoreOrderStock(ctx context.Context, orderID string) error // Increments product stock back for every order line
}
