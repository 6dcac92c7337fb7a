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
	"database/sql"
	"fmt"

	"github.com/nocksapp/nocks-gateway/internal/apierror"
	"github.com/nocksapp/nocks-gateway/model"
)

// GetOrder retrieves an order and all its metadata entries.
//
// Parameters:
// - ctx: The context for the database operation.
// - orderID: The ID of the order to retrieve.
//
// Returns:
// - *model.Order: The order with its metadata map populated.
// - error: An apierror with ErrNotFound when the order does not exist.
func (d *Datasource) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := d.Conn.QueryRowContext(ctx, d.rebind(`
		SELECT order_id, order_key, status, total, currency, created_at
		FROM orders
		WHERE order_id = $1
	`), orderID)

	order := model.Order{Meta: map[string]string{}}
	err := row.Scan(&order.OrderID, &order.OrderKey, &order.Status, &order.Total, &order.Currency, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Order with ID '%s' not found", orderID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order", err)
	}

	rows, err := d.Conn.QueryContext(ctx, d.rebind(`
		SELECT meta_key, meta_value
		FROM order_meta
		WHERE order_id = $1
	`), orderID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order metadata", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan order metadata", err)
		}
		order.Meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate order metadata", err)
	}

	return &order, nil
}

// UpdateOrderStatus updates the status of an order.
//
// Parameters:
// - ctx: The context for the database operation.
// - orderID: The ID of the order to update.
// - status: The new status value.
//
// Returns:
// - error: An apierror with ErrNotFound when the order does not exist.
func (d *Datasource) UpdateOrderStatus(ctx context.Context, orderID string, status string) error {
	result, err := d.Conn.ExecContext(ctx, d.rebind(`
		UPDATE orders
		SET status = $1
		WHERE order_id = $2
	`), status, orderID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update order status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check order status update", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Order with ID '%s' not found", orderID), sql.ErrNoRows)
	}
	return nil
}

// AddOrderNote appends an audit note to an order.
func (d *Datasource) AddOrderNote(ctx context.Context, orderID string, note string) error {
	_, err := d.Conn.ExecContext(ctx, d.rebind(`
		INSERT INTO order_notes (note_id, order_id, note, created_at)
		VALUES ($1, $2, $3, NOW())
	`), GenerateUUIDWithSuffix("note"), orderID, note)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to add order note", err)
	}
	return nil
}

// GetOrderMeta retrieves a single metadata value for an order. A missing key
// is returned as the empty string, not an error: absence is meaningful to
// callers (no active payment recorded, stock never reduced).
func (d *Datasource) GetOrderMeta(ctx context.Context, orderID string, key string) (string, error) {
	var value string
	err := d.Conn.QueryRowContext(ctx, d.rebind(`
		SELECT meta_value
		FROM order_meta
		WHERE order_id = $1 AND meta_key = $2
	`), orderID, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order meta", err)
	}
	return value, nil
}

// SetOrderMeta upserts a single metadata value for an order. The upsert is a
// single statement so concurrent webhook handlers cannot interleave a read
// and a write of the same key.
func (d *Datasource) SetOrderMeta(ctx context.Context, orderID string, key string, value string) error {
	var query string
	if d.driver == "mysql" {
		query = `
			INSERT INTO order_meta (order_id, meta_key, meta_value)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)
		`
	} else {
		query = `
			INSERT INTO order_meta (order_id, meta_key, meta_value)
			VALUES ($1, $2, $3)
			ON CONFLICT (order_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value
		`
	}
	_, err := d.Conn.ExecContext(ctx, query, orderID, key, value)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to set order meta", err)
	}
	return nil
}

// DeleteOrderMeta removes a single metadata entry. Deleting an absent key is
// not an error.
func (d *Datasource) DeleteOrderMeta(ctx context.Context, orderID string, key string) error {
	_, err := d.Conn.ExecContext(ctx, d.rebind(`
		DELETE FROM order_meta
		WHERE order_id = $1 AND meta_key = $2
	`), orderID, key)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete order meta", err)
	}
	return nil
}

// ReduceOrderStock decrements product stock for every line of the order.
// Callers are responsible for the exactly-once guard (the
// _order_stock_reduced flag under the per-order lock); this method only
// applies the decrements.
func (d *Datasource) ReduceOrderStock(ctx context.Context, orderID string) error {
	return d.adjustOrderStock(ctx, orderID, -1, "Stock reduced for order")
}

// RestoreOrderStock increments product stock back for every line of the
// order and clears the reduced flag.
func (d *Datasource) RestoreOrderStock(ctx context.Context, orderID string) error {
	if err := d.adjustOrderStock(ctx, orderID, +1, "Stock restored for order"); err != nil {
		return err
	}
	return d.DeleteOrderMeta(ctx, orderID, model.MetaStockReduced)
}

func (d *Datasource) adjustOrderStock(ctx context.Context, orderID string, direction int, note string) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to start stock transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, d.rebind(`
		UPDATE products
		SET stock = stock + $1 * (
			SELECT quantity FROM order_items
			WHERE order_items.product_id = products.product_id AND order_items.order_id = $2
		)
		WHERE product_id IN (
			SELECT product_id FROM order_items WHERE order_id = $3
		) AND manage_stock = TRUE
	`), direction, orderID, orderID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to adjust product stock", err)
	}

	_, err = tx.ExecContext(ctx, d.rebind(`
		INSERT INTO order_notes (note_id, order_id, note, created_at)
		VALUES ($1, $2, $3, NOW())
	`), GenerateUUIDWithSuffix("note"), orderID, note)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record stock note", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit stock transaction", err)
	}
	return nil
}
