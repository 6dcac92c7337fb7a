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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nocksapp/nocks-gateway/model"
)

// transactionTTL bounds how stale a cached transaction snapshot may get on
// read-mostly paths (checkout display, return redirect).
const transactionTTL = 5 * time.Minute

// GetTransaction returns the remote transaction with the given id, serving a
// snapshot no older than transactionTTL when one is cached. Reconciliation
// paths pass bypassCache, which always refetches and refreshes the entry:
// a webhook must never be judged against a stale snapshot. A failed fetch
// returns the error; a cached entry is never used as a fallback.
func (g *Gateway) GetTransaction(ctx context.Context, transactionID string, bypassCache bool) (*model.Transaction, error) {
	cacheKey := "transaction_" + transactionID

	if !bypassCache {
		var cached model.Transaction
		if err := g.cache.Get(ctx, cacheKey, &cached); err == nil && cached.TransactionID != "" {
			return &cached, nil
		}
	}

	txn, err := g.client.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if err := g.cache.Set(ctx, cacheKey, txn, transactionTTL); err != nil {
		logrus.Warnf("failed to cache transaction %s: %v", transactionID, err)
	}
	return txn, nil
}
