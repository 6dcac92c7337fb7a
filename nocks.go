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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nocksapp/nocks-gateway/checkout"
	"github.com/nocksapp/nocks-gateway/config"
	"github.com/nocksapp/nocks-gateway/database"
	"github.com/nocksapp/nocks-gateway/internal/cache"
	redis_db "github.com/nocksapp/nocks-gateway/internal/redis-db"
	"github.com/nocksapp/nocks-gateway/model"
)

// Gateway represents the main struct for the payment gateway service. It
// couples the host shop's order store, the remote transaction API and the
// Redis-backed cache and locks behind the operations the HTTP surface calls.
type Gateway struct {
	client     *checkout.Client
	cache      cache.Cache
	redis      redis.UniversalClient
	datasource database.IDataSource
	methods    *model.MethodRegistry
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewGateway initializes a new Gateway with the provided order datasource.
// It fetches the configuration and initializes the Redis client, the
// transaction cache and the payment method registry.
//
// Parameters:
// - db database.IDataSource: The datasource for order operations.
//
// Returns:
// - *Gateway: A pointer to the newly created Gateway instance.
// - error: An error if any of the initialization steps fail.
func NewGateway(db database.IDataSource) (*Gateway, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	newGateway := &Gateway{
		client:     checkout.NewClient(configuration),
		cache:      newCache,
		redis:      redisClient.Client(),
		datasource: db,
		methods:    model.NewMethodRegistry(model.DefaultMethods()),
	}
	return newGateway, nil
}

// Methods returns the registry of payment methods offered at checkout.
func (g *Gateway) Methods() *model.MethodRegistry {
	return g.methods
}

// QuotePrice relays a price quote for checkout display. Failures degrade to
// an unavailable quote inside the client; this never returns an error.
func (g *Gateway) QuotePrice(ctx context.Context, targetCurrency string, amount float64, sourceCurrency, method string) model.QuoteResult {
	return g.client.QuotePrice(ctx, targetCurrency, amount, sourceCurrency, method)
}
