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

package api

import (
	"github.com/gin-gonic/gin"

	nocks "github.com/nocksapp/nocks-gateway"
	"github.com/nocksapp/nocks-gateway/api/middleware"
	"github.com/nocksapp/nocks-gateway/config"
)

type Api struct {
	gateway *nocks.Gateway
	router  *gin.Engine
	secure  bool
}

func (a Api) Router() *gin.Engine {
	router := a.router

	// Key auth guards the shop-facing endpoints only. The webhook and
	// return routes authenticate with the order key carried in the URL.
	shop := router.Group("/")
	if a.secure {
		shop.Use(middleware.SecretKeyAuthMiddleware())
	}
	shop.POST("/checkout", a.CreatePayment)
	shop.POST("/checkout/quote", a.QuotePrice)
	shop.GET("/payment-methods", a.GetPaymentMethods)

	router.GET("/nocks/webhook", a.Webhook)
	router.GET("/nocks/return", a.Return)

	return a.router
}

func NewAPI(g *nocks.Gateway) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{gateway: g, router: r, secure: conf.Server.Secure}
}
