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
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/nocksapp/nocks-gateway/api/model"
	"github.com/nocksapp/nocks-gateway/internal/apierror"
)

// CreatePayment starts a payment for an order and returns the URL the
// customer must be redirected to.
func (a Api) CreatePayment(c *gin.Context) {
	var req model2.CreatePayment
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if err := req.ValidateCreatePayment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redirect, err := a.gateway.CreatePayment(c.Request.Context(), req.OrderID, req.Method)
	if err != nil {
		a.jsonError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"result": "success", "redirect": redirect})
}

// QuotePrice relays an advisory price quote for checkout display. An
// unavailable quote is a valid response, not an error.
func (a Api) QuotePrice(c *gin.Context) {
	var req model2.QuotePrice
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if err := req.ValidateQuotePrice(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote := a.gateway.QuotePrice(c.Request.Context(), req.TargetCurrency, req.Amount, req.SourceCurrency, req.Method)
	c.JSON(http.StatusOK, quote)
}

// GetPaymentMethods lists the payment methods offered at checkout.
func (a Api) GetPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, a.gateway.Methods().IDs())
}

// Webhook is the processor's callback endpoint. The response code signals
// how the delivery was handled; the processor retries non-2xx responses.
func (a Api) Webhook(c *gin.Context) {
	_, testByNocks := c.GetQuery("testByNocks")
	orderID := c.Query("order_id")
	key := c.Query("key")

	code := a.gateway.HandleWebhook(c.Request.Context(), orderID, key, testByNocks)
	switch code {
	case http.StatusOK:
		c.JSON(http.StatusOK, gin.H{"result": "processed"})
	case http.StatusNoContent:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(code, gin.H{"error": http.StatusText(code)})
	}
}

// Return lands the customer coming back from the processor and forwards
// them to the right shop page.
func (a Api) Return(c *gin.Context) {
	orderID := c.Query("order_id")
	key := c.Query("key")
	if orderID == "" || key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and key are required"})
		return
	}

	redirect, err := a.gateway.ReturnRedirectURL(c.Request.Context(), orderID, key)
	if err != nil {
		a.jsonError(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

func (a Api) jsonError(c *gin.Context, err error) {
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
