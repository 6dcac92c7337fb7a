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
package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreatePayment is the request body of the checkout endpoint.
type CreatePayment struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
}

func (c *CreatePayment) ValidateCreatePayment() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OrderID, validation.Required),
		validation.Field(&c.Method, validation.Required),
	)
}

// QuotePrice is the request body of the quote endpoint.
type QuotePrice struct {
	TargetCurrency string  `json:"target_currency"`
	Amount         float64 `json:"amount"`
	SourceCurrency string  `json:"source_currency"`
	Method         string  `json:"method"`
}

func (q *QuotePrice) ValidateQuotePrice() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.TargetCurrency, validation.Required),
		validation.Field(&q.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&q.SourceCurrency, validation.Required),
		validation.Field(&q.Method, validation.Required),
	)
}
