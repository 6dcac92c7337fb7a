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

// Package checkout talks to the Nocks transaction API. It owns the wire
// shapes of the remote API and converts them to the model types the rest of
// the service works with.
package checkout

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nocksapp/nocks-gateway/config"
	"github.com/nocksapp/nocks-gateway/internal/request"
	"github.com/nocksapp/nocks-gateway/model"
)

// Version identifies this client in outbound User-Agent headers.
const Version = "1.0.0"

// ErrNotFound is returned by GetTransaction when the remote API reports 404.
var ErrNotFound = errors.New("transaction not found")

// CreateError carries the HTTP status and raw body of a failed transaction
// create so callers can log the exact upstream response.
type CreateError struct {
	StatusCode int
	Body       []byte
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("transaction create failed with status %d: %s", e.StatusCode, string(e.Body))
}

// CreateTransactionRequest is the input for CreateTransaction. Amount is the
// order total before rounding; the client rounds it up to the currency's
// precision before posting.
type CreateTransactionRequest struct {
	Amount         float64
	Currency       string
	Method         string
	SourceCurrency string
	TargetCurrency string
	TargetAddress  string
	RedirectURL    string
	CallbackURL    string
	Locale         string
	Description    string
	Metadata       map[string]string
}

type amountPayload struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type methodPayload struct {
	Method string `json:"method"`
}

type transactionPayload struct {
	Amount         amountPayload     `json:"amount"`
	PaymentMethod  methodPayload     `json:"payment_method"`
	SourceCurrency string            `json:"source_currency"`
	TargetCurrency string            `json:"target_currency"`
	TargetAddress  string            `json:"target_address"`
	Metadata       map[string]string `json:"metadata"`
	RedirectURL    string            `json:"redirect_url"`
	CallbackURL    string            `json:"callback_url"`
	Locale         string            `json:"locale"`
	Description    string            `json:"description"`
}

type quotePayload struct {
	SourceCurrency string        `json:"source_currency"`
	TargetCurrency string        `json:"target_currency"`
	Amount         amountPayload `json:"amount"`
	PaymentMethod  methodPayload `json:"payment_method"`
}

type paymentData struct {
	UUID     string `json:"uuid"`
	Status   string `json:"status"`
	Mode     string `json:"mode"`
	Method   string `json:"method"`
	Metadata struct {
		URL string `json:"url"`
	} `json:"metadata"`
}

type transactionData struct {
	UUID     string `json:"uuid"`
	Status   string `json:"status"`
	Payments struct {
		Data []paymentData `json:"data"`
	} `json:"payments"`
}

type transactionEnvelope struct {
	Data transactionData `json:"data"`
}

type quoteEnvelope struct {
	Data struct {
		SourceAmount amountPayload `json:"source_amount"`
	} `json:"data"`
}

// Client is the Nocks transaction API client. It performs single attempts;
// retry policy belongs to the callers that can judge idempotency.
type Client struct {
	endpoint   string
	token      string
	userAgent  string
	clientInfo string
}

// NewClient builds a client for the endpoint matching the configured mode
// (live or sandbox).
func NewClient(conf *config.Configuration) *Client {
	return &Client{
		endpoint:   conf.Nocks.APIEndpoint(),
		token:      conf.Nocks.Token,
		userAgent:  fmt.Sprintf("NocksGateway/%s %s", Version, runtime.Version()),
		clientInfo: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *transactionPayload, quote *quotePayload) (*http.Request, error) {
	var req *http.Request
	var err error
	switch {
	case body != nil:
		payload, jerr := request.ToJsonReq(body)
		if jerr != nil {
			return nil, jerr
		}
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint+path, payload)
	case quote != nil:
		payload, jerr := request.ToJsonReq(quote)
		if jerr != nil {
			return nil, jerr
		}
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint+path, payload)
	default:
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Nocks-Client-Info", c.clientInfo)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// CreateTransaction posts a new transaction and returns it with its nested
// payments. The posted amount is rounded up to the currency's precision so
// float noise in the order total can never under-charge the merchant. A
// non-2xx response is returned as a *CreateError carrying the raw body.
func (c *Client) CreateTransaction(ctx context.Context, txn CreateTransactionRequest) (*model.Transaction, error) {
	targetCurrency := txn.TargetCurrency
	if targetCurrency == "" {
		targetCurrency = txn.SourceCurrency
	}
	payload := &transactionPayload{
		Amount: amountPayload{
			Amount:   model.RoundUp(txn.Amount, txn.Currency),
			Currency: txn.Currency,
		},
		PaymentMethod:  methodPayload{Method: txn.Method},
		SourceCurrency: txn.SourceCurrency,
		TargetCurrency: targetCurrency,
		TargetAddress:  txn.TargetAddress,
		Metadata:       txn.Metadata,
		RedirectURL:    txn.RedirectURL,
		CallbackURL:    txn.CallbackURL,
		Locale:         txn.Locale,
		Description:    txn.Description,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "transaction", payload, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building create transaction request")
	}

	var envelope transactionEnvelope
	resp, body, err := request.Call(req, &envelope)
	if err != nil {
		return nil, errors.Wrap(err, "creating transaction")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &CreateError{StatusCode: resp.StatusCode, Body: body}
	}
	if envelope.Data.UUID == "" {
		return nil, &CreateError{StatusCode: resp.StatusCode, Body: body}
	}
	return envelope.Data.toModel(), nil
}

// GetTransaction fetches a transaction by id. ErrNotFound is returned for a
// remote 404 so callers can distinguish a vanished transaction from a
// transport failure.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "transaction/"+transactionID, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building get transaction request")
	}

	var envelope transactionEnvelope
	resp, body, err := request.Call(req, &envelope)
	if err != nil {
		return nil, errors.Wrap(err, "fetching transaction")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("fetching transaction %s: status %d, body %s", transactionID, resp.StatusCode, string(body))
	}
	return envelope.Data.toModel(), nil
}

// QuotePrice asks the API what a given amount costs in the target currency.
// The quote is advisory display data, so every failure mode degrades to an
// unavailable quote instead of an error.
func (c *Client) QuotePrice(ctx context.Context, targetCurrency string, amount float64, sourceCurrency, method string) model.QuoteResult {
	payload := &quotePayload{
		SourceCurrency: sourceCurrency,
		TargetCurrency: targetCurrency,
		Amount: amountPayload{
			Amount:   decimal.NewFromFloat(amount).String(),
			Currency: targetCurrency,
		},
		PaymentMethod: methodPayload{Method: method},
	}

	req, err := c.newRequest(ctx, http.MethodPost, "transaction/quote", nil, payload)
	if err != nil {
		return model.UnavailableQuote()
	}

	var envelope quoteEnvelope
	resp, _, err := request.Call(req, &envelope)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.UnavailableQuote()
	}
	quoted, err := decimal.NewFromString(envelope.Data.SourceAmount.Amount)
	if err != nil {
		return model.UnavailableQuote()
	}
	return model.NewQuote(quoted, envelope.Data.SourceAmount.Currency)
}

func (d transactionData) toModel() *model.Transaction {
	txn := &model.Transaction{
		TransactionID: d.UUID,
		Status:        model.ParseTransactionStatus(d.Status),
		FetchedAt:     time.Now(),
	}
	for _, p := range d.Payments.Data {
		txn.Payments = append(txn.Payments, model.Payment{
			PaymentID:   p.UUID,
			Method:      p.Method,
			Mode:        p.Mode,
			Status:      p.Status,
			RedirectURL: p.Metadata.URL,
		})
	}
	return txn
}
