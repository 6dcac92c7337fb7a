package request

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJsonReq(t *testing.T) {
	buf, err := ToJsonReq(map[string]string{"method": "bitcoin"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"bitcoin"}`, buf.String())
}

func TestCallDecodesSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"uuid":"trx-1"}}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	var decoded struct {
		Data struct {
			UUID string `json:"uuid"`
		} `json:"data"`
	}
	resp, body, err := Call(req, &decoded)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "trx-1", decoded.Data.UUID)
	assert.NotEmpty(t, body)
}

func TestCallReturnsRawBodyOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"amount invalid"}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
	require.NoError(t, err)

	var decoded map[string]interface{}
	resp, body, err := Call(req, &decoded)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	// Non-2xx bodies are not decoded, only returned raw.
	assert.Empty(t, decoded)
	assert.Contains(t, string(body), "amount invalid")
}
