package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePayment(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantURL string
		wantTx  string
	}{
		{"wrapped", `{"data":{"paymentUrl":"https://pay/a","transactionId":"t1"}}`, "https://pay/a", "t1"},
		{"bare", `{"paymentUrl":"https://pay/b"}`, "https://pay/b", ""},
		{"wrapped wins", `{"paymentUrl":"https://pay/outer","data":{"paymentUrl":"https://pay/inner"}}`, "https://pay/inner", ""},
		{"empty data falls back", `{"paymentUrl":"https://pay/outer","data":{}}`, "https://pay/outer", ""},
		{"no url", `{"data":{}}`, "", ""},
		{"null data", `{"data":null}`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := normalizePayment([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, session.PaymentURL)
			assert.Equal(t, tt.wantTx, session.TransactionID)
		})
	}
}

func TestNormalizePayment_InvalidJSON(t *testing.T) {
	_, err := normalizePayment([]byte(`<html>`))
	assert.Error(t, err)
}

func TestUnwrapData(t *testing.T) {
	assert.JSONEq(t, `{"id":1}`, string(unwrapData([]byte(`{"success":true,"data":{"id":1}}`))))
	assert.JSONEq(t, `{"id":1}`, string(unwrapData([]byte(` {"id":1} `))))
	assert.JSONEq(t, `{"data":null,"id":2}`, string(unwrapData([]byte(`{"data":null,"id":2}`))))
	assert.JSONEq(t, `[1,2]`, string(unwrapData([]byte(`[1,2]`))))
}

func TestDecodeBody(t *testing.T) {
	var order CreatedOrder
	require.NoError(t, decodeBody([]byte(`{"data":{"id":7,"total":50000}}`), &order))
	assert.Equal(t, int64(7), order.ID)
	assert.Equal(t, "50000", order.Total.String())

	assert.ErrorContains(t, decodeBody([]byte(`nope`), &order), "decode backend response")
}
