package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// unwrapData returns the "data" member of an envelope such as {"success":true,"data":{...}}.
// Any other body is returned as is.
func unwrapData(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	data, ok := envelope["data"]
	if !ok || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return trimmed
	}
	return data
}

func decodeBody(raw []byte, out any) error {
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

type paymentPayload struct {
	PaymentURL    string `json:"paymentUrl"`
	TransactionID string `json:"transactionId"`
}

// normalizePayment accepts {"data":{"paymentUrl":...}} and {"paymentUrl":...}.
// The wrapped value wins when both are present.
func normalizePayment(raw []byte) (PaymentSession, error) {
	var body struct {
		paymentPayload
		Data *paymentPayload `json:"data"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), &body); err != nil {
		return PaymentSession{}, fmt.Errorf("decode payment response: %w", err)
	}

	session := PaymentSession{
		PaymentURL:    body.PaymentURL,
		TransactionID: body.TransactionID,
	}
	if body.Data != nil {
		if body.Data.PaymentURL != "" {
			session.PaymentURL = body.Data.PaymentURL
		}
		if body.Data.TransactionID != "" {
			session.TransactionID = body.Data.TransactionID
		}
	}
	return session, nil
}
