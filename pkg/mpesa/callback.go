package mpesa

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ResultCodeSuccess is the Daraja result code for a completed payment.
const ResultCodeSuccess = 0

// CallbackEnvelope mirrors the JSON Daraja posts to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []callbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type callbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// CallbackResult is the normalized outcome extracted from a callback payload.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	Receipt           string
	Phone             string
}

// Success reports whether the customer completed the payment.
func (r CallbackResult) Success() bool {
	return r.ResultCode == ResultCodeSuccess
}

// ParseCallback decodes and normalizes a Daraja STK callback body.
func ParseCallback(body []byte) (*CallbackResult, error) {
	var envelope CallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}

	cb := envelope.Body.StkCallback
	if strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return nil, fmt.Errorf("callback missing checkout request id")
	}

	result := &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			var amount float64
			if err := json.Unmarshal(item.Value, &amount); err == nil {
				result.Amount = decimal.NewFromFloat(amount).Round(2)
			}
		case "MpesaReceiptNumber":
			var receipt string
			if err := json.Unmarshal(item.Value, &receipt); err == nil {
				result.Receipt = receipt
			}
		case "PhoneNumber":
			var phone json.Number
			if err := json.Unmarshal(item.Value, &phone); err == nil {
				result.Phone = phone.String()
			}
		}
	}

	return result, nil
}
