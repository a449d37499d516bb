package controllers

import (
	"io"
	"net/http"

	"github.com/brianmwirigi/sokofresh-backend/internal/payments"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
	"github.com/brianmwirigi/sokofresh-backend/pkg/mpesa"
)

// MpesaCallback receives the Daraja STK push result. Malformed payloads are
// acknowledged with 200 since a retry would fail the same way; processing
// failures return 500 so Daraja retries.
func MpesaCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			logg.Error(r.Context(), "mpesa.callback.read_failed", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result, err := mpesa.ParseCallback(body)
		if err != nil {
			logg.Error(r.Context(), "mpesa.callback.unparseable", err)
			writeDarajaAck(w)
			return
		}

		if err := svc.HandleStkCallback(r.Context(), result); err != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"checkout_request_id": result.CheckoutRequestID,
			})
			logg.Error(ctx, "mpesa.callback.failed", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeDarajaAck(w)
	}
}

func writeDarajaAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ResultCode":0,"ResultDesc":"Accepted"}`))
}
