package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/brianmwirigi/sokofresh-backend/api/responses"
	"github.com/brianmwirigi/sokofresh-backend/api/validators"
	"github.com/brianmwirigi/sokofresh-backend/internal/payments"
	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

type manualPaymentRequest struct {
	SaleID string `json:"sale_id" validate:"required,uuid4"`
	Amount string `json:"amount" validate:"required"`
}

type stkPushRequest struct {
	SaleID string `json:"sale_id" validate:"required,uuid4"`
	Phone  string `json:"phone" validate:"required,min=9,max=15"`
	Amount string `json:"amount" validate:"required"`
}

type refundRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=250"`
}

// RecordCashPayment settles part of a sale over the counter.
func RecordCashPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return recordManualPayment(svc.RecordCash, logg)
}

// RecordCardPayment settles part of a sale via the card terminal.
func RecordCardPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return recordManualPayment(svc.RecordCard, logg)
}

func recordManualPayment(record func(ctx context.Context, input payments.ManualPaymentInput) (*models.Payment, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req manualPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saleID, err := uuid.Parse(req.SaleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale id"))
			return
		}
		amount, err := parseMoney(req.Amount, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recordedBy, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := record(r.Context(), payments.ManualPaymentInput{
			SaleID:     saleID,
			Amount:     amount,
			RecordedBy: recordedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// InitiateStkPush sends an M-Pesa prompt to the customer's phone.
func InitiateStkPush(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stkPushRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saleID, err := uuid.Parse(req.SaleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale id"))
			return
		}
		amount, err := parseMoney(req.Amount, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, txn, err := svc.InitiateStkPush(r.Context(), payments.StkPushInput{
			SaleID: saleID,
			Phone:  req.Phone,
			Amount: amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"payment":             payment,
			"checkout_request_id": txn.CheckoutRequestID,
		})
	}
}

// RefundPayment reverses a completed payment.
func RefundPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paymentID, err := validators.UUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recordedBy, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Refund(r.Context(), payments.RefundInput{
			PaymentID:  paymentID,
			Reason:     req.Reason,
			RecordedBy: recordedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// ListSalePayments returns every payment recorded against a sale.
func ListSalePayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.UUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListBySale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
