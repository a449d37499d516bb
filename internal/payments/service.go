package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/internal/wallet"
	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/money"
	"github.com/brianmwirigi/sokofresh-backend/pkg/mpesa"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox/payloads"
)

type salesService interface {
	CanAddPayment(sale *models.Sale, amount decimal.Decimal) error
	RecalculateTotalPaid(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*models.Sale, error)
}

type walletService interface {
	CreateTransaction(ctx context.Context, tx *gorm.DB, input wallet.TransactionInput) (*models.WalletTransaction, error)
}

type stkGateway interface {
	STKPush(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records settlements against sales. Every state change recalculates
// the sale totals inside the same transaction, so a payment is never visible
// without its effect on the sale.
type Service interface {
	RecordCash(ctx context.Context, input ManualPaymentInput) (*models.Payment, error)
	RecordCard(ctx context.Context, input ManualPaymentInput) (*models.Payment, error)
	InitiateStkPush(ctx context.Context, input StkPushInput) (*models.Payment, *models.MpesaTransaction, error)
	HandleStkCallback(ctx context.Context, result *mpesa.CallbackResult) error
	Refund(ctx context.Context, input RefundInput) (*models.Payment, error)
	ExpirePendingStkPushes(ctx context.Context, now time.Time) (int, error)
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error)
}

// ManualPaymentInput records an over-the-counter settlement.
type ManualPaymentInput struct {
	SaleID     uuid.UUID
	Amount     decimal.Decimal
	RecordedBy *uuid.UUID
}

// StkPushInput initiates an M-Pesa prompt against a sale.
type StkPushInput struct {
	SaleID uuid.UUID
	Phone  string
	Amount decimal.Decimal
}

// RefundInput reverses a completed payment.
type RefundInput struct {
	PaymentID  uuid.UUID
	Reason     string
	RecordedBy *uuid.UUID
}

type service struct {
	repo    Repository
	sales   salesService
	wallet  walletService
	gateway stkGateway
	idem    idempotencyStore
	outbox  outboxPublisher
	runner  txRunner
	cfg     config.MpesaConfig
}

// NewService builds a payments service with the required dependencies.
func NewService(
	repo Repository,
	sales salesService,
	walletSvc walletService,
	gateway stkGateway,
	idem idempotencyStore,
	publisher outboxPublisher,
	runner txRunner,
	cfg config.MpesaConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if sales == nil {
		return nil, fmt.Errorf("sales service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("mpesa gateway required")
	}
	if idem == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:    repo,
		sales:   sales,
		wallet:  walletSvc,
		gateway: gateway,
		idem:    idem,
		outbox:  publisher,
		runner:  runner,
		cfg:     cfg,
	}, nil
}

func (s *service) RecordCash(ctx context.Context, input ManualPaymentInput) (*models.Payment, error) {
	return s.recordManual(ctx, enums.PaymentMethodCash, input)
}

func (s *service) RecordCard(ctx context.Context, input ManualPaymentInput) (*models.Payment, error) {
	return s.recordManual(ctx, enums.PaymentMethodCard, input)
}

func (s *service) recordManual(ctx context.Context, method enums.PaymentMethod, input ManualPaymentInput) (*models.Payment, error) {
	var payment *models.Payment
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := repo.FindSale(ctx, input.SaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if err := s.sales.CanAddPayment(sale, input.Amount); err != nil {
			return err
		}

		now := time.Now()
		orderID := sale.OrderID
		payment = &models.Payment{
			ID:          uuid.New(),
			SaleID:      &sale.ID,
			OrderID:     &orderID,
			Method:      method,
			Amount:      money.RoundMoney(input.Amount),
			Status:      enums.PaymentStatusCompleted,
			RecordedBy:  input.RecordedBy,
			CompletedAt: &now,
		}
		if err := repo.InsertPayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}

		updated, err := s.sales.RecalculateTotalPaid(ctx, tx, sale.ID)
		if err != nil {
			return err
		}
		return s.emitCompleted(ctx, tx, payment, updated, "")
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// InitiateStkPush creates a pending payment, asks Daraja to prompt the phone,
// and records the gateway correlation. A gateway failure marks the payment
// failed immediately; it is never left pending without a live prompt.
func (s *service) InitiateStkPush(ctx context.Context, input StkPushInput) (*models.Payment, *models.MpesaTransaction, error) {
	phone, err := mpesa.NormalizePhone(input.Phone)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid phone number")
	}

	var payment *models.Payment
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := repo.FindSale(ctx, input.SaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if err := s.sales.CanAddPayment(sale, input.Amount); err != nil {
			return err
		}

		orderID := sale.OrderID
		payment = &models.Payment{
			ID:      uuid.New(),
			SaleID:  &sale.ID,
			OrderID: &orderID,
			Method:  enums.PaymentMethodMpesa,
			Amount:  money.RoundMoney(input.Amount),
			Status:  enums.PaymentStatusPending,
		}
		if err := repo.InsertPayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:            phone,
		Amount:           payment.Amount,
		AccountReference: payment.OrderID.String(),
		Description:      "SokoFresh order payment",
	})
	if err != nil {
		failErr := s.failPayment(ctx, payment.ID, "stk push initiation failed")
		if failErr != nil {
			return nil, nil, failErr
		}
		return nil, nil, err
	}

	var mpesaTxn *models.MpesaTransaction
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		mpesaTxn = &models.MpesaTransaction{
			ID:                uuid.New(),
			PaymentID:         payment.ID,
			CheckoutRequestID: resp.CheckoutRequestID,
			MerchantRequestID: resp.MerchantRequestID,
			Phone:             phone,
			Amount:            payment.Amount,
		}
		if err := repo.InsertMpesaTransaction(ctx, mpesaTxn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert mpesa transaction")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStkPushInitiated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.StkPushInitiatedEvent{
				PaymentID:         payment.ID,
				SaleID:            payment.SaleID,
				CheckoutRequestID: resp.CheckoutRequestID,
				Phone:             phone,
				Amount:            payment.Amount,
			},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, mpesaTxn, nil
}

// HandleStkCallback processes a Daraja result. Duplicate deliveries are
// dropped twice over: a redis key keyed on the checkout request and a
// conditional status flip on the payment row.
func (s *service) HandleStkCallback(ctx context.Context, result *mpesa.CallbackResult) error {
	if result == nil || result.CheckoutRequestID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback missing checkout request id")
	}

	key := s.idem.IdempotencyKey("mpesa_callback", result.CheckoutRequestID)
	fresh, err := s.idem.SetNX(ctx, key, "1", s.cfg.CallbackEventTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "callback idempotency check")
	}
	if !fresh {
		return nil
	}

	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		mpesaTxn, err := repo.FindMpesaByCheckoutID(ctx, result.CheckoutRequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unknown checkout request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mpesa transaction")
		}

		target := enums.PaymentStatusFailed
		if result.Success() {
			target = enums.PaymentStatusCompleted
		}
		flipped, err := repo.MarkPaymentStatus(ctx, mpesaTxn.PaymentID, enums.PaymentStatusPending, target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !flipped {
			return nil
		}

		payment, err := repo.FindPayment(ctx, mpesaTxn.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		now := time.Now()
		mpesaTxn.ResultCode = &result.ResultCode
		mpesaTxn.ResultDescription = &result.ResultDesc
		mpesaTxn.CallbackAt = &now
		if result.Receipt != "" {
			mpesaTxn.Receipt = &result.Receipt
		}
		if err := repo.SaveMpesaTransaction(ctx, mpesaTxn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save mpesa transaction")
		}

		if result.Success() {
			payment.CompletedAt = &now
			if result.Receipt != "" {
				payment.MpesaReceipt = &result.Receipt
			}
			if err := repo.SavePayment(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
			}
			if payment.SaleID == nil {
				return nil
			}
			sale, err := s.sales.RecalculateTotalPaid(ctx, tx, *payment.SaleID)
			if err != nil {
				return err
			}
			return s.emitCompleted(ctx, tx, payment, sale, result.Receipt)
		}

		reason := result.ResultDesc
		payment.FailureReason = &reason
		if err := repo.SavePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentFailedEvent{
				PaymentID: payment.ID,
				SaleID:    payment.SaleID,
				Method:    payment.Method,
				Amount:    payment.Amount,
				Reason:    reason,
			},
		})
	})
}

// Refund reverses a completed payment. The sale's totals drop back and the
// amount is returned to the customer as a wallet credit.
func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	var payment *models.Payment
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		flipped, err := repo.MarkPaymentStatus(ctx, input.PaymentID, enums.PaymentStatusCompleted, enums.PaymentStatusRefunded)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed payments can be refunded")
		}

		payment, err = repo.FindPayment(ctx, input.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		if payment.SaleID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not attached to a sale")
		}
		sale, err := s.sales.RecalculateTotalPaid(ctx, tx, *payment.SaleID)
		if err != nil {
			return err
		}

		if sale.UserID != nil {
			_, err = s.wallet.CreateTransaction(ctx, tx, wallet.TransactionInput{
				UserID:      *sale.UserID,
				Type:        enums.WalletTransactionTypeRefund,
				Amount:      payment.Amount,
				Description: fmt.Sprintf("Refund for order %s", sale.OrderID),
				OrderID:     payment.OrderID,
				SaleID:      payment.SaleID,
			})
			if err != nil {
				return err
			}
		}

		now := time.Now()
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentRefundedEvent{
				PaymentID:  payment.ID,
				SaleID:     *payment.SaleID,
				Amount:     payment.Amount,
				Reason:     input.Reason,
				RefundedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ExpirePendingStkPushes fails M-Pesa payments whose prompt aged out without
// a callback. Safe to run repeatedly.
func (s *service) ExpirePendingStkPushes(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.cfg.PendingExpiry)
	stale, err := s.repo.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired pushes")
	}

	expired := 0
	for i := range stale {
		mpesaTxn := stale[i]
		err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			flipped, err := repo.MarkPaymentStatus(ctx, mpesaTxn.PaymentID, enums.PaymentStatusPending, enums.PaymentStatusFailed)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
			}
			if !flipped {
				return nil
			}
			expired++

			payment, err := repo.FindPayment(ctx, mpesaTxn.PaymentID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
			}
			reason := "stk push expired"
			payment.FailureReason = &reason
			if err := repo.SavePayment(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
			}

			if payment.SaleID != nil {
				if _, err := s.sales.RecalculateTotalPaid(ctx, tx, *payment.SaleID); err != nil {
					return err
				}
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStkPushExpired,
				AggregateType: enums.AggregatePayment,
				AggregateID:   payment.ID,
				Version:       1,
				Data: payloads.StkPushExpiredEvent{
					PaymentID:         payment.ID,
					CheckoutRequestID: mpesaTxn.CheckoutRequestID,
					InitiatedAt:       mpesaTxn.CreatedAt,
				},
			})
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (s *service) ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error) {
	list, err := s.repo.ListBySale(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return list, nil
}

func (s *service) failPayment(ctx context.Context, paymentID uuid.UUID, reason string) error {
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		flipped, err := repo.MarkPaymentStatus(ctx, paymentID, enums.PaymentStatusPending, enums.PaymentStatusFailed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !flipped {
			return nil
		}
		payment, err := repo.FindPayment(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		payment.FailureReason = &reason
		if err := repo.SavePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentFailedEvent{
				PaymentID: payment.ID,
				SaleID:    payment.SaleID,
				Method:    payment.Method,
				Amount:    payment.Amount,
				Reason:    reason,
			},
		})
	})
}

func (s *service) emitCompleted(ctx context.Context, tx *gorm.DB, payment *models.Payment, sale *models.Sale, receipt string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentCompleted,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Version:       1,
		Data: payloads.PaymentCompletedEvent{
			PaymentID: payment.ID,
			SaleID:    sale.ID,
			OrderID:   payment.OrderID,
			Method:    payment.Method,
			Amount:    payment.Amount,
			Receipt:   receipt,
			FullyPaid: sale.IsFullyPaid(),
		},
	})
}
