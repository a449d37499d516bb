package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/money"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the single entry point for wallet movements. Every balance
// change writes a ledger row and bumps users.wallet_balance in one
// transaction, so the cached balance always equals the ledger sum.
type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error)
	CreateTransaction(ctx context.Context, tx *gorm.DB, input TransactionInput) (*models.WalletTransaction, error)
	ProcessAdjustment(ctx context.Context, tx *gorm.DB, sale *models.Sale) error
	CanTakeDebt(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

// TransactionInput carries one signed wallet movement. Credits are positive,
// debits negative.
type TransactionInput struct {
	UserID      uuid.UUID
	Type        enums.WalletTransactionType
	Amount      decimal.Decimal
	Description string
	OrderID     *uuid.UUID
	SaleID      *uuid.UUID
}

type service struct {
	repo   Repository
	outbox outboxPublisher
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, outbox: publisher}, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user.WalletBalance, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error) {
	txns, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return txns, nil
}

// CreateTransaction appends one ledger row and moves the cached balance by
// the same signed amount, inside the caller's transaction.
func (s *service) CreateTransaction(ctx context.Context, tx *gorm.DB, input TransactionInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet transaction type %q", input.Type))
	}
	if input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be zero")
	}
	repo := s.repo.WithTx(tx)

	txn := &models.WalletTransaction{
		ID:          uuid.New(),
		UserID:      input.UserID,
		Type:        input.Type,
		Amount:      money.RoundMoney(input.Amount),
		Description: input.Description,
		OrderID:     input.OrderID,
		SaleID:      input.SaleID,
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert wallet transaction")
	}
	if err := repo.IncrementBalance(ctx, input.UserID, txn.Amount); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}
	return txn, nil
}

// ProcessAdjustment reconciles a sale's paid total against its billed total
// at pickup. Overpayments credit the wallet, shortfalls debit it, and a
// difference within tolerance settles without a ledger entry. The sale's
// guard stamp makes the whole step exactly-once.
func (s *service) ProcessAdjustment(ctx context.Context, tx *gorm.DB, sale *models.Sale) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if sale == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "sale required")
	}
	if sale.WalletAdjustedAt != nil {
		return nil
	}
	repo := s.repo.WithTx(tx)

	now := time.Now()
	stamped, err := repo.MarkSaleAdjusted(ctx, sale.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp wallet adjustment")
	}
	if !stamped {
		return nil
	}
	sale.WalletAdjustedAt = &now

	diff := sale.TotalPaid.Sub(sale.TotalAmount)
	if sale.UserID == nil || money.IsSettled(diff) {
		return nil
	}

	txnType := enums.WalletTransactionTypeOverpayment
	description := fmt.Sprintf("Overpayment on order %s", sale.OrderID)
	if diff.IsNegative() {
		txnType = enums.WalletTransactionTypeUnderpayment
		description = fmt.Sprintf("Outstanding balance on order %s", sale.OrderID)
	}

	orderID := sale.OrderID
	txn, err := s.CreateTransaction(ctx, tx, TransactionInput{
		UserID:      *sale.UserID,
		Type:        txnType,
		Amount:      diff,
		Description: description,
		OrderID:     &orderID,
		SaleID:      &sale.ID,
	})
	if err != nil {
		return err
	}

	user, err := repo.FindUser(ctx, *sale.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletAdjusted,
		AggregateType: enums.AggregateWallet,
		AggregateID:   txn.ID,
		Version:       1,
		Data: payloads.WalletAdjustedEvent{
			UserID:        *sale.UserID,
			SaleID:        sale.ID,
			TransactionID: txn.ID,
			Type:          txnType,
			Amount:        txn.Amount,
			NewBalance:    user.WalletBalance,
		},
	})
}

// CanTakeDebt reports whether charging the user the given amount on credit
// would push their balance past the configured debt floor.
func (s *service) CanTakeDebt(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	projected := user.WalletBalance.Sub(amount)
	if projected.LessThan(user.MaxDebtLimit) {
		return pkgerrors.New(pkgerrors.CodeConflict, "debt limit exceeded").
			WithDetails(map[string]any{
				"wallet_balance": user.WalletBalance.StringFixed(2),
				"max_debt_limit": user.MaxDebtLimit.StringFixed(2),
				"requested":      amount.StringFixed(2),
			})
	}
	return nil
}
