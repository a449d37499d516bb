package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	dbpkg "github.com/brianmwirigi/sokofresh-backend/pkg/db"
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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the financial record attached to confirmed orders. TotalPaid
// and the payment status are only ever recalculated here, inside the same
// transaction as the payment event that moved them.
type Service interface {
	CreateFromOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Sale, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Sale, error)
	RecalculateTotalPaid(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*models.Sale, error)
	SyncPaymentStatus(ctx context.Context, tx *gorm.DB, sale *models.Sale) error
	CanAddPayment(sale *models.Sale, amount decimal.Decimal) error
	MarkOverdueSales(ctx context.Context, now time.Time) (int, error)
	SendDueSoonWarnings(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	repo    Repository
	outbox  outboxPublisher
	runner  txRunner
	billing config.BillingConfig
}

// NewService builds a sales service with the required dependencies.
func NewService(repo Repository, publisher outboxPublisher, runner txRunner, billing config.BillingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if billing.DebtDueDays <= 0 {
		return nil, fmt.Errorf("debt due days must be positive")
	}
	return &service{repo: repo, outbox: publisher, runner: runner, billing: billing}, nil
}

// CreateFromOrder materializes the sale for a freshly confirmed order inside
// the confirmation transaction. Item snapshots are copied over so the
// financial record survives later product edits. Every sale starts unpaid,
// so it carries a due date from day one regardless of payment intent; the
// date only stops mattering once the balance settles.
func (s *service) CreateFromOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Sale, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	if order.OrderStatus != enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order must be confirmed before creating a sale")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	repo := s.repo.WithTx(tx)

	if _, err := repo.FindByOrderID(ctx, order.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sale already exists for order")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	totalAmount := order.TotalAmount()
	costAmount := order.TotalCost()
	sale := &models.Sale{
		ID:            uuid.New(),
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   totalAmount,
		TotalPaid:     decimal.Zero,
		CostAmount:    costAmount,
		ProfitAmount:  totalAmount.Sub(costAmount),
		PaymentStatus: enums.SalePaymentStatusNoPayment,
	}
	dueDate := time.Now().AddDate(0, 0, s.billing.DebtDueDays)
	sale.DueDate = &dueDate
	for _, item := range order.Items {
		sale.Items = append(sale.Items, models.SaleItem{
			ID:          uuid.New(),
			SaleID:      sale.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Weight:      item.Weight,
			UnitPrice:   item.UnitPrice,
			UnitCost:    item.UnitCost,
			LineTotal:   item.LineTotal(),
			LineCost:    item.LineCost(),
		})
	}

	if err := repo.Create(ctx, sale); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_sales_order_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sale already exists for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}

	if err := repo.UpdateOrderPaymentStatus(ctx, order.ID, OrderPaymentStatusFor(sale.PaymentStatus, order.PaymentMethod)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync order payment status")
	}
	return sale, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

func (s *service) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

// RecalculateTotalPaid rebuilds TotalPaid from the completed payment rows and
// syncs the derived statuses, all inside the caller's transaction.
func (s *service) RecalculateTotalPaid(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*models.Sale, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	sale, err := repo.FindByID(ctx, saleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	total, err := repo.SumCompletedPayments(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
	}
	sale.TotalPaid = money.RoundMoney(total)

	if err := s.SyncPaymentStatus(ctx, tx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// SyncPaymentStatus derives the sale's payment status from its totals and due
// date, persists it, and propagates the mapped status onto the order row. The
// first transition into overdue emits a debt event, guarded by the
// notification stamp so it fires exactly once.
func (s *service) SyncPaymentStatus(ctx context.Context, tx *gorm.DB, sale *models.Sale) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if sale == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "sale required")
	}
	repo := s.repo.WithTx(tx)

	now := time.Now()
	sale.PaymentStatus = paymentStatusFor(sale, now)
	if err := repo.Save(ctx, sale); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sale")
	}

	order, err := repo.FindOrder(ctx, sale.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	mapped := OrderPaymentStatusFor(sale.PaymentStatus, order.PaymentMethod)
	if err := repo.UpdateOrderPaymentStatus(ctx, order.ID, mapped); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync order payment status")
	}

	if sale.PaymentStatus == enums.SalePaymentStatusOverdue {
		return s.emitOverdueOnce(ctx, tx, repo, sale, now)
	}
	return nil
}

// CanAddPayment rejects non-positive amounts and payments that would exceed
// the outstanding balance. Change is handled by wallet reconciliation at
// pickup, never by overpaying the sale.
func (s *service) CanAddPayment(sale *models.Sale, amount decimal.Decimal) error {
	if sale == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "sale required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	balance := sale.Balance()
	if amount.GreaterThan(balance) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment exceeds outstanding balance").
			WithDetails(map[string]any{
				"balance":   balance.StringFixed(2),
				"requested": amount.StringFixed(2),
			})
	}
	return nil
}

// MarkOverdueSales sweeps unpaid sales past their due date into overdue.
// Safe to run repeatedly; each sale transitions and notifies at most once.
func (s *service) MarkOverdueSales(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.ListUnpaidPastDue(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list past due sales")
	}

	marked := 0
	for i := range candidates {
		sale := candidates[i]
		err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			return s.SyncPaymentStatus(ctx, tx, &sale)
		})
		if err != nil {
			return marked, err
		}
		if sale.PaymentStatus == enums.SalePaymentStatusOverdue {
			marked++
		}
	}
	return marked, nil
}

// SendDueSoonWarnings emits a one-time warning for unpaid sales whose due
// date falls within the configured warning window.
func (s *service) SendDueSoonWarnings(ctx context.Context, now time.Time) (int, error) {
	until := now.AddDate(0, 0, s.billing.DebtWarningDays)
	candidates, err := s.repo.ListDueSoon(ctx, now, until)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due soon sales")
	}

	warned := 0
	for i := range candidates {
		sale := candidates[i]
		err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			stamped, err := repo.MarkDueWarningNotified(ctx, sale.ID, now)
			if err != nil {
				return err
			}
			if !stamped {
				return nil
			}
			warned++
			days := int(sale.DueDate.Sub(now).Hours() / 24)
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDebtDueSoon,
				AggregateType: enums.AggregateSale,
				AggregateID:   sale.ID,
				Version:       1,
				Data: payloads.DebtDueSoonEvent{
					SaleID:       sale.ID,
					OrderID:      sale.OrderID,
					UserID:       sale.UserID,
					Balance:      sale.Balance(),
					DueDate:      *sale.DueDate,
					DaysUntilDue: days,
				},
			})
		})
		if err != nil {
			return warned, err
		}
	}
	return warned, nil
}

func (s *service) emitOverdueOnce(ctx context.Context, tx *gorm.DB, repo Repository, sale *models.Sale, now time.Time) error {
	stamped, err := repo.MarkOverdueNotified(ctx, sale.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp overdue notification")
	}
	if !stamped {
		return nil
	}
	sale.OverdueNotifiedAt = &now

	dueDate := now
	if sale.DueDate != nil {
		dueDate = *sale.DueDate
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDebtOverdue,
		AggregateType: enums.AggregateSale,
		AggregateID:   sale.ID,
		Version:       1,
		Data: payloads.DebtOverdueEvent{
			SaleID:  sale.ID,
			OrderID: sale.OrderID,
			UserID:  sale.UserID,
			Balance: sale.Balance(),
			DueDate: dueDate,
		},
	})
}

// paymentStatusFor derives the status from the sale's totals and due date. A
// residual within tolerance counts as fully paid.
func paymentStatusFor(sale *models.Sale, now time.Time) enums.SalePaymentStatus {
	balance := sale.Balance()
	switch {
	case money.IsSettled(balance) || balance.IsNegative():
		return enums.SalePaymentStatusFullyPaid
	case sale.IsPastDue(now):
		return enums.SalePaymentStatusOverdue
	case sale.TotalPaid.IsPositive():
		return enums.SalePaymentStatusPartialPayment
	default:
		return enums.SalePaymentStatusNoPayment
	}
}
