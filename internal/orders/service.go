package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/internal/catalog"
	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/money"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox/payloads"
)

type catalogService interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	TakeStock(ctx context.Context, tx *gorm.DB, req catalog.StockRequest) error
	ReturnStock(ctx context.Context, tx *gorm.DB, req catalog.StockRequest) error
}

type salesService interface {
	CreateFromOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Sale, error)
}

type walletService interface {
	CanTakeDebt(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	ProcessAdjustment(ctx context.Context, tx *gorm.DB, sale *models.Sale) error
}

type pickupService interface {
	Reserve(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order lifecycle: pending on creation, confirmed once
// stock is committed and the sale exists, then ready and picked_up on the
// fulfillment track, or cancelled as the terminal branch.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus) ([]models.Order, error)
	Confirm(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	MarkReady(ctx context.Context, orderID uuid.UUID) (*models.Order, string, error)
	VerifyPickupCode(ctx context.Context, token string) (*models.Order, error)
	ConfirmPickup(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo    Repository
	catalog catalogService
	sales   salesService
	wallet  walletService
	pickup  pickupService
	outbox  outboxPublisher
	runner  txRunner
}

// NewService builds an orders service with the required dependencies.
func NewService(
	repo Repository,
	catalogSvc catalogService,
	salesSvc salesService,
	walletSvc walletService,
	pickupSvc pickupService,
	publisher outboxPublisher,
	runner txRunner,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if salesSvc == nil {
		return nil, fmt.Errorf("sales service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if pickupSvc == nil {
		return nil, fmt.Errorf("pickup service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:    repo,
		catalog: catalogSvc,
		sales:   salesSvc,
		wallet:  walletSvc,
		pickup:  pickupSvc,
		outbox:  publisher,
		runner:  runner,
	}, nil
}

// Create validates the requested lines against the live catalog, snapshots
// prices, and persists a pending order. Stock is not touched yet; it commits
// at confirmation. Pay-later checkouts are blocked when the projected debt
// would cross the customer's floor, and a requested pickup slot is reserved
// atomically with the order row.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerName == "" || input.CustomerPhone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name and phone required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if input.PaymentMethod == enums.PaymentIntentPayLater && input.UserID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pay later requires an account")
	}

	var order *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		order = &models.Order{
			ID:                uuid.New(),
			UserID:            input.UserID,
			CustomerName:      input.CustomerName,
			CustomerPhone:     input.CustomerPhone,
			OrderStatus:       enums.OrderStatusPending,
			PaymentStatus:     enums.OrderPaymentStatusPending,
			PaymentMethod:     input.PaymentMethod,
			FulfillmentStatus: enums.FulfillmentStatusPending,
			PickupSlotID:      input.PickupSlotID,
			PickupTime:        input.PickupTime,
			Notes:             input.Notes,
		}

		for _, line := range input.Items {
			item, err := s.buildItem(ctx, order.ID, line)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
		}

		if input.PaymentMethod == enums.PaymentIntentPayLater {
			if err := s.wallet.CanTakeDebt(ctx, *input.UserID, order.TotalAmount()); err != nil {
				return err
			}
		}
		if input.PickupSlotID != nil {
			if err := s.pickup.Reserve(ctx, tx, *input.PickupSlotID); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				CustomerPhone: order.CustomerPhone,
				TotalAmount:   order.TotalAmount(),
				PaymentMethod: order.PaymentMethod,
				ItemCount:     len(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) buildItem(ctx context.Context, orderID uuid.UUID, line OrderItemInput) (*models.OrderItem, error) {
	product, err := s.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %q is not available", product.Name))
	}

	switch product.Unit {
	case enums.ProductUnitPiece:
		if line.Quantity == nil || *line.Quantity <= 0 || line.Weight != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %q is sold by piece", product.Name))
		}
	case enums.ProductUnitKilogram:
		if line.Weight == nil || !line.Weight.IsPositive() || line.Quantity != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %q is sold by weight", product.Name))
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown product unit %q", product.Unit))
	}

	item := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    line.Quantity,
		UnitPrice:   product.Price,
		UnitCost:    product.CostPrice,
	}
	if line.Weight != nil {
		rounded := money.RoundWeight(*line.Weight)
		item.Weight = &rounded
	}
	return item, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) List(ctx context.Context, status *enums.OrderStatus) ([]models.Order, error) {
	list, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// Confirm commits the order: the pending->confirmed flip, every stock
// decrement, and the sale creation all happen in one transaction, so a short
// item rolls the whole confirmation back.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if len(order.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
		}

		flipped, err := repo.MarkConfirmed(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
		}
		order.OrderStatus = enums.OrderStatusConfirmed

		for _, item := range order.Items {
			err := s.catalog.TakeStock(ctx, tx, catalog.StockRequest{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Weight:    item.Weight,
			})
			if err != nil {
				return err
			}
		}

		sale, err := s.sales.CreateFromOrder(ctx, tx, order)
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderConfirmedEvent{
				OrderID:     order.ID,
				SaleID:      sale.ID,
				UserID:      order.UserID,
				TotalAmount: sale.TotalAmount,
				DueDate:     sale.DueDate,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel moves the order to its terminal state. Stock taken at confirmation
// is returned and a reserved pickup seat is released, all in one transaction.
// Picked-up orders can no longer be cancelled.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := time.Now()
		flipped, err := repo.MarkCancelled(ctx, orderID, reason, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		restocked := false
		if order.OrderStatus == enums.OrderStatusConfirmed {
			for _, item := range order.Items {
				err := s.catalog.ReturnStock(ctx, tx, catalog.StockRequest{
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					Weight:    item.Weight,
				})
				if err != nil {
					return err
				}
			}
			restocked = true
		}

		if order.PickupSlotID != nil {
			if err := s.pickup.Release(ctx, tx, *order.PickupSlotID); err != nil {
				return err
			}
		}

		order.OrderStatus = enums.OrderStatusCancelled
		order.CancellationReason = &reason
		order.CancelledAt = &now

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				Reason:      reason,
				CancelledAt: now,
				Restocked:   restocked,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// MarkReady flags a confirmed order as ready for collection and returns the
// pickup token the customer presents at the counter.
func (s *service) MarkReady(ctx context.Context, orderID uuid.UUID) (*models.Order, string, error) {
	var order *models.Order
	var token string
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := time.Now()
		code := newPickupCode()
		flipped, err := repo.MarkReady(ctx, orderID, code, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order ready")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting preparation")
		}
		order.FulfillmentStatus = enums.FulfillmentStatusReady
		order.PickupCode = &code
		order.ReadyAt = &now
		token = buildPickupToken(order.ID, code)

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReady,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderReadyEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				CustomerPhone: order.CustomerPhone,
				PickupToken:   token,
				PickupTime:    order.PickupTime,
			},
		})
	})
	if err != nil {
		return nil, "", err
	}
	return order, token, nil
}

// VerifyPickupCode resolves a presented token to its order. Any mismatch, a
// bad token, an unknown order, a wrong code, an order that is not ready,
// reads the same to the caller.
func (s *service) VerifyPickupCode(ctx context.Context, token string) (*models.Order, error) {
	notFound := pkgerrors.New(pkgerrors.CodeNotFound, "order not found")

	orderID, code, err := parsePickupToken(token)
	if err != nil {
		return nil, notFound
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, notFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.FulfillmentStatus != enums.FulfillmentStatusReady {
		return nil, notFound
	}
	if order.PickupCode == nil || *order.PickupCode != code {
		return nil, notFound
	}
	return order, nil
}

// ConfirmPickup hands the order over. The wallet reconciliation against the
// sale happens in the same transaction as the fulfillment flip, so the
// handover and the financial settlement cannot diverge.
func (s *service) ConfirmPickup(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := time.Now()
		flipped, err := repo.MarkPickedUp(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order picked up")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for pickup")
		}
		order.FulfillmentStatus = enums.FulfillmentStatusPickedUp
		order.PickedUpAt = &now

		sale, err := repo.FindSale(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no sale")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if err := s.wallet.ProcessAdjustment(ctx, tx, sale); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPickedUp,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPickedUpEvent{
				OrderID:    order.ID,
				SaleID:     sale.ID,
				UserID:     order.UserID,
				PickedUpAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
