package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/money"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes product CRUD and the single stock mutation entry points.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	TakeStock(ctx context.Context, tx *gorm.DB, req StockRequest) error
	ReturnStock(ctx context.Context, tx *gorm.DB, req StockRequest) error
}

type service struct {
	repo   Repository
	outbox outboxPublisher
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, outbox: publisher}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", input.Unit))
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.CostPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price must not be negative")
	}

	product := &models.Product{
		ID:            uuid.New(),
		Name:          input.Name,
		Description:   input.Description,
		Unit:          input.Unit,
		StockQuantity: input.InitialQty,
		StockWeight:   money.RoundWeight(input.InitialWt),
		MinimumStock:  input.MinimumStock,
		Price:         money.RoundMoney(input.Price),
		CostPrice:     money.RoundMoney(input.CostPrice),
		IsActive:      true,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = money.RoundMoney(*input.Price)
	}
	if input.CostPrice != nil {
		if input.CostPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price must not be negative")
		}
		product.CostPrice = money.RoundMoney(*input.CostPrice)
	}
	if input.MinimumStock != nil {
		product.MinimumStock = *input.MinimumStock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

// TakeStock decrements stock for one request inside the caller's transaction.
// The decrement is a conditional update; if stock is short the whole
// transaction fails with the product name in the error details.
func (s *service) TakeStock(ctx context.Context, tx *gorm.DB, req StockRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	product, err := repo.FindByID(ctx, req.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	taken := false
	switch product.Unit {
	case enums.ProductUnitPiece:
		if req.Quantity == nil || *req.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive for piece products")
		}
		taken, err = repo.DecrementQuantity(ctx, product.ID, *req.Quantity)
	case enums.ProductUnitKilogram:
		if req.Weight == nil || !req.Weight.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive for weighed products")
		}
		taken, err = repo.DecrementWeight(ctx, product.ID, money.RoundWeight(*req.Weight))
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown product unit %q", product.Unit))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if !taken {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
			WithDetails(map[string]any{
				"product_id":   product.ID.String(),
				"product_name": product.Name,
				"available":    product.StockLevel().String(),
			})
	}

	return s.maybeEmitLowStock(ctx, tx, repo, product.ID)
}

// ReturnStock reverses a prior decrement, used when a confirmed order is
// cancelled.
func (s *service) ReturnStock(ctx context.Context, tx *gorm.DB, req StockRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	product, err := repo.FindByID(ctx, req.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	switch product.Unit {
	case enums.ProductUnitPiece:
		if req.Quantity == nil || *req.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive for piece products")
		}
		err = repo.IncrementQuantity(ctx, product.ID, *req.Quantity)
	case enums.ProductUnitKilogram:
		if req.Weight == nil || !req.Weight.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive for weighed products")
		}
		err = repo.IncrementWeight(ctx, product.ID, money.RoundWeight(*req.Weight))
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown product unit %q", product.Unit))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return stock")
	}
	return nil
}

func (s *service) maybeEmitLowStock(ctx context.Context, tx *gorm.DB, repo Repository, productID uuid.UUID) error {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	if !product.IsLowStock() {
		return nil
	}
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLowStock,
		AggregateType: enums.AggregateProduct,
		AggregateID:   product.ID,
		Version:       1,
		Data: payloads.LowStockEvent{
			ProductID:    product.ID,
			ProductName:  product.Name,
			StockLevel:   product.StockLevel(),
			MinimumStock: product.MinimumStock,
		},
	})
}
