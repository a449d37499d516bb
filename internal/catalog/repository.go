package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
)

// Repository exposes product persistence. Stock mutations are conditional
// updates so concurrent confirmations can never drive stock negative.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListActive(ctx context.Context) ([]models.Product, error)
	DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	IncrementQuantity(ctx context.Context, id uuid.UUID, qty int) error
	DecrementWeight(ctx context.Context, id uuid.UUID, weight decimal.Decimal) (bool, error)
	IncrementWeight(ctx context.Context, id uuid.UUID, weight decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *repository) DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty)).Error
}

func (r *repository) DecrementWeight(ctx context.Context, id uuid.UUID, weight decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_weight >= ?", id, weight).
		Update("stock_weight", gorm.Expr("stock_weight - ?", weight))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementWeight(ctx context.Context, id uuid.UUID, weight decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock_weight", gorm.Expr("stock_weight + ?", weight)).Error
}
