package repositories

import (
	"errors"
	"fmt"
	"time"

	"bikeshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetAll returns every order, newest first, with owner and items preloaded.
func (r *GORMOrderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	if err := r.withAssociations(r.db).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID returns a single order with owner and items preloaded.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.withAssociations(r.db).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByUserID returns the orders of one user, newest first.
func (r *GORMOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// Count returns the number of orders.
func (r *GORMOrderRepository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&models.Order{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// Create inserts the order and its items in one transaction.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return createOrder(tx, order)
	})
}

func (r *GORMOrderRepository) withAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Items")
}

// createOrder inserts the order header and items using tx. Shared with the
// cart repository so checkout can clear cart rows inside the same transaction.
func createOrder(tx *gorm.DB, order *models.Order) error {
	prepareOrder(order)
	// Omit the owner association so a partially loaded User is never upserted.
	if err := tx.Omit("User").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func prepareOrder(order *models.Order) {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
}
