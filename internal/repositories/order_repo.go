package repositories

import (
	"bikeshop/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are immutable once created, so there is no update or delete.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByUserID(userID string) ([]models.Order, error)
	Count() (int64, error)
	Create(order *models.Order) error
}
