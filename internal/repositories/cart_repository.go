package repositories

import "bikeshop/internal/models"

// CartRepository defines the interface for persisted cart lines.
type CartRepository interface {
	GetByUser(userID string) ([]models.CartItem, error)
	AddOne(userID, productID string) error
	SetQuantity(userID, lineID string, quantity int) error
	Delete(userID, lineID string) error
	ClearByUser(userID string) error
	// CommitOrder stores the order and deletes the owner's cart lines atomically.
	CommitOrder(order *models.Order) error
}
