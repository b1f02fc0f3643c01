package repositories

import (
	"errors"
	"fmt"
	"time"

	"bikeshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetByUser returns the user's cart lines in the order they were added.
func (r *GORMCartRepository) GetByUser(userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Where("user_id = ?", userID).Order("added_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return items, nil
}

// AddOne increments the (user, product) line by one, creating it at quantity 1.
// The increment is a single UPDATE so concurrent adds are not lost.
func (r *GORMCartRepository) AddOne(userID, productID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Update("quantity", gorm.Expr("quantity + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("failed to increment cart line: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}

		item := models.CartItem{
			ID:        uuid.New().String(),
			UserID:    userID,
			ProductID: productID,
			Quantity:  1,
			AddedAt:   time.Now(),
		}
		if err := tx.Create(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("cart line for product %s: %w", productID, ErrDuplicate)
			}
			return fmt.Errorf("failed to create cart line: %w", err)
		}
		return nil
	})
}

// SetQuantity sets the quantity of a line owned by the user; quantity <= 0 deletes it.
func (r *GORMCartRepository) SetQuantity(userID, lineID string, quantity int) error {
	if quantity <= 0 {
		return r.Delete(userID, lineID)
	}
	res := r.db.Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Update("quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart line %s: %w", lineID, ErrNotFound)
	}
	return nil
}

// Delete removes a line if it belongs to the user.
func (r *GORMCartRepository) Delete(userID, lineID string) error {
	res := r.db.Where("id = ? AND user_id = ?", lineID, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart line %s: %w", lineID, ErrNotFound)
	}
	return nil
}

// ClearByUser deletes every cart line of the user.
func (r *GORMCartRepository) ClearByUser(userID string) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}

// CommitOrder inserts the order with its items and empties the owner's cart in one transaction.
func (r *GORMCartRepository) CommitOrder(order *models.Order) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := createOrder(tx, order); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", order.UserID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart for user %s: %w", order.UserID, err)
		}
		return nil
	})
}
