package models

import "time"

// CartItem is one persisted cart line: a (user, product) pair with a quantity.
type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_product"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_product"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1;check:quantity > 0"`
	AddedAt   time.Time `json:"added_at"`
}
