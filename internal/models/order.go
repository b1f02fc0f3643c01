package models

import "time"

// OrderItem is a frozen copy of a cart line taken at checkout.
type OrderItem struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID     string  `json:"order_id" gorm:"type:varchar(36);not null;index"`
	ProductName string  `json:"product_name" gorm:"type:varchar(100);not null"`
	Price       float64 `json:"price" gorm:"not null"` // Price at the time of order
	Quantity    int     `json:"quantity" gorm:"not null"`
}

// Order represents a completed checkout.
type Order struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string      `json:"user_id" gorm:"type:varchar(36);not null;index"`
	User       *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items      []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal   float64     `json:"subtotal" gorm:"not null"`
	Tax        float64     `json:"tax" gorm:"not null"`
	TotalPrice float64     `json:"total_price" gorm:"not null"`
	CreatedAt  time.Time   `json:"created_at" gorm:"index"`
}
