package models

import "time"

// Product represents a bike in the catalog.
type Product struct {
	ID          string    `json:"id" yaml:"-" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string    `json:"name" yaml:"name" gorm:"type:varchar(100);not null" validate:"required,min=3,max=100"`
	Price       float64   `json:"price" yaml:"price" gorm:"not null" validate:"gte=0"`
	Description string    `json:"description" yaml:"description" gorm:"type:text;not null"`
	ImageURL    string    `json:"image_url" yaml:"image_url" gorm:"type:varchar(300);not null"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}
