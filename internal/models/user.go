package models

import "time"

// User represents a customer or an administrator of the shop.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username  string    `json:"username" form:"username" gorm:"uniqueIndex;type:varchar(100);not null" validate:"required,min=3,max=100,excludes=@"`
	Email     string    `json:"email" form:"email" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required,email"`
	Password  string    `json:"-" form:"password" gorm:"type:varchar(255);not null" validate:"required,min=6"`
	IsAdmin   bool      `json:"is_admin" form:"-" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}
