package repositories

import "bikeshop/internal/models"

// UserRepository defines the interface for account data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	GetAll() ([]models.User, error)
	Count() (int64, error)
}
