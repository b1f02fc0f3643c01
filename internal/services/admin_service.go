package services

import (
	"bikeshop/internal/models"
	"bikeshop/internal/repositories"
)

// DashboardSummary holds the counts shown on the admin landing page.
type DashboardSummary struct {
	Users    int64 `json:"users"`
	Orders   int64 `json:"orders"`
	Products int64 `json:"products"`
}

// AdminService provides the read-only admin listings.
type AdminService struct {
	userRepo    repositories.UserRepository
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(userRepo repositories.UserRepository, orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository) *AdminService {
	return &AdminService{
		userRepo:    userRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// Summary counts users, orders and products.
func (s *AdminService) Summary() (*DashboardSummary, error) {
	users, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.Count()
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.Count()
	if err != nil {
		return nil, err
	}
	return &DashboardSummary{Users: users, Orders: orders, Products: products}, nil
}

// ListUsers returns all accounts ordered by username.
func (s *AdminService) ListUsers() ([]models.User, error) {
	return s.userRepo.GetAll()
}

// ListOrders returns all orders newest first with owner and items loaded.
func (s *AdminService) ListOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}
