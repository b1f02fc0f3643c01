package services

import (
	"errors"
	"fmt"
	"time"

	"bikeshop/internal/models"
	"bikeshop/internal/repositories"

	"github.com/sirupsen/logrus"
)

// ProductService handles business logic related to the catalog.
type ProductService struct {
	repo repositories.ProductRepository
	log  logrus.FieldLogger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, log logrus.FieldLogger) *ProductService {
	return &ProductService{
		repo: repo,
		log:  log,
	}
}

// GetAllProducts retrieves the catalog in stable order.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// SeedCatalog inserts products only when the catalog is empty and returns how many were inserted.
func (s *ProductService) SeedCatalog(products []models.Product) (int, error) {
	n, err := s.repo.Count()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("products", n).Debug("Catalog already populated, skipping seed")
		return 0, nil
	}

	now := time.Now()
	for i := range products {
		// Keep the seed order as the catalog order.
		if products[i].CreatedAt.IsZero() {
			products[i].CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		}
		if err := s.repo.Create(&products[i]); err != nil {
			return i, fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
		s.log.WithFields(logrus.Fields{"id": products[i].ID, "name": products[i].Name}).Info("Seeded product")
	}
	return len(products), nil
}
