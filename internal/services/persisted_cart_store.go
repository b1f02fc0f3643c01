package services

import (
	"context"
	"errors"
	"fmt"

	"bikeshop/internal/models"
	"bikeshop/internal/repositories"
)

// PersistedCartStore keeps one database row per (user, product).
type PersistedCartStore struct {
	repo repositories.CartRepository
}

// NewPersistedCartStore creates a cart store backed by repo.
func NewPersistedCartStore(repo repositories.CartRepository) *PersistedCartStore {
	return &PersistedCartStore{repo: repo}
}

// Lines returns the user's cart lines.
func (s *PersistedCartStore) Lines(_ context.Context, owner CartOwner) ([]CartLine, error) {
	items, err := s.repo.GetByUser(owner.UserID)
	if err != nil {
		return nil, err
	}
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, CartLine{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}

// Add increments the (user, product) line.
func (s *PersistedCartStore) Add(_ context.Context, owner CartOwner, productID string) error {
	return s.repo.AddOne(owner.UserID, productID)
}

// SetQuantity sets or deletes a line owned by the user.
func (s *PersistedCartStore) SetQuantity(_ context.Context, owner CartOwner, lineID string, quantity int) error {
	return lineErr(s.repo.SetQuantity(owner.UserID, lineID, quantity))
}

// Remove deletes a line owned by the user.
func (s *PersistedCartStore) Remove(_ context.Context, owner CartOwner, lineID string) error {
	return lineErr(s.repo.Delete(owner.UserID, lineID))
}

// Clear deletes all of the user's lines.
func (s *PersistedCartStore) Clear(_ context.Context, owner CartOwner) error {
	return s.repo.ClearByUser(owner.UserID)
}

// CommitOrder stores the order and clears the cart in one transaction.
func (s *PersistedCartStore) CommitOrder(_ context.Context, owner CartOwner, order *models.Order) error {
	order.UserID = owner.UserID
	return s.repo.CommitOrder(order)
}

func lineErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrCartLineNotFound, err)
	}
	return err
}
