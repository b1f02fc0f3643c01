package services

import (
	"context"
	"errors"
	"fmt"

	"bikeshop/internal/models"
	"bikeshop/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CartLineView is a cart line joined with the current catalog entry.
type CartLineView struct {
	LineID    string  `json:"line_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"image_url"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// CartView is the priced content of a cart.
type CartView struct {
	Lines     []CartLineView `json:"lines"`
	Total     float64        `json:"total"`
	ItemCount int            `json:"item_count"`

	total decimal.Decimal
}

// IsEmpty reports whether the cart has no lines.
func (v *CartView) IsEmpty() bool {
	return len(v.Lines) == 0
}

// CartService handles business logic for shopping carts.
type CartService struct {
	store    CartStore
	products repositories.ProductRepository
	log      logrus.FieldLogger
}

// NewCartService creates a new CartService on top of a storage strategy.
func NewCartService(store CartStore, products repositories.ProductRepository, log logrus.FieldLogger) *CartService {
	return &CartService{
		store:    store,
		products: products,
		log:      log,
	}
}

// AddItem adds one unit of a catalog product. Unknown products leave the cart unchanged.
func (s *CartService) AddItem(ctx context.Context, owner CartOwner, productID string) error {
	if _, err := s.products.GetByID(productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return err
	}
	if err := s.store.Add(ctx, owner, productID); err != nil {
		return fmt.Errorf("failed to add product %s to cart: %w", productID, err)
	}
	return nil
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, owner CartOwner, lineID string, quantity int) error {
	return s.store.SetQuantity(ctx, owner, lineID, quantity)
}

// RemoveLine takes a line out of the cart.
func (s *CartService) RemoveLine(ctx context.Context, owner CartOwner, lineID string) error {
	return s.store.Remove(ctx, owner, lineID)
}

// ViewCart prices the cart with current catalog prices in a single catalog query.
func (s *CartService) ViewCart(ctx context.Context, owner CartOwner) (*CartView, error) {
	lines, err := s.store.Lines(ctx, owner)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	view := &CartView{Lines: make([]CartLineView, 0, len(lines)), total: decimal.Zero}
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			s.log.WithFields(logrus.Fields{"product_id": l.ProductID, "line_id": l.ID}).Warn("Cart line refers to a product that is no longer in the catalog")
			continue
		}
		subtotal := lineSubtotal(p.Price, l.Quantity)
		view.total = view.total.Add(subtotal)
		view.ItemCount += l.Quantity
		view.Lines = append(view.Lines, CartLineView{
			LineID:    l.ID,
			ProductID: p.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
			Subtotal:  subtotal.InexactFloat64(),
		})
	}
	view.Total = view.total.InexactFloat64()
	return view, nil
}

// Size returns the number of units in the cart.
func (s *CartService) Size(ctx context.Context, owner CartOwner) (int, error) {
	lines, err := s.store.Lines(ctx, owner)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n, nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, owner CartOwner) error {
	return s.store.Clear(ctx, owner)
}

// EndSession drops carts that belong to the session rather than the account.
func (s *CartService) EndSession(ctx context.Context, owner CartOwner) error {
	if _, ok := s.store.(*SessionCartStore); !ok {
		return nil
	}
	return s.store.Clear(ctx, owner)
}

// commitOrder persists the order and empties the cart. Stores that support it
// do both in one transaction; otherwise the order is written first so a
// failure can only leave a stale cart behind, never a lost order.
func (s *CartService) commitOrder(ctx context.Context, owner CartOwner, order *models.Order, orders repositories.OrderRepository) error {
	if c, ok := s.store.(orderCommitter); ok {
		return c.CommitOrder(ctx, owner, order)
	}
	if err := orders.Create(order); err != nil {
		return err
	}
	if err := s.store.Clear(ctx, owner); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Error("Order stored but cart could not be cleared")
	}
	return nil
}
