package services

import (
	"context"

	"bikeshop/internal/models"
)

// CartOwner identifies whose cart a request operates on. Persisted carts are
// keyed by UserID, session carts by SessionID.
type CartOwner struct {
	UserID    string
	SessionID string
}

// CartLine is one stored (product, quantity) pair. For session carts the
// line ID is the product ID.
type CartLine struct {
	ID        string
	ProductID string
	Quantity  int
}

// CartStore is a cart storage strategy. Implementations never keep a line
// with a quantity below one.
type CartStore interface {
	Lines(ctx context.Context, owner CartOwner) ([]CartLine, error)
	// Add increments the product's line by one, creating it if needed.
	Add(ctx context.Context, owner CartOwner, productID string) error
	// SetQuantity sets a line's quantity; quantity <= 0 deletes the line.
	SetQuantity(ctx context.Context, owner CartOwner, lineID string, quantity int) error
	// Remove takes a line out of the cart. Persisted carts delete the line,
	// session carts decrement it by one.
	Remove(ctx context.Context, owner CartOwner, lineID string) error
	Clear(ctx context.Context, owner CartOwner) error
}

// orderCommitter is implemented by stores that can persist an order and
// empty the cart in a single transaction.
type orderCommitter interface {
	CommitOrder(ctx context.Context, owner CartOwner, order *models.Order) error
}
