package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bikeshop/internal/models"
	"bikeshop/internal/repositories"
	"bikeshop/pkg/rabbitmq"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OrderEventPublisher announces completed orders to other systems.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event rabbitmq.OrderCreatedEvent) error
}

// PaymentDetails is the simulated payment form submitted at checkout.
type PaymentDetails struct {
	CardName string `form:"card_name"`
}

// Quote is the priced cart shown on the checkout page.
type Quote struct {
	Cart       *CartView `json:"cart"`
	Subtotal   float64   `json:"subtotal"`
	Tax        float64   `json:"tax"`
	GrandTotal float64   `json:"grand_total"`
	TaxRate    float64   `json:"tax_rate"`
}

// OrderService handles business logic related to checkout and orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	carts     *CartService
	taxRate   float64
	publisher OrderEventPublisher // nil disables events
	log       logrus.FieldLogger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, carts *CartService, taxRate float64, publisher OrderEventPublisher, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		carts:     carts,
		taxRate:   taxRate,
		publisher: publisher,
		log:       log,
	}
}

// Quote prices the current cart contents including tax.
func (s *OrderService) Quote(ctx context.Context, owner CartOwner) (*Quote, error) {
	cart, err := s.carts.ViewCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	subtotal := cart.total.Round(2)
	tax := taxOn(subtotal, s.taxRate)
	return &Quote{
		Cart:       cart,
		Subtotal:   subtotal.InexactFloat64(),
		Tax:        tax.InexactFloat64(),
		GrandTotal: subtotal.Add(tax).InexactFloat64(),
		TaxRate:    s.taxRate,
	}, nil
}

// Checkout turns the cart into an order. The returned quote is set whenever
// the cart was priced, so a failed payment form can be shown again with its totals.
func (s *OrderService) Checkout(ctx context.Context, owner CartOwner, payment PaymentDetails) (*models.Order, *Quote, error) {
	quote, err := s.Quote(ctx, owner)
	if err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(payment.CardName) == "" {
		return nil, quote, ErrIncompletePaymentInfo
	}

	orderID := uuid.New().String()
	items := make([]models.OrderItem, 0, len(quote.Cart.Lines))
	for _, line := range quote.Cart.Lines {
		items = append(items, models.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			ProductName: line.Name,
			Price:       line.UnitPrice,
			Quantity:    line.Quantity,
		})
	}

	order := &models.Order{
		ID:         orderID,
		UserID:     owner.UserID,
		Items:      items,
		Subtotal:   quote.Subtotal,
		Tax:        quote.Tax,
		TotalPrice: quote.GrandTotal,
		CreatedAt:  time.Now(),
	}

	if err := s.carts.commitOrder(ctx, owner, order, s.orderRepo); err != nil {
		return nil, quote, fmt.Errorf("failed to create order: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.TotalPrice,
		"items":    len(order.Items),
	}).Info("Order created")

	s.publishCreated(ctx, order)
	return order, quote, nil
}

func (s *OrderService) publishCreated(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	units := 0
	for _, it := range order.Items {
		units += it.Quantity
	}
	event := rabbitmq.OrderCreatedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.TotalPrice,
		Items:     units,
		CreatedAt: order.CreatedAt,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish order created event")
	}
}

// GetOrdersForUser returns a user's order history, newest first.
func (s *OrderService) GetOrdersForUser(userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUserID(userID)
}
