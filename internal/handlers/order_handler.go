package handlers

import (
	"errors"

	"bikeshop/internal/metrics"
	"bikeshop/internal/middleware"
	"bikeshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// OrderHandler handles the checkout pages.
type OrderHandler struct {
	service *services.OrderService
	carts   *services.CartService
	log     logrus.FieldLogger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, carts *services.CartService, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{
		service: service,
		carts:   carts,
		log:     log,
	}
}

// RegisterRoutes registers the checkout routes behind gate.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, gate ...fiber.Handler) {
	router.Get("/checkout", gated(gate, h.HandleCheckoutPage)...)
	router.Post("/checkout", gated(gate, h.HandleCheckout)...)
	router.Get("/orders", gated(gate, h.HandleOrderHistory)...)
}

const emptyCartMessage = "Your cart is empty."

func checkoutView(quote *services.Quote) fiber.Map {
	return fiber.Map{
		"items":       quote.Cart.Lines,
		"subtotal":    quote.Subtotal,
		"tax":         quote.Tax,
		"tax_rate":    quote.TaxRate,
		"grand_total": quote.GrandTotal,
	}
}

// HandleCheckoutPage shows the totals and the payment form.
func (h *OrderHandler) HandleCheckoutPage(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	quote, err := h.service.Quote(c.UserContext(), session.CartOwner())
	if err != nil {
		if errors.Is(err, services.ErrEmptyCart) {
			return middleware.RedirectWithFlash(c, "/cart", middleware.CategoryInfo, emptyCartMessage)
		}
		return err
	}
	return render(c, fiber.StatusOK, h.carts, "checkout", checkoutView(quote))
}

// HandleCheckout turns the cart into an order.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	// An empty body is an empty payment form.
	var payment services.PaymentDetails
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payment); err != nil {
			return badForm(c, err)
		}
	}

	order, quote, err := h.service.Checkout(c.UserContext(), session.CartOwner(), payment)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrEmptyCart):
		metrics.ObserveCheckout(metrics.CheckoutEmptyCart)
		return middleware.RedirectWithFlash(c, "/cart", middleware.CategoryInfo, emptyCartMessage)
	case errors.Is(err, services.ErrIncompletePaymentInfo):
		metrics.ObserveCheckout(metrics.CheckoutIncompletePayment)
		view := checkoutView(quote)
		view["notice"] = &middleware.Notice{Category: middleware.CategoryDanger, Message: "Please fill in all payment details."}
		return render(c, fiber.StatusUnprocessableEntity, h.carts, "checkout", view)
	default:
		metrics.ObserveCheckout(metrics.CheckoutError)
		return err
	}

	metrics.ObserveCheckout(metrics.CheckoutSuccess)
	h.log.WithFields(logrus.Fields{"order_id": order.ID, "user_id": session.UserID}).Info("Checkout completed")
	return middleware.RedirectWithFlash(c, "/products", middleware.CategorySuccess, "Payment successful! Thank you for your order.")
}

// HandleOrderHistory lists the caller's orders.
func (h *OrderHandler) HandleOrderHistory(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	orders, err := h.service.GetOrdersForUser(session.UserID)
	if err != nil {
		return err
	}
	return render(c, fiber.StatusOK, h.carts, "orders", fiber.Map{"orders": orders})
}
