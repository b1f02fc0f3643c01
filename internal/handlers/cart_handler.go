package handlers

import (
	"errors"

	"bikeshop/internal/middleware"
	"bikeshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CartHandler handles HTTP requests for the shopping cart.
type CartHandler struct {
	carts *services.CartService
	log   logrus.FieldLogger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *services.CartService, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

// RegisterRoutes registers the cart routes behind gate.
func (h *CartHandler) RegisterRoutes(router fiber.Router, gate ...fiber.Handler) {
	router.Get("/cart", gated(gate, h.HandleViewCart)...)
	router.Post("/add_to_cart/:productId", gated(gate, h.HandleAddToCart)...)
	router.Post("/remove_from_cart/:lineId", gated(gate, h.HandleRemoveFromCart)...)
	router.Post("/update_cart/:lineId", gated(gate, h.HandleUpdateCart)...)
}

// UpdateCartForm carries the new quantity of a cart line.
type UpdateCartForm struct {
	Quantity *int `form:"quantity"`
}

// HandleViewCart renders the cart with line subtotals and the total.
func (h *CartHandler) HandleViewCart(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	cart, err := h.carts.ViewCart(c.UserContext(), session.CartOwner())
	if err != nil {
		return err
	}
	return render(c, fiber.StatusOK, h.carts, "cart", fiber.Map{
		"items": cart.Lines,
		"total": cart.Total,
	})
}

// HandleAddToCart adds one unit of a product.
func (h *CartHandler) HandleAddToCart(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	productID := c.Params("productId")

	if err := h.carts.AddItem(c.UserContext(), session.CartOwner(), productID); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return middleware.RedirectWithFlash(c, "/products", middleware.CategoryDanger, "Product not found.")
		}
		return err
	}
	return middleware.RedirectWithFlash(c, "/products", middleware.CategorySuccess, "Item added to cart!")
}

// HandleRemoveFromCart removes a line (persisted carts) or one unit (session carts).
func (h *CartHandler) HandleRemoveFromCart(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	if err := h.carts.RemoveLine(c.UserContext(), session.CartOwner(), c.Params("lineId")); err != nil {
		if errors.Is(err, services.ErrCartLineNotFound) {
			return middleware.RedirectWithFlash(c, "/cart", middleware.CategoryDanger, "Item not found in your cart.")
		}
		return err
	}
	return middleware.RedirectWithFlash(c, "/cart", middleware.CategorySuccess, "Item removed from cart.")
}

// HandleUpdateCart sets a line's quantity; zero or less removes the line.
func (h *CartHandler) HandleUpdateCart(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	var form UpdateCartForm
	if err := c.BodyParser(&form); err != nil {
		return badForm(c, err)
	}
	if form.Quantity == nil {
		return badForm(c, errors.New("quantity is required"))
	}

	err := h.carts.UpdateQuantity(c.UserContext(), session.CartOwner(), c.Params("lineId"), *form.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrCartLineNotFound) {
			return middleware.RedirectWithFlash(c, "/cart", middleware.CategoryDanger, "Item not found in your cart.")
		}
		return err
	}
	if *form.Quantity <= 0 {
		return middleware.RedirectWithFlash(c, "/cart", middleware.CategorySuccess, "Item removed from cart.")
	}
	return middleware.RedirectWithFlash(c, "/cart", middleware.CategorySuccess, "Cart updated.")
}
