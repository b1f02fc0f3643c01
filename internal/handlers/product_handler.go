package handlers

import (
	"bikeshop/internal/middleware"
	"bikeshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler serves the catalog and the public pages.
type ProductHandler struct {
	service *services.ProductService
	carts   *services.CartService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, carts *services.CartService) *ProductHandler {
	return &ProductHandler{
		service: service,
		carts:   carts,
	}
}

// RegisterRoutes registers the catalog routes; gate guards /products.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, gate ...fiber.Handler) {
	router.Get("/", h.HandleIndex)
	router.Get("/about", h.HandleAbout)
	router.Get("/products", gated(gate, h.HandleGetProducts)...)
}

// HandleIndex sends visitors to the login page.
func (h *ProductHandler) HandleIndex(c *fiber.Ctx) error {
	if middleware.CurrentSession(c) != nil {
		return c.Redirect("/products", fiber.StatusSeeOther)
	}
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// HandleAbout renders the static about page.
func (h *ProductHandler) HandleAbout(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, h.carts, "about", fiber.Map{
		"title": "About Bike Shop",
		"body":  "Road, gravel, mountain and electric bikes, picked by riders for riders.",
	})
}

// HandleGetProducts renders the catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		return err
	}
	return render(c, fiber.StatusOK, h.carts, "products", fiber.Map{"products": products})
}
