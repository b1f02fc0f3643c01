package handlers

import (
	"fmt"

	"bikeshop/internal/middleware"
	"bikeshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// page builds the common view model: the pending notice, and for signed-in
// callers their username and cart size.
func page(c *fiber.Ctx, carts *services.CartService, name string, data fiber.Map) (fiber.Map, error) {
	view := fiber.Map{"page": name, "notice": middleware.PopFlash(c)}
	if session := middleware.CurrentSession(c); session != nil {
		view["username"] = session.Username
		if carts != nil {
			size, err := carts.Size(c.UserContext(), session.CartOwner())
			if err != nil {
				return nil, err
			}
			view["cart_size"] = size
		}
	}
	for k, v := range data {
		view[k] = v
	}
	return view, nil
}

func render(c *fiber.Ctx, status int, carts *services.CartService, name string, data fiber.Map) error {
	view, err := page(c, carts, name, data)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(view)
}

func validationMessages(err error) map[string]string {
	errorMessages := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errorMessages["form"] = err.Error()
		return errorMessages
	}
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return errorMessages
}

func badForm(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid form submission",
		"errors":  validationMessages(err),
	})
}

func gated(gate []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(gate)+1)
	out = append(out, gate...)
	return append(out, h)
}
