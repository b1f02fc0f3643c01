package middleware

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashCookie carries a one-shot notice to the next page view.
const FlashCookie = "flash"

// Notice categories.
const (
	CategorySuccess = "success"
	CategoryInfo    = "info"
	CategoryWarning = "warning"
	CategoryDanger  = "danger"
)

// Notice is a user-facing message shown once.
type Notice struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SetFlash stores a notice for the next request.
func SetFlash(c *fiber.Ctx, category, message string) {
	raw, err := json.Marshal(Notice{Category: category, Message: message})
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// PopFlash returns the pending notice, if any, and clears it.
func PopFlash(c *fiber.Ctx) *Notice {
	value := c.Cookies(FlashCookie)
	if value == "" {
		return nil
	}
	c.ClearCookie(FlashCookie)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var n Notice
	if err := json.Unmarshal(raw, &n); err != nil || n.Message == "" {
		return nil
	}
	return &n
}

// RedirectWithFlash sets a notice and redirects with 303 See Other.
func RedirectWithFlash(c *fiber.Ctx, location, category, message string) error {
	SetFlash(c, category, message)
	return c.Redirect(location, fiber.StatusSeeOther)
}
