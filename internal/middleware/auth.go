package middleware

import (
	"errors"
	"strings"
	"time"

	"bikeshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// SessionCookie holds the signed session token.
const SessionCookie = "session"

const sessionLocal = "session"

// Gate messages.
const (
	LoginRequiredMessage = "Please log in to access this page."
	AdminRequiredMessage = "You do not have permission to access this page."
)

const (
	loginPath    = "/login"
	productsPath = "/products"
)

// SetSessionCookie stores token as the caller's session.
func SetSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie ends the caller's session on the client.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// CurrentSession returns the session stored by LoadSession or RequireAuthenticated.
func CurrentSession(c *fiber.Ctx) *services.Session {
	s, _ := c.Locals(sessionLocal).(*services.Session)
	return s
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// LoadSession attaches the session if the request carries a valid one and
// never blocks the request.
func LoadSession(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := sessionToken(c); token != "" {
			if session, err := authService.ValidateToken(token); err == nil {
				c.Locals(sessionLocal, session)
			}
		}
		return c.Next()
	}
}

// RequireAuthenticated redirects to the login page unless the request carries a valid session.
func RequireAuthenticated(authService *services.AuthService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentSession(c) != nil {
			return c.Next()
		}

		token := sessionToken(c)
		if token == "" {
			return RedirectWithFlash(c, loginPath, CategoryInfo, LoginRequiredMessage)
		}

		session, err := authService.ValidateToken(token)
		if err != nil {
			log.WithError(err).WithField("path", c.Path()).Debug("Session validation failed")
			ClearSessionCookie(c)
			return RedirectWithFlash(c, loginPath, CategoryInfo, LoginRequiredMessage)
		}

		c.Locals(sessionLocal, session)
		return c.Next()
	}
}

// RequireAdmin must run after RequireAuthenticated. Non-admins are sent to
// the catalog and the wrapped handler never runs.
func RequireAdmin(authService *services.AuthService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := CurrentSession(c)
		if session == nil {
			return RedirectWithFlash(c, loginPath, CategoryInfo, LoginRequiredMessage)
		}

		if _, err := authService.RequireAdmin(session.UserID); err != nil {
			switch {
			case errors.Is(err, services.ErrNotAuthorized):
				log.WithFields(logrus.Fields{"user_id": session.UserID, "path": c.Path()}).Warn("Non-admin tried to open an admin page")
				return RedirectWithFlash(c, productsPath, CategoryWarning, AdminRequiredMessage)
			case errors.Is(err, services.ErrNotAuthenticated):
				ClearSessionCookie(c)
				return RedirectWithFlash(c, loginPath, CategoryInfo, LoginRequiredMessage)
			default:
				return err
			}
		}
		return c.Next()
	}
}
