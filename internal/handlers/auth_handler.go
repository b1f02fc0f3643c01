package handlers

import (
	"errors"
	"strings"

	"bikeshop/internal/middleware"
	"bikeshop/internal/models"
	"bikeshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for registration, login and logout.
type AuthHandler struct {
	authService *services.AuthService
	carts       *services.CartService
	validate    *validator.Validate
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, carts *services.CartService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		carts:       carts,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes. limiter throttles the
// form posts and requireAuth guards logout.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, limiter, requireAuth fiber.Handler) {
	router.Get("/login", h.HandleLoginPage)
	router.Post("/login", limiter, h.HandleLogin)
	router.Get("/register", h.HandleRegisterPage)
	router.Post("/register", limiter, h.HandleRegister)
	router.Get("/logout", requireAuth, h.HandleLogout)
}

// LoginForm is the login form. Login accepts a username or an email.
type LoginForm struct {
	Login    string `form:"login" validate:"required"`
	Username string `form:"username"`
	Password string `form:"password" validate:"required"`
}

// HandleLoginPage shows the login form.
func (h *AuthHandler) HandleLoginPage(c *fiber.Ctx) error {
	if middleware.CurrentSession(c) != nil {
		return c.Redirect("/products", fiber.StatusSeeOther)
	}
	return render(c, fiber.StatusOK, nil, "login", nil)
}

// HandleLogin checks credentials and starts a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	if middleware.CurrentSession(c) != nil {
		return c.Redirect("/products", fiber.StatusSeeOther)
	}

	var form LoginForm
	if err := c.BodyParser(&form); err != nil {
		return badForm(c, err)
	}
	if form.Login == "" {
		form.Login = form.Username
	}
	if err := h.validate.Struct(form); err != nil {
		return badForm(c, err)
	}

	token, session, err := h.authService.LoginUser(form.Login, form.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.log.WithField("login", form.Login).Info("Failed login attempt")
			return middleware.RedirectWithFlash(c, "/login", middleware.CategoryDanger, "Login unsuccessful. Please check username or email and password.")
		}
		return err
	}

	middleware.SetSessionCookie(c, token, session.ExpiresAt)
	h.log.WithFields(logrus.Fields{"user_id": session.UserID, "username": session.Username}).Info("User logged in")
	return middleware.RedirectWithFlash(c, "/products", middleware.CategorySuccess, "Logged in successfully.")
}

// HandleRegisterPage shows the registration form.
func (h *AuthHandler) HandleRegisterPage(c *fiber.Ctx) error {
	if middleware.CurrentSession(c) != nil {
		return c.Redirect("/products", fiber.StatusSeeOther)
	}
	return render(c, fiber.StatusOK, nil, "register", nil)
}

// HandleRegister creates an account and sends the caller to the login page.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	if middleware.CurrentSession(c) != nil {
		return c.Redirect("/products", fiber.StatusSeeOther)
	}

	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return badForm(c, err)
	}
	user.ID = ""
	user.IsAdmin = false
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if err := h.validate.Struct(user); err != nil {
		return badForm(c, err)
	}

	if err := h.authService.RegisterUser(&user); err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateUsername):
			return middleware.RedirectWithFlash(c, "/register", middleware.CategoryDanger, "Username already exists.")
		case errors.Is(err, services.ErrDuplicateEmail):
			return middleware.RedirectWithFlash(c, "/register", middleware.CategoryDanger, "Email already registered.")
		default:
			return err
		}
	}
	return middleware.RedirectWithFlash(c, "/login", middleware.CategorySuccess, "Your account has been created! You can now log in.")
}

// HandleLogout ends the session and drops its session cart.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if session := middleware.CurrentSession(c); session != nil {
		if err := h.carts.EndSession(c.UserContext(), session.CartOwner()); err != nil {
			h.log.WithError(err).WithField("user_id", session.UserID).Warn("Failed to drop session cart on logout")
		}
	}
	middleware.ClearSessionCookie(c)
	return middleware.RedirectWithFlash(c, "/login", middleware.CategoryInfo, "You have been logged out.")
}
