// Package app assembles the shop's repositories, services and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikeshop/internal/cache"
	"bikeshop/internal/catalog"
	"bikeshop/internal/config"
	"bikeshop/internal/database"
	"bikeshop/internal/handlers"
	"bikeshop/internal/metrics"
	"bikeshop/internal/middleware"
	"bikeshop/internal/repositories"
	"bikeshop/internal/services"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dependencies are the external resources the app runs on.
type Dependencies struct {
	DB        *gorm.DB
	Redis     *cache.RedisClient           // nil without Redis
	Publisher services.OrderEventPublisher // nil disables order events
	Log       *logrus.Logger
}

// App is the assembled shop.
type App struct {
	Fiber    *fiber.App
	Products *services.ProductService
	Auth     *services.AuthService
	Carts    *services.CartService
	Orders   *services.OrderService
	Admin    *services.AdminService

	cfg  *config.Config
	deps Dependencies
}

// NewApp wires repositories, services and routes for cfg.
func NewApp(cfg *config.Config, deps Dependencies) (*App, error) {
	if deps.DB == nil {
		return nil, errors.New("app requires a database")
	}
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	log := deps.Log

	// --- Repositories ---
	var productRepo repositories.ProductRepository = repositories.NewGORMProductRepository(deps.DB)
	if deps.Redis != nil {
		productRepo = repositories.NewCachedProductRepository(productRepo, deps.Redis.GetClient(), cfg.CatalogCacheTTL, log)
	}
	userRepo := repositories.NewGORMUserRepository(deps.DB)
	orderRepo := repositories.NewGORMOrderRepository(deps.DB)

	var store services.CartStore
	switch cfg.CartStrategy {
	case config.CartSession:
		if deps.Redis == nil {
			return nil, fmt.Errorf("cart strategy %q requires Redis", cfg.CartStrategy)
		}
		store = services.NewSessionCartStore(deps.Redis.GetClient(), cfg.SessionTTL, log)
	default:
		store = services.NewPersistedCartStore(repositories.NewGORMCartRepository(deps.DB))
	}

	// --- Services ---
	a := &App{cfg: cfg, deps: deps}
	a.Products = services.NewProductService(productRepo, log)
	a.Auth = services.NewAuthService(userRepo, cfg.JWTSecret, cfg.SessionTTL, log)
	a.Carts = services.NewCartService(store, productRepo, log)
	a.Orders = services.NewOrderService(orderRepo, a.Carts, cfg.TaxRate, deps.Publisher, log)
	a.Admin = services.NewAdminService(userRepo, orderRepo, productRepo)

	a.Fiber = fiber.New(fiber.Config{
		AppName:      "bikeshop",
		ErrorHandler: errorHandler(log),
	})
	a.routes()

	log.WithFields(logrus.Fields{
		"cart_strategy": cfg.CartStrategy,
		"catalog_cache": deps.Redis != nil,
		"order_events":  deps.Publisher != nil,
	}).Info("Application assembled")
	return a, nil
}

func (a *App) routes() {
	log := a.deps.Log
	app := a.Fiber

	// --- Middleware ---
	app.Use(recover.New())
	if a.cfg.AppEnv != "test" {
		app.Use(fiberlogger.New())
	}
	app.Use(metrics.Middleware())
	app.Use(middleware.LoadSession(a.Auth))

	requireAuth := middleware.RequireAuthenticated(a.Auth, log)
	requireAdmin := middleware.RequireAdmin(a.Auth, log)
	limiter := middleware.NewRateLimiter(a.cfg.LoginRatePerSecond, a.cfg.LoginBurst, log).Handler(fiber.MethodPost)

	// --- Routes ---
	app.Get("/health", a.handleHealth)
	app.Get("/metrics", metrics.Handler())

	handlers.NewProductHandler(a.Products, a.Carts).RegisterRoutes(app, requireAuth)
	handlers.NewAuthHandler(a.Auth, a.Carts, log).RegisterRoutes(app, limiter, requireAuth)
	handlers.NewCartHandler(a.Carts, log).RegisterRoutes(app, requireAuth)
	handlers.NewOrderHandler(a.Orders, a.Carts, log).RegisterRoutes(app, requireAuth)
	handlers.NewAdminHandler(a.Admin, a.Carts, log).RegisterRoutes(app, requireAuth, requireAdmin)
}

// Bootstrap seeds an empty catalog and creates the configured admin account.
func (a *App) Bootstrap() error {
	products, err := catalog.SeedProducts()
	if err != nil {
		return fmt.Errorf("failed to load catalog seed: %w", err)
	}
	n, err := a.Products.SeedCatalog(products)
	if err != nil {
		return err
	}
	if n > 0 {
		a.deps.Log.WithField("products", n).Info("Catalog seeded")
	}
	return a.Auth.EnsureAdmin(a.cfg.AdminUsername, a.cfg.AdminEmail, a.cfg.AdminPassword)
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	body := fiber.Map{
		"status":   "healthy",
		"database": "up",
		"redis":    "disabled",
		"time":     time.Now().Format(time.RFC3339),
	}

	sqlDB, err := a.deps.DB.DB()
	if err == nil {
		err = database.Ping(ctx, sqlDB)
	}
	if err != nil {
		a.deps.Log.WithError(err).Error("Database health check failed")
		body["database"] = "down"
		body["status"] = "degraded"
		status = fiber.StatusServiceUnavailable
	}

	if a.deps.Redis != nil {
		body["redis"] = "up"
		if err := a.deps.Redis.Ping(ctx); err != nil {
			a.deps.Log.WithError(err).Warn("Redis health check failed")
			body["redis"] = "down"
			body["status"] = "degraded"
		}
	}
	return c.Status(status).JSON(body)
}

func errorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		entry := log.WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
			"status": code,
		})
		if code >= fiber.StatusInternalServerError {
			entry.WithError(err).Error("Request failed")
		} else {
			entry.WithError(err).Debug("Request rejected")
		}

		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}
