package handlers

import (
	"bytes"
	"fmt"
	"time"

	"bikeshop/internal/reports"
	"bikeshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AdminHandler serves the read-only admin pages.
type AdminHandler struct {
	service *services.AdminService
	carts   *services.CartService
	log     logrus.FieldLogger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *services.AdminService, carts *services.CartService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		service: service,
		carts:   carts,
		log:     log,
	}
}

// RegisterRoutes registers the admin routes; gate must include the admin check.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, gate ...fiber.Handler) {
	router.Get("/admin", gated(gate, h.HandleDashboard)...)
	router.Get("/admin/users", gated(gate, h.HandleUsers)...)
	router.Get("/admin/sales", gated(gate, h.HandleSales)...)
	router.Get("/admin/sales/export", gated(gate, h.HandleSalesExport)...)
}

// HandleDashboard renders user and order counts.
func (h *AdminHandler) HandleDashboard(c *fiber.Ctx) error {
	summary, err := h.service.Summary()
	if err != nil {
		return err
	}
	return render(c, fiber.StatusOK, h.carts, "admin_dashboard", fiber.Map{"summary": summary})
}

// HandleUsers lists every account.
func (h *AdminHandler) HandleUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers()
	if err != nil {
		return err
	}
	return render(c, fiber.StatusOK, h.carts, "admin_users", fiber.Map{"users": users})
}

// HandleSales lists every order with its owner and items.
func (h *AdminHandler) HandleSales(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders()
	if err != nil {
		return err
	}
	return render(c, fiber.StatusOK, h.carts, "admin_sales", fiber.Map{"orders": orders})
}

// HandleSalesExport downloads the order listing as an xlsx workbook.
func (h *AdminHandler) HandleSalesExport(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := reports.WriteSales(&buf, orders); err != nil {
		return err
	}

	filename := fmt.Sprintf("sales-%s.xlsx", time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, reports.XLSXContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	h.log.WithField("orders", len(orders)).Info("Sales export generated")
	return c.Send(buf.Bytes())
}
