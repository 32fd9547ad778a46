package order

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/pawmart/pet-market-backend/internal/auth"
	"github.com/pawmart/pet-market-backend/internal/store"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/orders", h.placeOrder)
	app.Get("/api/v1/orders", h.getMyOrders)
	app.Get("/api/v1/order/:id<int>", h.getOrder)

	app.Get("/api/v1/admin/orders", h.getAllOrders)
	app.Get("/api/v1/admin/store-orders", h.getStoreOrders)
	app.Put("/api/v1/admin/order/:id<int>/status", h.updateStatus)
	app.Delete("/api/v1/admin/order/:id<int>", h.deleteOrder)
}

type placeOrderRequest struct {
	Shipping      ShippingInfo  `json:"shippingInfo"`
	Items         []ItemRequest `json:"orderItems"`
	ItemsPrice    *float64      `json:"itemsPrice"`
	ShippingPrice *float64      `json:"shippingPrice"`
	TotalPrice    *float64      `json:"totalPrice"`
}

func (h *Handler) placeOrder(c *fiber.Ctx) error {
	ident, err := auth.FromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(placeOrderRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ItemsPrice == nil || payload.ShippingPrice == nil || payload.TotalPrice == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "itemsPrice, shippingPrice and totalPrice are required"})
	}

	ord, err := h.service.Place(c.Context(), PlacementRequest{
		UserID:        ident.UserID,
		Shipping:      payload.Shipping,
		Items:         payload.Items,
		ItemsPrice:    *payload.ItemsPrice,
		ShippingPrice: *payload.ShippingPrice,
		TotalPrice:    *payload.TotalPrice,
	})
	if err != nil {
		return writeOrderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "order": ord})
}

func (h *Handler) getMyOrders(c *fiber.Ctx) error {
	ident, err := auth.FromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orders, err := h.service.ListMine(c.Context(), ident.UserID)
	if err != nil {
		return writeOrderError(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	ident, err := auth.FromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	ord, err := h.service.Get(c.Context(), ident, id)
	if err != nil {
		return writeOrderError(c, err)
	}
	return c.JSON(ord)
}

func (h *Handler) getAllOrders(c *fiber.Ctx) error {
	if !h.requireAdmin(c) {
		return nil
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	orders, totalCount, totalAmount, err := h.service.ListAll(c.Context(), page, limit)
	if err != nil {
		return writeOrderError(c, err)
	}
	return c.JSON(fiber.Map{
		"orders":      orders,
		"totalCount":  totalCount,
		"totalAmount": totalAmount,
	})
}

func (h *Handler) getStoreOrders(c *fiber.Ctx) error {
	if !h.requireAdmin(c) {
		return nil
	}
	ident, _ := auth.FromCtx(c)

	orders, totalAmount, err := h.service.ListStoreOrders(c.Context(), ident)
	if err != nil {
		if err == store.ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "store not found"})
		}
		return writeOrderError(c, err)
	}
	return c.JSON(fiber.Map{
		"orders":      orders,
		"totalAmount": totalAmount,
	})
}

type updateStatusRequest struct {
	Status Status `json:"orderStatus"`
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	if !h.requireAdmin(c) {
		return nil
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	payload := new(updateStatusRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ord, err := h.service.SetStatus(c.Context(), id, payload.Status)
	if err != nil {
		return writeOrderError(c, err)
	}
	return c.JSON(ord)
}

func (h *Handler) deleteOrder(c *fiber.Ctx) error {
	if !h.requireAdmin(c) {
		return nil
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return writeOrderError(c, err)
	}
	return c.JSON(fiber.Map{"message": "order deleted"})
}

// requireAdmin writes the response itself when the check fails.
func (h *Handler) requireAdmin(c *fiber.Ctx) bool {
	ident, err := auth.FromCtx(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		return false
	}
	if !ident.IsAdmin() {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "admin only"})
		return false
	}
	return true
}

// writeOrderError maps engine errors onto the response. Business-rule
// failures become structured 4xx payloads; anything else is logged in
// full and surfaced as an opaque 500.
func writeOrderError(c *fiber.Ctx, err error) error {
	var validation *ValidationError
	var notFound *ProductNotFoundError
	var noStock *InsufficientStockError
	var illegal *IllegalTransitionError

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": validation.Error()})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": notFound.Error()})
	case errors.As(err, &noStock):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message":     noStock.Error(),
			"productName": noStock.Name,
			"available":   noStock.Available,
		})
	case errors.As(err, &illegal):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": illegal.Error()})
	case errors.Is(err, ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case errors.Is(err, ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "forbidden"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"message": "order placement timed out"})
	default:
		log.WithError(err).Error("order operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
