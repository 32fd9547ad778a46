package product

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pawmart/pet-market-backend/internal/auth"
	"github.com/pawmart/pet-market-backend/internal/store"
)

type Handler struct {
	service      ServiceInterface
	storeService store.ServiceInterface
}

func NewHandler(service ServiceInterface, storeService store.ServiceInterface) *Handler {
	return &Handler{service: service, storeService: storeService}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/products", h.getProducts)
	app.Get("/api/v1/product/:id<int>", h.getProduct)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/store/products", h.getStoreProducts)
	app.Post("/api/v1/products", h.createProduct)
	app.Put("/api/v1/product/:id<int>", h.updateProduct)
	app.Delete("/api/v1/product/:id<int>", h.deleteProduct)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	return c.JSON(h.service.List())
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	p, err := h.service.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	}
	return c.JSON(p)
}

func (h *Handler) getStoreProducts(c *fiber.Ctx) error {
	st, ok := h.requireStore(c)
	if !ok {
		return nil
	}

	products, err := h.service.ListByStore(st.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not list products"})
	}
	return c.JSON(products)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	st, ok := h.requireStore(c)
	if !ok {
		return nil
	}

	payload := new(Product)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	now := time.Now().UTC().Format(time.RFC3339)
	payload.ID = 0
	payload.StoreID = st.ID
	payload.CreatedAt = now
	payload.UpdatedAt = now

	created, err := h.service.Create(*payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	st, ok := h.requireStore(c)
	if !ok {
		return nil
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	payload := new(Product)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	updated, err := h.service.Update(id, st.ID, *payload)
	switch err {
	case nil:
		return c.JSON(updated)
	case ErrNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	case ErrNotOwner:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "product belongs to a different store"})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	st, ok := h.requireStore(c)
	if !ok {
		return nil
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	switch err := h.service.Delete(id, st.ID); err {
	case nil:
		return c.JSON(fiber.Map{"message": "product deleted"})
	case ErrNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	case ErrNotOwner:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "product belongs to a different store"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not delete product"})
	}
}

// requireStore resolves the caller's store; catalog writes are admin-only
// and always scoped to the admin's own store. When it returns ok=false the
// response has already been written.
func (h *Handler) requireStore(c *fiber.Ctx) (store.Store, bool) {
	ident, err := auth.FromCtx(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		return store.Store{}, false
	}
	if !ident.IsAdmin() {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "admin only"})
		return store.Store{}, false
	}

	st, err := h.storeService.GetByOwner(ident.UserID)
	if err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "store not found"})
		return store.Store{}, false
	}
	return st, true
}
