package order

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmart/pet-market-backend/internal/product"
	"github.com/pawmart/pet-market-backend/internal/store"
)

// fakeAuth mimics the JWT middleware by storing a parsed token in locals.
func fakeAuth(userID int, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": float64(userID),
			"role":    role,
		})
		c.Locals("user", tok)
		return c.Next()
	}
}

func setupApp(userID int, role string) (*fiber.App, *Service) {
	catalog := product.NewInMemoryRepository([]product.Product{
		{ID: 1, StoreID: 1, Name: "Kibble Sack", SalePrice: 30, OriginalPrice: 30, Stock: 5},
	})
	storeService := store.NewService(store.NewInMemoryRepository([]store.Store{
		{ID: 1, OwnerID: 50, Name: "Duck Depot"},
	}))
	svc := NewService(NewInMemoryRepository(catalog), storeService, time.Second)

	app := fiber.New()
	app.Use(fakeAuth(userID, role))
	NewHandler(svc).RegisterProtectedRoutes(app)
	return app, svc
}

func validBody() map[string]any {
	return map[string]any{
		"shippingInfo": map[string]string{
			"address":    "1 Bark Lane",
			"city":       "Dogville",
			"postalCode": "10001",
			"country":    "US",
		},
		"orderItems":    []map[string]int{{"product": 1, "quantity": 2}},
		"itemsPrice":    60.0,
		"shippingPrice": 5.0,
		"totalPrice":    65.0,
	}
}

func TestPlaceOrderEndpoint_Success(t *testing.T) {
	app, _ := setupApp(7, "user")

	b, _ := json.Marshal(validBody())
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/orders", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)

	var payload struct {
		Success bool  `json:"success"`
		Order   Order `json:"order"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	assert.True(t, payload.Success)
	assert.Equal(t, 7, payload.Order.UserID)
	assert.Equal(t, StatusProcessing, payload.Order.Status)
	require.Len(t, payload.Order.Items, 1)
	assert.Equal(t, "Kibble Sack", payload.Order.Items[0].Name)
}

func TestPlaceOrderEndpoint_EmptyCart(t *testing.T) {
	app, _ := setupApp(7, "user")

	body := validBody()
	body["orderItems"] = []map[string]int{}
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/orders", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestPlaceOrderEndpoint_MissingPrices(t *testing.T) {
	app, _ := setupApp(7, "user")

	body := validBody()
	delete(body, "totalPrice")
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/orders", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestPlaceOrderEndpoint_InsufficientStockDetail(t *testing.T) {
	app, _ := setupApp(7, "user")

	body := validBody()
	body["orderItems"] = []map[string]int{{"product": 1, "quantity": 10}}
	body["itemsPrice"] = 300.0
	body["totalPrice"] = 305.0
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/orders", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	var payload struct {
		ProductName string `json:"productName"`
		Available   int    `json:"available"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	assert.Equal(t, "Kibble Sack", payload.ProductName)
	assert.Equal(t, 5, payload.Available)
}

func TestGetOrderEndpoint_ForbiddenForStranger(t *testing.T) {
	app, svc := setupApp(8, "user")

	// order placed by a different user
	ord, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      ShippingInfo{Address: "1 Bark Lane", City: "Dogville", PostalCode: "10001", Country: "US"},
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    30,
		ShippingPrice: 0,
		TotalPrice:    30,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/order/1", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	_ = ord
}

func TestAdminEndpoints_RejectNonAdmin(t *testing.T) {
	app, _ := setupApp(7, "user")

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/admin/orders", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
}

func TestUpdateStatusEndpoint_IllegalTransition(t *testing.T) {
	app, svc := setupApp(50, "admin")

	ord, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      ShippingInfo{Address: "1 Bark Lane", City: "Dogville", PostalCode: "10001", Country: "US"},
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    30,
		ShippingPrice: 0,
		TotalPrice:    30,
	})
	require.NoError(t, err)

	b, _ := json.Marshal(map[string]string{"orderStatus": "Delivered"})
	req := httptest.NewRequest(fiber.MethodPut, "/api/v1/admin/order/1/status", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, res.StatusCode)
	_ = ord
}
