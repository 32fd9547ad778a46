package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmart/pet-market-backend/internal/auth"
	"github.com/pawmart/pet-market-backend/internal/product"
	"github.com/pawmart/pet-market-backend/internal/store"
)

func newEngine(products []product.Product, stores []store.Store) (*Service, *product.InMemoryRepository) {
	catalog := product.NewInMemoryRepository(products)
	storeService := store.NewService(store.NewInMemoryRepository(stores))
	svc := NewService(NewInMemoryRepository(catalog), storeService, time.Second)
	return svc, catalog
}

func validShipping() ShippingInfo {
	return ShippingInfo{
		Address:    "1 Bark Lane",
		City:       "Dogville",
		PostalCode: "10001",
		Country:    "US",
	}
}

func TestPlaceRejectsEmptyCart(t *testing.T) {
	svc, catalog := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Chew Toy", SalePrice: 10, OriginalPrice: 10, Stock: 5},
	}, nil)

	_, err := svc.Place(context.Background(), PlacementRequest{
		UserID:   7,
		Shipping: validShipping(),
		Items:    nil,
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "orderItems", validation.Field)

	p, _ := catalog.GetByID(1)
	assert.Equal(t, 5, p.Stock, "no stock may change on a rejected request")
}

func TestPlaceRejectsMissingShippingFields(t *testing.T) {
	svc, _ := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Chew Toy", SalePrice: 10, OriginalPrice: 10, Stock: 5},
	}, nil)

	shipping := validShipping()
	shipping.City = "  "

	_, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      shipping,
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    10,
		ShippingPrice: 0,
		TotalPrice:    10,
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "shippingInfo.city", validation.Field)
}

func TestPlaceRejectsDuplicateProductIDs(t *testing.T) {
	svc, catalog := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Chew Toy", SalePrice: 10, OriginalPrice: 10, Stock: 1},
	}, nil)

	// each entry alone passes the stock check; together they would oversell
	_, err := svc.Place(context.Background(), PlacementRequest{
		UserID:   7,
		Shipping: validShipping(),
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 1, Quantity: 1},
		},
		ItemsPrice:    20,
		ShippingPrice: 0,
		TotalPrice:    20,
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "orderItems.product", validation.Field)

	p, _ := catalog.GetByID(1)
	assert.Equal(t, 1, p.Stock, "no stock may change on a rejected request")
}

func TestPlaceRejectsInconsistentTotals(t *testing.T) {
	svc, _ := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Chew Toy", SalePrice: 10, OriginalPrice: 10, Stock: 5},
	}, nil)

	_, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      validShipping(),
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    10,
		ShippingPrice: 5,
		TotalPrice:    99,
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "totalPrice", validation.Field)
}

func TestPlaceAbortsWhollyOnInsufficientStock(t *testing.T) {
	svc, catalog := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Kibble Sack", SalePrice: 30, OriginalPrice: 30, Stock: 5},
		{ID: 2, StoreID: 1, Name: "Cat Tower", SalePrice: 80, OriginalPrice: 80, Stock: 3},
	}, nil)

	_, err := svc.Place(context.Background(), PlacementRequest{
		UserID:   7,
		Shipping: validShipping(),
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 10},
		},
		ItemsPrice:    860,
		ShippingPrice: 0,
		TotalPrice:    860,
	})

	var noStock *InsufficientStockError
	require.ErrorAs(t, err, &noStock)
	assert.Equal(t, 3, noStock.Available)
	assert.Equal(t, "Cat Tower", noStock.Name)

	first, _ := catalog.GetByID(1)
	second, _ := catalog.GetByID(2)
	assert.Equal(t, 5, first.Stock, "first item must be untouched after partial failure")
	assert.Equal(t, 3, second.Stock)

	orders, err := svc.ListMine(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, orders, "no order may exist after an aborted placement")
}

func TestPlaceAbortsOnUnknownProduct(t *testing.T) {
	svc, catalog := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Kibble Sack", SalePrice: 30, OriginalPrice: 30, Stock: 5},
	}, nil)

	_, err := svc.Place(context.Background(), PlacementRequest{
		UserID:   7,
		Shipping: validShipping(),
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 999, Quantity: 1},
		},
		ItemsPrice:    30,
		ShippingPrice: 0,
		TotalPrice:    30,
	})

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 999, notFound.ProductID)

	p, _ := catalog.GetByID(1)
	assert.Equal(t, 5, p.Stock)
}

func TestPlaceCommitsAtomically(t *testing.T) {
	svc, catalog := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Kibble Sack", SalePrice: 30, OriginalPrice: 30, Stock: 5},
		{ID: 2, StoreID: 2, Name: "Cat Tower", SalePrice: 80, OriginalPrice: 80, Stock: 5},
	}, nil)

	ord, err := svc.Place(context.Background(), PlacementRequest{
		UserID:   7,
		Shipping: validShipping(),
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
		ItemsPrice:    300,
		ShippingPrice: 20,
		TotalPrice:    320,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessing, ord.Status)
	assert.NotZero(t, ord.ID)
	assert.False(t, ord.CreatedAt.IsZero())
	require.Len(t, ord.Items, 2)
	assert.Equal(t, LineItem{ProductID: 1, StoreID: 1, Name: "Kibble Sack", UnitPrice: 30, Quantity: 2}, ord.Items[0])
	assert.Equal(t, LineItem{ProductID: 2, StoreID: 2, Name: "Cat Tower", UnitPrice: 80, Quantity: 3}, ord.Items[1])
	assert.Equal(t, 320.0, ord.TotalPrice)

	first, _ := catalog.GetByID(1)
	second, _ := catalog.GetByID(2)
	assert.Equal(t, 3, first.Stock)
	assert.Equal(t, 2, second.Stock)
}

func TestConcurrentPlacementsNeverOversell(t *testing.T) {
	svc, catalog := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Last Bone", SalePrice: 12, OriginalPrice: 12, Stock: 1},
	}, nil)

	req := func(userID int) PlacementRequest {
		return PlacementRequest{
			UserID:        userID,
			Shipping:      validShipping(),
			Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
			ItemsPrice:    12,
			ShippingPrice: 0,
			TotalPrice:    12,
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Place(context.Background(), req(i+1))
		}(i)
	}
	wg.Wait()

	var successes, stockFailures int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var noStock *InsufficientStockError
		require.ErrorAs(t, err, &noStock)
		assert.Equal(t, 0, noStock.Available, "loser must observe the post-commit stock level")
		stockFailures++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockFailures)

	p, _ := catalog.GetByID(1)
	assert.Equal(t, 0, p.Stock)
}

func TestLineItemSnapshotsSurviveProductEdits(t *testing.T) {
	svc, catalog := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Squeaky Duck", SalePrice: 9, OriginalPrice: 9, Stock: 4},
	}, nil)

	ord, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      validShipping(),
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    9,
		ShippingPrice: 0,
		TotalPrice:    9,
	})
	require.NoError(t, err)

	edited, _ := catalog.GetByID(1)
	edited.Name = "Renamed Duck"
	edited.SalePrice = 99
	_, err = catalog.Update(1, edited)
	require.NoError(t, err)

	reloaded, err := svc.Get(context.Background(), auth.Identity{UserID: 7, Role: auth.RoleUser}, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, "Squeaky Duck", reloaded.Items[0].Name)
	assert.Equal(t, 9.0, reloaded.Items[0].UnitPrice)
}

func TestGetForbiddenForStrangers(t *testing.T) {
	svc, _ := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Squeaky Duck", SalePrice: 9, OriginalPrice: 9, Stock: 4},
	}, []store.Store{
		{ID: 1, OwnerID: 50, Name: "Duck Depot"},
		{ID: 2, OwnerID: 60, Name: "Feline Fine"},
	})

	ord, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      validShipping(),
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    9,
		ShippingPrice: 0,
		TotalPrice:    9,
	})
	require.NoError(t, err)

	stranger := auth.Identity{UserID: 8, Role: auth.RoleUser}
	for i := 0; i < 3; i++ {
		_, err := svc.Get(context.Background(), stranger, ord.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	}

	// admin of the owning store may read it
	owner := auth.Identity{UserID: 50, Role: auth.RoleAdmin}
	_, err = svc.Get(context.Background(), owner, ord.ID)
	assert.NoError(t, err)

	// admin of an unrelated store may not
	other := auth.Identity{UserID: 60, Role: auth.RoleAdmin}
	_, err = svc.Get(context.Background(), other, ord.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStatusMachine(t *testing.T) {
	svc, _ := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Squeaky Duck", SalePrice: 9, OriginalPrice: 9, Stock: 4},
	}, nil)

	ord, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      validShipping(),
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    9,
		ShippingPrice: 0,
		TotalPrice:    9,
	})
	require.NoError(t, err)

	// Processing cannot jump straight to Delivered
	_, err = svc.SetStatus(context.Background(), ord.ID, StatusDelivered)
	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	shipped, err := svc.SetStatus(context.Background(), ord.ID, StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	assert.Nil(t, shipped.DeliveredAt)

	delivered, err := svc.SetStatus(context.Background(), ord.ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// Delivered is terminal
	_, err = svc.SetStatus(context.Background(), ord.ID, StatusProcessing)
	require.ErrorAs(t, err, &illegal)
	_, err = svc.SetStatus(context.Background(), ord.ID, StatusCancelled)
	require.ErrorAs(t, err, &illegal)

	// deliveredAt survives further reads
	reloaded, err := svc.Get(context.Background(), auth.Identity{UserID: 7, Role: auth.RoleUser}, ord.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.DeliveredAt)
}

func TestCancelFromAnyNonTerminalStatus(t *testing.T) {
	svc, _ := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Squeaky Duck", SalePrice: 9, OriginalPrice: 9, Stock: 10},
	}, nil)

	place := func() Order {
		ord, err := svc.Place(context.Background(), PlacementRequest{
			UserID:        7,
			Shipping:      validShipping(),
			Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
			ItemsPrice:    9,
			ShippingPrice: 0,
			TotalPrice:    9,
		})
		require.NoError(t, err)
		return ord
	}

	fromProcessing := place()
	cancelled, err := svc.SetStatus(context.Background(), fromProcessing.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	fromShipped := place()
	_, err = svc.SetStatus(context.Background(), fromShipped.ID, StatusShipped)
	require.NoError(t, err)
	_, err = svc.SetStatus(context.Background(), fromShipped.ID, StatusCancelled)
	require.NoError(t, err)

	// Cancelled is terminal too
	var illegal *IllegalTransitionError
	_, err = svc.SetStatus(context.Background(), fromProcessing.ID, StatusShipped)
	require.ErrorAs(t, err, &illegal)
}

func TestListAllAndStoreAggregation(t *testing.T) {
	svc, _ := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Kibble Sack", SalePrice: 30, OriginalPrice: 30, Stock: 50},
		{ID: 2, StoreID: 2, Name: "Cat Tower", SalePrice: 80, OriginalPrice: 80, Stock: 50},
	}, []store.Store{
		{ID: 1, OwnerID: 50, Name: "Duck Depot"},
		{ID: 2, OwnerID: 60, Name: "Feline Fine"},
	})

	// order 1: store 1 only
	_, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      validShipping(),
		Items:         []ItemRequest{{ProductID: 1, Quantity: 2}},
		ItemsPrice:    60,
		ShippingPrice: 0,
		TotalPrice:    60,
	})
	require.NoError(t, err)

	// order 2: both stores
	_, err = svc.Place(context.Background(), PlacementRequest{
		UserID:        8,
		Shipping:      validShipping(),
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}},
		ItemsPrice:    110,
		ShippingPrice: 10,
		TotalPrice:    120,
	})
	require.NoError(t, err)

	orders, count, totalAmount, err := svc.ListAll(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, 2, count)
	assert.Equal(t, 180.0, totalAmount)

	// pagination
	firstPage, count, _, err := svc.ListAll(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Len(t, firstPage, 1)
	assert.Equal(t, 2, count)

	// store 1 touches both orders; its share is 60 + 30
	storeOrders, storeTotal, err := svc.ListStoreOrders(context.Background(), auth.Identity{UserID: 50, Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, storeOrders, 2)
	assert.Equal(t, 90.0, storeTotal)

	// store 2 touches only the second order
	storeOrders, storeTotal, err = svc.ListStoreOrders(context.Background(), auth.Identity{UserID: 60, Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, storeOrders, 1)
	assert.Equal(t, 80.0, storeTotal)
}

func TestDeleteOrder(t *testing.T) {
	svc, _ := newEngine([]product.Product{
		{ID: 1, StoreID: 1, Name: "Squeaky Duck", SalePrice: 9, OriginalPrice: 9, Stock: 4},
	}, nil)

	ord, err := svc.Place(context.Background(), PlacementRequest{
		UserID:        7,
		Shipping:      validShipping(),
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
		ItemsPrice:    9,
		ShippingPrice: 0,
		TotalPrice:    9,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ord.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), ord.ID), ErrOrderNotFound)
}
