package order

import (
	"context"
	"sync"
	"time"

	"github.com/pawmart/pet-market-backend/internal/product"
)

// Repository defines persistence for orders. Place is the transactional
// core: it must validate stock, decrement it and insert the order as one
// atomic unit, restoring the pre-call state on any failure.
type Repository interface {
	Place(ctx context.Context, req PlacementRequest) (Order, error)
	GetByID(ctx context.Context, id int) (Order, error)
	ListByUser(ctx context.Context, userID int) ([]Order, error)
	// ListAll returns one page of orders plus the total count and the
	// grand-total amount across all orders.
	ListAll(ctx context.Context, page, limit int) ([]Order, int, float64, error)
	// ListByStore returns orders containing at least one line item owned
	// by the store, plus the store's share of their totals.
	ListByStore(ctx context.Context, storeID int) ([]Order, float64, error)
	UpdateStatus(ctx context.Context, id int, from, to Status, deliveredAt *time.Time) (Order, error)
	Delete(ctx context.Context, id int) error
}

// InMemoryRepository implements the placement engine against the
// in-memory product catalog. Tests use it to exercise the engine's
// atomicity and concurrency properties without a database.
type InMemoryRepository struct {
	mu      sync.Mutex
	catalog *product.InMemoryRepository
	orders  []Order
	nextID  int
}

func NewInMemoryRepository(catalog *product.InMemoryRepository) *InMemoryRepository {
	return &InMemoryRepository{catalog: catalog, nextID: 1}
}

// Place serializes placements behind one mutex, mirroring the row locks
// the Postgres engine takes: validate every item against current stock,
// then decrement and append the order. If a decrement fails mid-commit
// (an admin edit raced us through the catalog's own lock), the already
// applied decrements are rolled back.
func (r *InMemoryRepository) Place(ctx context.Context, req PlacementRequest) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	items := make([]LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, err := r.catalog.GetByID(it.ProductID)
		if err != nil {
			return Order{}, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return Order{}, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: it.Quantity,
			}
		}
		items = append(items, LineItem{
			ProductID: p.ID,
			StoreID:   p.StoreID,
			Name:      p.Name,
			UnitPrice: p.SalePrice,
			Quantity:  it.Quantity,
		})
	}

	for i, it := range req.Items {
		if _, err := r.catalog.AdjustStock(it.ProductID, -it.Quantity); err != nil {
			for j := 0; j < i; j++ {
				r.catalog.AdjustStock(req.Items[j].ProductID, req.Items[j].Quantity)
			}
			if err == product.ErrInsufficientStock {
				p, getErr := r.catalog.GetByID(it.ProductID)
				if getErr == nil {
					return Order{}, &InsufficientStockError{
						ProductID: p.ID,
						Name:      p.Name,
						Available: p.Stock,
						Requested: it.Quantity,
					}
				}
			}
			return Order{}, err
		}
	}

	ord := Order{
		ID:            r.nextID,
		UserID:        req.UserID,
		Items:         items,
		Shipping:      req.Shipping,
		ItemsPrice:    req.ItemsPrice,
		ShippingPrice: req.ShippingPrice,
		TotalPrice:    req.TotalPrice,
		Status:        StatusProcessing,
		CreatedAt:     time.Now().UTC(),
	}
	r.nextID++
	r.orders = append(r.orders, ord)
	return cloneOrder(ord), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ord := range r.orders {
		if ord.ID == id {
			return cloneOrder(ord), nil
		}
	}
	return Order{}, ErrOrderNotFound
}

func (r *InMemoryRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Order, 0)
	for _, ord := range r.orders {
		if ord.UserID == userID {
			out = append(out, cloneOrder(ord))
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListAll(ctx context.Context, page, limit int) ([]Order, int, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total float64
	for _, ord := range r.orders {
		total += ord.TotalPrice
	}

	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start > len(r.orders) {
		start = len(r.orders)
	}
	end := start + limit
	if end > len(r.orders) {
		end = len(r.orders)
	}

	out := make([]Order, 0, end-start)
	for _, ord := range r.orders[start:end] {
		out = append(out, cloneOrder(ord))
	}
	return out, len(r.orders), total, nil
}

func (r *InMemoryRepository) ListByStore(ctx context.Context, storeID int) ([]Order, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Order, 0)
	var total float64
	for _, ord := range r.orders {
		if ord.touchesStore(storeID) {
			out = append(out, cloneOrder(ord))
			total += ord.StoreSubtotal(storeID)
		}
	}
	return out, total, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id int, from, to Status, deliveredAt *time.Time) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.orders {
		if r.orders[i].ID == id {
			if r.orders[i].Status != from {
				return Order{}, ErrOrderNotFound
			}
			r.orders[i].Status = to
			if deliveredAt != nil {
				r.orders[i].DeliveredAt = deliveredAt
			}
			return cloneOrder(r.orders[i]), nil
		}
	}
	return Order{}, ErrOrderNotFound
}

func (r *InMemoryRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return nil
		}
	}
	return ErrOrderNotFound
}

func cloneOrder(ord Order) Order {
	items := make([]LineItem, len(ord.Items))
	copy(items, ord.Items)
	ord.Items = items
	return ord
}
