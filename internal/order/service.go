package order

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pawmart/pet-market-backend/internal/auth"
	"github.com/pawmart/pet-market-backend/internal/metrics"
	"github.com/pawmart/pet-market-backend/internal/store"
)

// StoreDirectory resolves the store owned by an admin; used to scope
// admin-side reads to their own store's orders.
type StoreDirectory interface {
	GetByOwner(ownerID int) (store.Store, error)
}

// Service is the order placement engine plus the admin operations around
// placed orders.
type Service struct {
	repo      Repository
	stores    StoreDirectory
	txTimeout time.Duration
}

func NewService(repo Repository, stores StoreDirectory, txTimeout time.Duration) *Service {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &Service{repo: repo, stores: stores, txTimeout: txTimeout}
}

// Place validates the request shape, then hands the transactional work to
// the repository under a bounded timeout. Either a complete order comes
// back with all stock decremented, or nothing was written.
func (s *Service) Place(ctx context.Context, req PlacementRequest) (Order, error) {
	if err := validatePlacement(req); err != nil {
		metrics.OrdersFailed.WithLabelValues("validation").Inc()
		return Order{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	ord, err := s.repo.Place(ctx, req)
	if err != nil {
		var notFound *ProductNotFoundError
		var noStock *InsufficientStockError
		switch {
		case errors.As(err, &notFound):
			metrics.OrdersFailed.WithLabelValues("product_not_found").Inc()
		case errors.As(err, &noStock):
			metrics.OrdersFailed.WithLabelValues("insufficient_stock").Inc()
		case errors.Is(err, context.DeadlineExceeded):
			metrics.OrdersFailed.WithLabelValues("timeout").Inc()
			log.WithField("userId", req.UserID).Warn("order placement timed out")
		default:
			metrics.OrdersFailed.WithLabelValues("transaction").Inc()
			log.WithError(err).WithField("userId", req.UserID).Error("order placement transaction failed")
		}
		return Order{}, err
	}

	metrics.OrdersPlaced.Inc()
	metrics.OrderAmount.Observe(ord.TotalPrice)
	log.WithFields(log.Fields{
		"orderId": ord.ID,
		"userId":  ord.UserID,
		"items":   len(ord.Items),
		"total":   ord.TotalPrice,
	}).Info("order placed")
	return ord, nil
}

func validatePlacement(req PlacementRequest) error {
	if req.UserID <= 0 {
		return &ValidationError{Field: "userId", Reason: "required"}
	}
	if strings.TrimSpace(req.Shipping.Address) == "" {
		return &ValidationError{Field: "shippingInfo.address", Reason: "required"}
	}
	if strings.TrimSpace(req.Shipping.City) == "" {
		return &ValidationError{Field: "shippingInfo.city", Reason: "required"}
	}
	if strings.TrimSpace(req.Shipping.PostalCode) == "" {
		return &ValidationError{Field: "shippingInfo.postalCode", Reason: "required"}
	}
	if strings.TrimSpace(req.Shipping.Country) == "" {
		return &ValidationError{Field: "shippingInfo.country", Reason: "required"}
	}
	if len(req.Items) == 0 {
		return &ValidationError{Field: "orderItems", Reason: "must not be empty"}
	}
	seen := make(map[int]bool, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID <= 0 {
			return &ValidationError{Field: "orderItems.product", Reason: "invalid product id"}
		}
		if it.Quantity < 1 {
			return &ValidationError{Field: "orderItems.quantity", Reason: "must be at least 1"}
		}
		// a repeated id would validate each entry against the same locked
		// stock value and oversell on commit
		if seen[it.ProductID] {
			return &ValidationError{Field: "orderItems.product", Reason: "duplicate product id"}
		}
		seen[it.ProductID] = true
	}
	if req.ItemsPrice < 0 || req.ShippingPrice < 0 || req.TotalPrice < 0 {
		return &ValidationError{Field: "prices", Reason: "must be non-negative"}
	}
	// Totals are client-asserted; the engine only enforces the additive
	// identity, it does not re-derive itemsPrice from catalog prices.
	if math.Abs(req.TotalPrice-(req.ItemsPrice+req.ShippingPrice)) > 0.01 {
		return &ValidationError{Field: "totalPrice", Reason: "must equal itemsPrice + shippingPrice"}
	}
	return nil
}

// Get returns the order if the caller owns it, or is an admin whose
// store owns at least one of its line items.
func (s *Service) Get(ctx context.Context, ident auth.Identity, id int) (Order, error) {
	ord, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}

	if ord.UserID == ident.UserID {
		return ord, nil
	}
	if ident.IsAdmin() {
		if st, err := s.stores.GetByOwner(ident.UserID); err == nil && ord.touchesStore(st.ID) {
			return ord, nil
		}
	}
	return Order{}, ErrForbidden
}

func (s *Service) ListMine(ctx context.Context, userID int) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context, page, limit int) ([]Order, int, float64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListAll(ctx, page, limit)
}

// ListStoreOrders returns orders touching the admin's store and the
// store's share of their totals.
func (s *Service) ListStoreOrders(ctx context.Context, ident auth.Identity) ([]Order, float64, error) {
	st, err := s.stores.GetByOwner(ident.UserID)
	if err != nil {
		return nil, 0, store.ErrNotFound
	}
	return s.repo.ListByStore(ctx, st.ID)
}

// SetStatus applies the state machine: only legal transitions go
// through, and entering Delivered stamps deliveredAt.
func (s *Service) SetStatus(ctx context.Context, id int, to Status) (Order, error) {
	if !to.Valid() {
		return Order{}, &ValidationError{Field: "orderStatus", Reason: "unknown status"}
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !current.Status.CanTransition(to) {
		return Order{}, &IllegalTransitionError{From: current.Status, To: to}
	}

	var deliveredAt *time.Time
	if to == StatusDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, to, deliveredAt)
	if err != nil {
		return Order{}, err
	}
	log.WithFields(log.Fields{"orderId": id, "from": current.Status, "to": to}).Info("order status updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
