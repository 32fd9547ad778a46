package order

import "time"

// LineItem is a frozen snapshot of a product at placement time. It keeps
// its own copy of name, price and owning store so later product edits or
// deletions never alter a placed order.
type LineItem struct {
	ProductID int     `json:"productId"`
	StoreID   int     `json:"storeId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type ShippingInfo struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order represents a committed purchase. An order row exists iff the
// matching stock decrements for every line item were applied.
type Order struct {
	ID            int          `json:"orderId"`
	UserID        int          `json:"userId"`
	Items         []LineItem   `json:"orderItems"`
	Shipping      ShippingInfo `json:"shippingInfo"`
	ItemsPrice    float64      `json:"itemsPrice"`
	ShippingPrice float64      `json:"shippingPrice"`
	TotalPrice    float64      `json:"totalPrice"`
	Status        Status       `json:"orderStatus"`
	DeliveredAt   *time.Time   `json:"deliveredAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// ItemRequest is one entry of a placement request: which product, how many.
type ItemRequest struct {
	ProductID int `json:"product"`
	Quantity  int `json:"quantity"`
}

// PlacementRequest carries everything the engine needs to attempt a
// placement. Totals are client-asserted; see the service for what is and
// is not re-derived.
type PlacementRequest struct {
	UserID        int
	Shipping      ShippingInfo
	Items         []ItemRequest
	ItemsPrice    float64
	ShippingPrice float64
	TotalPrice    float64
}

// StoreSubtotal returns the part of the order total contributed by line
// items belonging to the given store.
func (o Order) StoreSubtotal(storeID int) float64 {
	var sum float64
	for _, li := range o.Items {
		if li.StoreID == storeID {
			sum += li.UnitPrice * float64(li.Quantity)
		}
	}
	return sum
}

func (o Order) touchesStore(storeID int) bool {
	for _, li := range o.Items {
		if li.StoreID == storeID {
			return true
		}
	}
	return false
}
