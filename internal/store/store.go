package store

// Store is a selling entity owned by exactly one admin user.
type Store struct {
	ID          int    `json:"storeId"`
	OwnerID     int    `json:"ownerId"`
	Name        string `json:"storeName"`
	Description string `json:"storeDesc"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}
