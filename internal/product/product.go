package product

import (
	"errors"
	"fmt"
	"math"
)

// Product maps to the `products` table. Each product belongs to exactly
// one store; stock is mutated by owner edits and by order placement.
type Product struct {
	ID                 int     `json:"productId"`
	StoreID            int     `json:"storeId"`
	Name               string  `json:"productName"`
	Description        string  `json:"productDesc"`
	OriginalPrice      float64 `json:"originalPrice"`
	SalePrice          float64 `json:"salePrice"`
	DiscountPercentage int     `json:"discountPercentage"`
	Stock              int     `json:"stock"`
	AnimalType         string  `json:"animalType"`
	ProductType        string  `json:"productType"`
	CreatedAt          string  `json:"createdAt,omitempty"`
	UpdatedAt          string  `json:"updatedAt,omitempty"`
}

var AllowedAnimalTypes = []string{"Dog", "Cat", "Bird", "Other"}

var AllowedProductTypes = []string{
	"Food",
	"Medicines",
	"Toys",
	"Accessories",
	"Grooming",
	"Snacks",
}

// Normalize defaults the sale price and derives the discount percentage.
// It is applied on every write so the pricing invariants hold in storage.
func (p *Product) Normalize() error {
	if p.Name == "" {
		return errors.New("productName is required")
	}
	if p.OriginalPrice < 0 {
		return errors.New("originalPrice must be non-negative")
	}
	if p.SalePrice == 0 {
		p.SalePrice = p.OriginalPrice
	}
	if p.SalePrice < 0 {
		return errors.New("salePrice must be non-negative")
	}
	if p.SalePrice > p.OriginalPrice {
		return errors.New("salePrice cannot exceed originalPrice")
	}
	if p.Stock < 0 {
		return errors.New("stock must be non-negative")
	}
	if !contains(AllowedAnimalTypes, p.AnimalType) {
		return fmt.Errorf("animalType must be one of %v", AllowedAnimalTypes)
	}
	if !contains(AllowedProductTypes, p.ProductType) {
		return fmt.Errorf("productType must be one of %v", AllowedProductTypes)
	}

	if p.SalePrice < p.OriginalPrice && p.OriginalPrice > 0 {
		p.DiscountPercentage = int(math.Round((p.OriginalPrice - p.SalePrice) / p.OriginalPrice * 100))
	} else {
		p.DiscountPercentage = 0
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
