// Package catalog exposes the read side of the product catalog. Orders copy
// what they need from a Product at checkout and never reference it again.
package catalog

import (
	"context"
	"errors"
)

// Product is an item stored in the products table.
type Product struct {
	ProductID     string   `dynamodbav:"product_id" json:"id"` // PK
	Name          string   `dynamodbav:"name" json:"name"`
	Description   string   `dynamodbav:"description" json:"description"`
	Price         float64  `dynamodbav:"price" json:"price"`
	OriginalPrice *float64 `dynamodbav:"original_price,omitempty" json:"originalPrice,omitempty"`
	Category      string   `dynamodbav:"category" json:"category"`
	Image         string   `dynamodbav:"image" json:"image"`
	Ingredients   []string `dynamodbav:"ingredients,omitempty" json:"ingredients,omitempty"`
	Rating        float64  `dynamodbav:"rating" json:"rating"`
	IsAvailable   bool     `dynamodbav:"is_available" json:"isAvailable"`
}

// ErrProductNotFound is returned when a product id is unknown.
var ErrProductNotFound = errors.New("product not found")

// Reader is the lookup surface used by checkout and the products API.
type Reader interface {
	Get(ctx context.Context, productID string) (*Product, error)
	List(ctx context.Context, category string) ([]Product, error)
}
