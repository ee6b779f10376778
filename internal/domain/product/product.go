package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for sale at the terminal.
type Product struct {
	ID         string
	SKU        string
	Name       string
	Price      decimal.Decimal
	CategoryID string
	Stock      int
}

// Category groups products and carries the short code used as the SKU prefix.
type Category struct {
	ID   string
	Name string
	Code string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
}
