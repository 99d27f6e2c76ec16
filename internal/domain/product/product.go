package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-orders/internal/domain/currency"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is the catalog view consumed by order placement. Catalog
// management lives elsewhere; orders only read it.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Currency  currency.Currency
	Available bool
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs returns the products matching ids. Missing products are
	// omitted rather than reported.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
