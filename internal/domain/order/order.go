package order

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pos-orders/internal/domain/currency"
)

// Order is a customer's purchase record. It exclusively owns its items;
// Total and Currency are always derived from them.
type Order struct {
	ID            string
	Number        int64
	CustomerName  string
	CustomerEmail *string
	CustomerPhone *string
	Total         decimal.Decimal
	Currency      currency.Currency
	Status        Status
	Notes         *string
	CreatedBy     *string
	UpdatedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []Item
}

// Item is one product-quantity line of an order. Name, unit price and
// currency are snapshots taken when the line was first added.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Currency    currency.Currency
	TotalPrice  decimal.Decimal
	CreatedAt   time.Time
}

// Ref identifies an order either by its opaque ID or by its order number.
type Ref struct {
	ID     string
	Number int64
}

var numericRef = regexp.MustCompile(`^\d+$`)

// ParseRef treats a purely numeric string as an order number and anything
// else as an ID.
func ParseRef(s string) Ref {
	if numericRef.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Ref{Number: n}
		}
	}
	return Ref{ID: s}
}

func (r Ref) String() string {
	if r.ID != "" {
		return r.ID
	}
	return "#" + strconv.FormatInt(r.Number, 10)
}

// SortKey is a column orders can be listed by.
type SortKey string

const (
	SortCreatedAt    SortKey = "created_at"
	SortUpdatedAt    SortKey = "updated_at"
	SortOrderNumber  SortKey = "order_number"
	SortTotalAmount  SortKey = "total_amount"
	SortCustomerName SortKey = "customer_name"
	SortStatus       SortKey = "status"
)

var sortKeys = map[SortKey]struct{}{
	SortCreatedAt:    {},
	SortUpdatedAt:    {},
	SortOrderNumber:  {},
	SortTotalAmount:  {},
	SortCustomerName: {},
	SortStatus:       {},
}

// ListFilter is a normalised listing query. Zero-valued filters are unset.
type ListFilter struct {
	Status       *Status
	CustomerName string
	OrderNumber  *int64
	Limit        int
	Offset       int
	Sort         SortKey
	Descending   bool
}

// UpdateFunc mutates a locked order inside a repository transaction.
// Returning an error aborts the transaction.
type UpdateFunc func(ctx context.Context, o *Order) error

// Repository is the persistence boundary for orders and their items.
type Repository interface {
	// Create persists the order and all of its items atomically, assigning
	// Number and the timestamps.
	Create(ctx context.Context, o *Order) error
	// Get returns the order with its items, or ErrNotFound.
	Get(ctx context.Context, ref Ref) (*Order, error)
	// List returns orders without items.
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	// Update locks the order, loads its items and applies fn. Item inserts,
	// updates and deletes are derived from the mutated item set and written
	// with the order row before commit.
	Update(ctx context.Context, id string, fn UpdateFunc) (*Order, error)
	// Delete locks the order, lets check veto the deletion, then removes the
	// items and the order.
	Delete(ctx context.Context, id string, check func(o *Order) error) error
}

// OptString is an optional string field of an update request.
type OptString struct {
	Value string
	Set   bool
}

// NewOptString returns a set OptString.
func NewOptString(v string) OptString {
	return OptString{Value: v, Set: true}
}

// OptNilString is an optional field that may also be explicitly cleared
// with null.
type OptNilString struct {
	Value string
	Set   bool
	Null  bool
}

// NewOptNilString returns a set, non-null OptNilString.
func NewOptNilString(v string) OptNilString {
	return OptNilString{Value: v, Set: true}
}

// NewNullString returns an OptNilString that clears the field.
func NewNullString() OptNilString {
	return OptNilString{Set: true, Null: true}
}
