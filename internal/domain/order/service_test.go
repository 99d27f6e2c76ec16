package order

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-orders/internal/domain/currency"
	"github.com/xenking/pos-orders/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]product.Product
	getErr error
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockOrderRepo keeps orders in memory and applies UpdateFunc to a copy, so
// a failing callback leaves the stored order untouched like a rolled back
// transaction would.
type mockOrderRepo struct {
	orders     map[string]*Order
	nextNumber int64
	createErr  error
	writes     int
	lastFilter ListFilter
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*Order)}
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	return &c
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextNumber++
	o.Number = m.nextNumber
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, ref Ref) (*Order, error) {
	for _, o := range m.orders {
		if (ref.ID != "" && o.ID == ref.ID) || (ref.ID == "" && o.Number == ref.Number) {
			return cloneOrder(o), nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", ref, ErrNotFound)
}

func (m *mockOrderRepo) List(_ context.Context, f ListFilter) ([]Order, error) {
	m.lastFilter = f
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *cloneOrder(o))
	}
	return out, nil
}

func (m *mockOrderRepo) Update(ctx context.Context, id string, fn UpdateFunc) (*Order, error) {
	stored, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	working := cloneOrder(stored)
	if err := fn(ctx, working); err != nil {
		return nil, err
	}
	m.orders[id] = cloneOrder(working)
	m.writes++
	return working, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string, check func(o *Order) error) error {
	stored, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	if err := check(cloneOrder(stored)); err != nil {
		return err
	}
	delete(m.orders, id)
	return nil
}

// --- Helpers ---

var serviceNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func catalog() *mockProductRepo {
	unavailable := newTestProduct("S", "Soup", "7", currency.USD)
	unavailable.Available = false
	return newProductRepo(
		newTestProduct("A", "Latte", "10", currency.USD),
		newTestProduct("B", "Cookie", "5", currency.USD),
		newTestProduct("E", "Croissant", "3", currency.EUR),
		unavailable,
	)
}

func newTestService(products *mockProductRepo, orders *mockOrderRepo) *Service {
	return NewService(Config{}, products, orders,
		WithClock(func() time.Time { return serviceNow }),
		WithIDGenerator(seqIDs("id")),
	)
}

func createScenarioOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "  Ada Lovelace ",
		Items: []ItemRequest{
			{ProductID: "A", Quantity: 2},
			{ProductID: "B", Quantity: 1},
		},
	})
	require.NoError(t, err)
	return o
}

func itemFor(t *testing.T, o *Order, productID string) Item {
	t.Helper()
	for _, it := range o.Items {
		if it.ProductID == productID {
			return it
		}
	}
	t.Fatalf("no line for product %s", productID)
	return Item{}
}

// --- Tests ---

func TestCreate_Scenario(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(catalog(), orders)

	o := createScenarioOrder(t, svc)

	assert.Equal(t, "Ada Lovelace", o.CustomerName)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, currency.USD, o.Currency)
	assert.True(t, decimal.NewFromInt(25).Equal(o.Total))
	assert.Equal(t, int64(1), o.Number)
	assert.Len(t, o.Items, 2)
	assertConsistent(t, o)
	assert.Contains(t, orders.orders, o.ID)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
		wantMsg string
	}{
		{
			name:    "blank customer name",
			req:     CreateRequest{CustomerName: "   ", Items: []ItemRequest{{ProductID: "A", Quantity: 1}}},
			wantErr: ErrValidation,
			wantMsg: "customer name is required",
		},
		{
			name:    "no items",
			req:     CreateRequest{CustomerName: "Ada"},
			wantErr: ErrValidation,
			wantMsg: "at least one item is required",
		},
		{
			name:    "missing product id",
			req:     CreateRequest{CustomerName: "Ada", Items: []ItemRequest{{Quantity: 1}}},
			wantErr: ErrValidation,
		},
		{
			name:    "zero quantity",
			req:     CreateRequest{CustomerName: "Ada", Items: []ItemRequest{{ProductID: "A"}}},
			wantErr: ErrValidation,
		},
		{
			name:    "bad email",
			req:     CreateRequest{CustomerName: "Ada", CustomerEmail: "nope", Items: []ItemRequest{{ProductID: "A", Quantity: 1}}},
			wantErr: ErrValidation,
			wantMsg: "invalid email format",
		},
		{
			name:    "bad phone",
			req:     CreateRequest{CustomerName: "Ada", CustomerPhone: "12", Items: []ItemRequest{{ProductID: "A", Quantity: 1}}},
			wantErr: ErrValidation,
			wantMsg: "invalid phone number format",
		},
		{
			name:    "unknown product",
			req:     CreateRequest{CustomerName: "Ada", Items: []ItemRequest{{ProductID: "Z", Quantity: 1}}},
			wantErr: ErrNotFound,
			wantMsg: "product with id Z not found",
		},
		{
			name:    "unavailable product",
			req:     CreateRequest{CustomerName: "Ada", Items: []ItemRequest{{ProductID: "S", Quantity: 1}}},
			wantErr: ErrValidation,
			wantMsg: `"Soup" is currently unavailable`,
		},
		{
			name: "mixed currencies",
			req: CreateRequest{CustomerName: "Ada", Items: []ItemRequest{
				{ProductID: "A", Quantity: 1},
				{ProductID: "E", Quantity: 1},
			}},
			wantErr: ErrValidation,
			wantMsg: `cannot mix currencies in one order: order currency is USD, but "Croissant" uses EUR`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := newOrderRepo()
			svc := newTestService(catalog(), orders)

			_, err := svc.Create(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
			assert.Empty(t, orders.orders, "nothing must be persisted")
		})
	}
}

func TestCreate_DuplicateProductsMerged(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Ada",
		Items: []ItemRequest{
			{ProductID: "A", Quantity: 1},
			{ProductID: "A", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(o.Total))
}

func TestCreate_ContactFieldsAndActor(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+1 (555) 010-0000",
		Notes:         "  no sugar ",
		Items:         []ItemRequest{{ProductID: "A", Quantity: 1}},
		Actor:         "cashier-7",
	})
	require.NoError(t, err)
	require.NotNil(t, o.CustomerEmail)
	assert.Equal(t, "ada@example.com", *o.CustomerEmail)
	require.NotNil(t, o.CustomerPhone)
	require.NotNil(t, o.Notes)
	assert.Equal(t, "no sugar", *o.Notes)
	require.NotNil(t, o.CreatedBy)
	assert.Equal(t, "cashier-7", *o.CreatedBy)
}

func TestCreate_PersistenceError(t *testing.T) {
	orders := newOrderRepo()
	orders.createErr = errors.New("insert order items: connection reset")
	svc := newTestService(catalog(), orders)

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Ada",
		Items:        []ItemRequest{{ProductID: "A", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "insert order items: connection reset", err.Error())
}

func TestCreate_CatalogError(t *testing.T) {
	products := catalog()
	products.getErr = errors.New("catalog down")
	svc := newTestService(products, newOrderRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Ada",
		Items:        []ItemRequest{{ProductID: "A", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrPersistence)
}

func TestGet_ByIDOrNumber(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)

	byID, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	byNumber, err := svc.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)

	_, err = svc.Get(context.Background(), "42")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "order not found", err.Error())
}

func TestParseRef(t *testing.T) {
	assert.Equal(t, Ref{Number: 17}, ParseRef("17"))
	assert.Equal(t, Ref{ID: "17a"}, ParseRef("17a"))
	assert.Equal(t, Ref{ID: "-3"}, ParseRef("-3"))
	assert.Equal(t, Ref{ID: "99999999999999999999"}, ParseRef("99999999999999999999"))
}

func TestFilter(t *testing.T) {
	svc := NewService(Config{DefaultListLimit: 20, MaxListLimit: 100}, catalog(), newOrderRepo())

	f := svc.Filter(ListQuery{})
	assert.Nil(t, f.Status)
	assert.Nil(t, f.OrderNumber)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, SortCreatedAt, f.Sort)
	assert.True(t, f.Descending)

	f = svc.Filter(ListQuery{
		Status:       "ready",
		CustomerName: " ada ",
		OrderNumber:  "12",
		Limit:        "500",
		Offset:       "30",
		Sort:         "total_amount",
		Order:        "asc",
	})
	require.NotNil(t, f.Status)
	assert.Equal(t, StatusReady, *f.Status)
	assert.Equal(t, "ada", f.CustomerName)
	require.NotNil(t, f.OrderNumber)
	assert.Equal(t, int64(12), *f.OrderNumber)
	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, 30, f.Offset)
	assert.Equal(t, SortTotalAmount, f.Sort)
	assert.False(t, f.Descending)

	// Invalid values are ignored, never rejected.
	f = svc.Filter(ListQuery{Status: "done", OrderNumber: "x", Limit: "-1", Offset: "abc", Sort: "password"})
	assert.Nil(t, f.Status)
	assert.Nil(t, f.OrderNumber)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, SortCreatedAt, f.Sort)
}

func TestList_PassesFilter(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(catalog(), orders)
	createScenarioOrder(t, svc)

	got, err := svc.List(context.Background(), ListQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	require.NotNil(t, orders.lastFilter.Status)
	assert.Equal(t, StatusPending, *orders.lastFilter.Status)
}

func TestAddItem_MergeScenario(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)

	o, line, err := svc.AddItem(context.Background(), created.ID, ItemRequest{ProductID: "A", Quantity: 3}, "")
	require.NoError(t, err)

	assert.Len(t, o.Items, 2)
	assert.Equal(t, 5, line.Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(itemFor(t, o, "A").TotalPrice))
	assert.True(t, decimal.NewFromInt(55).Equal(o.Total))
	assertConsistent(t, o)
}

func TestAddItem_NewLine(t *testing.T) {
	products := catalog()
	svc := newTestService(products, newOrderRepo())
	created, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Ada",
		Items:        []ItemRequest{{ProductID: "A", Quantity: 1}},
	})
	require.NoError(t, err)

	o, line, err := svc.AddItem(context.Background(), created.ID, ItemRequest{ProductID: "B", Quantity: 2}, "waiter-1")
	require.NoError(t, err)
	assert.Equal(t, "Cookie", line.ProductName)
	assert.True(t, decimal.NewFromInt(20).Equal(o.Total))
	require.NotNil(t, o.UpdatedBy)
	assert.Equal(t, "waiter-1", *o.UpdatedBy)
}

func TestAddItem_CurrencyMismatchLeavesOrderUnchanged(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(catalog(), orders)
	created := createScenarioOrder(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, ItemRequest{ProductID: "E", Quantity: 1}, "")
	require.ErrorIs(t, err, ErrValidation)

	var cme *CurrencyMismatchError
	require.ErrorAs(t, err, &cme)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.True(t, decimal.NewFromInt(25).Equal(stored.Total))
}

func TestAddItem_Errors(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)
	ctx := context.Background()

	_, _, err := svc.AddItem(ctx, created.ID, ItemRequest{Quantity: 1}, "")
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.AddItem(ctx, created.ID, ItemRequest{ProductID: "A", Quantity: 0}, "")
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.AddItem(ctx, "missing", ItemRequest{ProductID: "A", Quantity: 1}, "")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "order not found", err.Error())

	_, _, err = svc.AddItem(ctx, created.ID, ItemRequest{ProductID: "Z", Quantity: 1}, "")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "product")

	_, _, err = svc.AddItem(ctx, created.ID, ItemRequest{ProductID: "S", Quantity: 1}, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestTerminalOrderIsLocked(t *testing.T) {
	for _, terminal := range []string{"completed", "cancelled"} {
		t.Run(terminal, func(t *testing.T) {
			svc := newTestService(catalog(), newOrderRepo())
			created := createScenarioOrder(t, svc)
			ctx := context.Background()

			_, err := svc.UpdateStatus(ctx, created.ID, terminal, "")
			require.NoError(t, err)

			_, _, err = svc.AddItem(ctx, created.ID, ItemRequest{ProductID: "B", Quantity: 1}, "")
			require.ErrorIs(t, err, ErrInvalidState)

			line := itemFor(t, created, "A")
			_, _, err = svc.UpdateItem(ctx, created.ID, line.ID, 9, "")
			require.ErrorIs(t, err, ErrInvalidState)

			_, _, err = svc.RemoveItem(ctx, created.ID, line.ID, "")
			require.ErrorIs(t, err, ErrInvalidState)

			_, err = svc.Update(ctx, created.ID, UpdateRequest{CustomerName: NewOptString("Grace")})
			require.ErrorIs(t, err, ErrInvalidState)

			_, err = svc.UpdateStatus(ctx, created.ID, "ready", "")
			require.ErrorIs(t, err, ErrInvalidState)

			stored, err := svc.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, terminal, stored.Status.String())
			assert.True(t, decimal.NewFromInt(25).Equal(stored.Total))
		})
	}
}

func TestUpdateStatus_CompletedScenario(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(catalog(), orders)
	created := createScenarioOrder(t, svc)
	ctx := context.Background()

	o, err := svc.UpdateStatus(ctx, created.ID, "completed", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)

	_, err = svc.UpdateStatus(ctx, created.ID, "ready", "")
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "cannot change status of a completed order", err.Error())

	before := *orders.orders[created.ID]
	same, err := svc.UpdateStatus(ctx, created.ID, "completed", "someone")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, same.Status)
	assert.Equal(t, before.UpdatedAt, same.UpdatedAt)
	assert.Equal(t, before.UpdatedBy, same.UpdatedBy)
}

func TestUpdateStatus_Invalid(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), created.ID, "shipped", "")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid status, must be one of: pending, confirmed, preparing, ready, completed, cancelled", err.Error())

	_, err = svc.UpdateStatus(context.Background(), "missing", "ready", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_NonTerminalAnyDirection(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)
	ctx := context.Background()

	for _, st := range []string{"ready", "pending", "preparing", "confirmed"} {
		o, err := svc.UpdateStatus(ctx, created.ID, st, "")
		require.NoError(t, err)
		assert.Equal(t, st, o.Status.String())
	}
}

func TestUpdateItem(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)
	ctx := context.Background()
	line := itemFor(t, created, "B")

	o, updated, err := svc.UpdateItem(ctx, created.ID, line.ID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.True(t, decimal.NewFromInt(35).Equal(o.Total))
	assertConsistent(t, o)

	_, _, err = svc.UpdateItem(ctx, created.ID, line.ID, 0, "")
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.UpdateItem(ctx, created.ID, "other", 1, "")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "order item not found", err.Error())
}

func TestRemoveItem_LastItemScenario(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateRequest{
		CustomerName: "Ada",
		Items:        []ItemRequest{{ProductID: "A", Quantity: 1}},
	})
	require.NoError(t, err)

	_, _, err = svc.RemoveItem(ctx, created.ID, created.Items[0].ID, "")
	require.ErrorIs(t, err, ErrValidation)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestService_RemoveItem(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)

	o, removed, err := svc.RemoveItem(context.Background(), created.ID, itemFor(t, created, "A").ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Latte", removed.ProductName)
	assert.Len(t, o.Items, 1)
	assert.True(t, decimal.NewFromInt(5).Equal(o.Total))
}

func TestUpdate_Fields(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateRequest{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Notes:         "window seat",
		Items:         []ItemRequest{{ProductID: "A", Quantity: 1}},
	})
	require.NoError(t, err)

	o, err := svc.Update(ctx, created.ID, UpdateRequest{
		CustomerName:  NewOptString(" Grace "),
		CustomerEmail: NewNullString(),
		CustomerPhone: NewOptNilString("555-0100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", o.CustomerName)
	assert.Nil(t, o.CustomerEmail)
	require.NotNil(t, o.CustomerPhone)
	assert.Equal(t, "555-0100", *o.CustomerPhone)
	require.NotNil(t, o.Notes, "unset fields are left alone")
	assert.Equal(t, "window seat", *o.Notes)

	o, err = svc.Update(ctx, created.ID, UpdateRequest{Notes: NewOptNilString("   ")})
	require.NoError(t, err)
	assert.Nil(t, o.Notes)
}

func TestUpdate_Validation(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())
	created := createScenarioOrder(t, svc)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     UpdateRequest
		wantMsg string
	}{
		{name: "nothing to update", req: UpdateRequest{}, wantMsg: "at least one field must be provided for update"},
		{name: "empty name", req: UpdateRequest{CustomerName: NewOptString(" ")}, wantMsg: "customer name cannot be empty"},
		{name: "bad email", req: UpdateRequest{CustomerEmail: NewOptNilString("a@b")}, wantMsg: "invalid email format"},
		{name: "bad phone", req: UpdateRequest{CustomerPhone: NewOptNilString("call me")}, wantMsg: "invalid phone number format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, created.ID, tt.req)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	_, err := svc.Update(ctx, "missing", UpdateRequest{CustomerName: NewOptString("Grace")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		status  string
		wantErr error
	}{
		{status: "pending"},
		{status: "cancelled"},
		{status: "confirmed", wantErr: ErrInvalidState},
		{status: "preparing", wantErr: ErrInvalidState},
		{status: "ready", wantErr: ErrInvalidState},
		{status: "completed", wantErr: ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			orders := newOrderRepo()
			svc := newTestService(catalog(), orders)
			created := createScenarioOrder(t, svc)
			ctx := context.Background()

			if tt.status != "pending" {
				_, err := svc.UpdateStatus(ctx, created.ID, tt.status, "")
				require.NoError(t, err)
			}

			deleted, err := svc.Delete(ctx, created.ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.status)
				assert.Contains(t, orders.orders, created.ID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", deleted.CustomerName)
			assert.NotContains(t, orders.orders, created.ID)
		})
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := newTestService(catalog(), newOrderRepo())

	_, err := svc.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewService_ConfigDefaults(t *testing.T) {
	svc := NewService(Config{DefaultListLimit: 500, MaxListLimit: 100}, catalog(), newOrderRepo())
	assert.Equal(t, 100, svc.Filter(ListQuery{}).Limit)

	svc = NewService(Config{}, catalog(), newOrderRepo())
	assert.Equal(t, 50, svc.Filter(ListQuery{}).Limit)
	assert.Equal(t, 200, svc.Filter(ListQuery{Limit: "1000"}).Limit)
}

func TestAddItem_OversizedQuantityLeavesOrderUnchanged(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(catalog(), orders)
	created := createScenarioOrder(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, ItemRequest{ProductID: "A", Quantity: math.MaxInt}, "")
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.AddItem(context.Background(), created.ID, ItemRequest{ProductID: "A", Quantity: MaxQuantity}, "")
	require.ErrorIs(t, err, ErrValidation)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, itemFor(t, stored, "A").Quantity)
	assert.True(t, decimal.NewFromInt(25).Equal(stored.Total))
}

func TestCreate_RejectsOversizedQuantity(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(catalog(), orders)

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Ada",
		Items: []ItemRequest{
			{ProductID: "A", Quantity: MaxQuantity},
			{ProductID: "A", Quantity: 1},
		},
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, orders.orders)
}

func TestNewService_TruncatesClockToMicroseconds(t *testing.T) {
	precise := time.Date(2025, 6, 15, 12, 0, 0, 123456789, time.UTC)
	svc := NewService(Config{}, catalog(), newOrderRepo(),
		WithClock(func() time.Time { return precise }),
	)

	o := createScenarioOrder(t, svc)

	want := time.Date(2025, 6, 15, 12, 0, 0, 123456000, time.UTC)
	assert.True(t, want.Equal(o.CreatedAt), "created_at %s", o.CreatedAt)
	assert.True(t, want.Equal(o.UpdatedAt), "updated_at %s", o.UpdatedAt)
	for _, it := range o.Items {
		assert.True(t, want.Equal(it.CreatedAt), "item created_at %s", it.CreatedAt)
	}
}
