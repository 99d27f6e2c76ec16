package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-orders/internal/domain/currency"
	"github.com/xenking/pos-orders/internal/domain/order"
)

const (
	orderColumns = `id, order_number, customer_name, customer_email, customer_phone,
		total_amount, currency, status, notes, created_by, updated_by, created_at, updated_at`

	itemColumns = `id, order_id, product_id, product_name, quantity, unit_price, currency, total_price, created_at`

	insertOrderSQL = `INSERT INTO orders (id, customer_name, customer_email, customer_phone,
		total_amount, currency, status, notes, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING order_number`

	updateOrderSQL = `UPDATE orders SET customer_name = $2, customer_email = $3, customer_phone = $4,
		total_amount = $5, currency = $6, status = $7, notes = $8, updated_by = $9, updated_at = $10
		WHERE id = $1`

	insertItemSQL = `INSERT INTO order_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateItemSQL = `UPDATE order_items SET quantity = $2, total_price = $3 WHERE id = $1`

	deleteItemSQL = `DELETE FROM order_items WHERE id = $1`

	getOrderByIDSQL     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	lockOrderSQL        = getOrderByIDSQL + ` FOR UPDATE`

	listItemsSQL = `SELECT ` + itemColumns + ` FROM order_items
		WHERE order_id = $1 ORDER BY created_at, id`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`
	deleteOrderSQL      = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and its items in one transaction and assigns
// the order number.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrderSQL,
			o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.Total, o.Currency.String(), o.Status.String(), o.Notes,
			o.CreatedBy, o.UpdatedBy, o.CreatedAt, o.UpdatedAt,
		).Scan(&o.Number)
		if err != nil {
			return fmt.Errorf("inserting order %q: %w", o.ID, err)
		}

		b := &pgx.Batch{}
		for _, it := range o.Items {
			queueInsertItem(b, it)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("inserting items of order %q: %w", o.ID, err)
		}
		return nil
	})
}

// Get returns the order with its items.
func (r *OrderRepository) Get(ctx context.Context, ref order.Ref) (*order.Order, error) {
	if ref.ID != "" {
		if !validID(ref.ID) {
			return nil, notFound(ref.ID)
		}
		return loadOrder(ctx, r.pool, getOrderByIDSQL, ref.ID)
	}
	return loadOrder(ctx, r.pool, getOrderByNumberSQL, ref.Number)
}

// List returns one page of orders, without items.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	sql, args := buildListQuery(f)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// Update locks the order row for the duration of fn, then writes back only
// what fn changed. Errors returned by fn are passed through unwrapped.
func (r *OrderRepository) Update(ctx context.Context, id string, fn order.UpdateFunc) (*order.Order, error) {
	if !validID(id) {
		return nil, notFound(id)
	}
	var updated *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := loadOrder(ctx, tx, lockOrderSQL, id)
		if err != nil {
			return err
		}
		working := cloneOrder(current)
		if err := fn(ctx, working); err != nil {
			return err
		}
		if err := writeChanges(ctx, tx, current, working); err != nil {
			return err
		}
		updated = working
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete locks the order, lets check veto, and removes items and order.
func (r *OrderRepository) Delete(ctx context.Context, id string, check func(o *order.Order) error) error {
	if !validID(id) {
		return notFound(id)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := loadOrder(ctx, tx, lockOrderSQL, id)
		if err != nil {
			return err
		}
		if err := check(current); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, deleteOrderItemsSQL, id); err != nil {
			return fmt.Errorf("deleting items of order %q: %w", id, err)
		}
		if _, err := tx.Exec(ctx, deleteOrderSQL, id); err != nil {
			return fmt.Errorf("deleting order %q: %w", id, err)
		}
		return nil
	})
}

func loadOrder(ctx context.Context, q querier, sql string, key any) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting order %v: %w", key, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("getting order %v: %w", key, err)
	}

	rows, err = q.Query(ctx, listItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", o.ID, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", o.ID, err)
	}
	return &o, nil
}

func writeChanges(ctx context.Context, tx pgx.Tx, before, after *order.Order) error {
	inserted, updated, deleted := diffItems(before.Items, after.Items)
	rowChanged := orderRowChanged(before, after)
	if !rowChanged && len(inserted)+len(updated)+len(deleted) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, it := range deleted {
		b.Queue(deleteItemSQL, it.ID)
	}
	for _, it := range updated {
		b.Queue(updateItemSQL, it.ID, it.Quantity, it.TotalPrice)
	}
	for _, it := range inserted {
		queueInsertItem(b, it)
	}
	if rowChanged {
		b.Queue(updateOrderSQL,
			after.ID, after.CustomerName, after.CustomerEmail, after.CustomerPhone,
			after.Total, after.Currency.String(), after.Status.String(), after.Notes,
			after.UpdatedBy, after.UpdatedAt,
		)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("writing order %q: %w", after.ID, err)
	}
	return nil
}

// diffItems derives the item writes that turn before into after, keyed by
// item ID.
func diffItems(before, after []order.Item) (inserted, updated, deleted []order.Item) {
	old := make(map[string]order.Item, len(before))
	for _, it := range before {
		old[it.ID] = it
	}
	for _, it := range after {
		prev, ok := old[it.ID]
		switch {
		case !ok:
			inserted = append(inserted, it)
		case prev.Quantity != it.Quantity || !prev.TotalPrice.Equal(it.TotalPrice):
			updated = append(updated, it)
		}
		delete(old, it.ID)
	}
	for _, it := range before {
		if _, ok := old[it.ID]; ok {
			deleted = append(deleted, it)
		}
	}
	return inserted, updated, deleted
}

func orderRowChanged(before, after *order.Order) bool {
	return before.CustomerName != after.CustomerName ||
		!equalOptional(before.CustomerEmail, after.CustomerEmail) ||
		!equalOptional(before.CustomerPhone, after.CustomerPhone) ||
		!equalOptional(before.Notes, after.Notes) ||
		!equalOptional(before.UpdatedBy, after.UpdatedBy) ||
		!before.Total.Equal(after.Total) ||
		before.Currency != after.Currency ||
		before.Status != after.Status ||
		!before.UpdatedAt.Equal(after.UpdatedAt)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// listColumns maps sort keys to their columns.
var listColumns = map[order.SortKey]string{
	order.SortCreatedAt:    "created_at",
	order.SortUpdatedAt:    "updated_at",
	order.SortOrderNumber:  "order_number",
	order.SortTotalAmount:  "total_amount",
	order.SortCustomerName: "customer_name",
	order.SortStatus:       "status",
}

func buildListQuery(f order.ListFilter) (string, []any) {
	var (
		sb    strings.Builder
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Status != nil {
		where = append(where, "status = "+arg(f.Status.String()))
	}
	if f.CustomerName != "" {
		where = append(where, `customer_name ILIKE `+arg("%"+escapeLike(f.CustomerName)+"%")+` ESCAPE '\'`)
	}
	if f.OrderNumber != nil {
		where = append(where, "order_number = "+arg(*f.OrderNumber))
	}

	sb.WriteString("SELECT ")
	sb.WriteString(orderColumns)
	sb.WriteString(" FROM orders")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	col, ok := listColumns[f.Sort]
	if !ok {
		col = listColumns[order.SortCreatedAt]
	}
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, order_number %s", col, dir, dir)
	sb.WriteString(" LIMIT " + arg(f.Limit))
	sb.WriteString(" OFFSET " + arg(f.Offset))

	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func queueInsertItem(b *pgx.Batch, it order.Item) {
	b.Queue(insertItemSQL,
		it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity,
		it.UnitPrice, it.Currency.String(), it.TotalPrice, it.CreatedAt,
	)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		cur, status string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.Total, &cur, &status, &o.Notes, &o.CreatedBy, &o.UpdatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if o.Currency, err = currency.Parse(cur); err != nil {
		return o, fmt.Errorf("order %q: %w", o.ID, err)
	}
	if o.Status, err = order.ParseStatus(status); err != nil {
		return o, fmt.Errorf("order %q: %w", o.ID, err)
	}
	return o, nil
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it  order.Item
		cur string
	)
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &cur, &it.TotalPrice, &it.CreatedAt,
	)
	if err != nil {
		return it, err
	}
	if it.Currency, err = currency.Parse(cur); err != nil {
		return it, fmt.Errorf("order item %q: %w", it.ID, err)
	}
	return it, nil
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = append([]order.Item(nil), o.Items...)
	return &c
}

// validID reports whether id can exist in a UUID column. Anything else is
// reported as not found rather than as a driver error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(key any) error {
	return fmt.Errorf("order %v: %w", key, order.ErrNotFound)
}
