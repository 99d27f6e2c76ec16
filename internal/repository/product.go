package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-orders/internal/domain/currency"
	"github.com/xenking/pos-orders/internal/domain/product"
)

const (
	getProductByIDSQL = `SELECT id, name, price, currency, available
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, price, currency, available
		FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, currency, category, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			category = EXCLUDED.category,
			available = EXCLUDED.available,
			updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Missing IDs are
// simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return products, nil
}

// CatalogEntry is a product row as loaded by the seeding tool.
type CatalogEntry struct {
	product.Product
	Description string
	Category    string
}

// UpsertProducts inserts or refreshes catalog rows in a single batch.
func (r *ProductRepository) UpsertProducts(ctx context.Context, entries []CatalogEntry) error {
	b := &pgx.Batch{}
	for _, e := range entries {
		b.Queue(upsertProductSQL,
			e.ID, e.Name, nullIfEmpty(e.Description), e.Price, e.Currency.String(),
			nullIfEmpty(e.Category), e.Available,
		)
	}
	if err := r.pool.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upserting %d products: %w", len(entries), err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p   product.Product
		cur string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &cur, &p.Available); err != nil {
		return p, err
	}
	c, err := currency.Parse(cur)
	if err != nil {
		return p, fmt.Errorf("product %q: %w", p.ID, err)
	}
	p.Currency = c
	return p, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
