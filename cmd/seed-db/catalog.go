package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-orders/internal/domain/currency"
	"github.com/xenking/pos-orders/internal/domain/product"
	"github.com/xenking/pos-orders/internal/repository"
)

type productJSON struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Price       decimal.Decimal    `json:"price"`
	Currency    *currency.Currency `json:"currency"`
	Category    string             `json:"category"`
	Available   *bool              `json:"available"`
}

func (p productJSON) entry() (repository.CatalogEntry, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return repository.CatalogEntry{}, errors.New("product id is required")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return repository.CatalogEntry{}, errors.Errorf("product %s: name is required", id)
	}
	if p.Price.IsNegative() {
		return repository.CatalogEntry{}, errors.Errorf("product %s: price must not be negative", id)
	}
	cur := currency.Default
	if p.Currency != nil {
		cur = *p.Currency
	}
	available := true
	if p.Available != nil {
		available = *p.Available
	}
	return repository.CatalogEntry{
		Product: product.Product{
			ID:        id,
			Name:      name,
			Price:     p.Price.Round(2),
			Currency:  cur,
			Available: available,
		},
		Description: strings.TrimSpace(p.Description),
		Category:    strings.TrimSpace(p.Category),
	}, nil
}

// parseCatalog decodes a JSON array of products.
func parseCatalog(r io.Reader) ([]repository.CatalogEntry, error) {
	var raw []productJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	entries := make([]repository.CatalogEntry, 0, len(raw))
	for _, p := range raw {
		e, err := p.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// readCatalogFile parses one catalog file. Files ending in .gz are
// decompressed first.
func readCatalogFile(path string) ([]repository.CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return parseCatalog(r)
}

// loadCatalogs reads every file concurrently and merges the results in
// argument order. A product id appearing in several files takes the last
// definition. With no files, the embedded catalog is used.
func loadCatalogs(ctx context.Context, files []string, embedded []byte) ([]repository.CatalogEntry, error) {
	if len(files) == 0 {
		return parseCatalog(bytes.NewReader(embedded))
	}

	results := make([][]repository.CatalogEntry, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := readCatalogFile(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeCatalogs(results), nil
}

func mergeCatalogs(sets [][]repository.CatalogEntry) []repository.CatalogEntry {
	index := make(map[string]int)
	var merged []repository.CatalogEntry
	for _, set := range sets {
		for _, e := range set {
			if i, ok := index[e.ID]; ok {
				merged[i] = e
				continue
			}
			index[e.ID] = len(merged)
			merged = append(merged, e)
		}
	}
	return merged
}
