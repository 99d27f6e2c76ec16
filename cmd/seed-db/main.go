package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-orders/db"
	"github.com/xenking/pos-orders/internal/repository"
)

func main() {
	var (
		databaseURL string
		files       []string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Func("products-file", "products JSON file, optionally .gz; repeatable (default: built-in catalog)", func(v string) error {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				files = append(files, f)
			}
		}
		return nil
	})
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	slog.Info("reading catalog", slog.Int("files", len(files)))

	entries, err := loadCatalogs(ctx, files, db.SeedProducts)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	if len(entries) == 0 {
		slog.Info("no products to seed")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL, repository.PoolConfig{MaxConns: 2})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("upserting products", slog.Int("count", len(entries)))

	if err := repository.NewProductRepository(pool).UpsertProducts(ctx, entries); err != nil {
		return errors.Wrap(err, "seed products")
	}
	for _, e := range entries {
		slog.Info("upserted product",
			slog.String("id", e.ID),
			slog.String("name", e.Name),
			slog.String("price", e.Price.StringFixed(2)+" "+e.Currency.String()),
		)
	}

	return nil
}
