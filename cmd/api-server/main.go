// Command api-server runs the POS order API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/pos-orders/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "config")
		}
		lg.Info("Configuration loaded",
			zap.String("addr", cfg.Addr),
			zap.Int32("db.max_conns", cfg.DB.MaxConns),
			zap.Int("orders.default_list_limit", cfg.Orders.DefaultListLimit),
			zap.Int("orders.max_list_limit", cfg.Orders.MaxListLimit),
			zap.Strings("cors.origins", cfg.CORS.Origins),
		)
		return appkg.Run(ctx, lg, m, cfg)
	})
}
