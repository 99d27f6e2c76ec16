// Package handler exposes the order service over HTTP under /api.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/pos-orders/internal/domain/order"
)

// ActorHeader carries the opaque identity of the caller. It is set by the
// authentication layer in front of this service.
const ActorHeader = "X-Actor-ID"

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxBodyBytes limits request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Handler serves the order API, delegating business logic to the order
// service.
type Handler struct {
	orders       *order.Service
	mutations    metric.Int64Counter
	maxBodyBytes int64
}

// NewHandler constructs a Handler. Mutation metrics are recorded on meter.
func NewHandler(cfg HandlerConfig, orders *order.Service, meter metric.Meter) (*Handler, error) {
	mutations, err := meter.Int64Counter("pos.order.mutations",
		metric.WithDescription("Order mutations by operation and outcome"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create mutations counter")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		orders:       orders,
		mutations:    mutations,
		maxBodyBytes: cfg.MaxBodyBytes,
	}, nil
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/statuses", h.orderStatuses)
	mux.HandleFunc("GET /api/orders/{ref}", h.getOrder)
	mux.HandleFunc("PUT /api/orders/{id}", h.updateOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", h.updateOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.updateOrderStatus)
	mux.HandleFunc("DELETE /api/orders/{id}", h.deleteOrder)
	mux.HandleFunc("POST /api/orders/{id}/items", h.addOrderItem)
	mux.HandleFunc("PATCH /api/orders/{id}/items/{itemId}", h.updateOrderItem)
	mux.HandleFunc("DELETE /api/orders/{id}/items/{itemId}", h.removeOrderItem)
	mux.HandleFunc("GET /api/currencies", h.currencies)
	mux.HandleFunc("/api/", h.notFound)
}

// record counts a mutation and tags the active span with the order id.
func (h *Handler) record(ctx context.Context, op, orderID string, err error) {
	if orderID != "" {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("pos.order.id", orderID))
	}
	h.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome(err)),
	))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, order.ErrNotFound):
		return "not_found"
	case errors.Is(err, order.ErrValidation):
		return "validation"
	case errors.Is(err, order.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, order.ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}

func actor(r *http.Request) string {
	return r.Header.Get(ActorHeader)
}
