package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-orders/internal/domain/order"
)

// envelope is the body of every API response:
// {success, message?, data?, count?, error?}.
type envelope struct {
	Success bool
	Message string
	Error   string
	// Count is written when non-nil.
	Count *int
	// Data writes the value of the data field when non-nil.
	Data func(e *jx.Encoder)
	// Extra writes additional top-level fields.
	Extra func(e *jx.Encoder)
}

func (env envelope) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(env.Success)
	if env.Message != "" {
		e.FieldStart("message")
		e.Str(env.Message)
	}
	if env.Error != "" {
		e.FieldStart("error")
		e.Str(env.Error)
	}
	if env.Count != nil {
		e.FieldStart("count")
		e.Int(*env.Count)
	}
	if env.Extra != nil {
		env.Extra(e)
	}
	if env.Data != nil {
		e.FieldStart("data")
		env.Data(e)
	}
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	env.encode(e)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeData(w http.ResponseWriter, status int, message string, data func(e *jx.Encoder)) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrValidation),
		errors.Is(err, order.ErrInvalidState),
		errors.Is(err, order.ErrPersistence):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the error envelope. Kinded errors expose their
// message; anything else is logged and reported generically.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		zctx.From(ctx).Error("Request failed", zap.Error(err))
		msg = "Internal server error"
	case errors.Is(err, order.ErrPersistence):
		zctx.From(ctx).Warn("Persistence error", zap.Error(err))
	}
	writeJSON(w, status, envelope{Error: msg})
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, envelope{Error: "Endpoint not found"})
}
