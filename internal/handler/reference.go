package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pos-orders/internal/domain/currency"
	"github.com/xenking/pos-orders/internal/domain/order"
)

func (h *Handler) orderStatuses(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, "", func(e *jx.Encoder) {
		e.ArrStart()
		for _, st := range order.Statuses() {
			e.ObjStart()
			e.FieldStart("value")
			e.Str(st.String())
			e.FieldStart("label")
			e.Str(st.Label())
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

func (h *Handler) currencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Extra: func(e *jx.Encoder) {
			e.FieldStart("defaultCurrency")
			e.Str(currency.Default.String())
		},
		Data: func(e *jx.Encoder) {
			e.ArrStart()
			for _, c := range currency.All() {
				e.ObjStart()
				e.FieldStart("code")
				e.Str(c.String())
				e.FieldStart("symbol")
				e.Str(c.Symbol())
				e.FieldStart("isDefault")
				e.Bool(c == currency.Default)
				e.ObjEnd()
			}
			e.ArrEnd()
		},
	})
}
