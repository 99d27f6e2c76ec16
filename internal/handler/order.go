package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pos-orders/internal/domain/order"
)

func orderData(o *order.Order) func(e *jx.Encoder) {
	return func(e *jx.Encoder) { encodeOrder(e, o, true) }
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := order.CreateRequest{Actor: actor(r)}
	err := h.decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_name":
			req.CustomerName, err = str(d)
		case "customer_email":
			req.CustomerEmail, err = str(d)
		case "customer_phone":
			req.CustomerPhone, err = str(d)
		case "notes":
			req.Notes, err = str(d)
		case "items":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			err = d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItemRequest(d)
				req.Items = append(req.Items, item)
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		h.record(ctx, "create", "", err)
		writeError(ctx, w, err)
		return
	}

	o, err := h.orders.Create(ctx, req)
	if err != nil {
		h.record(ctx, "create", "", err)
		writeError(ctx, w, err)
		return
	}
	h.record(ctx, "create", o.ID, nil)
	writeData(w, http.StatusCreated, fmt.Sprintf("Order #%d created successfully!", o.Number), orderData(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	orders, err := h.orders.List(ctx, order.ListQuery{
		Status:       q.Get("status"),
		CustomerName: q.Get("customer_name"),
		OrderNumber:  q.Get("order_number"),
		Limit:        q.Get("limit"),
		Offset:       q.Get("offset"),
		Sort:         q.Get("sort"),
		Order:        q.Get("order"),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	count := len(orders)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Count:   &count,
		Data: func(e *jx.Encoder) {
			e.ArrStart()
			for i := range orders {
				encodeOrder(e, &orders[i], false)
			}
			e.ArrEnd()
		},
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	o, err := h.orders.Get(ctx, r.PathValue("ref"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, "", orderData(o))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	req := order.UpdateRequest{Actor: actor(r)}
	err := h.decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_name":
			var v string
			v, err = str(d)
			req.CustomerName = order.NewOptString(v)
		case "customer_email":
			req.CustomerEmail, err = nilStr(d, key)
		case "customer_phone":
			req.CustomerPhone, err = nilStr(d, key)
		case "notes":
			req.Notes, err = nilStr(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil {
		var o *order.Order
		if o, err = h.orders.Update(ctx, id, req); err == nil {
			h.record(ctx, "update", id, nil)
			writeData(w, http.StatusOK, "Order updated successfully", orderData(o))
			return
		}
	}
	h.record(ctx, "update", id, err)
	writeError(ctx, w, err)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var status string
	err := h.decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		status, err = str(d)
		return err
	})
	if err == nil {
		var o *order.Order
		if o, err = h.orders.UpdateStatus(ctx, id, status, actor(r)); err == nil {
			h.record(ctx, "update_status", id, nil)
			writeData(w, http.StatusOK, fmt.Sprintf("Order status updated to %q", o.Status), orderData(o))
			return
		}
	}
	h.record(ctx, "update_status", id, err)
	writeError(ctx, w, err)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	o, err := h.orders.Delete(ctx, id)
	h.record(ctx, "delete", id, err)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("Order for %q deleted successfully", o.CustomerName),
	})
}

func (h *Handler) addOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var req order.ItemRequest
	err := h.decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.ProductID, err = str(d)
		case "quantity":
			req.Quantity, err = integer(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil {
		var (
			o    *order.Order
			line order.Item
		)
		if o, line, err = h.orders.AddItem(ctx, id, req, actor(r)); err == nil {
			h.record(ctx, "add_item", id, nil)
			writeData(w, http.StatusOK, fmt.Sprintf("Added %q to order", line.ProductName), orderData(o))
			return
		}
	}
	h.record(ctx, "add_item", id, err)
	writeError(ctx, w, err)
}

func (h *Handler) updateOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var quantity int
	err := h.decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		quantity, err = integer(d)
		return err
	})
	if err == nil {
		var (
			o    *order.Order
			line order.Item
		)
		if o, line, err = h.orders.UpdateItem(ctx, id, r.PathValue("itemId"), quantity, actor(r)); err == nil {
			h.record(ctx, "update_item", id, nil)
			writeData(w, http.StatusOK, fmt.Sprintf("Updated quantity for %q", line.ProductName), orderData(o))
			return
		}
	}
	h.record(ctx, "update_item", id, err)
	writeError(ctx, w, err)
}

func (h *Handler) removeOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	o, removed, err := h.orders.RemoveItem(ctx, id, r.PathValue("itemId"), actor(r))
	h.record(ctx, "remove_item", id, err)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, fmt.Sprintf("Removed %q from order", removed.ProductName), orderData(o))
}
