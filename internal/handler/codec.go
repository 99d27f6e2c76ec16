package handler

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-orders/internal/domain/order"
)

func badRequest(msg string) error {
	return &order.Error{Kind: order.ErrValidation, Message: msg}
}

// decodeObject reads the request body as a JSON object and calls fn for
// every field. An empty body is treated as {}.
func (h *Handler) decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body too large")
		}
		return badRequest("invalid request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return badRequest("request body must be a JSON object")
	}
	if err := d.Obj(fn); err != nil {
		// jx wraps callback errors; report the field error itself.
		var fieldErr *order.Error
		if errors.As(err, &fieldErr) {
			return fieldErr
		}
		return badRequest("invalid JSON body")
	}
	return nil
}

// str reads a string field. Null and non-string values read as "".
func str(d *jx.Decoder) (string, error) {
	if d.Next() != jx.String {
		return "", d.Skip()
	}
	return d.Str()
}

// integer reads a whole-valued number such as 2, 2.0 or 2e0. Fractions and
// non-numbers read as 0, which the service rejects as an invalid quantity.
// Values beyond the int32 range are clamped so they fail the upper bound.
func integer(d *jx.Decoder) (int, error) {
	if d.Next() != jx.Number {
		return 0, d.Skip()
	}
	n, err := d.Num()
	if err != nil {
		return 0, err
	}
	v, err := decimal.NewFromString(string(n))
	if err != nil || !v.IsInteger() {
		return 0, nil
	}
	switch {
	case v.GreaterThan(maxInt):
		return math.MaxInt32, nil
	case v.LessThan(minInt):
		return math.MinInt32, nil
	default:
		return int(v.IntPart()), nil
	}
}

var (
	maxInt = decimal.NewFromInt(math.MaxInt32)
	minInt = decimal.NewFromInt(math.MinInt32)
)

// nilStr reads a field that may be a string or an explicit null.
func nilStr(d *jx.Decoder, field string) (order.OptNilString, error) {
	switch d.Next() {
	case jx.Null:
		if err := d.Null(); err != nil {
			return order.OptNilString{}, err
		}
		return order.NewNullString(), nil
	case jx.String:
		v, err := d.Str()
		return order.NewOptNilString(v), err
	default:
		return order.OptNilString{}, badRequest(field + " must be a string or null")
	}
}

func decodeItemRequest(d *jx.Decoder) (order.ItemRequest, error) {
	var req order.ItemRequest
	if d.Next() != jx.Object {
		return req, d.Skip()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
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
	return req, err
}

func encodeOrder(e *jx.Encoder, o *order.Order, withItems bool) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("order_number")
	e.Int64(o.Number)
	e.FieldStart("customer_name")
	e.Str(o.CustomerName)
	encodeNullable(e, "customer_email", o.CustomerEmail)
	encodeNullable(e, "customer_phone", o.CustomerPhone)
	e.FieldStart("total_amount")
	encodeMoney(e, o.Total)
	e.FieldStart("currency")
	e.Str(o.Currency.String())
	e.FieldStart("status")
	e.Str(o.Status.String())
	encodeNullable(e, "notes", o.Notes)
	encodeNullable(e, "created_by", o.CreatedBy)
	encodeNullable(e, "updated_by", o.UpdatedBy)
	e.FieldStart("created_at")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updated_at")
	encodeTime(e, o.UpdatedAt)
	if withItems {
		e.FieldStart("items")
		e.ArrStart()
		for i := range o.Items {
			encodeItem(e, &o.Items[i])
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encodeItem(e *jx.Encoder, it *order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("order_id")
	e.Str(it.OrderID)
	e.FieldStart("product_id")
	e.Str(it.ProductID)
	e.FieldStart("product_name")
	e.Str(it.ProductName)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("unit_price")
	encodeMoney(e, it.UnitPrice)
	e.FieldStart("currency")
	e.Str(it.Currency.String())
	e.FieldStart("total_price")
	encodeMoney(e, it.TotalPrice)
	e.FieldStart("created_at")
	encodeTime(e, it.CreatedAt)
	e.ObjEnd()
}

func encodeNullable(e *jx.Encoder, field string, v *string) {
	e.FieldStart(field)
	if v == nil {
		e.Null()
		return
	}
	e.Str(*v)
}

// encodeMoney writes an exact two-decimal JSON number.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}
