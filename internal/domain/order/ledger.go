package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pos-orders/internal/domain/product"
)

// checkMutable rejects content changes on terminal orders.
func (o *Order) checkMutable() error {
	if o.Status.IsTerminal() {
		return invalidState("cannot modify a %s order", o.Status)
	}
	return nil
}

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 10_000

func checkQuantity(qty int) error {
	if qty < 1 {
		return invalid("quantity must be at least 1")
	}
	if qty > MaxQuantity {
		return invalid("quantity must not exceed %d", MaxQuantity)
	}
	return nil
}

// findItem returns the index of the line with the given item ID, or -1.
func (o *Order) findItem(itemID string) int {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (o *Order) findProduct(productID string) int {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem adds qty of p to the order. A line for the same product is merged
// and re-priced from its own snapshot; otherwise a new line snapshots the
// product's current name, price and currency. newID is only called when a
// line is inserted.
func (o *Order) AddItem(p product.Product, qty int, now time.Time, newID func() string) (Item, error) {
	if err := o.checkMutable(); err != nil {
		return Item{}, err
	}
	if err := checkQuantity(qty); err != nil {
		return Item{}, err
	}
	if !p.Available {
		return Item{}, &ProductUnavailableError{ProductName: p.Name}
	}
	established := o.Currency
	if len(o.Items) == 0 {
		established = 0
	}
	if err := CheckCurrency(established, p.Currency, p.Name); err != nil {
		return Item{}, err
	}

	if i := o.findProduct(p.ID); i >= 0 {
		line := &o.Items[i]
		if err := checkQuantity(line.Quantity + qty); err != nil {
			return Item{}, err
		}
		line.Quantity += qty
		line.TotalPrice = lineTotal(line.UnitPrice, line.Quantity)
		o.touch(now)
		return *line, nil
	}

	line := Item{
		ID:          newID(),
		OrderID:     o.ID,
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.Price,
		Quantity:    qty,
		Currency:    p.Currency,
		TotalPrice:  lineTotal(p.Price, qty),
		CreatedAt:   now,
	}
	o.Items = append(o.Items, line)
	o.Currency = p.Currency
	o.touch(now)
	return line, nil
}

// UpdateItemQuantity sets the quantity of an existing line and re-prices it
// from its snapshotted unit price.
func (o *Order) UpdateItemQuantity(itemID string, qty int, now time.Time) (Item, error) {
	if err := o.checkMutable(); err != nil {
		return Item{}, err
	}
	if err := checkQuantity(qty); err != nil {
		return Item{}, err
	}
	i := o.findItem(itemID)
	if i < 0 {
		return Item{}, notFound("order item not found")
	}
	line := &o.Items[i]
	line.Quantity = qty
	line.TotalPrice = lineTotal(line.UnitPrice, qty)
	o.touch(now)
	return *line, nil
}

// RemoveItem deletes a line. The last remaining line cannot be removed; the
// order has to be deleted instead.
func (o *Order) RemoveItem(itemID string, now time.Time) (Item, error) {
	if err := o.checkMutable(); err != nil {
		return Item{}, err
	}
	i := o.findItem(itemID)
	if i < 0 {
		return Item{}, notFound("order item not found")
	}
	if len(o.Items) == 1 {
		return Item{}, invalid("cannot remove the last item, delete the order instead")
	}
	removed := o.Items[i]
	o.Items = append(o.Items[:i], o.Items[i+1:]...)
	o.touch(now)
	return removed, nil
}

// Recalculate derives Total from the current lines. It never adjusts the
// previous total incrementally.
func (o *Order) Recalculate() {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.TotalPrice)
	}
	o.Total = total
}

func (o *Order) touch(now time.Time) {
	o.Recalculate()
	o.UpdatedAt = now
}

func lineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}
