package domain

import (
	"github.com/shopspring/decimal"
)

// NormalizeQuantity applies the default of one portion to an omitted quantity.
func NormalizeQuantity(q int) int {
	if q == 0 {
		return 1
	}
	return q
}

// PriceLines turns requested items into line items at the current dish prices.
// Items whose dish is missing or unavailable, or whose quantity is not positive,
// are skipped without error; the second return value lists their positions.
func PriceLines(items []ItemRequest, dishes map[int64]Dish) ([]LineItem, []int) {
	var lines []LineItem
	var skipped []int

	for i, it := range items {
		qty := NormalizeQuantity(it.Quantity)
		d, ok := dishes[it.DishID]
		if it.DishID == 0 || !ok || !d.IsAvailable || qty < 1 {
			skipped = append(skipped, i)
			continue
		}

		lines = append(lines, LineItem{
			DishID:    d.ID,
			DishName:  d.Name,
			Quantity:  qty,
			UnitPrice: d.Price,
		})
	}

	return lines, skipped
}

// SumLines is the authoritative order total for a set of line items.
func SumLines(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range lines {
		total = total.Add(li.Subtotal())
	}
	return total.Round(2)
}

func (o *Order) IsOpen() bool {
	return o.Status == OrderOpen
}

// EnsureOpen rejects mutations of a closed order.
func (o *Order) EnsureOpen() error {
	if !o.IsOpen() {
		return OrderClosedError{OrderID: o.ID}
	}
	return nil
}

// Append adds a line item to an open order and moves the total with it.
func (o *Order) Append(li LineItem) error {
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	if li.Quantity < 1 {
		return InvalidInputError{Field: "quantity", Reason: "must be at least 1"}
	}

	li.OrderID = o.ID
	o.Items = append(o.Items, li)
	o.TotalAmount = MoneyOf(o.TotalAmount.Add(li.Subtotal()).Round(2))

	return nil
}

// Consistent reports whether the stored total matches the line items.
func (o *Order) Consistent() bool {
	return o.TotalAmount.Equal(SumLines(o.Items))
}

// PendingItems returns the line items the kitchen has not finished.
func (o *Order) PendingItems() []LineItem {
	var out []LineItem
	for _, li := range o.Items {
		if !li.IsReady {
			out = append(out, li)
		}
	}
	return out
}

// NewReceipt snapshots an order with its line items for rendering.
func NewReceipt(o Order, hallName string) Receipt {
	r := Receipt{
		OrderID:      o.ID,
		Status:       o.Status,
		TableID:      o.TableID,
		HallName:     hallName,
		EmployeeID:   o.EmployeeID,
		EmployeeName: o.EmployeeName,
		OpenedAt:     o.OpenedAt,
		ClosedAt:     o.ClosedAt,
		Lines:        make([]ReceiptLine, 0, len(o.Items)),
		TotalAmount:  o.TotalAmount,
	}

	for _, li := range o.Items {
		r.Lines = append(r.Lines, ReceiptLine{
			DishName:  li.DishName,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			Subtotal:  MoneyOf(li.Subtotal().Round(2)),
		})
	}

	return r
}
