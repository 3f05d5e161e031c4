package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func money(s string) Money {
	return MoneyOf(dec(s))
}

func TestPriceLines(t *testing.T) {
	dishes := map[int64]Dish{
		1: {ID: 1, Name: "Borscht", Price: money("450"), IsAvailable: true},
		2: {ID: 2, Name: "Pelmeni", Price: money("380"), IsAvailable: true},
		3: {ID: 3, Name: "Kvass", Price: money("120"), IsAvailable: false},
	}

	tests := []struct {
		name        string
		items       []ItemRequest
		wantTotal   string
		wantLines   int
		wantSkipped []int
	}{
		{
			name:      "two dishes",
			items:     []ItemRequest{{DishID: 1, Quantity: 1}, {DishID: 2, Quantity: 2}},
			wantTotal: "1210.00",
			wantLines: 2,
		},
		{
			name:        "unavailable dish is dropped",
			items:       []ItemRequest{{DishID: 1, Quantity: 1}, {DishID: 3, Quantity: 5}},
			wantTotal:   "450",
			wantLines:   1,
			wantSkipped: []int{1},
		},
		{
			name:        "missing dish and zero id are dropped",
			items:       []ItemRequest{{DishID: 99, Quantity: 1}, {DishID: 0, Quantity: 1}},
			wantTotal:   "0",
			wantSkipped: []int{0, 1},
		},
		{
			name:      "omitted quantity defaults to one",
			items:     []ItemRequest{{DishID: 2}},
			wantTotal: "380",
			wantLines: 1,
		},
		{
			name:        "negative quantity is dropped",
			items:       []ItemRequest{{DishID: 2, Quantity: -1}},
			wantTotal:   "0",
			wantSkipped: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, skipped := PriceLines(tt.items, dishes)
			assert.Len(t, lines, tt.wantLines)
			assert.Equal(t, tt.wantSkipped, skipped)
			assert.True(t, SumLines(lines).Equal(dec(tt.wantTotal)), "total %s", SumLines(lines))
		})
	}
}

func TestSumLinesHasNoFloatDrift(t *testing.T) {
	var lines []LineItem
	for i := 0; i < 1000; i++ {
		lines = append(lines, LineItem{Quantity: 1, UnitPrice: money("0.10")})
	}

	assert.Equal(t, "100.00", SumLines(lines).StringFixed(2))
}

func TestOrderAppend(t *testing.T) {
	o := &Order{ID: 7, Status: OrderOpen, TotalAmount: Money{}}

	require.NoError(t, o.Append(LineItem{DishID: 1, Quantity: 1, UnitPrice: money("450")}))
	require.NoError(t, o.Append(LineItem{DishID: 2, Quantity: 2, UnitPrice: money("380")}))

	assert.True(t, o.TotalAmount.Equal(dec("1210")))
	assert.True(t, o.Consistent())
	assert.Len(t, o.PendingItems(), 2)
	for _, li := range o.Items {
		assert.Equal(t, int64(7), li.OrderID)
	}

	err := o.Append(LineItem{DishID: 1, Quantity: 0, UnitPrice: money("1")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	o.Status = OrderClosed
	err = o.Append(LineItem{DishID: 1, Quantity: 1, UnitPrice: money("450")})
	assert.ErrorIs(t, err, ErrOrderClosed)

	var closed OrderClosedError
	require.True(t, errors.As(err, &closed))
	assert.Equal(t, int64(7), closed.OrderID)
	assert.True(t, o.TotalAmount.Equal(dec("1210")))
}

func TestOrderConsistentDetectsDrift(t *testing.T) {
	o := &Order{
		Status:      OrderOpen,
		TotalAmount: money("100"),
		Items:       []LineItem{{Quantity: 3, UnitPrice: money("30")}},
	}
	assert.False(t, o.Consistent())
}

func TestNewReceipt(t *testing.T) {
	o := Order{
		ID:           3,
		TableID:      5,
		EmployeeID:   2,
		EmployeeName: "Anna",
		Status:       OrderClosed,
		TotalAmount:  money("1210"),
		Items: []LineItem{
			{DishName: "Borscht", Quantity: 1, UnitPrice: money("450")},
			{DishName: "Pelmeni", Quantity: 2, UnitPrice: money("380")},
		},
	}

	r := NewReceipt(o, "Main")

	assert.Equal(t, "Main", r.HallName)
	assert.Equal(t, "Anna", r.EmployeeName)
	require.Len(t, r.Lines, 2)
	assert.Equal(t, "760.00", r.Lines[1].Subtotal.StringFixed(2))
	assert.True(t, r.TotalAmount.Equal(dec("1210")))
}
