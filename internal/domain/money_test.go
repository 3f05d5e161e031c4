package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Money
		want string
	}{
		{name: "whole", in: money("1210"), want: "1210.00"},
		{name: "one digit", in: money("0.5"), want: "0.50"},
		{name: "rounds half up", in: money("33.335"), want: "33.34"},
		{name: "zero value", in: Money{}, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	var got struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1210.00,"b":"450"}`), &got))

	assert.True(t, got.A.Equal(dec("1210")))
	assert.True(t, got.B.Equal(dec("450")))
}

func TestReceiptJSONAmounts(t *testing.T) {
	o := Order{
		ID:          4,
		Status:      OrderClosed,
		TotalAmount: money("1210"),
		Items: []LineItem{
			{DishName: "Borscht", Quantity: 1, UnitPrice: money("450")},
			{DishName: "Pelmeni", Quantity: 2, UnitPrice: money("380")},
		},
	}

	b, err := json.Marshal(NewReceipt(o, "Main"))
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, `"price":450.00`)
	assert.Contains(t, s, `"subtotal":760.00`)
	assert.Contains(t, s, `"total_amount":1210.00`)
}

func TestDailySummaryJSONAmounts(t *testing.T) {
	b, err := json.Marshal(DailySummary{
		Revenue:       money("4080"),
		AvgOrderValue: money("1360"),
	})
	require.NoError(t, err)

	assert.Contains(t, string(b), `"revenue":4080.00`)
	assert.Contains(t, string(b), `"average_order_value":1360.00`)
}
