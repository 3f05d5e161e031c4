package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderOpen   OrderStatus = "open"
	OrderClosed OrderStatus = "closed"
)

type Hall struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	TableCount int     `json:"table_count"`
	Tables     []Table `json:"tables,omitempty"`
}

type Table struct {
	ID       int64  `json:"id"`
	HallID   int64  `json:"hall_id"`
	HallName string `json:"hall_name,omitempty"`
	Capacity int    `json:"capacity"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Dish struct {
	ID           int64  `json:"id"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	Name         string `json:"name"`
	Composition  string `json:"composition,omitempty"`
	WeightGrams  int    `json:"weight_grams,omitempty"`
	Price        Money  `json:"price"`
	IsAvailable  bool   `json:"is_available"`
}

type Reservation struct {
	ID          int64     `json:"id"`
	TableID     int64     `json:"table_id"`
	HallID      int64     `json:"hall_id,omitempty"`
	HallName    string    `json:"hall_name,omitempty"`
	StatusID    int64     `json:"status_id"`
	StatusName  string    `json:"status_name,omitempty"`
	At          time.Time `json:"datetime"`
	GuestName   string    `json:"guest_name"`
	GuestPhone  string    `json:"guest_phone"`
	PeopleCount int       `json:"people_count"`
}

type ReservationStatus struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Position is a staff role as stored, with its row id.
type Position struct {
	ID   int64 `json:"id"`
	Name Role  `json:"name"`
}

type Employee struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"position"`
	Phone        string `json:"phone,omitempty"`
}

type Order struct {
	ID           int64       `json:"id"`
	TableID      int64       `json:"table_id"`
	EmployeeID   int64       `json:"employee_id"`
	EmployeeName string      `json:"employee_name,omitempty"`
	Status       OrderStatus `json:"status"`
	OpenedAt     time.Time   `json:"order_datetime"`
	ClosedAt     *time.Time  `json:"closed_at,omitempty"`
	TotalAmount  Money       `json:"total_amount"`
	Items        []LineItem  `json:"items,omitempty"`
}

// LineItem is a sale row: one dish at the price captured when it was added.
type LineItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	DishID    int64  `json:"dish_id"`
	DishName  string `json:"dish_name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
	IsReady   bool   `json:"is_ready"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type OrderSummary struct {
	ID            int64       `json:"id"`
	TableID       int64       `json:"table_id"`
	EmployeeID    int64       `json:"employee_id"`
	EmployeeName  string      `json:"employee_name,omitempty"`
	Status        OrderStatus `json:"status"`
	OpenedAt      time.Time   `json:"order_datetime"`
	TotalAmount   Money       `json:"total_amount"`
	ItemCount     int         `json:"item_count"`
	DishesPreview string      `json:"dishes_preview"`
}

// ItemRequest is a requested dish/quantity pair before it is priced.
type ItemRequest struct {
	DishID   int64 `json:"dish_id"`
	Quantity int   `json:"quantity"`
}

type AddItemResult struct {
	OrderID     int64  `json:"order_id"`
	LineItemID  int64  `json:"line_item_id"`
	DishName    string `json:"dish_name"`
	Quantity    int    `json:"quantity"`
	AddedAmount Money  `json:"added_amount"`
	TotalAmount Money  `json:"total_amount"`
}

// KitchenItem is a line item joined with what the cook needs to see.
type KitchenItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	DishID      int64  `json:"dish_id"`
	DishName    string `json:"dish_name"`
	Composition string `json:"composition,omitempty"`
	WeightGrams int    `json:"weight_grams,omitempty"`
	Quantity    int    `json:"quantity"`
	IsReady     bool   `json:"is_ready"`
	TableID     int64  `json:"table_number"`
}

type ReceiptLine struct {
	DishName  string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"price"`
	Subtotal  Money  `json:"subtotal"`
}

// Receipt is the snapshot handed to document renderers.
type Receipt struct {
	OrderID      int64         `json:"order_id"`
	Status       OrderStatus   `json:"status"`
	TableID      int64         `json:"table_id"`
	HallName     string        `json:"hall_name"`
	EmployeeID   int64         `json:"employee_id"`
	EmployeeName string        `json:"employee_name"`
	OpenedAt     time.Time     `json:"order_datetime"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
	Lines        []ReceiptLine `json:"items"`
	TotalAmount  Money         `json:"total_amount"`
}
