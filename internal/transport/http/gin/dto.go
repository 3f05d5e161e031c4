package httpgin

import (
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type HallRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateTableRequest struct {
	HallID   int64 `json:"hall_id" binding:"required"`
	Capacity int   `json:"capacity" binding:"required"`
}

type UpdateTableRequest struct {
	HallID   *int64 `json:"hall_id"`
	Capacity *int   `json:"capacity"`
}

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateDishRequest struct {
	CategoryID  int64           `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Composition string          `json:"composition"`
	WeightGrams int             `json:"weight_grams"`
	Price       decimal.Decimal `json:"price" swaggertype:"string" example:"450.00"`
	IsAvailable *bool           `json:"is_available"`
}

type UpdateDishRequest struct {
	CategoryID  *int64           `json:"category_id"`
	Name        *string          `json:"name"`
	Composition *string          `json:"composition"`
	WeightGrams *int             `json:"weight_grams"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string"`
	IsAvailable *bool            `json:"is_available"`
}

// DishAvailabilityRequest sets availability; an absent value toggles it.
type DishAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

type DishAvailabilityResponse struct {
	DishID      int64 `json:"dish_id"`
	IsAvailable bool  `json:"is_available"`
}

type CreateReservationRequest struct {
	TableID     int64  `json:"table_id" binding:"required"`
	GuestName   string `json:"guest_name" binding:"required"`
	GuestPhone  string `json:"guest_phone" binding:"required"`
	PeopleCount int    `json:"people_count" binding:"required"`
	DateTime    string `json:"datetime" binding:"required" example:"2025-03-08T19:30:00"`
	StatusID    int64  `json:"status_id"`
}

type UpdateReservationRequest struct {
	TableID     *int64  `json:"table_id"`
	GuestName   *string `json:"guest_name"`
	GuestPhone  *string `json:"guest_phone"`
	PeopleCount *int    `json:"people_count"`
	DateTime    *string `json:"datetime"`
	StatusID    *int64  `json:"status_id"`
}

type CreateOrderRequest struct {
	TableID int64                `json:"table_id" binding:"required"`
	Items   []domain.ItemRequest `json:"items"`
}

type AddItemRequest struct {
	DishID   int64 `json:"dish_id" binding:"required"`
	Quantity int   `json:"quantity"`
}

type MarkAllReadyResponse struct {
	OrderID     int64 `json:"order_id"`
	MarkedCount int64 `json:"marked_count"`
}

type CreateEmployeeRequest struct {
	FullName string      `json:"full_name" binding:"required"`
	Login    string      `json:"login" binding:"required"`
	Password string      `json:"password" binding:"required"`
	Position domain.Role `json:"position" binding:"required"`
	Phone    string      `json:"phone"`
}

type UpdateEmployeeRequest struct {
	FullName *string      `json:"full_name"`
	Phone    *string      `json:"phone"`
	Position *domain.Role `json:"position"`
	Password *string      `json:"password"`
}

type MeResponse struct {
	Employee     domain.Employee `json:"employee"`
	Capabilities []string        `json:"capabilities"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
