package broker

import (
	"time"

	"github.com/kirinyoku/resto-go/internal/domain"
)

type ReservationCreated struct {
	ReservationID int64     `json:"reservation_id"`
	TableID       int64     `json:"table_id"`
	At            time.Time `json:"datetime"`
	PeopleCount   int       `json:"people_count"`
	StaffID       int64     `json:"staff_id"`
}

// OrderClosed carries the receipt snapshot taken at close time.
type OrderClosed struct {
	Receipt  domain.Receipt `json:"receipt"`
	ClosedBy int64          `json:"closed_by"`
}
