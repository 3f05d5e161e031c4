package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidDate      = errors.New("invalid date")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrDishUnavailable  = errors.New("dish unavailable")
	ErrOrderClosed      = errors.New("order closed")
	ErrNoActionNeeded   = errors.New("no action needed")
	ErrConflict         = errors.New("conflict")
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRateLimited      = errors.New("rate limited")
)

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

type CapacityExceededError struct {
	TableID   int64
	Capacity  int
	Requested int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("table %d seats %d, requested %d", e.TableID, e.Capacity, e.Requested)
}

func (e CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

type DishUnavailableError struct {
	DishID   int64
	DishName string
}

func (e DishUnavailableError) Error() string {
	return fmt.Sprintf("dish %d (%s) is not available", e.DishID, e.DishName)
}

func (e DishUnavailableError) Unwrap() error { return ErrDishUnavailable }

type OrderClosedError struct {
	OrderID int64
}

func (e OrderClosedError) Error() string {
	return fmt.Sprintf("order %d is closed", e.OrderID)
}

func (e OrderClosedError) Unwrap() error { return ErrOrderClosed }

type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e InvalidInputError) Unwrap() error { return ErrInvalidInput }

type InvalidDateError struct {
	Value string
}

func (e InvalidDateError) Error() string {
	return fmt.Sprintf("cannot parse date %q, use ISO 8601", e.Value)
}

func (e InvalidDateError) Unwrap() error { return ErrInvalidDate }

type ReservationConflictError struct {
	TableID       int64
	ReservationID int64
}

func (e ReservationConflictError) Error() string {
	return fmt.Sprintf("table %d is already booked by reservation %d", e.TableID, e.ReservationID)
}

func (e ReservationConflictError) Unwrap() error { return ErrConflict }

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Unwrap() error { return ErrRateLimited }
