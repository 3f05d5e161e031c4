package repository

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrReferenced  = errors.New("still referenced")
	ErrOrderClosed = errors.New("order closed")
	ErrNothingToDo = errors.New("nothing to do")
)
