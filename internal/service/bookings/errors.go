package bookings

import (
	"errors"
	"fmt"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ForbiddenError is returned when the actor may not perform the operation on the booking
// in its current state.
type ForbiddenError struct {
	msg   string
	cause error
}

func (e *ForbiddenError) Error() string {
	return e.msg
}

func (e *ForbiddenError) Unwrap() error {
	return e.cause
}

func forbidden(msg string) error {
	return &ForbiddenError{msg: msg}
}

// BlockedByConflict rejects a self-service write that would overlap confirmed bookings.
// The conflicts stay reachable through errors.As.
func BlockedByConflict(err error) error {
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		return err
	}
	return &ForbiddenError{msg: cErr.Error(), cause: cErr}
}

// ConflictError rejects a write whose time slot overlaps confirmed bookings.
type ConflictError struct {
	Conflicts []domain.Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("time slot conflicts with booking %s for service %q", c.BookingID, c.Service.Name)
	}
	return fmt.Sprintf("time slot conflicts with %d existing booking services", len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return store.ErrConflict
}
