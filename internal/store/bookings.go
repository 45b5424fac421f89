package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"servicebook/backend/internal/domain"
)

// Directory is the read-only view of services and users owned outside the booking core.
type Directory interface {
	// GetServicesByIDs resolves every id or fails with ErrNotFound. Order follows ids.
	GetServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Service, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	// GetUsersByIDs returns the users that exist; missing ids are simply absent.
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error)
}

// AvailabilityReader is everything the availability checker reads. It is served both
// by the repository and by an open transaction.
type AvailabilityReader interface {
	Directory
	// ListConfirmedForServices returns confirmed bookings selecting any of serviceIDs,
	// ordered by booking_start then id, each with its services in selection order.
	ListConfirmedForServices(ctx context.Context, serviceIDs []uuid.UUID, excludeBookingID *uuid.UUID) ([]domain.ScheduledBooking, error)
}

type BookingTx interface {
	AvailabilityReader

	// LockServices takes transaction-scoped advisory locks for the given services.
	LockServices(ctx context.Context, serviceIDs []uuid.UUID) error
	// GetBookingForUpdate reads a booking and its selections, locking the booking row.
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	// ReplaceSelections deletes every selection of the booking and inserts sel.
	ReplaceSelections(ctx context.Context, bookingID uuid.UUID, sel []domain.BookingService) error
	// DeleteBooking deletes the booking's selections, then the booking.
	DeleteBooking(ctx context.Context, id uuid.UUID) error
}

type BookingFilter struct {
	UserID      *uuid.UUID
	Status      *domain.Status
	ServiceName string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type BookingRepository interface {
	AvailabilityReader

	// InTransaction commits iff fn returns nil. The originating error is returned on rollback.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx BookingTx) error) error

	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]domain.Booking, int, error)
	ListBookingsStartingBetween(ctx context.Context, userID *uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}
