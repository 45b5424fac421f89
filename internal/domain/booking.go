package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, true
	default:
		return "", false
	}
}

// Terminal reports whether no further status or content mutation is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// SelfServiceEditable reports whether the owning user may still reschedule or edit.
func (s Status) SelfServiceEditable() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid"`
	UserID           uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	BookingStart     time.Time  `bun:"booking_start,notnull"`
	Status           Status     `bun:"status,notnull"`
	Notes            string     `bun:"notes,notnull"`
	HandledByAdminID *uuid.UUID `bun:"handled_by_admin_id,type:uuid"`
	CreatedAt        time.Time  `bun:"created_at,notnull"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull"`

	Selections []BookingService `bun:"-"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// ServiceIDs returns the selected service ids in selection order.
func (b Booking) ServiceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Selections))
	for _, s := range b.Selections {
		ids = append(ids, s.ServiceID)
	}
	return ids
}

// BookingService is one service selected by a booking. Rows are owned by the booking.
type BookingService struct {
	bun.BaseModel `bun:"table:booking_services,alias:bs"`

	BookingID uuid.UUID `bun:"booking_id,pk,type:uuid"`
	ServiceID uuid.UUID `bun:"service_id,pk,type:uuid"`
	Quantity  int       `bun:"quantity,notnull"`
}

type SelectionDetail struct {
	ServiceID uuid.UUID
	Quantity  int
	Service   Service
}

// BookingDetails is a booking with its customer, handling admin and selected services resolved.
type BookingDetails struct {
	Booking        Booking
	Customer       User
	HandledByAdmin *User
	Selections     []SelectionDetail
	Interval       Interval
}

// Optional marks a field of a partial update. Set distinguishes "omitted" from "cleared".
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}
