package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/events"
	"servicebook/backend/internal/store"
)

// ListSelections returns the services selected by a booking. Admins see any booking,
// customers only their own.
func (s *Service) ListSelections(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (out []domain.SelectionDetail, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.ListSelections")
	defer func() { endSpan(span, err) }()

	d, err := s.Get(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	return d.Selections, nil
}

// AddSelection adds one service to a booking on behalf of an admin.
func (s *Service) AddSelection(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, in SelectionInput) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.AddSelection")
	defer func() { endSpan(span, err) }()

	sel, err := normalizeSelections([]SelectionInput{in})
	if err != nil {
		return domain.BookingDetails{}, err
	}
	return s.editSelections(ctx, actor, bookingID, func(cur []domain.BookingService) ([]domain.BookingService, error) {
		if indexOfService(cur, in.ServiceID) >= 0 {
			return nil, validationError("service " + in.ServiceID.String() + " is already selected, change its quantity instead")
		}
		return append(cur, sel[0]), nil
	})
}

// UpdateSelectionQuantity changes how many of a selected service the booking holds.
// Quantity does not affect the booking's occupied time.
func (s *Service) UpdateSelectionQuantity(ctx context.Context, actor domain.Actor, bookingID, serviceID uuid.UUID, quantity int) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.UpdateSelectionQuantity")
	defer func() { endSpan(span, err) }()

	if serviceID == uuid.Nil {
		return domain.BookingDetails{}, validationError("service_id is required")
	}
	if quantity < 1 {
		return domain.BookingDetails{}, validationError("quantity must be at least 1")
	}
	return s.editSelections(ctx, actor, bookingID, func(cur []domain.BookingService) ([]domain.BookingService, error) {
		i := indexOfService(cur, serviceID)
		if i < 0 {
			return nil, fmt.Errorf("selection %s of booking %s: %w", serviceID, bookingID, store.ErrNotFound)
		}
		cur[i].Quantity = quantity
		return cur, nil
	})
}

// RemoveSelection drops one service from a booking. The last selection cannot be removed;
// delete the booking instead.
func (s *Service) RemoveSelection(ctx context.Context, actor domain.Actor, bookingID, serviceID uuid.UUID) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.RemoveSelection")
	defer func() { endSpan(span, err) }()

	if serviceID == uuid.Nil {
		return domain.BookingDetails{}, validationError("service_id is required")
	}
	return s.editSelections(ctx, actor, bookingID, func(cur []domain.BookingService) ([]domain.BookingService, error) {
		i := indexOfService(cur, serviceID)
		if i < 0 {
			return nil, fmt.Errorf("selection %s of booking %s: %w", serviceID, bookingID, store.ErrNotFound)
		}
		if len(cur) == 1 {
			return nil, validationError("a booking needs at least one service, delete the booking instead")
		}
		return append(cur[:i], cur[i+1:]...), nil
	})
}

// editSelections runs an admin edit of a booking's selections in one transaction. A
// confirmed booking that gains a service is checked for conflicts under the service locks.
func (s *Service) editSelections(ctx context.Context, actor domain.Actor, id uuid.UUID, edit func(cur []domain.BookingService) ([]domain.BookingService, error)) (out domain.BookingDetails, err error) {
	if !actor.IsAdmin() {
		return domain.BookingDetails{}, forbidden("only admins can change booking services")
	}
	if id == uuid.Nil {
		return domain.BookingDetails{}, validationError("booking_id is required")
	}

	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return forbidden(fmt.Sprintf("booking is %s and can no longer be changed", b.Status))
		}

		next, err := edit(append([]domain.BookingService(nil), b.Selections...))
		if err != nil {
			return err
		}
		sortSelections(next)

		services, err := tx.GetServicesByIDs(ctx, selectionIDs(next))
		if err != nil {
			return err
		}
		if b.Status == domain.StatusConfirmed && addsService(b.Selections, next) {
			if err := lockedCheck(ctx, tx, b.BookingStart, services, b.ID); err != nil {
				return err
			}
		}

		b.HandledByAdminID = adminRef(actor)
		updated, err := tx.UpdateBooking(ctx, b)
		if err != nil {
			return err
		}
		if err := tx.ReplaceSelections(ctx, b.ID, next); err != nil {
			return err
		}
		updated.Selections = next

		out, err = loadDetails(ctx, tx, updated)
		return err
	})
	if err != nil {
		return domain.BookingDetails{}, err
	}

	s.publish(ctx, bookingEvent(events.BookingUpdated, actor, out.Booking))
	return out, nil
}

func indexOfService(sel []domain.BookingService, serviceID uuid.UUID) int {
	for i, s := range sel {
		if s.ServiceID == serviceID {
			return i
		}
	}
	return -1
}
