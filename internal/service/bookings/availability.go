package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/store"
)

// CheckAvailability reports whether services can all be booked starting at start.
// excludeBookingID is left out of the scan, so a booking never conflicts with itself.
func (s *Service) CheckAvailability(ctx context.Context, start string, serviceIDs []uuid.UUID, excludeBookingID *uuid.UUID) (avail domain.Availability, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.CheckAvailability")
	defer func() { endSpan(span, err) }()

	at, err := parseStart(start)
	if err != nil {
		return domain.Availability{}, err
	}
	if err := validateServiceIDs(serviceIDs); err != nil {
		return domain.Availability{}, err
	}
	span.SetAttributes(attribute.Int("bookings.service_count", len(serviceIDs)))

	services, err := s.repo.GetServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return domain.Availability{}, err
	}
	return checkAvailability(ctx, s.repo, at, services, excludeBookingID)
}

// checkAvailability runs the overlap scan for already resolved services. r is either the
// repository or an open transaction holding the service locks.
func checkAvailability(ctx context.Context, r store.AvailabilityReader, start time.Time, services []domain.Service, excludeBookingID *uuid.UUID) (domain.Availability, error) {
	candidate := domain.OccupiedInterval(start, services)
	ids := make([]uuid.UUID, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ID)
	}

	existing, err := r.ListConfirmedForServices(ctx, ids, excludeBookingID)
	if err != nil {
		return domain.Availability{}, err
	}

	overlaps := domain.FindOverlaps(candidate, ids, existing)
	if len(overlaps) == 0 {
		return domain.Availability{Available: true, Interval: candidate}, nil
	}

	conflicts, err := resolveConflicts(ctx, r, overlaps)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.Availability{Available: false, Interval: candidate, Conflicts: conflicts}, nil
}

func resolveConflicts(ctx context.Context, r store.Directory, overlaps []domain.Overlap) ([]domain.Conflict, error) {
	userIDs := make([]uuid.UUID, 0, 2*len(overlaps))
	for _, o := range overlaps {
		userIDs = append(userIDs, o.Service.AdminID, o.CustomerID)
	}
	users, err := r.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Conflict, 0, len(overlaps))
	for _, o := range overlaps {
		owner, ok := users[o.Service.AdminID]
		if !ok {
			return nil, fmt.Errorf("owner %s of service %s: %w", o.Service.AdminID, o.Service.ID, store.ErrNotFound)
		}
		customer, ok := users[o.CustomerID]
		if !ok {
			return nil, fmt.Errorf("customer %s of booking %s: %w", o.CustomerID, o.BookingID, store.ErrNotFound)
		}
		out = append(out, domain.Conflict{
			BookingID:    o.BookingID,
			BookingStart: o.Interval.Start,
			BookingEnd:   o.Interval.End,
			Service:      o.Service,
			ServiceOwner: owner,
			Customer:     customer,
		})
	}
	return out, nil
}

// lockedCheck locks services for the rest of the transaction, then scans for conflicts.
func lockedCheck(ctx context.Context, tx store.BookingTx, start time.Time, services []domain.Service, self uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ID)
	}
	if err := tx.LockServices(ctx, ids); err != nil {
		return err
	}

	avail, err := checkAvailability(ctx, tx, start, services, &self)
	if err != nil {
		return err
	}
	if !avail.Available {
		return &ConflictError{Conflicts: avail.Conflicts}
	}
	return nil
}

func parseStart(s string) (time.Time, error) {
	t, err := domain.ParseInstant(s)
	if err != nil {
		return time.Time{}, validationError("booking_start: " + err.Error())
	}
	return t, nil
}

func validateServiceIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return validationError("at least one service is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return validationError("service_id is required")
		}
		if _, ok := seen[id]; ok {
			return validationError("duplicate service_id " + id.String())
		}
		seen[id] = struct{}{}
	}
	return nil
}
