package bookings

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/events"
	"servicebook/backend/internal/store"
)

type Options struct {
	// RecheckOnAdminConfirm makes admin writes that leave a booking confirmed run the
	// locked availability check. Off by default: admins may knowingly double-book.
	RecheckOnAdminConfirm bool
	Publisher             events.Publisher
	Logger                *slog.Logger
	Now                   func() time.Time
}

type Service struct {
	repo                  store.BookingRepository
	publisher             events.Publisher
	log                   *slog.Logger
	tracer                trace.Tracer
	now                   func() time.Time
	recheckOnAdminConfirm bool
}

func NewService(repo store.BookingRepository, opts Options) *Service {
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:                  repo,
		publisher:             opts.Publisher,
		log:                   opts.Logger.With(slog.String("component", "bookings")),
		tracer:                otel.Tracer("servicebook/bookings"),
		now:                   opts.Now,
		recheckOnAdminConfirm: opts.RecheckOnAdminConfirm,
	}
}

type SelectionInput struct {
	ServiceID uuid.UUID
	// Quantity defaults to 1 when zero.
	Quantity int
}

type CreateInput struct {
	Start    string
	Services []SelectionInput
	Notes    string
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Create")
	defer func() { endSpan(span, err) }()

	if actor.ID == uuid.Nil {
		return domain.BookingDetails{}, validationError("user_id is required")
	}
	if actor.Role != domain.RoleUser {
		return domain.BookingDetails{}, forbidden("only customers can create bookings")
	}
	start, err := parseStart(in.Start)
	if err != nil {
		return domain.BookingDetails{}, err
	}
	sel, err := normalizeSelections(in.Services)
	if err != nil {
		return domain.BookingDetails{}, err
	}

	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		if _, err := tx.GetUserByID(ctx, actor.ID); err != nil {
			return fmt.Errorf("user %s: %w", actor.ID, err)
		}
		if _, err := tx.GetServicesByIDs(ctx, selectionIDs(sel)); err != nil {
			return err
		}

		b, err := tx.InsertBooking(ctx, domain.Booking{
			UserID:       actor.ID,
			BookingStart: start,
			Status:       domain.StatusPending,
			Notes:        strings.TrimSpace(in.Notes),
			Selections:   sel,
		})
		if err != nil {
			return err
		}

		out, err = loadDetails(ctx, tx, b)
		return err
	})
	if err != nil {
		return domain.BookingDetails{}, err
	}

	s.publish(ctx, bookingEvent(events.BookingCreated, actor, out.Booking))
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Get")
	defer func() { endSpan(span, err) }()

	if id == uuid.Nil {
		return domain.BookingDetails{}, validationError("booking_id is required")
	}
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.BookingDetails{}, err
	}
	if !actor.IsAdmin() && !actor.Owns(b) {
		return domain.BookingDetails{}, forbidden("you can only view your own bookings")
	}
	return loadDetails(ctx, s.repo, b)
}

type SetStatusInput struct {
	Status string
	// Notes replaces the booking notes only when set.
	Notes domain.Optional[string]
}

func (s *Service) SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, in SetStatusInput) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.SetStatus")
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		return domain.BookingDetails{}, forbidden("only admins can change booking status")
	}
	if id == uuid.Nil {
		return domain.BookingDetails{}, validationError("booking_id is required")
	}
	status, ok := domain.ParseStatus(strings.TrimSpace(in.Status))
	if !ok {
		return domain.BookingDetails{}, validationError("status must be one of pending, confirmed, completed, cancelled")
	}

	var previous domain.Status
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return forbidden(fmt.Sprintf("booking is %s and can no longer be changed", b.Status))
		}
		previous = b.Status

		if s.recheckOnAdminConfirm && status == domain.StatusConfirmed && b.Status != domain.StatusConfirmed {
			services, err := tx.GetServicesByIDs(ctx, b.ServiceIDs())
			if err != nil {
				return err
			}
			if err := lockedCheck(ctx, tx, b.BookingStart, services, b.ID); err != nil {
				return err
			}
		}

		b.Status = status
		if in.Notes.Set {
			b.Notes = in.Notes.Value
		}
		b.HandledByAdminID = adminRef(actor)

		updated, err := tx.UpdateBooking(ctx, b)
		if err != nil {
			return err
		}
		out, err = loadDetails(ctx, tx, updated)
		return err
	})
	if err != nil {
		return domain.BookingDetails{}, err
	}

	ev := bookingEvent(events.BookingStatusChanged, actor, out.Booking)
	ev.PreviousStatus = string(previous)
	s.publish(ctx, ev)
	return out, nil
}

// AdminUpdateInput patches a booking on behalf of an admin. Unset fields are preserved.
type AdminUpdateInput struct {
	Start  domain.Optional[string]
	Notes  domain.Optional[string]
	Status domain.Optional[string]
}

func (s *Service) AdminUpdate(ctx context.Context, actor domain.Actor, id uuid.UUID, in AdminUpdateInput) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.AdminUpdate")
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		return domain.BookingDetails{}, forbidden("only admins can update bookings")
	}
	if id == uuid.Nil {
		return domain.BookingDetails{}, validationError("booking_id is required")
	}

	var newStart time.Time
	if in.Start.Set {
		newStart, err = parseStart(in.Start.Value)
		if err != nil {
			return domain.BookingDetails{}, err
		}
	}
	var newStatus domain.Status
	if in.Status.Set {
		var ok bool
		newStatus, ok = domain.ParseStatus(strings.TrimSpace(in.Status.Value))
		if !ok {
			return domain.BookingDetails{}, validationError("status must be one of pending, confirmed, completed, cancelled")
		}
	}

	var before domain.Booking
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return forbidden(fmt.Sprintf("booking is %s and can no longer be changed", b.Status))
		}
		before = b

		if in.Start.Set {
			b.BookingStart = newStart
		}
		if in.Status.Set {
			b.Status = newStatus
		}
		if in.Notes.Set {
			b.Notes = in.Notes.Value
		}
		b.HandledByAdminID = adminRef(actor)

		moved := !b.BookingStart.Equal(before.BookingStart)
		if s.recheckOnAdminConfirm && b.Status == domain.StatusConfirmed && (moved || before.Status != domain.StatusConfirmed) {
			services, err := tx.GetServicesByIDs(ctx, b.ServiceIDs())
			if err != nil {
				return err
			}
			if err := lockedCheck(ctx, tx, b.BookingStart, services, b.ID); err != nil {
				return err
			}
		}

		updated, err := tx.UpdateBooking(ctx, b)
		if err != nil {
			return err
		}
		out, err = loadDetails(ctx, tx, updated)
		return err
	})
	if err != nil {
		return domain.BookingDetails{}, err
	}

	ev := bookingEvent(events.BookingUpdated, actor, out.Booking)
	ev.PreviousStatus = string(before.Status)
	if !before.BookingStart.Equal(out.Booking.BookingStart) {
		prev := before.BookingStart
		ev.PreviousStart = &prev
	}
	s.publish(ctx, ev)
	return out, nil
}

// RescheduleInput is a self-service edit by the booking's owner. Services, when set,
// replaces every selection of the booking. A confirmed booking is checked for conflicts
// when it moves or gains a service; a conflict is reported as a ForbiddenError that
// wraps the ConflictError.
type RescheduleInput struct {
	Start    domain.Optional[string]
	Services domain.Optional[[]SelectionInput]
	Notes    domain.Optional[string]
}

func (s *Service) Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, in RescheduleInput) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Reschedule")
	defer func() { endSpan(span, err) }()

	if id == uuid.Nil {
		return domain.BookingDetails{}, validationError("booking_id is required")
	}

	var newStart time.Time
	if in.Start.Set {
		newStart, err = parseStart(in.Start.Value)
		if err != nil {
			return domain.BookingDetails{}, err
		}
	}
	var replacement []domain.BookingService
	if in.Services.Set {
		replacement, err = normalizeSelections(in.Services.Value)
		if err != nil {
			return domain.BookingDetails{}, err
		}
	}

	var previousStart time.Time
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(b) {
			return forbidden("you can only modify your own bookings")
		}
		if !b.Status.SelfServiceEditable() {
			return forbidden(fmt.Sprintf("booking is %s and can no longer be changed", b.Status))
		}
		previousStart = b.BookingStart

		sel := b.Selections
		if in.Services.Set {
			sel = replacement
		}
		services, err := tx.GetServicesByIDs(ctx, selectionIDs(sel))
		if err != nil {
			return err
		}

		moved := in.Start.Set && !newStart.Equal(b.BookingStart)
		gains := in.Services.Set && addsService(b.Selections, replacement)
		if b.Status == domain.StatusConfirmed && (moved || gains) {
			start := b.BookingStart
			if moved {
				start = newStart
			}
			if err := lockedCheck(ctx, tx, start, services, b.ID); err != nil {
				return BlockedByConflict(err)
			}
		}

		if in.Notes.Set {
			b.Notes = in.Notes.Value
		}
		if moved {
			b.Notes = appendNote(b.Notes, rescheduleNote(b.BookingStart, newStart))
			b.BookingStart = newStart
		}

		updated, err := tx.UpdateBooking(ctx, b)
		if err != nil {
			return err
		}
		if in.Services.Set {
			if err := tx.ReplaceSelections(ctx, b.ID, replacement); err != nil {
				return err
			}
			updated.Selections = replacement
		}

		out, err = loadDetails(ctx, tx, updated)
		return err
	})
	if err != nil {
		return domain.BookingDetails{}, err
	}

	ev := bookingEvent(events.BookingUpdated, actor, out.Booking)
	if !previousStart.Equal(out.Booking.BookingStart) {
		ev.Type = events.BookingRescheduled
		ev.PreviousStart = &previousStart
	}
	s.publish(ctx, ev)
	return out, nil
}

// Delete removes the booking and its selections. It returns the booking as it was before deletion.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) (out domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Delete")
	defer func() { endSpan(span, err) }()

	if id == uuid.Nil {
		return domain.BookingDetails{}, validationError("booking_id is required")
	}

	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !actor.Owns(b) {
			return forbidden("you can only delete your own bookings")
		}
		out, err = loadDetails(ctx, tx, b)
		if err != nil {
			return err
		}
		return tx.DeleteBooking(ctx, b.ID)
	})
	if err != nil {
		return domain.BookingDetails{}, err
	}

	s.publish(ctx, bookingEvent(events.BookingDeleted, actor, out.Booking))
	return out, nil
}

func (s *Service) publish(ctx context.Context, ev events.BookingEvent) {
	ev.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("publish booking event failed",
			slog.String("event", ev.Type),
			slog.String("booking_id", ev.BookingID.String()),
			slog.Any("err", err),
		)
	}
}

func bookingEvent(typ string, actor domain.Actor, b domain.Booking) events.BookingEvent {
	ids := make([]string, 0, len(b.Selections))
	for _, id := range b.ServiceIDs() {
		ids = append(ids, id.String())
	}
	return events.BookingEvent{
		Type:         typ,
		BookingID:    b.ID,
		UserID:       b.UserID,
		ActorID:      actor.ID,
		Status:       string(b.Status),
		BookingStart: b.BookingStart,
		ServiceIDs:   ids,
	}
}

// normalizeSelections validates requested selections and orders them by service id.
func normalizeSelections(in []SelectionInput) ([]domain.BookingService, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		ids = append(ids, s.ServiceID)
	}
	if err := validateServiceIDs(ids); err != nil {
		return nil, err
	}

	out := make([]domain.BookingService, 0, len(in))
	for _, s := range in {
		qty := s.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 1 {
			return nil, validationError("quantity must be at least 1")
		}
		out = append(out, domain.BookingService{ServiceID: s.ServiceID, Quantity: qty})
	}
	sortSelections(out)
	return out, nil
}

func sortSelections(sel []domain.BookingService) {
	sort.Slice(sel, func(i, j int) bool {
		return bytes.Compare(sel[i].ServiceID[:], sel[j].ServiceID[:]) < 0
	})
}

func selectionIDs(sel []domain.BookingService) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(sel))
	for _, s := range sel {
		ids = append(ids, s.ServiceID)
	}
	return ids
}

// addsService reports whether next selects a service that current does not. Only then can
// the occupied time grow or reach a new service's calendar.
func addsService(current, next []domain.BookingService) bool {
	have := make(map[uuid.UUID]struct{}, len(current))
	for _, s := range current {
		have[s.ServiceID] = struct{}{}
	}
	for _, s := range next {
		if _, ok := have[s.ServiceID]; !ok {
			return true
		}
	}
	return false
}

func rescheduleNote(from, to time.Time) string {
	return fmt.Sprintf("Rescheduled from %s to %s", from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

func appendNote(notes, line string) string {
	if strings.TrimSpace(notes) == "" {
		return line
	}
	return notes + "\n" + line
}

func adminRef(actor domain.Actor) *uuid.UUID {
	id := actor.ID
	return &id
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
