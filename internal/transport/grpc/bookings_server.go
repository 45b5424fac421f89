package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	servicebookv1 "servicebook/backend/internal/api/servicebook/v1"
	"servicebook/backend/internal/auth"
	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/service/bookings"
	"servicebook/backend/internal/store"
)

type BookingsServer struct {
	servicebookv1.UnimplementedBookingsServiceServer

	svc bookingsService
	log *slog.Logger
}

type bookingsService interface {
	Create(ctx context.Context, actor domain.Actor, in bookings.CreateInput) (domain.BookingDetails, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.BookingDetails, error)
	List(ctx context.Context, actor domain.Actor, in bookings.ListInput) (bookings.Page, error)
	ListByDate(ctx context.Context, actor domain.Actor, date string) ([]domain.BookingDetails, error)
	Stats(ctx context.Context, actor domain.Actor) (bookings.Stats, error)
	SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, in bookings.SetStatusInput) (domain.BookingDetails, error)
	AdminUpdate(ctx context.Context, actor domain.Actor, id uuid.UUID, in bookings.AdminUpdateInput) (domain.BookingDetails, error)
	Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, in bookings.RescheduleInput) (domain.BookingDetails, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.BookingDetails, error)
	CheckAvailability(ctx context.Context, start string, serviceIDs []uuid.UUID, excludeBookingID *uuid.UUID) (domain.Availability, error)
	ListSelections(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) ([]domain.SelectionDetail, error)
	AddSelection(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, in bookings.SelectionInput) (domain.BookingDetails, error)
	UpdateSelectionQuantity(ctx context.Context, actor domain.Actor, bookingID, serviceID uuid.UUID, quantity int) (domain.BookingDetails, error)
	RemoveSelection(ctx context.Context, actor domain.Actor, bookingID, serviceID uuid.UUID) (domain.BookingDetails, error)
}

func NewBookingsServer(svc bookingsService, log *slog.Logger) *BookingsServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.bookings")),
	}
}

func (s *BookingsServer) CreateBooking(ctx context.Context, req *servicebookv1.CreateBookingRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateBooking"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	sel, err := parseSelections(req.Services)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_service_id"), slog.String("user_id", actor.ID.String()))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	d, err := s.svc.Create(ctx, actor, bookings.CreateInput{
		Start:    req.BookingStart,
		Services: sel,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, s.statusError(log, "booking create failed", err, slog.String("user_id", actor.ID.String()))
	}

	log.Info(
		"booking created",
		slog.String("booking_id", d.Booking.ID.String()),
		slog.String("user_id", actor.ID.String()),
		slog.Time("booking_start", d.Booking.BookingStart),
		slog.Int("services", len(d.Selections)),
	)
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) GetBooking(ctx context.Context, req *servicebookv1.GetBookingRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "GetBooking"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	d, err := s.svc.Get(ctx, actor, id)
	if err != nil {
		return nil, s.statusError(log, "booking get failed", err, slog.String("booking_id", id.String()))
	}
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) ListBookings(ctx context.Context, req *servicebookv1.ListBookingsRequest) (*servicebookv1.ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListBookings"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &servicebookv1.ListBookingsRequest{}
	}

	in := bookings.ListInput{
		Status:      req.Status,
		ServiceName: req.ServiceName,
		From:        req.StartDate,
		To:          req.EndDate,
		Page:        req.Page,
		Limit:       req.Limit,
	}
	if req.UserID != "" {
		uid, err := uuid.Parse(req.UserID)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
			return nil, status.Error(codes.InvalidArgument, "user_id must be a UUID")
		}
		in.UserID = &uid
	}

	page, err := s.svc.List(ctx, actor, in)
	if err != nil {
		return nil, s.statusError(log, "bookings list failed", err, slog.String("user_id", actor.ID.String()))
	}

	out := make([]*servicebookv1.Booking, 0, len(page.Bookings))
	for _, d := range page.Bookings {
		out = append(out, toBooking(d))
	}

	log.Debug(
		"bookings listed",
		slog.String("user_id", actor.ID.String()),
		slog.Int("count", len(out)),
		slog.Int("total", page.Total),
	)
	return &servicebookv1.ListBookingsResponse{
		Bookings:   out,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}, nil
}

func (s *BookingsServer) ListBookingsByDate(ctx context.Context, req *servicebookv1.ListBookingsByDateRequest) (*servicebookv1.ListBookingsByDateResponse, error) {
	log := s.log.With(slog.String("rpc", "ListBookingsByDate"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	ds, err := s.svc.ListByDate(ctx, actor, req.Date)
	if err != nil {
		return nil, s.statusError(log, "bookings by date failed", err, slog.String("date", req.Date))
	}

	out := make([]*servicebookv1.Booking, 0, len(ds))
	for _, d := range ds {
		out = append(out, toBooking(d))
	}
	return &servicebookv1.ListBookingsByDateResponse{Bookings: out}, nil
}

func (s *BookingsServer) BookingStats(ctx context.Context, _ *servicebookv1.BookingStatsRequest) (*servicebookv1.BookingStatsResponse, error) {
	log := s.log.With(slog.String("rpc", "BookingStats"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}

	st, err := s.svc.Stats(ctx, actor)
	if err != nil {
		return nil, s.statusError(log, "booking stats failed", err)
	}

	by := make(map[string]int, len(st.ByStatus))
	for k, v := range st.ByStatus {
		by[string(k)] = v
	}
	return &servicebookv1.BookingStatsResponse{Total: st.Total, ByStatus: by}, nil
}

func (s *BookingsServer) SetBookingStatus(ctx context.Context, req *servicebookv1.SetBookingStatusRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "SetBookingStatus"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	d, err := s.svc.SetStatus(ctx, actor, id, bookings.SetStatusInput{
		Status: req.Status,
		Notes:  optional(req.Notes),
	})
	if err != nil {
		return nil, s.statusError(log, "booking status update failed", err, slog.String("booking_id", id.String()))
	}

	log.Info(
		"booking status changed",
		slog.String("booking_id", id.String()),
		slog.String("status", string(d.Booking.Status)),
		slog.String("admin_id", actor.ID.String()),
	)
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) UpdateBooking(ctx context.Context, req *servicebookv1.UpdateBookingRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateBooking"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	d, err := s.svc.AdminUpdate(ctx, actor, id, bookings.AdminUpdateInput{
		Start:  optional(req.BookingStart),
		Status: optional(req.Status),
		Notes:  optional(req.Notes),
	})
	if err != nil {
		return nil, s.statusError(log, "booking update failed", err, slog.String("booking_id", id.String()))
	}

	log.Info("booking updated", slog.String("booking_id", id.String()), slog.String("admin_id", actor.ID.String()))
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) RescheduleBooking(ctx context.Context, req *servicebookv1.RescheduleBookingRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "RescheduleBooking"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	in := bookings.RescheduleInput{
		Start: optional(req.BookingStart),
		Notes: optional(req.Notes),
	}
	if req.Services != nil {
		sel, err := parseSelections(*req.Services)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_service_id"), slog.String("booking_id", id.String()))
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		in.Services = domain.Some(sel)
	}

	d, err := s.svc.Reschedule(ctx, actor, id, in)
	if err != nil {
		return nil, s.statusError(log, "booking reschedule failed", err, slog.String("booking_id", id.String()))
	}

	log.Info(
		"booking rescheduled",
		slog.String("booking_id", id.String()),
		slog.String("user_id", actor.ID.String()),
		slog.Time("booking_start", d.Booking.BookingStart),
	)
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) DeleteBooking(ctx context.Context, req *servicebookv1.DeleteBookingRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "DeleteBooking"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	d, err := s.svc.Delete(ctx, actor, id)
	if err != nil {
		return nil, s.statusError(log, "booking delete failed", err, slog.String("booking_id", id.String()))
	}

	log.Info("booking deleted", slog.String("booking_id", id.String()), slog.String("user_id", actor.ID.String()))
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) CheckAvailability(ctx context.Context, req *servicebookv1.CheckAvailabilityRequest) (*servicebookv1.CheckAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "CheckAvailability"))

	if _, err := requireActor(ctx, log); err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	ids := make([]uuid.UUID, 0, len(req.ServiceIDs))
	for _, raw := range req.ServiceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
			return nil, status.Error(codes.InvalidArgument, "service_ids must be UUIDs")
		}
		ids = append(ids, id)
	}
	var exclude *uuid.UUID
	if req.ExcludeBookingID != "" {
		id, err := uuid.Parse(req.ExcludeBookingID)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
			return nil, status.Error(codes.InvalidArgument, "exclude_booking_id must be a UUID")
		}
		exclude = &id
	}

	avail, err := s.svc.CheckAvailability(ctx, req.BookingStart, ids, exclude)
	if err != nil {
		return nil, s.statusError(log, "availability check failed", err)
	}

	conflicts := make([]*servicebookv1.Conflict, 0, len(avail.Conflicts))
	for _, c := range avail.Conflicts {
		conflicts = append(conflicts, toConflict(c))
	}

	log.Debug("availability checked", slog.Bool("available", avail.Available), slog.Int("conflicts", len(conflicts)))
	return &servicebookv1.CheckAvailabilityResponse{
		Available:    avail.Available,
		BookingStart: formatTime(avail.Interval.Start),
		BookingEnd:   formatTime(avail.Interval.End),
		Conflicts:    conflicts,
	}, nil
}

func requireActor(ctx context.Context, log *slog.Logger) (domain.Actor, error) {
	actor, ok := auth.ActorFrom(ctx)
	if !ok {
		log.Warn("unauthenticated request")
		return domain.Actor{}, status.Error(codes.Unauthenticated, "authentication required")
	}
	return actor, nil
}

func parseBookingID(log *slog.Logger, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return uuid.Nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}
	return id, nil
}

func parseSelections(in []servicebookv1.Selection) ([]bookings.SelectionInput, error) {
	out := make([]bookings.SelectionInput, 0, len(in))
	for _, sel := range in {
		id, err := uuid.Parse(sel.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("service_id %q must be a UUID", sel.ServiceID)
		}
		out = append(out, bookings.SelectionInput{ServiceID: id, Quantity: sel.Quantity})
	}
	return out, nil
}

func optional[T any](v *T) domain.Optional[T] {
	if v == nil {
		return domain.Optional[T]{}
	}
	return domain.Some(*v)
}

// statusError logs err at a level matching its class and converts it to a gRPC status.
func (s *BookingsServer) statusError(log *slog.Logger, msg string, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *bookings.ValidationError
	var fErr *bookings.ForbiddenError
	var cErr *bookings.ConflictError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.As(err, &cErr):
		// A self-service write blocked by a conflict is forbidden; admin writes that trip
		// the recheck fail their precondition. Both carry the conflicting bookings.
		code := codes.FailedPrecondition
		if errors.As(err, &fErr) {
			code = codes.PermissionDenied
		}
		log.Info("booking conflict", append(args, slog.Int("conflicts", len(cErr.Conflicts)))...)
		return conflictStatus(code, cErr)
	case errors.As(err, &fErr):
		log.Info("request forbidden", args...)
		return status.Error(codes.PermissionDenied, fErr.Error())
	case errors.Is(err, store.ErrNotFound):
		log.Info("not found", args...)
		return status.Error(codes.NotFound, "booking, service or user not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", args...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		log.Error(msg, args...)
		return status.Error(codes.Internal, "internal error")
	}
}

// conflictStatus reports every conflict as a precondition violation so clients can show
// which bookings hold the slot.
func conflictStatus(code codes.Code, cErr *bookings.ConflictError) error {
	st := status.New(code, "The requested time overlaps a confirmed booking. Pick a different slot.")

	pf := &errdetails.PreconditionFailure{}
	for _, c := range cErr.Conflicts {
		desc := fmt.Sprintf("%s is booked from %s to %s", c.Service.Name, formatTime(c.BookingStart), formatTime(c.BookingEnd))
		pf.Violations = append(pf.Violations, &errdetails.PreconditionFailure_Violation{
			Type:        "BOOKING_CONFLICT",
			Subject:     "bookings/" + c.BookingID.String(),
			Description: desc,
		})
	}

	withDetails, err := st.WithDetails(pf)
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toUser(u domain.User) *servicebookv1.User {
	return &servicebookv1.User{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
	}
}

func toService(svc domain.Service) *servicebookv1.Service {
	return &servicebookv1.Service{
		ID:              svc.ID.String(),
		AdminID:         svc.AdminID.String(),
		Name:            svc.Name,
		Description:     svc.Description,
		DurationMinutes: svc.DurationMinutes,
		PriceCents:      svc.PriceCents,
	}
}

func toBooking(d domain.BookingDetails) *servicebookv1.Booking {
	b := d.Booking
	out := &servicebookv1.Booking{
		ID:           b.ID.String(),
		UserID:       b.UserID.String(),
		BookingStart: formatTime(d.Interval.Start),
		BookingEnd:   formatTime(d.Interval.End),
		Status:       string(b.Status),
		Notes:        b.Notes,
		Customer:     toUser(d.Customer),
		Services:     make([]*servicebookv1.BookingService, 0, len(d.Selections)),
		CreatedAt:    formatTime(b.CreatedAt),
		UpdatedAt:    formatTime(b.UpdatedAt),
	}
	if b.HandledByAdminID != nil {
		out.HandledByAdminID = b.HandledByAdminID.String()
	}
	if d.HandledByAdmin != nil {
		out.HandledByAdmin = toUser(*d.HandledByAdmin)
	}
	for _, sel := range d.Selections {
		out.Services = append(out.Services, toSelection(sel))
	}
	return out
}

func toSelection(sel domain.SelectionDetail) *servicebookv1.BookingService {
	return &servicebookv1.BookingService{
		ServiceID: sel.ServiceID.String(),
		Quantity:  sel.Quantity,
		Service:   toService(sel.Service),
	}
}

func toConflict(c domain.Conflict) *servicebookv1.Conflict {
	return &servicebookv1.Conflict{
		BookingID:    c.BookingID.String(),
		BookingStart: formatTime(c.BookingStart),
		BookingEnd:   formatTime(c.BookingEnd),
		Service:      toService(c.Service),
		ServiceOwner: toUser(c.ServiceOwner),
		Customer:     toUser(c.Customer),
	}
}
