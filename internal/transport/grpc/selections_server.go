package grpc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	servicebookv1 "servicebook/backend/internal/api/servicebook/v1"
	"servicebook/backend/internal/service/bookings"
)

func (s *BookingsServer) ListBookingSelections(ctx context.Context, req *servicebookv1.ListBookingSelectionsRequest) (*servicebookv1.ListBookingSelectionsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListBookingSelections"))

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

	sel, err := s.svc.ListSelections(ctx, actor, id)
	if err != nil {
		return nil, s.statusError(log, "booking selections list failed", err, slog.String("booking_id", id.String()))
	}

	out := make([]*servicebookv1.BookingService, 0, len(sel))
	for _, d := range sel {
		out = append(out, toSelection(d))
	}
	return &servicebookv1.ListBookingSelectionsResponse{Services: out}, nil
}

func (s *BookingsServer) AddBookingSelection(ctx context.Context, req *servicebookv1.AddBookingSelectionRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "AddBookingSelection"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, serviceID, err := parseSelectionKey(log, req.BookingID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	d, err := s.svc.AddSelection(ctx, actor, id, bookings.SelectionInput{ServiceID: serviceID, Quantity: req.Quantity})
	if err != nil {
		return nil, s.statusError(log, "booking selection add failed", err,
			slog.String("booking_id", id.String()),
			slog.String("service_id", serviceID.String()),
		)
	}

	log.Info(
		"booking selection added",
		slog.String("booking_id", id.String()),
		slog.String("service_id", serviceID.String()),
		slog.String("admin_id", actor.ID.String()),
	)
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) UpdateBookingSelection(ctx context.Context, req *servicebookv1.UpdateBookingSelectionRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateBookingSelection"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, serviceID, err := parseSelectionKey(log, req.BookingID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	d, err := s.svc.UpdateSelectionQuantity(ctx, actor, id, serviceID, req.Quantity)
	if err != nil {
		return nil, s.statusError(log, "booking selection update failed", err,
			slog.String("booking_id", id.String()),
			slog.String("service_id", serviceID.String()),
		)
	}

	log.Info(
		"booking selection updated",
		slog.String("booking_id", id.String()),
		slog.String("service_id", serviceID.String()),
		slog.Int("quantity", req.Quantity),
	)
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func (s *BookingsServer) RemoveBookingSelection(ctx context.Context, req *servicebookv1.RemoveBookingSelectionRequest) (*servicebookv1.BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "RemoveBookingSelection"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, serviceID, err := parseSelectionKey(log, req.BookingID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	d, err := s.svc.RemoveSelection(ctx, actor, id, serviceID)
	if err != nil {
		return nil, s.statusError(log, "booking selection remove failed", err,
			slog.String("booking_id", id.String()),
			slog.String("service_id", serviceID.String()),
		)
	}

	log.Info(
		"booking selection removed",
		slog.String("booking_id", id.String()),
		slog.String("service_id", serviceID.String()),
		slog.String("admin_id", actor.ID.String()),
	)
	return &servicebookv1.BookingResponse{Booking: toBooking(d)}, nil
}

func parseSelectionKey(log *slog.Logger, bookingID, serviceID string) (uuid.UUID, uuid.UUID, error) {
	id, err := parseBookingID(log, bookingID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sid, err := uuid.Parse(serviceID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return uuid.Nil, uuid.Nil, status.Error(codes.InvalidArgument, "service_id must be a UUID")
	}
	return id, sid, nil
}
