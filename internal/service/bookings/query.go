package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// maxPage keeps (page-1)*limit far from overflowing int.
	maxPage = 1_000_000
)

type ListInput struct {
	Status string
	// UserID is honored for admins only; other actors always list their own bookings.
	UserID      *uuid.UUID
	ServiceName string
	// From and To bound booking_start as [From, To). Either may be empty.
	From  string
	To    string
	Page  int
	Limit int
}

type Page struct {
	Bookings   []domain.BookingDetails
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

func (s *Service) List(ctx context.Context, actor domain.Actor, in ListInput) (out Page, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.List")
	defer func() { endSpan(span, err) }()

	f := store.BookingFilter{ServiceName: strings.TrimSpace(in.ServiceName)}

	if v := strings.TrimSpace(in.Status); v != "" {
		st, ok := domain.ParseStatus(v)
		if !ok {
			return Page{}, validationError("status must be one of pending, confirmed, completed, cancelled")
		}
		f.Status = &st
	}
	if strings.TrimSpace(in.From) != "" {
		from, err := domain.ParseInstant(in.From)
		if err != nil {
			return Page{}, validationError("start_date: " + err.Error())
		}
		f.From = &from
	}
	if strings.TrimSpace(in.To) != "" {
		to, err := domain.ParseInstant(in.To)
		if err != nil {
			return Page{}, validationError("end_date: " + err.Error())
		}
		f.To = &to
	}
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return Page{}, validationError("end_date must be after start_date")
	}

	if actor.IsAdmin() {
		f.UserID = in.UserID
	} else {
		own := actor.ID
		f.UserID = &own
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	limit := in.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	f.Limit = limit
	f.Offset = (page - 1) * limit

	rows, total, err := s.repo.ListBookings(ctx, f)
	if err != nil {
		return Page{}, err
	}
	details, err := loadDetailsMany(ctx, s.repo, rows)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Bookings:   details,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// ListByDate returns the bookings starting on the given UTC day, earliest first.
func (s *Service) ListByDate(ctx context.Context, actor domain.Actor, date string) (out []domain.BookingDetails, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.ListByDate")
	defer func() { endSpan(span, err) }()

	day, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
	if err != nil {
		return nil, validationError("date must be formatted as YYYY-MM-DD")
	}

	var userID *uuid.UUID
	if !actor.IsAdmin() {
		own := actor.ID
		userID = &own
	}

	rows, err := s.repo.ListBookingsStartingBetween(ctx, userID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return loadDetailsMany(ctx, s.repo, rows)
}

type Stats struct {
	Total    int
	ByStatus map[domain.Status]int
}

func (s *Service) Stats(ctx context.Context, actor domain.Actor) (out Stats, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Stats")
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		return Stats{}, forbidden("only admins can view booking statistics")
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	out.ByStatus = map[domain.Status]int{
		domain.StatusPending:   0,
		domain.StatusConfirmed: 0,
		domain.StatusCompleted: 0,
		domain.StatusCancelled: 0,
	}
	for st, n := range counts {
		out.ByStatus[st] = n
		out.Total += n
	}
	return out, nil
}

func loadDetails(ctx context.Context, dir store.Directory, b domain.Booking) (domain.BookingDetails, error) {
	out, err := loadDetailsMany(ctx, dir, []domain.Booking{b})
	if err != nil {
		return domain.BookingDetails{}, err
	}
	return out[0], nil
}

// loadDetailsMany resolves customers, handling admins and selected services with one
// directory lookup each.
func loadDetailsMany(ctx context.Context, dir store.Directory, rows []domain.Booking) ([]domain.BookingDetails, error) {
	if len(rows) == 0 {
		return []domain.BookingDetails{}, nil
	}

	var userIDs, serviceIDs []uuid.UUID
	for _, b := range rows {
		userIDs = append(userIDs, b.UserID)
		if b.HandledByAdminID != nil {
			userIDs = append(userIDs, *b.HandledByAdminID)
		}
		serviceIDs = append(serviceIDs, b.ServiceIDs()...)
	}

	users, err := dir.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	services, err := dir.GetServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Service, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
	}

	out := make([]domain.BookingDetails, 0, len(rows))
	for _, b := range rows {
		customer, ok := users[b.UserID]
		if !ok {
			return nil, fmt.Errorf("customer %s of booking %s: %w", b.UserID, b.ID, store.ErrNotFound)
		}
		d := domain.BookingDetails{
			Booking:    b,
			Customer:   customer,
			Selections: make([]domain.SelectionDetail, 0, len(b.Selections)),
		}
		if b.HandledByAdminID != nil {
			if admin, ok := users[*b.HandledByAdminID]; ok {
				d.HandledByAdmin = &admin
			}
		}

		selected := make([]domain.Service, 0, len(b.Selections))
		for _, sel := range b.Selections {
			svc := byID[sel.ServiceID]
			selected = append(selected, svc)
			d.Selections = append(d.Selections, domain.SelectionDetail{
				ServiceID: sel.ServiceID,
				Quantity:  sel.Quantity,
				Service:   svc,
			})
		}
		d.Interval = domain.OccupiedInterval(b.BookingStart, selected)
		out = append(out, d)
	}
	return out, nil
}
