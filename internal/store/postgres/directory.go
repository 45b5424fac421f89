package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/store"
)

// reader serves the read paths shared by the repository and an open transaction.
type reader struct {
	db bun.IDB
}

func (r reader) GetServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Service, error) {
	uniq := uniqueIDs(ids)
	if len(uniq) == 0 {
		return nil, nil
	}

	var rows []domain.Service
	err := r.db.NewSelect().
		Model(&rows).
		Where("s.id IN (?)", bun.In(uniq)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]domain.Service, len(rows))
	for _, s := range rows {
		byID[s.ID] = s
	}

	out := make([]domain.Service, 0, len(uniq))
	for _, id := range uniq {
		s, ok := byID[id]
		if !ok {
			return nil, store.ErrNotFound
		}
		out = append(out, s)
	}
	return out, nil
}

func (r reader) GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("u.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r reader) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	uniq := uniqueIDs(ids)
	out := make(map[uuid.UUID]domain.User, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}

	var rows []domain.User
	err := r.db.NewSelect().
		Model(&rows).
		Where("u.id IN (?)", bun.In(uniq)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

func (r reader) ListConfirmedForServices(ctx context.Context, serviceIDs []uuid.UUID, excludeBookingID *uuid.UUID) ([]domain.ScheduledBooking, error) {
	uniq := uniqueIDs(serviceIDs)
	if len(uniq) == 0 {
		return nil, nil
	}

	var rows []domain.Booking
	q := r.db.NewSelect().
		Model(&rows).
		Where("b.status = ?", domain.StatusConfirmed).
		Where("EXISTS (SELECT 1 FROM booking_services AS sel WHERE sel.booking_id = b.id AND sel.service_id IN (?))", bun.In(uniq))
	if excludeBookingID != nil {
		q = q.Where("b.id <> ?", *excludeBookingID)
	}
	if err := q.OrderExpr("b.booking_start ASC, b.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if err := r.attachSelections(ctx, rows); err != nil {
		return nil, err
	}

	var needed []uuid.UUID
	for _, b := range rows {
		needed = append(needed, b.ServiceIDs()...)
	}
	services, err := r.GetServicesByIDs(ctx, needed)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}

	out := make([]domain.ScheduledBooking, 0, len(rows))
	for _, b := range rows {
		sb := domain.ScheduledBooking{Booking: b, Services: make([]domain.Service, 0, len(b.Selections))}
		for _, sel := range b.Selections {
			sb.Services = append(sb.Services, byID[sel.ServiceID])
		}
		out = append(out, sb)
	}
	return out, nil
}

// attachSelections loads selections for every booking in rows, ordered by service id.
func (r reader) attachSelections(ctx context.Context, rows []domain.Booking) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, b := range rows {
		ids = append(ids, b.ID)
	}

	var sel []domain.BookingService
	err := r.db.NewSelect().
		Model(&sel).
		Where("bs.booking_id IN (?)", bun.In(ids)).
		OrderExpr("bs.booking_id ASC, bs.service_id ASC").
		Scan(ctx)
	if err != nil {
		return err
	}

	byBooking := make(map[uuid.UUID][]domain.BookingService, len(rows))
	for _, s := range sel {
		byBooking[s.BookingID] = append(byBooking[s.BookingID], s)
	}
	for i := range rows {
		rows[i].Selections = byBooking[rows[i].ID]
	}
	return nil
}

// uniqueIDs drops duplicates and nil ids, keeping first-seen order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// serviceLockKeys returns the advisory lock keys for ids in ascending order, so
// concurrent transactions always acquire them in the same sequence.
func serviceLockKeys(ids []uuid.UUID) []string {
	uniq := uniqueIDs(ids)
	keys := make([]string, 0, len(uniq))
	for _, id := range uniq {
		keys = append(keys, "service:"+id.String())
	}
	sort.Strings(keys)
	return keys
}
