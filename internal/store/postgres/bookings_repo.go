package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/store"
)

type BookingRepo struct {
	reader
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{reader: reader{db: db}, db: db}
}

type bookingTx struct {
	reader
	tx bun.Tx
}

func (r *BookingRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, bookingTx{reader: reader{db: tx}, tx: tx})
	})
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}

	rows := []domain.Booking{b}
	if err := r.attachSelections(ctx, rows); err != nil {
		return domain.Booking{}, err
	}
	return rows[0], nil
}

func (r *BookingRepo) ListBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, int, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().Model(&rows)
	if f.UserID != nil {
		q = q.Where("b.user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("b.status = ?", *f.Status)
	}
	if name := strings.TrimSpace(f.ServiceName); name != "" {
		q = q.Where(
			"EXISTS (SELECT 1 FROM booking_services AS sel JOIN services AS svc ON svc.id = sel.service_id WHERE sel.booking_id = b.id AND svc.name ILIKE ?)",
			"%"+escapeLike(name)+"%",
		)
	}
	if f.From != nil {
		q = q.Where("b.booking_start >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("b.booking_start < ?", *f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	total, err := q.OrderExpr("b.created_at DESC, b.id DESC").ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachSelections(ctx, rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *BookingRepo) ListBookingsStartingBetween(ctx context.Context, userID *uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().
		Model(&rows).
		Where("b.booking_start >= ?", windowStart).
		Where("b.booking_start < ?", windowEnd)
	if userID != nil {
		q = q.Where("b.user_id = ?", *userID)
	}
	if err := q.OrderExpr("b.booking_start ASC, b.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	if err := r.attachSelections(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	var rows []struct {
		Status domain.Status `bun:"status"`
		Count  int           `bun:"count"`
	}
	err := r.db.NewSelect().
		Model((*domain.Booking)(nil)).
		Column("status").
		ColumnExpr("count(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make(map[domain.Status]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (t bookingTx) LockServices(ctx context.Context, serviceIDs []uuid.UUID) error {
	for _, key := range serviceLockKeys(serviceIDs) {
		if _, err := t.tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t bookingTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := t.tx.NewSelect().
		Model(&b).
		Where("b.id = ?", id).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}

	rows := []domain.Booking{b}
	if err := t.attachSelections(ctx, rows); err != nil {
		return domain.Booking{}, err
	}
	return rows[0], nil
}

func (t bookingTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := domain.Booking{
		ID:               b.ID,
		UserID:           b.UserID,
		BookingStart:     b.BookingStart,
		Status:           b.Status,
		Notes:            b.Notes,
		HandledByAdminID: b.HandledByAdminID,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}

	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Booking{}, mapWriteError(err)
	}
	if err := t.insertSelections(ctx, m.ID, b.Selections); err != nil {
		return domain.Booking{}, err
	}

	m.Selections = withBookingID(m.ID, b.Selections)
	return m, nil
}

func (t bookingTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	res, err := t.tx.NewUpdate().
		Model(&m).
		Column("booking_start", "status", "notes", "handled_by_admin_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, mapWriteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return m, nil
}

func (t bookingTx) ReplaceSelections(ctx context.Context, bookingID uuid.UUID, sel []domain.BookingService) error {
	_, err := t.tx.NewDelete().
		Model((*domain.BookingService)(nil)).
		Where("booking_id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return t.insertSelections(ctx, bookingID, sel)
}

func (t bookingTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.NewDelete().
		Model((*domain.BookingService)(nil)).
		Where("booking_id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	res, err := t.tx.NewDelete().
		Model((*domain.Booking)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t bookingTx) insertSelections(ctx context.Context, bookingID uuid.UUID, sel []domain.BookingService) error {
	if len(sel) == 0 {
		return nil
	}
	rows := withBookingID(bookingID, sel)
	if _, err := t.tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func withBookingID(bookingID uuid.UUID, sel []domain.BookingService) []domain.BookingService {
	out := make([]domain.BookingService, 0, len(sel))
	for _, s := range sel {
		s.BookingID = bookingID
		out = append(out, s)
	}
	return out
}

// mapWriteError turns referential integrity failures into store sentinels.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return store.ErrNotFound
		case "23505":
			return store.ErrConflict
		}
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
