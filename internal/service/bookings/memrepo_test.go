package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/events"
	"servicebook/backend/internal/store"
)

// memRepo is an in-memory BookingRepository. Transactions run concurrently: each one
// buffers its writes and applies them only when fn returns nil. GetBookingForUpdate and
// LockServices take real per-row locks held until the transaction ends.
type memRepo struct {
	mu    sync.Mutex
	state *memState
	locks memLocks

	replaceSelectionsErr error
	listBookingsFn       func(ctx context.Context, f store.BookingFilter) ([]domain.Booking, int, error)

	// afterConfirmedRead runs after every confirmed-booking scan, without holding mu.
	afterConfirmedRead func()

	locked           [][]uuid.UUID
	confirmedQueries int
}

type memState struct {
	users    map[uuid.UUID]domain.User
	services map[uuid.UUID]domain.Service
	bookings map[uuid.UUID]domain.Booking
}

func newMemRepo() *memRepo {
	return &memRepo{state: &memState{
		users:    map[uuid.UUID]domain.User{},
		services: map[uuid.UUID]domain.Service{},
		bookings: map[uuid.UUID]domain.Booking{},
	}}
}

func copyBooking(b domain.Booking) domain.Booking {
	b.Selections = append([]domain.BookingService(nil), b.Selections...)
	return b
}

func (r *memRepo) addUser(u domain.User)       { r.state.users[u.ID] = u }
func (r *memRepo) addService(s domain.Service) { r.state.services[s.ID] = s }
func (r *memRepo) addBooking(b domain.Booking) {
	for i := range b.Selections {
		b.Selections[i].BookingID = b.ID
	}
	r.state.bookings[b.ID] = copyBooking(b)
}

func (r *memRepo) booking(id uuid.UUID) (domain.Booking, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.state.bookings[id]
	return copyBooking(b), ok
}

func (r *memRepo) reader() memReader {
	return memReader{repo: r}
}

func (r *memRepo) GetServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Service, error) {
	return r.reader().GetServicesByIDs(ctx, ids)
}

func (r *memRepo) GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return r.reader().GetUserByID(ctx, id)
}

func (r *memRepo) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	return r.reader().GetUsersByIDs(ctx, ids)
}

func (r *memRepo) ListConfirmedForServices(ctx context.Context, serviceIDs []uuid.UUID, excludeBookingID *uuid.UUID) ([]domain.ScheduledBooking, error) {
	return r.reader().ListConfirmedForServices(ctx, serviceIDs, excludeBookingID)
}

func (r *memRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.BookingTx) error) error {
	tx := &memTx{writes: map[uuid.UUID]*domain.Booking{}, held: map[string]*sync.Mutex{}}
	tx.memReader = memReader{repo: r, tx: tx}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range tx.writes {
		if b == nil {
			delete(r.state.bookings, id)
			continue
		}
		r.state.bookings[id] = copyBooking(*b)
	}
	return nil
}

func (r *memRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.state.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return copyBooking(b), nil
}

func (r *memRepo) ListBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, int, error) {
	if r.listBookingsFn == nil {
		panic("ListBookings not configured")
	}
	return r.listBookingsFn(ctx, f)
}

func (r *memRepo) ListBookingsStartingBetween(ctx context.Context, userID *uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Booking
	for _, b := range r.state.bookings {
		if userID != nil && b.UserID != *userID {
			continue
		}
		if b.BookingStart.Before(windowStart) || !b.BookingStart.Before(windowEnd) {
			continue
		}
		out = append(out, copyBooking(b))
	}
	sortBookings(out)
	return out, nil
}

func (r *memRepo) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := map[domain.Status]int{}
	for _, b := range r.state.bookings {
		out[b.Status]++
	}
	return out, nil
}

// memLocks hands out one mutex per key, like row locks or advisory locks.
type memLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *memLocks) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = map[string]*sync.Mutex{}
	}
	mu, ok := l.m[key]
	if !ok {
		mu = &sync.Mutex{}
		l.m[key] = mu
	}
	return mu
}

// memReader reads committed state. Inside a transaction it also sees the
// transaction's own buffered writes.
type memReader struct {
	repo *memRepo
	tx   *memTx
}

func (m memReader) bookings() map[uuid.UUID]domain.Booking {
	m.repo.mu.Lock()
	out := make(map[uuid.UUID]domain.Booking, len(m.repo.state.bookings))
	for id, b := range m.repo.state.bookings {
		out[id] = copyBooking(b)
	}
	m.repo.mu.Unlock()

	if m.tx != nil {
		for id, b := range m.tx.writes {
			if b == nil {
				delete(out, id)
				continue
			}
			out[id] = copyBooking(*b)
		}
	}
	return out
}

func (m memReader) GetServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Service, error) {
	m.repo.mu.Lock()
	defer m.repo.mu.Unlock()

	out := make([]domain.Service, 0, len(ids))
	for _, id := range ids {
		s, ok := m.repo.state.services[id]
		if !ok {
			return nil, store.ErrNotFound
		}
		out = append(out, s)
	}
	return out, nil
}

func (m memReader) GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	m.repo.mu.Lock()
	defer m.repo.mu.Unlock()

	u, ok := m.repo.state.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m memReader) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	m.repo.mu.Lock()
	defer m.repo.mu.Unlock()

	out := make(map[uuid.UUID]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := m.repo.state.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m memReader) ListConfirmedForServices(ctx context.Context, serviceIDs []uuid.UUID, excludeBookingID *uuid.UUID) ([]domain.ScheduledBooking, error) {
	m.repo.mu.Lock()
	m.repo.confirmedQueries++
	m.repo.mu.Unlock()

	want := make(map[uuid.UUID]struct{}, len(serviceIDs))
	for _, id := range serviceIDs {
		want[id] = struct{}{}
	}

	var rows []domain.Booking
	for _, b := range m.bookings() {
		if b.Status != domain.StatusConfirmed {
			continue
		}
		if excludeBookingID != nil && b.ID == *excludeBookingID {
			continue
		}
		for _, sel := range b.Selections {
			if _, ok := want[sel.ServiceID]; ok {
				rows = append(rows, b)
				break
			}
		}
	}
	sortBookings(rows)

	out := make([]domain.ScheduledBooking, 0, len(rows))
	for _, b := range rows {
		services, err := m.GetServicesByIDs(ctx, b.ServiceIDs())
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ScheduledBooking{Booking: b, Services: services})
	}

	if m.repo.afterConfirmedRead != nil {
		m.repo.afterConfirmedRead()
	}
	return out, nil
}

type memTx struct {
	memReader
	// writes buffers changed bookings until commit. A nil entry is a deletion.
	writes map[uuid.UUID]*domain.Booking
	held   map[string]*sync.Mutex
}

func (t *memTx) lock(key string) {
	if _, ok := t.held[key]; ok {
		return
	}
	mu := t.repo.locks.get(key)
	mu.Lock()
	t.held[key] = mu
}

func (t *memTx) release() {
	for key, mu := range t.held {
		mu.Unlock()
		delete(t.held, key)
	}
}

func (t *memTx) put(b domain.Booking) {
	stored := copyBooking(b)
	t.writes[b.ID] = &stored
}

func (t *memTx) LockServices(ctx context.Context, serviceIDs []uuid.UUID) error {
	ids := append([]uuid.UUID(nil), serviceIDs...)
	t.repo.mu.Lock()
	t.repo.locked = append(t.repo.locked, ids)
	t.repo.mu.Unlock()

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, "service:"+id.String())
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.lock(k)
	}
	return nil
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	t.lock("booking:" + id.String())
	b, ok := t.bookings()[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if _, err := t.GetUserByID(ctx, b.UserID); err != nil {
		return domain.Booking{}, err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	for i := range b.Selections {
		b.Selections[i].BookingID = b.ID
	}
	t.put(b)
	return b, nil
}

func (t *memTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	existing, ok := t.bookings()[b.ID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now().UTC()

	stored := copyBooking(b)
	stored.Selections = existing.Selections
	t.put(stored)
	return b, nil
}

func (t *memTx) ReplaceSelections(ctx context.Context, bookingID uuid.UUID, sel []domain.BookingService) error {
	b, ok := t.bookings()[bookingID]
	if !ok {
		return store.ErrNotFound
	}
	if t.repo.replaceSelectionsErr != nil {
		return t.repo.replaceSelectionsErr
	}
	b.Selections = nil
	for _, s := range sel {
		s.BookingID = bookingID
		b.Selections = append(b.Selections, s)
	}
	t.put(b)
	return nil
}

func (t *memTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.bookings()[id]; !ok {
		return store.ErrNotFound
	}
	t.writes[id] = nil
	return nil
}

func sortBookings(rows []domain.Booking) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].BookingStart.Equal(rows[j].BookingStart) {
			return rows[i].BookingStart.Before(rows[j].BookingStart)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev.Type)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
