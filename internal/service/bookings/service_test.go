package bookings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"servicebook/backend/internal/domain"
	"servicebook/backend/internal/events"
	"servicebook/backend/internal/store"
)

var (
	adminUser = domain.User{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000ad"), Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin}
	alice     = domain.User{ID: uuid.MustParse("00000000-0000-0000-0000-000000000a11"), Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser}
	bob       = domain.User{ID: uuid.MustParse("00000000-0000-0000-0000-000000000b0b"), Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser}

	haircut = domain.Service{ID: uuid.MustParse("00000000-0000-0000-0000-00000000a001"), AdminID: adminUser.ID, Name: "Haircut", DurationMinutes: 60, PriceCents: 2500}
	shave   = domain.Service{ID: uuid.MustParse("00000000-0000-0000-0000-00000000a002"), AdminID: adminUser.ID, Name: "Shave", DurationMinutes: 30, PriceCents: 1500}

	asAdmin = domain.Actor{ID: adminUser.ID, Role: domain.RoleAdmin}
	asAlice = domain.Actor{ID: alice.ID, Role: domain.RoleUser}
	asBob   = domain.Actor{ID: bob.ID, Role: domain.RoleUser}

	aliceBookingID = uuid.MustParse("00000000-0000-0000-0000-0000000b0001")
	bobBookingID   = uuid.MustParse("00000000-0000-0000-0000-0000000b0002")
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 8, 15, hour, minute, 0, 0, time.UTC)
}

func newTestRepo() *memRepo {
	r := newMemRepo()
	r.addUser(adminUser)
	r.addUser(alice)
	r.addUser(bob)
	r.addService(haircut)
	r.addService(shave)
	return r
}

func seedBooking(r *memRepo, id, owner uuid.UUID, start time.Time, status domain.Status, services ...domain.Service) {
	b := domain.Booking{ID: id, UserID: owner, BookingStart: start, Status: status}
	for _, s := range services {
		b.Selections = append(b.Selections, domain.BookingService{ServiceID: s.ID, Quantity: 1})
	}
	r.addBooking(b)
}

func TestCheckAvailability_HalfHourIntoConfirmedBooking(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	svc := NewService(repo, Options{})

	got, err := svc.CheckAvailability(context.Background(), "2025-08-15T10:30:00Z", []uuid.UUID{haircut.ID}, nil)
	if err != nil {
		t.Fatalf("CheckAvailability error: %v", err)
	}
	if got.Available {
		t.Fatalf("available = true, want false")
	}
	if len(got.Conflicts) != 1 {
		t.Fatalf("len(conflicts) = %d, want 1", len(got.Conflicts))
	}
	c := got.Conflicts[0]
	if c.BookingID != bobBookingID {
		t.Fatalf("conflict booking = %s, want %s", c.BookingID, bobBookingID)
	}
	if !c.BookingStart.Equal(at(10, 0)) || !c.BookingEnd.Equal(at(11, 0)) {
		t.Fatalf("conflict interval = [%v, %v), want [%v, %v)", c.BookingStart, c.BookingEnd, at(10, 0), at(11, 0))
	}
	if c.ServiceOwner.ID != adminUser.ID {
		t.Fatalf("service owner = %s, want %s", c.ServiceOwner.ID, adminUser.ID)
	}
	if c.Customer.ID != bob.ID {
		t.Fatalf("customer = %s, want %s", c.Customer.ID, bob.ID)
	}
	if c.Service.Name != haircut.Name {
		t.Fatalf("service = %q, want %q", c.Service.Name, haircut.Name)
	}

	got, err = svc.CheckAvailability(context.Background(), "2025-08-15T11:00:00Z", []uuid.UUID{haircut.ID}, nil)
	if err != nil {
		t.Fatalf("CheckAvailability error: %v", err)
	}
	if !got.Available || len(got.Conflicts) != 0 {
		t.Fatalf("availability = %+v, want available with no conflicts", got)
	}
}

func TestCheckAvailability_IgnoresUnconfirmedBookings(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(10, 0), domain.StatusPending, haircut)
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusCancelled, haircut)
	svc := NewService(repo, Options{})

	got, err := svc.CheckAvailability(context.Background(), "2025-08-15T10:00:00Z", []uuid.UUID{haircut.ID}, nil)
	if err != nil {
		t.Fatalf("CheckAvailability error: %v", err)
	}
	if !got.Available {
		t.Fatalf("available = false, want true")
	}
}

func TestCheckAvailability_ExcludesSelf(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(10, 0), domain.StatusConfirmed, haircut)
	svc := NewService(repo, Options{})

	exclude := aliceBookingID
	got, err := svc.CheckAvailability(context.Background(), "2025-08-15T10:15:00Z", []uuid.UUID{haircut.ID}, &exclude)
	if err != nil {
		t.Fatalf("CheckAvailability error: %v", err)
	}
	if !got.Available {
		t.Fatalf("available = false, want true when excluding the booking itself")
	}
}

func TestCheckAvailability_InputErrors(t *testing.T) {
	svc := NewService(newTestRepo(), Options{})
	ctx := context.Background()

	var vErr *ValidationError
	if _, err := svc.CheckAvailability(ctx, "tomorrow", []uuid.UUID{haircut.ID}, nil); !errors.As(err, &vErr) {
		t.Fatalf("bad timestamp error = %v, want *ValidationError", err)
	}
	if _, err := svc.CheckAvailability(ctx, "2025-08-15T10:00:00Z", nil, nil); !errors.As(err, &vErr) {
		t.Fatalf("empty services error = %v, want *ValidationError", err)
	}
	unknown := uuid.MustParse("00000000-0000-0000-0000-00000000ffff")
	if _, err := svc.CheckAvailability(ctx, "2025-08-15T10:00:00Z", []uuid.UUID{haircut.ID, unknown}, nil); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown service error = %v, want store.ErrNotFound", err)
	}
}

func TestCreate_InsertsPendingBooking(t *testing.T) {
	repo := newTestRepo()
	pub := &recordingPublisher{}
	svc := NewService(repo, Options{Publisher: pub})

	got, err := svc.Create(context.Background(), asAlice, CreateInput{
		Start:    "2025-08-15T12:00:00.000+02:00",
		Services: []SelectionInput{{ServiceID: shave.ID, Quantity: 2}, {ServiceID: haircut.ID}},
		Notes:    "  window seat  ",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if got.Booking.Status != domain.StatusPending {
		t.Fatalf("status = %q, want %q", got.Booking.Status, domain.StatusPending)
	}
	if !got.Booking.BookingStart.Equal(at(10, 0)) {
		t.Fatalf("start = %v, want %v", got.Booking.BookingStart, at(10, 0))
	}
	if got.Booking.Notes != "window seat" {
		t.Fatalf("notes = %q, want %q", got.Booking.Notes, "window seat")
	}
	if got.Customer.ID != alice.ID {
		t.Fatalf("customer = %s, want %s", got.Customer.ID, alice.ID)
	}
	if got.HandledByAdmin != nil {
		t.Fatalf("handled by admin = %v, want nil", got.HandledByAdmin)
	}
	if len(got.Selections) != 2 {
		t.Fatalf("len(selections) = %d, want 2", len(got.Selections))
	}
	if got.Selections[0].ServiceID != haircut.ID || got.Selections[0].Quantity != 1 {
		t.Fatalf("selection[0] = %+v, want haircut x1", got.Selections[0])
	}
	if got.Selections[1].ServiceID != shave.ID || got.Selections[1].Quantity != 2 {
		t.Fatalf("selection[1] = %+v, want shave x2", got.Selections[1])
	}
	if got.Interval.Duration() != 90*time.Minute {
		t.Fatalf("duration = %s, want %s", got.Interval.Duration(), 90*time.Minute)
	}

	stored, ok := repo.booking(got.Booking.ID)
	if !ok || len(stored.Selections) != 2 {
		t.Fatalf("stored booking = %+v, want booking with 2 selections", stored)
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.BookingCreated {
		t.Fatalf("events = %v, want [%s]", types, events.BookingCreated)
	}
}

func TestCreate_Rejections(t *testing.T) {
	unknown := uuid.MustParse("00000000-0000-0000-0000-00000000ffff")
	ghost := domain.Actor{ID: uuid.MustParse("00000000-0000-0000-0000-00000000dead"), Role: domain.RoleUser}

	tests := []struct {
		name  string
		actor domain.Actor
		in    CreateInput
		check func(t *testing.T, err error)
	}{
		{
			name:  "admin cannot create",
			actor: asAdmin,
			in:    CreateInput{Start: "2025-08-15T10:00:00Z", Services: []SelectionInput{{ServiceID: haircut.ID}}},
			check: wantForbidden,
		},
		{
			name:  "empty services",
			actor: asAlice,
			in:    CreateInput{Start: "2025-08-15T10:00:00Z"},
			check: wantValidation,
		},
		{
			name:  "duplicate service",
			actor: asAlice,
			in:    CreateInput{Start: "2025-08-15T10:00:00Z", Services: []SelectionInput{{ServiceID: haircut.ID}, {ServiceID: haircut.ID}}},
			check: wantValidation,
		},
		{
			name:  "negative quantity",
			actor: asAlice,
			in:    CreateInput{Start: "2025-08-15T10:00:00Z", Services: []SelectionInput{{ServiceID: haircut.ID, Quantity: -1}}},
			check: wantValidation,
		},
		{
			name:  "malformed start",
			actor: asAlice,
			in:    CreateInput{Start: "15/08/2025 10:00", Services: []SelectionInput{{ServiceID: haircut.ID}}},
			check: wantValidation,
		},
		{
			name:  "unknown service",
			actor: asAlice,
			in:    CreateInput{Start: "2025-08-15T10:00:00Z", Services: []SelectionInput{{ServiceID: haircut.ID}, {ServiceID: unknown}}},
			check: wantNotFound,
		},
		{
			name:  "unknown user",
			actor: ghost,
			in:    CreateInput{Start: "2025-08-15T10:00:00Z", Services: []SelectionInput{{ServiceID: haircut.ID}}},
			check: wantNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo()
			svc := NewService(repo, Options{})
			_, err := svc.Create(context.Background(), tt.actor, tt.in)
			tt.check(t, err)
			if n := len(repo.state.bookings); n != 0 {
				t.Fatalf("stored bookings = %d, want 0", n)
			}
		})
	}
}

func TestReschedule_PendingSkipsAvailabilityCheck(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, aliceBookingID, alice.ID, at(14, 0), domain.StatusPending, haircut)
	svc := NewService(repo, Options{})

	got, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Start: domain.Some("2025-08-15T10:30:00Z"),
	})
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if !got.Booking.BookingStart.Equal(at(10, 30)) {
		t.Fatalf("start = %v, want %v", got.Booking.BookingStart, at(10, 30))
	}
	if repo.confirmedQueries != 0 || len(repo.locked) != 0 {
		t.Fatalf("availability was checked for a pending booking (queries=%d locks=%d)", repo.confirmedQueries, len(repo.locked))
	}
	want := "Rescheduled from 2025-08-15T14:00:00Z to 2025-08-15T10:30:00Z"
	if got.Booking.Notes != want {
		t.Fatalf("notes = %q, want %q", got.Booking.Notes, want)
	}
}

func TestReschedule_ConfirmedIntoConflictIsRejected(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, aliceBookingID, alice.ID, at(14, 0), domain.StatusConfirmed, haircut, shave)
	pub := &recordingPublisher{}
	svc := NewService(repo, Options{Publisher: pub})

	_, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Start: domain.Some("2025-08-15T09:30:00Z"),
		Notes: domain.Some("moving earlier"),
	})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error does not unwrap to store.ErrConflict")
	}
	wantForbidden(t, err)
	if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].BookingID != bobBookingID {
		t.Fatalf("conflicts = %+v, want one against %s", cErr.Conflicts, bobBookingID)
	}
	if len(repo.locked) != 1 || len(repo.locked[0]) != 2 {
		t.Fatalf("locked = %v, want one lock call over both services", repo.locked)
	}

	stored, _ := repo.booking(aliceBookingID)
	if !stored.BookingStart.Equal(at(14, 0)) || stored.Notes != "" {
		t.Fatalf("stored booking changed: start=%v notes=%q", stored.BookingStart, stored.Notes)
	}
	if n := len(pub.types()); n != 0 {
		t.Fatalf("events published = %d, want 0", n)
	}
}

func TestReschedule_ConfirmedIntoFreeSlot(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, aliceBookingID, alice.ID, at(14, 0), domain.StatusConfirmed, haircut)
	repo.state.bookings[aliceBookingID] = withNotes(repo.state.bookings[aliceBookingID], "first visit")
	pub := &recordingPublisher{}
	svc := NewService(repo, Options{Publisher: pub})

	got, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Start: domain.Some("2025-08-15T11:00:00Z"),
	})
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if got.Booking.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want %q", got.Booking.Status, domain.StatusConfirmed)
	}
	want := "first visit\nRescheduled from 2025-08-15T14:00:00Z to 2025-08-15T11:00:00Z"
	if got.Booking.Notes != want {
		t.Fatalf("notes = %q, want %q", got.Booking.Notes, want)
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.BookingRescheduled {
		t.Fatalf("events = %v, want [%s]", types, events.BookingRescheduled)
	}
}

func TestReschedule_SameStartSkipsCheck(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, aliceBookingID, alice.ID, at(10, 0), domain.StatusConfirmed, shave)
	svc := NewService(repo, Options{})

	got, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Start: domain.Some("2025-08-15T10:00:00Z"),
		Notes: domain.Some("bring a towel"),
	})
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if got.Booking.Notes != "bring a towel" {
		t.Fatalf("notes = %q, want %q", got.Booking.Notes, "bring a towel")
	}
	if repo.confirmedQueries != 0 {
		t.Fatalf("confirmed queries = %d, want 0", repo.confirmedQueries)
	}
}

func TestReschedule_ReplacementServicesAreChecked(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(12, 0), domain.StatusConfirmed, shave)
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusConfirmed, haircut)
	svc := NewService(repo, Options{})

	// The current haircut selection is free at 12:00 but the replacement shave is not.
	_, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Start:    domain.Some("2025-08-15T12:00:00Z"),
		Services: domain.Some([]SelectionInput{{ServiceID: shave.ID}}),
	})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	if cErr.Conflicts[0].Service.ID != shave.ID {
		t.Fatalf("conflict service = %s, want %s", cErr.Conflicts[0].Service.ID, shave.ID)
	}
}

func TestReschedule_SameStartNewServiceIsChecked(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, shave)
	seedBooking(repo, aliceBookingID, alice.ID, at(10, 0), domain.StatusConfirmed, haircut)
	svc := NewService(repo, Options{})

	_, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Services: domain.Some([]SelectionInput{{ServiceID: haircut.ID}, {ServiceID: shave.ID}}),
	})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	wantForbidden(t, err)
	if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].BookingID != bobBookingID {
		t.Fatalf("conflicts = %+v, want one against %s", cErr.Conflicts, bobBookingID)
	}
	stored, _ := repo.booking(aliceBookingID)
	if len(stored.Selections) != 1 || stored.Selections[0].ServiceID != haircut.ID {
		t.Fatalf("selections = %+v, want haircut only", stored.Selections)
	}

	// Dropping a service or changing quantities cannot create a conflict.
	if _, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Services: domain.Some([]SelectionInput{{ServiceID: haircut.ID, Quantity: 2}}),
	}); err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if repo.confirmedQueries != 1 {
		t.Fatalf("confirmed queries = %d, want 1", repo.confirmedQueries)
	}
}

func TestReschedule_ReplacesSelections(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut)
	svc := NewService(repo, Options{})

	got, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Services: domain.Some([]SelectionInput{{ServiceID: shave.ID, Quantity: 3}}),
	})
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if len(got.Selections) != 1 || got.Selections[0].ServiceID != shave.ID || got.Selections[0].Quantity != 3 {
		t.Fatalf("selections = %+v, want shave x3", got.Selections)
	}
	if got.Interval.Duration() != 30*time.Minute {
		t.Fatalf("duration = %s, want %s", got.Interval.Duration(), 30*time.Minute)
	}

	stored, _ := repo.booking(aliceBookingID)
	if len(stored.Selections) != 1 || stored.Selections[0].ServiceID != shave.ID {
		t.Fatalf("stored selections = %+v, want shave only", stored.Selections)
	}
	if stored.Notes != "" {
		t.Fatalf("notes = %q, want empty when the start did not change", stored.Notes)
	}
}

func TestReschedule_FailedSelectionReplacementRollsBack(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut)
	repo.replaceSelectionsErr = errors.New("connection reset")
	svc := NewService(repo, Options{})

	_, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{
		Start:    domain.Some("2025-08-15T15:00:00Z"),
		Services: domain.Some([]SelectionInput{{ServiceID: shave.ID}}),
		Notes:    domain.Some("changed my mind"),
	})
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("error = %v, want connection reset", err)
	}

	stored, _ := repo.booking(aliceBookingID)
	if !stored.BookingStart.Equal(at(9, 0)) {
		t.Fatalf("start = %v, want %v", stored.BookingStart, at(9, 0))
	}
	if stored.Notes != "" {
		t.Fatalf("notes = %q, want unchanged", stored.Notes)
	}
	if len(stored.Selections) != 1 || stored.Selections[0].ServiceID != haircut.ID {
		t.Fatalf("selections = %+v, want haircut only", stored.Selections)
	}
}

func TestReschedule_Authorization(t *testing.T) {
	tests := []struct {
		name   string
		actor  domain.Actor
		status domain.Status
	}{
		{name: "another user", actor: asBob, status: domain.StatusPending},
		{name: "admin is not the owner", actor: asAdmin, status: domain.StatusPending},
		{name: "completed", actor: asAlice, status: domain.StatusCompleted},
		{name: "cancelled", actor: asAlice, status: domain.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo()
			seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), tt.status, haircut)
			svc := NewService(repo, Options{})

			_, err := svc.Reschedule(context.Background(), tt.actor, aliceBookingID, RescheduleInput{
				Start: domain.Some("2025-08-15T16:00:00Z"),
			})
			wantForbidden(t, err)

			stored, _ := repo.booking(aliceBookingID)
			if !stored.BookingStart.Equal(at(9, 0)) {
				t.Fatalf("start = %v, want unchanged", stored.BookingStart)
			}
		})
	}

	t.Run("missing booking", func(t *testing.T) {
		svc := NewService(newTestRepo(), Options{})
		_, err := svc.Reschedule(context.Background(), asAlice, aliceBookingID, RescheduleInput{})
		wantNotFound(t, err)
	})
}

func TestReschedule_ConcurrentMovesIntoSameSlot(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, bobBookingID, bob.ID, at(16, 0), domain.StatusConfirmed, haircut)

	// Hold each scan open until both moves have scanned, or give up after a short wait.
	// Without the service lock both scans run before either write commits and both
	// moves succeed. With it the second scan only starts once the first move committed.
	var (
		mu    sync.Mutex
		scans int
	)
	both := make(chan struct{})
	repo.afterConfirmedRead = func() {
		mu.Lock()
		scans++
		if scans == 2 {
			close(both)
		}
		mu.Unlock()
		select {
		case <-both:
		case <-time.After(200 * time.Millisecond):
		}
	}
	svc := NewService(repo, Options{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	moves := []struct {
		actor domain.Actor
		id    uuid.UUID
	}{{asAlice, aliceBookingID}, {asBob, bobBookingID}}
	for i, m := range moves {
		wg.Add(1)
		go func(i int, actor domain.Actor, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Reschedule(context.Background(), actor, id, RescheduleInput{
				Start: domain.Some("2025-08-15T12:00:00Z"),
			})
		}(i, m.actor, m.id)
	}
	wg.Wait()

	var ok, conflicted int
	for _, err := range errs {
		var cErr *ConflictError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &cErr):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicted != 1 {
		t.Fatalf("succeeded=%d conflicted=%d, want 1 and 1", ok, conflicted)
	}

	var atNoon int
	for _, id := range []uuid.UUID{aliceBookingID, bobBookingID} {
		if b, _ := repo.booking(id); b.BookingStart.Equal(at(12, 0)) {
			atNoon++
		}
	}
	if atNoon != 1 {
		t.Fatalf("bookings at 12:00 = %d, want 1", atNoon)
	}
}

func TestSetStatus_AdminConfirmsWithoutRecheck(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, aliceBookingID, alice.ID, at(10, 30), domain.StatusPending, haircut)
	repo.state.bookings[aliceBookingID] = withNotes(repo.state.bookings[aliceBookingID], "keep me")
	pub := &recordingPublisher{}
	svc := NewService(repo, Options{Publisher: pub})

	got, err := svc.SetStatus(context.Background(), asAdmin, aliceBookingID, SetStatusInput{Status: "confirmed"})
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if got.Booking.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want %q", got.Booking.Status, domain.StatusConfirmed)
	}
	if got.Booking.Notes != "keep me" {
		t.Fatalf("notes = %q, want preserved", got.Booking.Notes)
	}
	if got.HandledByAdmin == nil || got.HandledByAdmin.ID != adminUser.ID {
		t.Fatalf("handled by admin = %v, want %s", got.HandledByAdmin, adminUser.ID)
	}
	if repo.confirmedQueries != 0 {
		t.Fatalf("confirmed queries = %d, want 0", repo.confirmedQueries)
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.BookingStatusChanged {
		t.Fatalf("events = %v, want [%s]", types, events.BookingStatusChanged)
	}
}

func TestSetStatus_RecheckOnAdminConfirm(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, aliceBookingID, alice.ID, at(10, 30), domain.StatusPending, haircut)
	svc := NewService(repo, Options{RecheckOnAdminConfirm: true})

	_, err := svc.SetStatus(context.Background(), asAdmin, aliceBookingID, SetStatusInput{Status: "confirmed"})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	stored, _ := repo.booking(aliceBookingID)
	if stored.Status != domain.StatusPending {
		t.Fatalf("status = %q, want %q", stored.Status, domain.StatusPending)
	}

	// Cancelling is never re-checked.
	if _, err := svc.SetStatus(context.Background(), asAdmin, aliceBookingID, SetStatusInput{Status: "cancelled"}); err != nil {
		t.Fatalf("SetStatus cancelled error: %v", err)
	}
}

func TestSetStatus_ReplacesNotesWhenSupplied(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusConfirmed, haircut)
	repo.state.bookings[aliceBookingID] = withNotes(repo.state.bookings[aliceBookingID], "old")
	svc := NewService(repo, Options{})

	got, err := svc.SetStatus(context.Background(), asAdmin, aliceBookingID, SetStatusInput{
		Status: "completed",
		Notes:  domain.Some(""),
	})
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if got.Booking.Notes != "" {
		t.Fatalf("notes = %q, want cleared", got.Booking.Notes)
	}
}

func TestSetStatus_Rejections(t *testing.T) {
	t.Run("non-admin", func(t *testing.T) {
		repo := newTestRepo()
		seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut)
		_, err := NewService(repo, Options{}).SetStatus(context.Background(), asAlice, aliceBookingID, SetStatusInput{Status: "confirmed"})
		wantForbidden(t, err)
	})

	t.Run("invalid status", func(t *testing.T) {
		repo := newTestRepo()
		seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut)
		_, err := NewService(repo, Options{}).SetStatus(context.Background(), asAdmin, aliceBookingID, SetStatusInput{Status: "archived"})
		wantValidation(t, err)
	})

	for _, st := range []domain.Status{domain.StatusCompleted, domain.StatusCancelled} {
		t.Run("terminal "+string(st), func(t *testing.T) {
			repo := newTestRepo()
			seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), st, haircut)
			_, err := NewService(repo, Options{}).SetStatus(context.Background(), asAdmin, aliceBookingID, SetStatusInput{Status: "pending"})
			wantForbidden(t, err)
			stored, _ := repo.booking(aliceBookingID)
			if stored.Status != st {
				t.Fatalf("status = %q, want %q", stored.Status, st)
			}
		})
	}
}

func TestAdminUpdate_PatchesFields(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut)
	repo.state.bookings[aliceBookingID] = withNotes(repo.state.bookings[aliceBookingID], "note")
	svc := NewService(repo, Options{})

	got, err := svc.AdminUpdate(context.Background(), asAdmin, aliceBookingID, AdminUpdateInput{
		Start: domain.Some("2025-08-15T13:00:00Z"),
	})
	if err != nil {
		t.Fatalf("AdminUpdate error: %v", err)
	}
	if !got.Booking.BookingStart.Equal(at(13, 0)) {
		t.Fatalf("start = %v, want %v", got.Booking.BookingStart, at(13, 0))
	}
	if got.Booking.Status != domain.StatusPending || got.Booking.Notes != "note" {
		t.Fatalf("booking = %+v, want status and notes preserved", got.Booking)
	}
	if got.HandledByAdmin == nil || got.HandledByAdmin.ID != adminUser.ID {
		t.Fatalf("handled by admin = %v, want %s", got.HandledByAdmin, adminUser.ID)
	}
}

func TestAdminUpdate_Rejections(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusCompleted, haircut)
	svc := NewService(repo, Options{})

	_, err := svc.AdminUpdate(context.Background(), asAlice, aliceBookingID, AdminUpdateInput{Notes: domain.Some("x")})
	wantForbidden(t, err)

	_, err = svc.AdminUpdate(context.Background(), asAdmin, aliceBookingID, AdminUpdateInput{Notes: domain.Some("x")})
	wantForbidden(t, err)

	_, err = svc.AdminUpdate(context.Background(), asAdmin, aliceBookingID, AdminUpdateInput{Start: domain.Some("soon")})
	wantValidation(t, err)
}

func TestAdminUpdate_RecheckWhenMovingConfirmedBooking(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, bobBookingID, bob.ID, at(10, 0), domain.StatusConfirmed, haircut)
	seedBooking(repo, aliceBookingID, alice.ID, at(14, 0), domain.StatusConfirmed, haircut)

	_, err := NewService(repo, Options{RecheckOnAdminConfirm: true}).AdminUpdate(context.Background(), asAdmin, aliceBookingID, AdminUpdateInput{
		Start: domain.Some("2025-08-15T10:45:00Z"),
	})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}

	if _, err := NewService(repo, Options{}).AdminUpdate(context.Background(), asAdmin, aliceBookingID, AdminUpdateInput{
		Start: domain.Some("2025-08-15T10:45:00Z"),
	}); err != nil {
		t.Fatalf("AdminUpdate without recheck error: %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		repo := newTestRepo()
		seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut, shave)
		pub := &recordingPublisher{}
		got, err := NewService(repo, Options{Publisher: pub}).Delete(context.Background(), asAlice, aliceBookingID)
		if err != nil {
			t.Fatalf("Delete error: %v", err)
		}
		if got.Booking.ID != aliceBookingID || len(got.Selections) != 2 {
			t.Fatalf("deleted = %+v, want the booking with its selections", got.Booking)
		}
		if _, ok := repo.booking(aliceBookingID); ok {
			t.Fatalf("booking still stored")
		}
		if types := pub.types(); len(types) != 1 || types[0] != events.BookingDeleted {
			t.Fatalf("events = %v, want [%s]", types, events.BookingDeleted)
		}
	})

	t.Run("admin deletes terminal booking", func(t *testing.T) {
		repo := newTestRepo()
		seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusCancelled, haircut)
		if _, err := NewService(repo, Options{}).Delete(context.Background(), asAdmin, aliceBookingID); err != nil {
			t.Fatalf("Delete error: %v", err)
		}
	})

	t.Run("other user", func(t *testing.T) {
		repo := newTestRepo()
		seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut)
		_, err := NewService(repo, Options{}).Delete(context.Background(), asBob, aliceBookingID)
		wantForbidden(t, err)
		if _, ok := repo.booking(aliceBookingID); !ok {
			t.Fatalf("booking deleted by another user")
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewService(newTestRepo(), Options{}).Delete(context.Background(), asAdmin, aliceBookingID)
		wantNotFound(t, err)
	})
}

func TestGet(t *testing.T) {
	repo := newTestRepo()
	seedBooking(repo, aliceBookingID, alice.ID, at(9, 0), domain.StatusPending, haircut)
	svc := NewService(repo, Options{})

	if _, err := svc.Get(context.Background(), asAlice, aliceBookingID); err != nil {
		t.Fatalf("Get as owner error: %v", err)
	}
	if _, err := svc.Get(context.Background(), asAdmin, aliceBookingID); err != nil {
		t.Fatalf("Get as admin error: %v", err)
	}
	_, err := svc.Get(context.Background(), asBob, aliceBookingID)
	wantForbidden(t, err)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	repo := newTestRepo()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(repo, Options{Publisher: pub})

	got, err := svc.Create(context.Background(), asAlice, CreateInput{
		Start:    "2025-08-15T10:00:00Z",
		Services: []SelectionInput{{ServiceID: haircut.ID}},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, ok := repo.booking(got.Booking.ID); !ok {
		t.Fatalf("booking not stored")
	}
}

func TestConflictError_Message(t *testing.T) {
	err := &ConflictError{Conflicts: []domain.Conflict{{BookingID: bobBookingID, Service: haircut}}}
	if !strings.Contains(err.Error(), "Haircut") {
		t.Fatalf("error = %q, want service name", err.Error())
	}
}

func withNotes(b domain.Booking, notes string) domain.Booking {
	b.Notes = notes
	return b
}

func wantForbidden(t *testing.T, err error) {
	t.Helper()
	var fErr *ForbiddenError
	if !errors.As(err, &fErr) {
		t.Fatalf("error = %v, want *ForbiddenError", err)
	}
}

func wantValidation(t *testing.T, err error) {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

func wantNotFound(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want store.ErrNotFound", err)
	}
}
