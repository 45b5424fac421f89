package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals share any instant.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// TotalDuration sums service durations. Selection quantity is deliberately not applied.
func TotalDuration(services []Service) time.Duration {
	var total time.Duration
	for _, s := range services {
		total += s.Duration()
	}
	return total
}

func OccupiedInterval(start time.Time, services []Service) Interval {
	start = start.UTC()
	return Interval{Start: start, End: start.Add(TotalDuration(services))}
}

// ParseInstant parses an ISO-8601 instant and normalizes it to UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("timestamp is required")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("timestamp must be an ISO-8601 instant")
	}
	return t.UTC(), nil
}

// ScheduledBooking is an existing booking with the services it selected, in selection order.
type ScheduledBooking struct {
	Booking  Booking
	Services []Service
}

func (sb ScheduledBooking) Interval() Interval {
	return OccupiedInterval(sb.Booking.BookingStart, sb.Services)
}

// Overlap is an unresolved conflict between a candidate interval and one service of an existing booking.
type Overlap struct {
	BookingID  uuid.UUID
	CustomerID uuid.UUID
	Interval   Interval
	Service    Service
}

// FindOverlaps scans existing bookings in order and returns one Overlap per requested
// service shared with every booking whose occupied interval overlaps the candidate.
func FindOverlaps(candidate Interval, requested []uuid.UUID, existing []ScheduledBooking) []Overlap {
	want := make(map[uuid.UUID]struct{}, len(requested))
	for _, id := range requested {
		want[id] = struct{}{}
	}

	var out []Overlap
	for _, sb := range existing {
		occupied := sb.Interval()
		if !candidate.Overlaps(occupied) {
			continue
		}
		for _, svc := range sb.Services {
			if _, ok := want[svc.ID]; !ok {
				continue
			}
			out = append(out, Overlap{
				BookingID:  sb.Booking.ID,
				CustomerID: sb.Booking.UserID,
				Interval:   occupied,
				Service:    svc,
			})
		}
	}
	return out
}

// Conflict is an Overlap with the service owner and the conflicting booking's customer resolved.
type Conflict struct {
	BookingID    uuid.UUID
	BookingStart time.Time
	BookingEnd   time.Time
	Service      Service
	ServiceOwner User
	Customer     User
}

type Availability struct {
	Available bool
	Interval  Interval
	Conflicts []Conflict
}
