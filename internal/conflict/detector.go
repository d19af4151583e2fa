// Package conflict finds facility clashes between bookings: two
// non-cancelled bookings sharing a facility with overlapping stay
// intervals. The predicate is read-only and is used both on the booking
// detail view and as the gate on confirmation.
package conflict

import (
	"context"
	"sort"
	"time"

	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/store"
)

type Detector struct {
	Store store.BookingStore
}

func NewDetector(s store.BookingStore) *Detector { return &Detector{Store: s} }

// FindClashes returns every active (non-cancelled) booking other than
// excludeID whose facility set intersects facilities and whose
// [arriving, departing) interval overlaps [start, end), ordered by
// arriving ascending then id ascending.
func (d *Detector) FindClashes(ctx context.Context, facilities []string, start, end time.Time, excludeID string) ([]booking.Record, error) {
	recs, err := d.Store.ListActive(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}

	var out []booking.Record
	for _, rec := range recs {
		if rec.Booking.ID == excludeID {
			continue
		}
		if !booking.ActiveForConflicts(rec.Tracking.Status) {
			continue
		}
		if !sharesFacility(facilities, rec.Booking.Facilities) {
			continue
		}
		if !store.Overlaps(rec.Booking.Arriving, rec.Booking.Departing, start, end) {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Booking, out[j].Booking
		if !a.Arriving.Equal(b.Arriving) {
			return a.Arriving.Before(b.Arriving)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// ClashesFor is the detail-view form of the query: clashes against an
// existing booking's own facilities and dates.
func (d *Detector) ClashesFor(ctx context.Context, rec booking.Record) ([]booking.Record, error) {
	return d.FindClashes(ctx, rec.Booking.Facilities, rec.Booking.Arriving, rec.Booking.Departing, rec.Booking.ID)
}

func sharesFacility(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
