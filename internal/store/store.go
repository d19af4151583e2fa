// Package store defines the durable storage contract for booking records
// and provides the in-memory implementation used by tests and local mode.
// The Postgres implementation lives in internal/postgres.
package store

import (
	"context"
	"time"

	"github.com/example/campsite-bookings/internal/booking"
)

// Filter narrows ListActive. Zero values mean "no constraint"; From/To,
// when both set, select bookings whose [arriving, departing) interval
// overlaps the half-open window [From, To).
type Filter struct {
	Status booking.Status
	From   time.Time
	To     time.Time
}

// BookingStore is the durable keyed storage collaborator. Implementations
// report failures through the booking taxonomy: ErrNotFound for a missing
// id/key, ErrConflict for a uniqueness violation (duplicate id or external
// key), ErrUnavailable when the backend cannot be reached in time.
type BookingStore interface {
	// Create stores a brand-new record. The external key is unique across
	// the active and archive partitions.
	Create(ctx context.Context, rec booking.Record) error

	Get(ctx context.Context, id string) (booking.Record, error)

	// GetByExternalKey searches the active and archive partitions, so a
	// re-imported row never resurrects an archived booking.
	GetByExternalKey(ctx context.Context, key string) (booking.Record, error)

	UpdateTracking(ctx context.Context, id string, tr booking.TrackingRecord) error

	// UpdateBookingFields persists the editable booking fields of b over
	// the stored row. Identity and audit fields (id, external key,
	// submitted, original source data) are never touched.
	UpdateBookingFields(ctx context.Context, id string, b booking.Booking) error

	// ListActive returns active records ordered by status (workflow order),
	// then arriving, then id.
	ListActive(ctx context.Context, f Filter) ([]booking.Record, error)

	ListArchive(ctx context.Context) ([]booking.Record, error)

	// MoveToArchive moves a record out of the active set atomically,
	// blanking leader personal data in the archived copy while keeping the
	// booking details and the full note history.
	MoveToArchive(ctx context.Context, id string) error

	// NextID allocates the next booking id for a group-type prefix,
	// formatted PREFIX-YEAR-NNNN from a persisted per-prefix-and-year
	// counter.
	NextID(ctx context.Context, prefix string, year int) (string, error)
}

// Overlaps is the half-open interval test used for filters and clash
// detection: [aStart, aEnd) and [bStart, bEnd) share at least one instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// statusRank orders statuses the way the booking list displays them.
func statusRank(s booking.Status) int {
	for i, st := range booking.Statuses() {
		if st == s {
			return i
		}
	}
	return len(booking.Statuses())
}
