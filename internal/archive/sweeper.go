// Package archive moves terminal bookings past the retention window out
// of the active set. Archived records are read-only history: nothing in
// the core writes to the archive partition after the move.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/metrics"
	"github.com/example/campsite-bookings/internal/store"
	"github.com/example/campsite-bookings/internal/workflow"
)

type Sweeper struct {
	Store store.BookingStore
	Locks *workflow.KeyedMutex
	Log   zerolog.Logger
}

func NewSweeper(s store.BookingStore, locks *workflow.KeyedMutex, log zerolog.Logger) *Sweeper {
	return &Sweeper{Store: s, Locks: locks, Log: log}
}

// Sweep archives every Cancelled/Completed booking whose departure is
// older than now-retention, and returns how many it moved. Each candidate
// is re-checked under its per-booking lock right before the move, since a
// cancelled booking can be resurrected between selection and move. A store
// outage aborts the pass; it is safe to retry.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	cutoff := now.Add(-retention)

	recs, err := s.Store.ListActive(ctx, store.Filter{})
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	moved := 0
	for _, rec := range recs {
		if !eligible(rec, cutoff) {
			continue
		}
		id := rec.Booking.ID

		unlock := s.Locks.Lock(id)
		cur, err := s.Store.Get(ctx, id)
		if err != nil {
			unlock()
			if errors.Is(err, booking.ErrNotFound) {
				continue // already gone
			}
			return moved, fmt.Errorf("sweep: %w", err)
		}
		if !eligible(cur, cutoff) {
			unlock()
			continue
		}
		err = s.Store.MoveToArchive(ctx, id)
		unlock()
		if err != nil {
			if errors.Is(err, booking.ErrNotFound) {
				continue
			}
			return moved, fmt.Errorf("sweep: %w", err)
		}

		moved++
		metrics.Archived.Inc()
		s.Log.Info().Str("booking_id", id).Str("status", string(cur.Tracking.Status)).Msg("booking archived")
	}
	return moved, nil
}

func eligible(rec booking.Record, cutoff time.Time) bool {
	return booking.Archivable(rec.Tracking.Status) && rec.Booking.Departing.Before(cutoff)
}
