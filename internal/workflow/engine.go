// Package workflow owns the authoritative status of each booking. All
// status transitions and field edits go through Engine, which enforces the
// transition table, gates confirmation on the clash check, keeps the notes
// log, and emits lifecycle events.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/conflict"
	"github.com/example/campsite-bookings/internal/metrics"
	"github.com/example/campsite-bookings/internal/notify"
	"github.com/example/campsite-bookings/internal/store"
)

type Engine struct {
	Store     store.BookingStore
	Conflicts *conflict.Detector
	Gateway   notify.Gateway
	Locks     *KeyedMutex
	Location  *time.Location
	Log       zerolog.Logger

	// Now is the transition clock; replaceable in tests.
	Now func() time.Time

	// confirmMu serializes confirmations so the clash check and the status
	// write commit as one step. Two concurrent confirms of overlapping
	// bookings hold different per-id locks, so without this both could
	// pass the check before either lands.
	confirmMu sync.Mutex
}

func NewEngine(s store.BookingStore, d *conflict.Detector, g notify.Gateway, locks *KeyedMutex, loc *time.Location, log zerolog.Logger) *Engine {
	return &Engine{
		Store:     s,
		Conflicts: d,
		Gateway:   g,
		Locks:     locks,
		Location:  loc,
		Log:       log,
		Now:       time.Now,
	}
}

// RequestTransition moves a booking to target, applying the side effects
// the target demands (storing a pend question or cancel reason, clearing
// them on the way out) and appending to the notes log. All of it commits
// in one tracking write or not at all.
func (e *Engine) RequestTransition(ctx context.Context, id string, target booking.Status, reason string) (booking.TrackingRecord, error) {
	unlock := e.Locks.Lock(id)
	defer unlock()

	rec, err := e.Store.Get(ctx, id)
	if err != nil {
		return booking.TrackingRecord{}, err
	}

	from := rec.Tracking.Status
	if !booking.CanTransition(from, target) {
		return booking.TrackingRecord{}, fmt.Errorf("%w: %s: %s > %s", booking.ErrInvalidTransition, id, from, target)
	}

	reason = strings.TrimSpace(reason)
	if booking.RequiresReason(target) && reason == "" {
		what := "cancellation reason"
		if target == booking.StatusPending {
			what = "question for the requester"
		}
		return booking.TrackingRecord{}, fmt.Errorf("%w: %s: %s required", booking.ErrInvalidTransition, id, what)
	}

	// A cancelled booking may only come back while its arrival is still
	// ahead of us. Past stays are not resurrected.
	if from == booking.StatusCancelled && target == booking.StatusNew {
		if !rec.Booking.Arriving.After(e.Now()) {
			return booking.TrackingRecord{}, fmt.Errorf("%w: %s: arrival date is in the past", booking.ErrInvalidTransition, id)
		}
	}

	if target == booking.StatusConfirmed {
		e.confirmMu.Lock()
		defer e.confirmMu.Unlock()

		clashes, err := e.Conflicts.FindClashes(ctx, rec.Booking.Facilities, rec.Booking.Arriving, rec.Booking.Departing, id)
		if err != nil {
			return booking.TrackingRecord{}, err
		}
		// Unconfirmed overlaps are warnings on the detail view; only a
		// booking already holding the slot blocks confirmation.
		var blocking []string
		for _, c := range clashes {
			if booking.BlocksConfirmation(c.Tracking.Status) {
				blocking = append(blocking, c.Booking.ID)
			}
		}
		if len(blocking) > 0 {
			metrics.BlockedConfirmations.Inc()
			return booking.TrackingRecord{}, fmt.Errorf("%w: %s clashes with %s", booking.ErrConflictBlocked, id, strings.Join(blocking, ", "))
		}
	}

	t := rec.Tracking
	t.Status = target
	if from == booking.StatusPending {
		t.PendQuestion = ""
	}
	switch {
	case target == booking.StatusPending:
		t.PendQuestion = reason
		e.addNote(&t, "Pend Question: "+reason)
	case target == booking.StatusCancelled:
		t.CancelReason = reason
		t.PendQuestion = ""
		e.addNote(&t, "Cancel Reason: "+reason)
	case from == booking.StatusCancelled && target == booking.StatusNew:
		t.CancelReason = ""
	}
	e.addNote(&t, fmt.Sprintf("Status changed [%s] > [%s]", from, target))

	if err := e.Store.UpdateTracking(ctx, id, t); err != nil {
		return booking.TrackingRecord{}, err
	}

	metrics.Transitions.WithLabelValues(string(from), string(target)).Inc()
	e.Log.Info().Str("booking_id", id).Str("from", string(from)).Str("to", string(target)).Msg("status changed")
	e.Gateway.Notify(notify.Event{
		ID:        uuid.NewString(),
		BookingID: id,
		From:      from,
		To:        target,
		Timestamp: e.Now(),
	})

	return t, nil
}

// UpdateBookingFields applies an allow-listed field patch under the same
// per-booking lock transitions use. Edits are refused once the booking has
// left the editable statuses.
func (e *Engine) UpdateBookingFields(ctx context.Context, id string, patch booking.FieldPatch) (booking.Record, error) {
	unlock := e.Locks.Lock(id)
	defer unlock()

	rec, err := e.Store.Get(ctx, id)
	if err != nil {
		return booking.Record{}, err
	}
	if !booking.Editable(rec.Tracking.Status) {
		return booking.Record{}, fmt.Errorf("%w: %s is %s", booking.ErrReadOnly, id, rec.Tracking.Status)
	}

	changes, err := patch.Apply(&rec.Booking, e.fmtTime)
	if err != nil {
		return booking.Record{}, fmt.Errorf("%s: %w", id, err)
	}
	if len(changes) == 0 {
		return rec, nil
	}

	if err := e.Store.UpdateBookingFields(ctx, id, rec.Booking); err != nil {
		return booking.Record{}, err
	}
	for _, c := range changes {
		e.addNote(&rec.Tracking, c)
		e.Log.Info().Str("booking_id", id).Msg(c)
	}
	if err := e.Store.UpdateTracking(ctx, id, rec.Tracking); err != nil {
		return booking.Record{}, err
	}
	return rec, nil
}

func (e *Engine) addNote(t *booking.TrackingRecord, note string) {
	t.Notes = append(t.Notes, booking.NoteEntry(e.Now(), e.Location, note))
}

func (e *Engine) fmtTime(v time.Time) string {
	return v.In(e.Location).Format(booking.NoteTimeFormat)
}
