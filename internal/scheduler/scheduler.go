// Package scheduler drives the background passes: pulling new rows from
// the source, auto-progressing bookings whose stay has ended, and the
// retention sweep. Request-driven operations keep running concurrently;
// everything here goes through the same engines and locks they use.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campsite-bookings/internal/archive"
	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/reconcile"
	"github.com/example/campsite-bookings/internal/source"
	"github.com/example/campsite-bookings/internal/store"
	"github.com/example/campsite-bookings/internal/workflow"
)

type Scheduler struct {
	Source    source.RowSource
	Reconcile *reconcile.Engine
	Workflow  *workflow.Engine
	Sweeper   *archive.Sweeper
	Store     store.BookingStore

	PullInterval  time.Duration
	SweepInterval time.Duration
	Retention     time.Duration

	Log zerolog.Logger
	Now func() time.Time
}

func (s *Scheduler) Run(ctx context.Context) error {
	pull := time.NewTicker(s.PullInterval)
	defer pull.Stop()
	sweep := time.NewTicker(s.SweepInterval)
	defer sweep.Stop()

	// kick immediately
	s.pullTick(ctx)
	s.sweepTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pull.C:
			s.pullTick(ctx)
		case <-sweep.C:
			s.sweepTick(ctx)
		}
	}
}

func (s *Scheduler) pullTick(ctx context.Context) {
	rows, err := s.Source.Rows(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("scheduler: source read failed")
		return
	}
	sum, err := s.Reconcile.Pull(ctx, rows)
	if err != nil {
		s.Log.Error().Err(err).Msg("scheduler: pull pass failed")
		return
	}
	if sum.Created > 0 || len(sum.Errored) > 0 {
		s.Log.Info().Int("created", sum.Created).Int("skipped", sum.Skipped).Int("errored", len(sum.Errored)).Msg("pull pass done")
	}
}

func (s *Scheduler) sweepTick(ctx context.Context) {
	s.autoProgress(ctx)

	moved, err := s.Sweeper.Sweep(ctx, s.now(), s.Retention)
	if err != nil {
		s.Log.Error().Err(err).Msg("scheduler: sweep pass failed")
		return
	}
	if moved > 0 {
		s.Log.Info().Int("archived", moved).Msg("sweep pass done")
	}
}

// autoProgress moves Confirmed bookings whose departure has passed on to
// Invoice; bookings that don't need an invoice are completed in the same
// pass. Both steps go through the ordinary transition path so the notes
// log and lifecycle events stay complete.
func (s *Scheduler) autoProgress(ctx context.Context) {
	now := s.now()

	recs, err := s.Store.ListActive(ctx, store.Filter{Status: booking.StatusConfirmed})
	if err != nil {
		s.Log.Error().Err(err).Msg("scheduler: auto-progress list failed")
		return
	}
	for _, rec := range recs {
		if !rec.Booking.Departing.Before(now) {
			continue
		}
		id := rec.Booking.ID
		t, err := s.Workflow.RequestTransition(ctx, id, booking.StatusInvoice, "")
		if err != nil {
			// A racing manual transition is fine; anything else is worth a log line.
			if !errors.Is(err, booking.ErrInvalidTransition) {
				s.Log.Error().Err(err).Str("booking_id", id).Msg("scheduler: auto-progress failed")
			}
			continue
		}
		if !t.NeedsInvoice {
			if _, err := s.Workflow.RequestTransition(ctx, id, booking.StatusCompleted, ""); err != nil {
				s.Log.Error().Err(err).Str("booking_id", id).Msg("scheduler: auto-complete failed")
			}
		}
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
