// Package notify carries lifecycle events to the surrounding
// application's notification machinery (mail, calendar mirroring).
// Delivery is strictly fire-and-forget: a failed or slow notification
// never affects the state change that produced it.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campsite-bookings/internal/booking"
)

// Event describes one successful status transition.
type Event struct {
	ID        string // event id, not booking id
	BookingID string
	From      booking.Status
	To        booking.Status
	Timestamp time.Time
}

type Gateway interface {
	Notify(ev Event)
}

// LogGateway records events to the structured log. It stands in for the
// mail/calendar integrations the surrounding application provides.
type LogGateway struct {
	Log zerolog.Logger
}

func (g LogGateway) Notify(ev Event) {
	g.Log.Info().
		Str("event_id", ev.ID).
		Str("booking_id", ev.BookingID).
		Str("from", string(ev.From)).
		Str("to", string(ev.To)).
		Time("at", ev.Timestamp).
		Msg("booking lifecycle event")
}

// Async wraps a gateway so Notify returns immediately. Close drains
// in-flight deliveries.
type Async struct {
	Next Gateway
	wg   sync.WaitGroup
}

func NewAsync(next Gateway) *Async { return &Async{Next: next} }

func (a *Async) Notify(ev Event) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Next.Notify(ev)
	}()
}

func (a *Async) Close() {
	a.wg.Wait()
}
