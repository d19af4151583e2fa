package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/conflict"
	"github.com/example/campsite-bookings/internal/notify"
	"github.com/example/campsite-bookings/internal/store"
)

type captureGateway struct {
	mu     sync.Mutex
	events []notify.Event
}

func (g *captureGateway) Notify(ev notify.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, ev)
}

func (g *captureGateway) all() []notify.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]notify.Event(nil), g.events...)
}

var testNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *store.Memory, *captureGateway) {
	t.Helper()
	m := store.NewMemory()
	gw := &captureGateway{}
	e := NewEngine(m, conflict.NewDetector(m), gw, NewKeyedMutex(), time.UTC, zerolog.Nop())
	e.Now = func() time.Time { return testNow }
	return e, m, gw
}

func seedBooking(t *testing.T, m *store.Memory, id string, status booking.Status, facilities []string, arriving, departing time.Time) {
	t.Helper()
	err := m.Create(context.Background(), booking.Record{
		Booking: booking.Booking{
			ID:          id,
			ExternalKey: "key-" + id,
			GroupName:   "Group " + id,
			GroupType:   "district_day_visit",
			GroupSize:   8,
			LeaderName:  "Pat Leader",
			LeaderEmail: id + "@example.org",
			Submitted:   testNow.Add(-24 * time.Hour),
			Arriving:    arriving,
			Departing:   departing,
			Facilities:  facilities,
		},
		Tracking: booking.TrackingRecord{Status: status},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func june(day, hour int) time.Time { return time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC) }

func TestRequestTransitionNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.RequestTransition(context.Background(), "missing", booking.StatusConfirmed, "")
	if !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestTransitionInvalidEdgeLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	e, m, gw := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))

	_, err := e.RequestTransition(ctx, "A", booking.StatusCompleted, "")
	if !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	rec, _ := m.Get(ctx, "A")
	if rec.Tracking.Status != booking.StatusNew {
		t.Fatalf("failed transition must not change status, got %s", rec.Tracking.Status)
	}
	if len(rec.Tracking.Notes) != 0 {
		t.Fatalf("failed transition must not append notes: %v", rec.Tracking.Notes)
	}
	if len(gw.all()) != 0 {
		t.Fatalf("failed transition must not emit events")
	}
}

func TestRequestTransitionReasonRequired(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))

	for _, target := range []booking.Status{booking.StatusCancelled, booking.StatusPending} {
		if _, err := e.RequestTransition(ctx, "A", target, "  "); !errors.Is(err, booking.ErrInvalidTransition) {
			t.Fatalf("%s without reason: expected ErrInvalidTransition, got %v", target, err)
		}
	}
}

func TestPendingStoresQuestionAndClearsOnLeave(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))

	tr, err := e.RequestTransition(ctx, "A", booking.StatusPending, "Do you need the kitchen?")
	if err != nil {
		t.Fatalf("to pending: %v", err)
	}
	if tr.PendQuestion != "Do you need the kitchen?" {
		t.Fatalf("pend question not stored: %+v", tr)
	}

	tr, err = e.RequestTransition(ctx, "A", booking.StatusConfirmed, "")
	if err != nil {
		t.Fatalf("to confirmed: %v", err)
	}
	if tr.PendQuestion != "" {
		t.Fatalf("pend question must clear on leaving Pending: %+v", tr)
	}

	rec, _ := m.Get(ctx, "A")
	joined := strings.Join(rec.Tracking.Notes, "\n")
	if !strings.Contains(joined, "Pend Question: Do you need the kitchen?") ||
		!strings.Contains(joined, "Status changed [New] > [Pending]") ||
		!strings.Contains(joined, "Status changed [Pending] > [Confirmed]") {
		t.Fatalf("notes incomplete:\n%s", joined)
	}
}

func TestCancelStoresReasonAndResurrectionClearsIt(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))

	tr, err := e.RequestTransition(ctx, "A", booking.StatusCancelled, "rained off")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if tr.CancelReason != "rained off" {
		t.Fatalf("cancel reason not stored: %+v", tr)
	}

	tr, err = e.RequestTransition(ctx, "A", booking.StatusNew, "")
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	if tr.CancelReason != "" {
		t.Fatalf("cancel reason must clear on resurrection: %+v", tr)
	}
	rec, _ := m.Get(ctx, "A")
	if rec.Tracking.Status != booking.StatusNew {
		t.Fatalf("expected New, got %s", rec.Tracking.Status)
	}
}

func TestResurrectionRefusedForPastArrival(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	// arrival before testNow
	seedBooking(t, m, "A", booking.StatusCancelled, []string{"Hall"}, testNow.Add(-48*time.Hour), testNow.Add(-24*time.Hour))

	_, err := e.RequestTransition(ctx, "A", booking.StatusNew, "")
	if !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	rec, _ := m.Get(ctx, "A")
	if rec.Tracking.Status != booking.StatusCancelled {
		t.Fatalf("booking must stay Cancelled, got %s", rec.Tracking.Status)
	}
}

// Two New bookings overlap on the Hall. Confirming the first succeeds
// (nothing holds the slot yet); confirming the second is then refused,
// naming the first; cancelling the first frees the second.
func TestConfirmClashScenario(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))
	seedBooking(t, m, "B", booking.StatusNew, []string{"Hall"}, june(2, 9), june(2, 18))

	if _, err := e.RequestTransition(ctx, "A", booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirming A with only unconfirmed overlaps should succeed: %v", err)
	}

	_, err := e.RequestTransition(ctx, "B", booking.StatusConfirmed, "")
	if !errors.Is(err, booking.ErrConflictBlocked) {
		t.Fatalf("expected ErrConflictBlocked, got %v", err)
	}
	if !strings.Contains(err.Error(), "A") {
		t.Fatalf("blocked error should name the clashing booking: %v", err)
	}
	rec, _ := m.Get(ctx, "B")
	if rec.Tracking.Status != booking.StatusNew {
		t.Fatalf("blocked confirm must leave status, got %s", rec.Tracking.Status)
	}
	if len(rec.Tracking.Notes) != 0 {
		t.Fatalf("blocked confirm must not append notes: %v", rec.Tracking.Notes)
	}

	// Cancelling A unblocks B.
	if _, err := e.RequestTransition(ctx, "A", booking.StatusCancelled, "clash resolved"); err != nil {
		t.Fatalf("cancel A: %v", err)
	}
	if _, err := e.RequestTransition(ctx, "B", booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm B after cancelling A: %v", err)
	}
}

func TestLifecycleEventsEmitted(t *testing.T) {
	ctx := context.Background()
	e, m, gw := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))

	if _, err := e.RequestTransition(ctx, "A", booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	events := gw.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.BookingID != "A" || ev.From != booking.StatusNew || ev.To != booking.StatusConfirmed {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.ID == "" || !ev.Timestamp.Equal(testNow) {
		t.Fatalf("event id/timestamp missing: %+v", ev)
	}
}

func TestFullLifecycleToCompleted(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))

	for _, target := range []booking.Status{booking.StatusConfirmed, booking.StatusInvoice, booking.StatusCompleted} {
		if _, err := e.RequestTransition(ctx, "A", target, ""); err != nil {
			t.Fatalf("to %s: %v", target, err)
		}
	}
	rec, _ := m.Get(ctx, "A")
	if rec.Tracking.Status != booking.StatusCompleted {
		t.Fatalf("expected Completed, got %s", rec.Tracking.Status)
	}
	// Completed is terminal.
	if _, err := e.RequestTransition(ctx, "A", booking.StatusNew, ""); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from Completed, got %v", err)
	}
}

func TestUpdateBookingFields(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))

	size := 15
	rec, err := e.UpdateBookingFields(ctx, "A", booking.FieldPatch{GroupSize: &size})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if rec.Booking.GroupSize != 15 {
		t.Fatalf("edit not applied: %+v", rec.Booking)
	}

	stored, _ := m.Get(ctx, "A")
	if stored.Booking.GroupSize != 15 {
		t.Fatalf("edit not persisted: %+v", stored.Booking)
	}
	joined := strings.Join(stored.Tracking.Notes, "\n")
	if !strings.Contains(joined, "group_size changed from [8] to [15]") {
		t.Fatalf("edit note missing:\n%s", joined)
	}
}

func TestUpdateBookingFieldsReadOnly(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)

	size := 15
	for i, status := range []booking.Status{booking.StatusCancelled, booking.StatusInvoice, booking.StatusCompleted} {
		id := string(rune('A' + i))
		seedBooking(t, m, id, status, []string{"Hall"}, june(1, 10), june(3, 10))
		_, err := e.UpdateBookingFields(ctx, id, booking.FieldPatch{GroupSize: &size})
		if !errors.Is(err, booking.ErrReadOnly) {
			t.Fatalf("%s: expected ErrReadOnly, got %v", status, err)
		}
	}
}

func TestConcurrentConfirmOnClashingBookings(t *testing.T) {
	ctx := context.Background()
	e, m, _ := newTestEngine(t)
	seedBooking(t, m, "A", booking.StatusNew, []string{"Hall"}, june(1, 10), june(3, 10))
	seedBooking(t, m, "B", booking.StatusNew, []string{"Hall"}, june(2, 9), june(2, 18))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"A", "B"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = e.RequestTransition(ctx, id, booking.StatusConfirmed, "")
		}(i, id)
	}
	wg.Wait()

	confirmed := 0
	for _, err := range errs {
		if err == nil {
			confirmed++
		} else if !errors.Is(err, booking.ErrConflictBlocked) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Confirmations are serialized: exactly one wins, the other sees the
	// winner holding the slot.
	if confirmed != 1 {
		t.Fatalf("expected exactly one confirmed booking, got %d", confirmed)
	}
}
