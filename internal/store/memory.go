package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/campsite-bookings/internal/booking"
)

// Memory is a mutex-guarded in-process BookingStore. Records are deep
// copied on the way in and out so callers never alias store state.
type Memory struct {
	mu      sync.RWMutex
	live    map[string]booking.Record
	archive map[string]booking.Record
	extKeys map[string]string // external key -> id, spans both partitions
	seq     map[string]int    // "PREFIX-YEAR" -> last allocated index
}

func NewMemory() *Memory {
	return &Memory{
		live:    make(map[string]booking.Record),
		archive: make(map[string]booking.Record),
		extKeys: make(map[string]string),
		seq:     make(map[string]int),
	}
}

func (m *Memory) Create(ctx context.Context, rec booking.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rec.Booking.ID
	if _, ok := m.live[id]; ok {
		return fmt.Errorf("%w: duplicate id %s", booking.ErrConflict, id)
	}
	if _, ok := m.archive[id]; ok {
		return fmt.Errorf("%w: duplicate id %s", booking.ErrConflict, id)
	}
	if other, ok := m.extKeys[rec.Booking.ExternalKey]; ok {
		return fmt.Errorf("%w: external key already tracked by %s", booking.ErrConflict, other)
	}
	m.live[id] = rec.Clone()
	m.extKeys[rec.Booking.ExternalKey] = id
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return booking.Record{}, fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.live[id]
	if !ok {
		return booking.Record{}, fmt.Errorf("%w: %s", booking.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

func (m *Memory) GetByExternalKey(ctx context.Context, key string) (booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return booking.Record{}, fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.extKeys[key]
	if !ok {
		return booking.Record{}, fmt.Errorf("%w: external key", booking.ErrNotFound)
	}
	if rec, ok := m.live[id]; ok {
		return rec.Clone(), nil
	}
	if rec, ok := m.archive[id]; ok {
		return rec.Clone(), nil
	}
	return booking.Record{}, fmt.Errorf("%w: external key", booking.ErrNotFound)
}

func (m *Memory) UpdateTracking(ctx context.Context, id string, tr booking.TrackingRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.live[id]
	if !ok {
		return fmt.Errorf("%w: %s", booking.ErrNotFound, id)
	}
	rec.Tracking = tr
	m.live[id] = rec.Clone()
	return nil
}

func (m *Memory) UpdateBookingFields(ctx context.Context, id string, b booking.Booking) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.live[id]
	if !ok {
		return fmt.Errorf("%w: %s", booking.ErrNotFound, id)
	}
	// Editable fields only; identity and audit fields stay as stored.
	rec.Booking.GroupName = b.GroupName
	rec.Booking.GroupType = b.GroupType
	rec.Booking.GroupSize = b.GroupSize
	rec.Booking.LeaderName = b.LeaderName
	rec.Booking.LeaderPhone = b.LeaderPhone
	rec.Booking.LeaderEmail = b.LeaderEmail
	rec.Booking.Arriving = b.Arriving
	rec.Booking.Departing = b.Departing
	rec.Booking.Facilities = append([]string(nil), b.Facilities...)
	rec.Booking.CostEstimate = b.CostEstimate
	m.live[id] = rec.Clone()
	return nil
}

func (m *Memory) ListActive(ctx context.Context, f Filter) ([]booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Record
	for _, rec := range m.live {
		if f.Status != "" && rec.Tracking.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && !f.To.IsZero() &&
			!Overlaps(rec.Booking.Arriving, rec.Booking.Departing, f.From, f.To) {
			continue
		}
		out = append(out, rec.Clone())
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) ListArchive(ctx context.Context) ([]booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Record
	for _, rec := range m.archive {
		out = append(out, rec.Clone())
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) MoveToArchive(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.live[id]
	if !ok {
		return fmt.Errorf("%w: %s", booking.ErrNotFound, id)
	}
	archived := rec.Clone()
	archived.Booking.LeaderName = ""
	archived.Booking.LeaderPhone = ""
	archived.Booking.LeaderEmail = ""
	m.archive[id] = archived
	delete(m.live, id)
	return nil
}

func (m *Memory) NextID(ctx context.Context, prefix string, year int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", booking.ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s-%d", prefix, year)
	m.seq[key]++
	return fmt.Sprintf("%s-%d-%04d", prefix, year, m.seq[key]), nil
}

func sortRecords(recs []booking.Record) {
	sort.Slice(recs, func(i, j int) bool {
		ri, rj := recs[i], recs[j]
		if a, b := statusRank(ri.Tracking.Status), statusRank(rj.Tracking.Status); a != b {
			return a < b
		}
		if !ri.Booking.Arriving.Equal(rj.Booking.Arriving) {
			return ri.Booking.Arriving.Before(rj.Booking.Arriving)
		}
		return ri.Booking.ID < rj.Booking.ID
	})
}
