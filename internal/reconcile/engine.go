// Package reconcile merges raw submissions from the external source of
// truth into the tracked booking set. Re-importing is idempotent and never
// touches an existing booking: once a row is tracked, later copies of it
// are skipped no matter what changed at the source.
package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/metrics"
	"github.com/example/campsite-bookings/internal/store"
)

// Source row date layouts (the sheet export's formats).
const (
	rowDateTimeFormat = "02/01/2006 15:04:05"
	rowTimeFormat     = "15:04:05"
)

// Reserved row fields read directly rather than through the key mapping.
const (
	fieldTimestamp = "timestamp"
	fieldArrival   = "arrival_date_time"
	fieldDeparture = "departure_time"
	fieldGroupType = "group_type"
)

// RawRow is one submission as field-name -> string-value, exactly as the
// source exported it.
type RawRow map[string]string

// ExternalKey derives the stable dedup key for a row: a sha256 over the
// sorted field/value pairs, so the same row always keys the same.
func ExternalKey(row RawRow) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(row[k]))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RowError records one rejected row and why.
type RowError struct {
	Row    int
	Reason string
}

type PullSummary struct {
	Created int
	Skipped int
	Errored []RowError
}

type Engine struct {
	Store    store.BookingStore
	Mappings Mappings
	Location *time.Location
	Log      zerolog.Logger

	Now func() time.Time

	mu sync.Mutex // one pull in flight at a time
}

func NewEngine(s store.BookingStore, m Mappings, loc *time.Location, log zerolog.Logger) *Engine {
	return &Engine{Store: s, Mappings: m, Location: loc, Log: log, Now: time.Now}
}

// Pull merges rows into the store. Malformed rows are recorded and do not
// abort the pass; a store outage does, leaving already-created bookings in
// place (the pass is safe to retry, rows already landed will be skipped).
func (e *Engine) Pull(ctx context.Context, rows []RawRow) (PullSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum PullSummary
	for i, row := range rows {
		key := ExternalKey(row)

		_, err := e.Store.GetByExternalKey(ctx, key)
		switch {
		case err == nil:
			sum.Skipped++
			metrics.PullRows.WithLabelValues("skipped").Inc()
			continue
		case errors.Is(err, booking.ErrNotFound):
			// brand new row
		default:
			return sum, fmt.Errorf("pull aborted at row %d: %w", i, err)
		}

		rec, err := e.recordFromRow(row, key)
		if err != nil {
			e.Log.Warn().Int("row", i).Err(err).Msg("rejecting source row")
			sum.Errored = append(sum.Errored, RowError{Row: i, Reason: err.Error()})
			metrics.PullRows.WithLabelValues("errored").Inc()
			continue
		}

		id, err := e.Store.NextID(ctx, e.Mappings.Prefix(rec.Booking.GroupType), rec.Booking.Arriving.Year())
		if err != nil {
			return sum, fmt.Errorf("pull aborted at row %d: %w", i, err)
		}
		rec.Booking.ID = id

		err = e.Store.Create(ctx, rec)
		switch {
		case err == nil:
			sum.Created++
			metrics.PullRows.WithLabelValues("created").Inc()
			e.Log.Info().Str("booking_id", id).Msg("new booking added")
		case errors.Is(err, booking.ErrConflict):
			// Lost a uniqueness race with a concurrent writer; the row is
			// tracked either way.
			sum.Skipped++
			metrics.PullRows.WithLabelValues("skipped").Inc()
		default:
			return sum, fmt.Errorf("pull aborted at row %d: %w", i, err)
		}
	}
	return sum, nil
}

// recordFromRow maps a raw row onto a new Record at status New. Any
// missing required field or an inverted date range makes the row
// malformed.
func (e *Engine) recordFromRow(row RawRow, key string) (booking.Record, error) {
	km := e.Mappings.KeyMapping

	arriving, err := e.parseRowDateTime(row[fieldArrival])
	if err != nil {
		return booking.Record{}, fmt.Errorf("%w: arrival: %v", booking.ErrMalformedRow, err)
	}

	departing, err := e.parseDeparture(arriving, row[fieldDeparture])
	if err != nil {
		return booking.Record{}, fmt.Errorf("%w: departure: %v", booking.ErrMalformedRow, err)
	}
	if !arriving.Before(departing) {
		return booking.Record{}, fmt.Errorf("%w: arrival must be before departure", booking.ErrMalformedRow)
	}

	submitted := e.Now()
	if raw := strings.TrimSpace(row[fieldTimestamp]); raw != "" {
		if ts, err := e.parseRowDateTime(raw); err == nil {
			submitted = ts
		}
	}

	email := strings.TrimSpace(row[km.Leader.Email])
	phone := strings.TrimSpace(row[km.Leader.Phone])
	if email == "" && phone == "" {
		return booking.Record{}, fmt.Errorf("%w: leader contact missing", booking.ErrMalformedRow)
	}

	size, err := strconv.Atoi(strings.TrimSpace(row[km.Booking.GroupSize]))
	if err != nil || size < 1 {
		return booking.Record{}, fmt.Errorf("%w: group size %q", booking.ErrMalformedRow, row[km.Booking.GroupSize])
	}

	facilities := splitList(row[km.Booking.Facilities])
	if len(facilities) == 0 {
		return booking.Record{}, fmt.Errorf("%w: no facilities requested", booking.ErrMalformedRow)
	}

	groupType := strings.TrimSpace(row[fieldGroupType])
	if groupType == "" {
		groupType = e.Mappings.DefaultGroupType
	}

	var cost int64
	if raw := strings.TrimSpace(row[km.Booking.CostEstimate]); raw != "" {
		cost, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || cost < 0 {
			return booking.Record{}, fmt.Errorf("%w: cost estimate %q", booking.ErrMalformedRow, raw)
		}
	}

	src := make(map[string]string, len(row))
	for k, v := range row {
		src[k] = v
	}

	rec := booking.Record{
		Booking: booking.Booking{
			ExternalKey:        key,
			GroupName:          strings.TrimSpace(row[km.Booking.GroupName]),
			GroupType:          groupType,
			GroupSize:          size,
			LeaderName:         strings.TrimSpace(row[km.Leader.Name]),
			LeaderPhone:        phone,
			LeaderEmail:        email,
			Submitted:          submitted,
			Arriving:           arriving,
			Departing:          departing,
			Facilities:         facilities,
			CostEstimate:       cost,
			OriginalSourceData: src,
		},
		Tracking: booking.TrackingRecord{
			Status:         booking.StatusNew,
			BookersComment: strings.TrimSpace(row[km.Booking.Comment]),
			Notes:          []string{booking.NoteEntry(e.Now(), e.Location, "Pulled from sheets")},
		},
	}
	return rec, nil
}

func (e *Engine) parseRowDateTime(raw string) (time.Time, error) {
	return time.ParseInLocation(rowDateTimeFormat, strings.TrimSpace(raw), e.Location)
}

// parseDeparture combines a time-of-day with the arrival date, or accepts
// a full date-time for multi-day stays.
func (e *Engine) parseDeparture(arriving time.Time, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if dt, err := time.ParseInLocation(rowDateTimeFormat, raw, e.Location); err == nil {
		return dt, nil
	}
	t, err := time.ParseInLocation(rowTimeFormat, raw, e.Location)
	if err != nil {
		return time.Time{}, err
	}
	a := arriving.In(e.Location)
	return time.Date(a.Year(), a.Month(), a.Day(), t.Hour(), t.Minute(), t.Second(), 0, e.Location), nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
