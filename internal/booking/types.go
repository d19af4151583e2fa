package booking

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusNew       Status = "New"
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusInvoice   Status = "Invoice"
	StatusCompleted Status = "Completed"
)

// Statuses in display order (active workflow first, terminal last).
func Statuses() []Status {
	return []Status{StatusNew, StatusPending, StatusConfirmed, StatusInvoice, StatusCompleted, StatusCancelled}
}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses() {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Booking is one reservation request. ID, ExternalKey, Submitted and
// OriginalSourceData are set once at creation and never change.
type Booking struct {
	ID          string
	ExternalKey string

	GroupName   string
	GroupType   string
	GroupSize   int
	LeaderName  string
	LeaderPhone string
	LeaderEmail string

	Submitted time.Time
	Arriving  time.Time
	Departing time.Time

	Facilities   []string
	CostEstimate int64 // minor currency units

	// Raw import row, kept verbatim for audit/display.
	OriginalSourceData map[string]string
}

func (b Booking) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("id required")
	}
	if b.ExternalKey == "" {
		return fmt.Errorf("external key required")
	}
	if b.LeaderEmail == "" && b.LeaderPhone == "" {
		return fmt.Errorf("leader contact required")
	}
	if b.GroupSize < 1 {
		return fmt.Errorf("group_size must be >= 1")
	}
	if b.Arriving.IsZero() || b.Departing.IsZero() {
		return fmt.Errorf("arriving and departing required")
	}
	if !b.Arriving.Before(b.Departing) {
		return fmt.Errorf("arriving must be before departing")
	}
	if len(b.Facilities) == 0 {
		return fmt.Errorf("at least one facility required")
	}
	if b.CostEstimate < 0 {
		return fmt.Errorf("cost_estimate must not be negative")
	}
	return nil
}

// NoteTimeFormat is the timestamp layout used in notes log entries.
const NoteTimeFormat = "2006-01-02 15:04:05"

// NoteEntry formats one notes log line with its timestamp rendered in the
// site timezone.
func NoteEntry(ts time.Time, loc *time.Location, msg string) string {
	return fmt.Sprintf("[%s]: %s", ts.In(loc).Format(NoteTimeFormat), msg)
}

// TrackingRecord is the mutable workflow state attached 1:1 to a Booking.
type TrackingRecord struct {
	Status         Status
	PendQuestion   string // set only while Pending
	CancelReason   string // set on Cancelled, immutable until resurrection
	BookersComment string
	NeedsInvoice   bool

	// Append-only transition history, oldest first.
	Notes []string
}

// Record pairs a Booking with its TrackingRecord, the unit the store deals in.
type Record struct {
	Booking  Booking
	Tracking TrackingRecord
}

// Clone returns a deep copy so store internals never alias caller memory.
func (r Record) Clone() Record {
	out := r
	if r.Booking.Facilities != nil {
		out.Booking.Facilities = append([]string(nil), r.Booking.Facilities...)
	}
	if r.Booking.OriginalSourceData != nil {
		m := make(map[string]string, len(r.Booking.OriginalSourceData))
		for k, v := range r.Booking.OriginalSourceData {
			m[k] = v
		}
		out.Booking.OriginalSourceData = m
	}
	if r.Tracking.Notes != nil {
		out.Tracking.Notes = append([]string(nil), r.Tracking.Notes...)
	}
	return out
}
