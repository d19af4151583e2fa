// Package postgres implements store.BookingStore on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/db"
	"github.com/example/campsite-bookings/internal/store"
)

type Store struct {
	db *db.DB
}

func NewStore(d *db.DB) *Store { return &Store{db: d} }

const liveColumns = `id,external_key,group_name,group_type,group_size,leader_name,leader_phone,leader_email,submitted,arriving,departing,facilities,cost_estimate,original_source,status,pend_question,cancel_reason,bookers_comment,needs_invoice,notes`

func (s *Store) Create(ctx context.Context, rec booking.Record) error {
	b, t := rec.Booking, rec.Tracking
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		// The unique index only spans the live table; an archived booking
		// with the same external key must also block the insert.
		var archived bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM bookings_archive WHERE external_key=$1)`,
			b.ExternalKey).Scan(&archived); err != nil {
			return err
		}
		if archived {
			return fmt.Errorf("%w: external key archived", booking.ErrConflict)
		}
		_, err := tx.Exec(ctx, `
INSERT INTO bookings(`+liveColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
			b.ID, b.ExternalKey, b.GroupName, b.GroupType, b.GroupSize,
			b.LeaderName, b.LeaderPhone, b.LeaderEmail,
			b.Submitted, b.Arriving, b.Departing,
			b.Facilities, b.CostEstimate, b.OriginalSourceData,
			t.Status, t.PendQuestion, t.CancelReason, t.BookersComment, t.NeedsInvoice, t.Notes)
		return err
	})
	return classifyPreserving(err)
}

func (s *Store) Get(ctx context.Context, id string) (booking.Record, error) {
	row := s.db.QueryRow(ctx, `SELECT `+liveColumns+` FROM bookings WHERE id=$1`, id)
	rec, err := scanLive(row)
	if err != nil {
		return booking.Record{}, db.Classify(err)
	}
	return rec, nil
}

func (s *Store) GetByExternalKey(ctx context.Context, key string) (booking.Record, error) {
	row := s.db.QueryRow(ctx, `SELECT `+liveColumns+` FROM bookings WHERE external_key=$1`, key)
	rec, err := scanLive(row)
	if err == nil {
		return rec, nil
	}

	row = s.db.QueryRow(ctx, `
SELECT id,external_key,group_name,group_type,group_size,submitted,arriving,departing,facilities,cost_estimate,original_source,status,cancel_reason,bookers_comment,notes
FROM bookings_archive WHERE external_key=$1`, key)
	rec, aerr := scanArchive(row)
	if aerr != nil {
		return booking.Record{}, db.Classify(err)
	}
	return rec, nil
}

func (s *Store) UpdateTracking(ctx context.Context, id string, t booking.TrackingRecord) error {
	return s.exec(ctx, `
UPDATE bookings
SET status=$2, pend_question=$3, cancel_reason=$4, bookers_comment=$5, needs_invoice=$6, notes=$7, updated_at=now()
WHERE id=$1`,
		id, t.Status, t.PendQuestion, t.CancelReason, t.BookersComment, t.NeedsInvoice, t.Notes)
}

func (s *Store) UpdateBookingFields(ctx context.Context, id string, b booking.Booking) error {
	return s.exec(ctx, `
UPDATE bookings
SET group_name=$2, group_type=$3, group_size=$4, leader_name=$5, leader_phone=$6, leader_email=$7,
    arriving=$8, departing=$9, facilities=$10, cost_estimate=$11, updated_at=now()
WHERE id=$1`,
		id, b.GroupName, b.GroupType, b.GroupSize, b.LeaderName, b.LeaderPhone, b.LeaderEmail,
		b.Arriving, b.Departing, b.Facilities, b.CostEstimate)
}

// exec wraps a single-row UPDATE, reporting NotFound when nothing matched.
func (s *Store) exec(ctx context.Context, sql string, args ...any) error {
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %v", booking.ErrNotFound, args[0])
		}
		return nil
	})
	return classifyPreserving(err)
}

func (s *Store) ListActive(ctx context.Context, f store.Filter) ([]booking.Record, error) {
	sql := `SELECT ` + liveColumns + ` FROM bookings WHERE 1=1`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		sql += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		args = append(args, f.To, f.From)
		sql += fmt.Sprintf(" AND arriving < $%d AND departing > $%d", len(args)-1, len(args))
	}
	sql += `
ORDER BY array_position(ARRAY['New','Pending','Confirmed','Invoice','Completed','Cancelled'], status), arriving, id`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []booking.Record
	for rows.Next() {
		rec, err := scanLive(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

func (s *Store) ListArchive(ctx context.Context) ([]booking.Record, error) {
	rows, err := s.db.Query(ctx, `
SELECT id,external_key,group_name,group_type,group_size,submitted,arriving,departing,facilities,cost_estimate,original_source,status,cancel_reason,bookers_comment,notes
FROM bookings_archive
ORDER BY departing, id`)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []booking.Record
	for rows.Next() {
		rec, err := scanArchive(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

func (s *Store) MoveToArchive(ctx context.Context, id string) error {
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		// Leader personal data is dropped on the way into the archive.
		tag, err := tx.Exec(ctx, `
INSERT INTO bookings_archive(id,external_key,group_name,group_type,group_size,submitted,arriving,departing,facilities,cost_estimate,original_source,status,cancel_reason,bookers_comment,notes)
SELECT id,external_key,group_name,group_type,group_size,submitted,arriving,departing,facilities,cost_estimate,original_source,status,cancel_reason,bookers_comment,notes
FROM bookings WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", booking.ErrNotFound, id)
		}
		_, err = tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
		return err
	})
	return classifyPreserving(err)
}

func (s *Store) NextID(ctx context.Context, prefix string, year int) (string, error) {
	scope := fmt.Sprintf("%s-%d", prefix, year)
	var idx int
	err := s.db.QueryRow(ctx, `
INSERT INTO booking_id_seq(scope, last_idx) VALUES ($1, 1)
ON CONFLICT (scope) DO UPDATE SET last_idx = booking_id_seq.last_idx + 1
RETURNING last_idx`, scope).Scan(&idx)
	if err != nil {
		return "", db.Classify(err)
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, idx), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLive(row scanner) (booking.Record, error) {
	var rec booking.Record
	b, t := &rec.Booking, &rec.Tracking
	err := row.Scan(
		&b.ID, &b.ExternalKey, &b.GroupName, &b.GroupType, &b.GroupSize,
		&b.LeaderName, &b.LeaderPhone, &b.LeaderEmail,
		&b.Submitted, &b.Arriving, &b.Departing,
		&b.Facilities, &b.CostEstimate, &b.OriginalSourceData,
		&t.Status, &t.PendQuestion, &t.CancelReason, &t.BookersComment, &t.NeedsInvoice, &t.Notes,
	)
	return rec, err
}

func scanArchive(row scanner) (booking.Record, error) {
	var rec booking.Record
	b, t := &rec.Booking, &rec.Tracking
	err := row.Scan(
		&b.ID, &b.ExternalKey, &b.GroupName, &b.GroupType, &b.GroupSize,
		&b.Submitted, &b.Arriving, &b.Departing,
		&b.Facilities, &b.CostEstimate, &b.OriginalSourceData,
		&t.Status, &t.CancelReason, &t.BookersComment, &t.Notes,
	)
	return rec, err
}

// classifyPreserving classifies driver errors but leaves errors already in
// the booking taxonomy untouched.
func classifyPreserving(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{booking.ErrNotFound, booking.ErrConflict, booking.ErrUnavailable} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return db.Classify(err)
}
