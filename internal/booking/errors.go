package booking

import "errors"

// Failure taxonomy shared by the core engines and both store
// implementations. Callers classify with errors.Is.
var (
	// ErrNotFound is returned when a booking id (or external key) does not
	// exist in the active set.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidTransition is returned when a status change is not an edge
	// of the transition table, or a required reason is missing.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflictBlocked is returned when confirmation is refused because
	// another non-cancelled booking clashes on facility and dates.
	ErrConflictBlocked = errors.New("confirmation blocked by clashing booking")

	// ErrReadOnly is returned when a field edit is attempted on a booking
	// whose status no longer permits edits.
	ErrReadOnly = errors.New("booking is read-only in its current status")

	// ErrMalformedRow is returned for an imported row missing required
	// fields or carrying an unparseable/inverted date range.
	ErrMalformedRow = errors.New("malformed source row")

	// ErrConflict is the store-level uniqueness violation (duplicate id or
	// external key).
	ErrConflict = errors.New("store conflict")

	// ErrUnavailable is returned when the store cannot be reached or a
	// store call times out.
	ErrUnavailable = errors.New("store unavailable")
)
