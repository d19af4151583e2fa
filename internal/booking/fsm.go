package booking

// transitions is the authoritative edge table for the status workflow.
// Cancelled->New is additionally guarded at request time: the arrival date
// must still be in the future.
var transitions = map[Status][]Status{
	StatusNew:       {StatusPending, StatusConfirmed, StatusCancelled},
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusInvoice},
	StatusCancelled: {StatusNew},
	StatusInvoice:   {StatusCompleted},
	StatusCompleted: {},
}

// CanTransition reports whether from -> to is an edge of the table.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transitions returns the allowed targets from a status, for display.
func Transitions(from Status) []Status {
	return append([]Status(nil), transitions[from]...)
}

// RequiresReason reports whether a transition into the target status must
// carry a non-empty reason (cancellation reason or pending question).
func RequiresReason(to Status) bool {
	return to == StatusCancelled || to == StatusPending
}

// Editable reports whether booking fields may still be modified.
func Editable(s Status) bool {
	switch s {
	case StatusNew, StatusPending, StatusConfirmed:
		return true
	}
	return false
}

// Archivable reports whether a status is eligible for the retention sweep.
func Archivable(s Status) bool {
	return s == StatusCancelled || s == StatusCompleted
}

// ActiveForConflicts reports whether a booking in this status counts when
// detecting facility clashes. Only cancellation takes a booking out of the
// calendar.
func ActiveForConflicts(s Status) bool {
	return s != StatusCancelled
}

// BlocksConfirmation reports whether a booking in this status holds its
// calendar slot against a competing confirmation. New and Pending requests
// are clash warnings on the detail view but do not block each other;
// confirmation does.
func BlocksConfirmation(s Status) bool {
	switch s {
	case StatusConfirmed, StatusInvoice, StatusCompleted:
		return true
	}
	return false
}
