package booking

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusNew, StatusPending, true},
		{StatusNew, StatusConfirmed, true},
		{StatusNew, StatusCancelled, true},
		{StatusNew, StatusInvoice, false},
		{StatusNew, StatusCompleted, false},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusNew, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusInvoice, true},
		{StatusConfirmed, StatusCompleted, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusNew, true},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusInvoice, StatusCompleted, true},
		{StatusInvoice, StatusCancelled, false},
		{StatusCompleted, StatusNew, false},
		{StatusCompleted, StatusInvoice, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	if got := Transitions(StatusCompleted); len(got) != 0 {
		t.Fatalf("Completed should have no outbound transitions, got %v", got)
	}
}

func TestRequiresReason(t *testing.T) {
	for _, s := range Statuses() {
		want := s == StatusCancelled || s == StatusPending
		if got := RequiresReason(s); got != want {
			t.Errorf("RequiresReason(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestEditable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusNew, true},
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusCancelled, false},
		{StatusInvoice, false},
		{StatusCompleted, false},
	}
	for _, tc := range tests {
		if got := Editable(tc.status); got != tc.want {
			t.Errorf("Editable(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestArchivable(t *testing.T) {
	for _, s := range Statuses() {
		want := s == StatusCancelled || s == StatusCompleted
		if got := Archivable(s); got != want {
			t.Errorf("Archivable(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("confirmed"); err != nil || s != StatusConfirmed {
		t.Fatalf("ParseStatus(confirmed) = %v, %v", s, err)
	}
	if _, err := ParseStatus("Archived"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
