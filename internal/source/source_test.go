package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Timestamp", "timestamp"},
		{"Number of people?", "number_of_people"},
		{"Arrival Date/Time", "arrival_date_time"},
		{"Mobile number for lead person", "mobile_number_for_lead_person"},
		{"  Email Address  ", "email_address"},
		{"Anything else we should know?", "anything_else_we_should_know"},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := NormalizeField(tt.in); got != tt.want {
			t.Fatalf("NormalizeField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileSourceRows(t *testing.T) {
	csv := "Timestamp,Arrival Date/Time,Departure Time,Number of people?,Email Address\n" +
		"01/05/2025 09:30:00,01/06/2025 10:00:00,16:00:00,12,pat@example.org\n" +
		"02/05/2025 11:00:00,05/07/2025 14:00:00,06/07/2025 11:00:00,30,sam@example.org\n"

	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	rows, err := FileSource{Path: path}.Rows(context.Background())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["arrival_date_time"] != "01/06/2025 10:00:00" {
		t.Fatalf("row 0 arrival = %q", rows[0]["arrival_date_time"])
	}
	if rows[0]["number_of_people"] != "12" {
		t.Fatalf("row 0 size = %q", rows[0]["number_of_people"])
	}
	if rows[1]["email_address"] != "sam@example.org" {
		t.Fatalf("row 1 email = %q", rows[1]["email_address"])
	}
}

func TestFileSourceEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	rows, err := FileSource{Path: path}.Rows(context.Background())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestFileSourceMissing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "nope.csv")}.Rows(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
