// Package source supplies raw submission rows to the reconciliation
// engine. The engine only cares about the field contract, not the
// transport; FileSource reads the sheet's CSV export, which is the
// transport this deployment uses.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/example/campsite-bookings/internal/reconcile"
)

type RowSource interface {
	Rows(ctx context.Context) ([]reconcile.RawRow, error)
}

// FileSource reads rows from a CSV export. The header row supplies field
// names, normalized to snake_case so they match the mapping file.
type FileSource struct {
	Path string
}

func (f FileSource) Rows(ctx context.Context) ([]reconcile.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	if len(records) < 1 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = NormalizeField(h)
	}

	var rows []reconcile.RawRow
	for _, rec := range records[1:] {
		row := make(reconcile.RawRow, len(header))
		for i, v := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			row[header[i]] = strings.TrimSpace(v)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// NormalizeField turns a human column heading into a mapping key:
// "Number of people?" -> "number_of_people".
func NormalizeField(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range h {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
